package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Checkout groups the collectors of the checkout service. A nil *Checkout
// records nothing.
type Checkout struct {
	Checkouts        *prometheus.CounterVec
	StepOutcomes     *prometheus.CounterVec
	Webhooks         *prometheus.CounterVec
	LockRejections   prometheus.Counter
	OutboxDeliveries *prometheus.CounterVec
	ProviderLatency  *prometheus.HistogramVec
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
}

func NewCheckout(reg prometheus.Registerer) *Checkout {
	f := promauto.With(reg)

	return &Checkout{
		Checkouts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkouts_total",
				Help: "Checkouts by lifecycle status reached",
			},
			[]string{"status"},
		),
		StepOutcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_pipeline_steps_total",
				Help: "Pipeline step outcomes",
			},
			[]string{"step", "result"},
		),
		Webhooks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "custody_webhooks_total",
				Help: "Custody webhook deliveries by resource type and result",
			},
			[]string{"resource_type", "result"},
		),
		LockRejections: f.NewCounter(
			prometheus.CounterOpts{
				Name: "named_lock_rejections_total",
				Help: "Lock acquisitions rejected because the key backlog was full",
			},
		),
		OutboxDeliveries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outbox_deliveries_total",
				Help: "Outbound partner webhook delivery attempts",
			},
			[]string{"result"},
		),
		ProviderLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "provider_request_duration_seconds",
				Help:    "External provider call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "operation"},
		),
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
	}
}

func (c *Checkout) IncCheckout(status string) {
	if c == nil {
		return
	}
	c.Checkouts.WithLabelValues(status).Inc()
}

func (c *Checkout) IncStep(step, result string) {
	if c == nil {
		return
	}
	c.StepOutcomes.WithLabelValues(step, result).Inc()
}

func (c *Checkout) IncWebhook(resourceType, result string) {
	if c == nil {
		return
	}
	c.Webhooks.WithLabelValues(resourceType, result).Inc()
}

func (c *Checkout) IncLockRejected() {
	if c == nil {
		return
	}
	c.LockRejections.Inc()
}

func (c *Checkout) IncOutbox(result string) {
	if c == nil {
		return
	}
	c.OutboxDeliveries.WithLabelValues(result).Inc()
}

func (c *Checkout) ObserveProvider(provider, operation string, d time.Duration) {
	if c == nil {
		return
	}
	c.ProviderLatency.WithLabelValues(provider, operation).Observe(d.Seconds())
}

func (c *Checkout) ObserveHTTP(method, endpoint, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, endpoint, status).Inc()
	c.HTTPDuration.WithLabelValues(method, endpoint).Observe(d.Seconds())
}
