package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rcarvalho-pb/checkout_system-go/internal/infra/logging"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infra/metrics"
)

type Handlers struct {
	Checkout      *CheckoutHandler
	Webhook       *WebhookHandler
	Subscriptions *SubscriptionHandler
}

func NewRouter(h Handlers, m *metrics.Checkout, gatherer prometheus.Gatherer, logger logging.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggingMiddleware(logger))
	router.Use(PrometheusMiddleware(m))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	router.POST("/checkouts", h.Checkout.CreateCheckout)
	router.GET("/checkouts/:id", h.Checkout.GetCheckout)
	router.GET("/checkouts/:id/status", h.Checkout.GetCheckoutStatus)
	router.POST("/checkout-requests", h.Checkout.CreateCheckoutRequest)

	router.POST("/webhooks/custody", h.Webhook.Custody)

	router.POST("/subscriptions", h.Subscriptions.Publish)
	router.GET("/subscriptions/transactions/:checkoutId", h.Subscriptions.Transactions)
	router.GET("/subscriptions/accounts/:userId", h.Subscriptions.Accounts)
	router.GET("/subscriptions/topics/:type/:id", h.Subscriptions.Topic)

	return router
}
