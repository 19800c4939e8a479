package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rcarvalho-pb/checkout_system-go/internal/application/worker"
	"github.com/rcarvalho-pb/checkout_system-go/internal/domain/event"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infra/logging"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infra/metrics"
)

// Sender delivers one recorded event. The payload arrives as json.RawMessage.
type Sender interface {
	Send(ctx context.Context, evt event.Event) error
}

type Dispatcher struct {
	Repo         Repository
	Sender       Sender
	Retry        *worker.RetryScheduler
	PollInterval time.Duration
	BatchSize    int
	Logger       logging.Logger
	Metrics      *metrics.Checkout
	Now          func() time.Time
}

func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.DispatchOnce(ctx)
		}
	}
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Dispatcher) DispatchOnce(ctx context.Context) {
	events, err := d.Repo.FindDue(d.now(), d.BatchSize)
	if err != nil {
		d.Logger.Error("load outbox events", map[string]any{"err": err})
		return
	}

	for _, evt := range events {
		if ctx.Err() != nil {
			return
		}
		d.deliver(ctx, evt)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, evt OutboxEvent) {
	err := d.Sender.Send(ctx, event.Event{
		Type:    evt.Type,
		Payload: json.RawMessage(evt.Payload),
	})
	if err == nil {
		d.Metrics.IncOutbox("delivered")
		if err := d.Repo.MarkPublished(evt.ID); err != nil {
			d.Logger.Error("mark outbox event published", map[string]any{
				"outbox-id": evt.ID,
				"err":       err,
			})
		}
		return
	}

	attempts := evt.Attempts + 1
	fields := map[string]any{
		"outbox-id":  evt.ID,
		"event-type": evt.Type,
		"attempt":    attempts,
		"err":        err,
	}

	delay, retry := d.Retry.NextDelay(attempts)
	if !retry {
		d.Metrics.IncOutbox("abandoned")
		d.Logger.Error("outbox event abandoned", fields)
		if err := d.Repo.MarkAbandoned(evt.ID, attempts, err.Error()); err != nil {
			d.Logger.Error("mark outbox event abandoned", map[string]any{"outbox-id": evt.ID, "err": err})
		}
		return
	}

	d.Metrics.IncOutbox("retry")
	fields["retry-in"] = delay.String()
	d.Logger.Warn("outbox delivery failed", fields)

	if err := d.Repo.MarkRetry(evt.ID, attempts, d.now().Add(delay), err.Error()); err != nil {
		d.Logger.Error("schedule outbox retry", map[string]any{"outbox-id": evt.ID, "err": err})
	}
}
