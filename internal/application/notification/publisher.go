package notification

import (
	"time"

	"github.com/rcarvalho-pb/checkout_system-go/internal/application/contracts"
	"github.com/rcarvalho-pb/checkout_system-go/internal/domain/event"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infra/logging"
)

// Publisher emits typed notifications on the real-time bus. A failing
// publish is logged and never reaches the caller.
type Publisher struct {
	Bus    contracts.EventPublisher
	Logger logging.Logger
	Now    func() time.Time
}

func (p *Publisher) PublishTransactionStatus(payload event.TransactionStatusPayload) {
	if payload.Timestamp.IsZero() {
		payload.Timestamp = p.now()
	}
	p.publish(event.Event{Type: event.TransactionStatus, Payload: payload}, map[string]any{
		"checkout-id": payload.CheckoutID,
		"step":        payload.Step,
		"status":      payload.Status,
	})
}

func (p *Publisher) PublishAccountStatus(payload event.AccountStatusPayload) {
	if payload.Timestamp.IsZero() {
		payload.Timestamp = p.now()
	}
	p.publish(event.Event{Type: event.AccountStatus, Payload: payload}, map[string]any{
		"user-id":    payload.UserID,
		"account-id": payload.AccountID,
	})
}

func (p *Publisher) PublishSubscription(payload event.SubscriptionPayload) {
	if payload.Timestamp.IsZero() {
		payload.Timestamp = p.now()
	}
	p.publish(event.Event{Type: event.Subscription, Payload: payload}, map[string]any{
		"subscription-type": payload.Type,
		"subscription-id":   payload.ID,
	})
}

func (p *Publisher) publish(evt event.Event, fields map[string]any) {
	if p == nil || p.Bus == nil {
		return
	}
	if err := p.Bus.Publish(evt); err != nil && p.Logger != nil {
		fields["topic"] = evt.Type
		fields["err"] = err
		p.Logger.Error("publish notification", fields)
	}
}

func (p *Publisher) now() time.Time {
	if p != nil && p.Now != nil {
		return p.Now()
	}
	return time.Now().UTC()
}
