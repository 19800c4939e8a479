package contracts

import "github.com/rcarvalho-pb/checkout_system-go/internal/domain/event"

// EventRecorder persists an event for later delivery.
type EventRecorder interface {
	Record(event.Event) error
}

type EventPublisher interface {
	Publish(event.Event) error
}

// Scheduler queues a pipeline run for a checkout.
type Scheduler interface {
	Schedule(checkoutID string) bool
}
