package outbox

import (
	"time"

	"github.com/rcarvalho-pb/checkout_system-go/internal/domain/event"
)

type OutboxEvent struct {
	ID            string
	Type          event.Type
	Payload       []byte
	Published     bool
	Abandoned     bool
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
	CreatedAt     time.Time
}

type Repository interface {
	Save(OutboxEvent) error
	// FindDue returns unpublished, not abandoned events whose next attempt is
	// at or before now, oldest first.
	FindDue(now time.Time, limit int) ([]OutboxEvent, error)
	MarkPublished(id string) error
	MarkRetry(id string, attempts int, next time.Time, lastErr string) error
	MarkAbandoned(id string, attempts int, lastErr string) error
}
