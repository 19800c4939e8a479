package outbox

import (
	"errors"
	"slices"
	"sync"
	"time"
)

var ErrEventNotFound = errors.New("outbox event not found")

type MemoryRepository struct {
	mu     sync.Mutex
	events map[string]OutboxEvent
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{events: make(map[string]OutboxEvent)}
}

func (r *MemoryRepository) Save(evt OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events[evt.ID] = evt
	return nil
}

func (r *MemoryRepository) FindDue(now time.Time, limit int) ([]OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var due []OutboxEvent
	for _, evt := range r.events {
		if evt.Published || evt.Abandoned || evt.NextAttemptAt.After(now) {
			continue
		}
		due = append(due, evt)
	}
	slices.SortFunc(due, func(a, b OutboxEvent) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (r *MemoryRepository) MarkPublished(id string) error {
	return r.update(id, func(evt *OutboxEvent) {
		evt.Published = true
	})
}

func (r *MemoryRepository) MarkRetry(id string, attempts int, next time.Time, lastErr string) error {
	return r.update(id, func(evt *OutboxEvent) {
		evt.Attempts = attempts
		evt.NextAttemptAt = next
		evt.LastError = lastErr
	})
}

func (r *MemoryRepository) MarkAbandoned(id string, attempts int, lastErr string) error {
	return r.update(id, func(evt *OutboxEvent) {
		evt.Abandoned = true
		evt.Attempts = attempts
		evt.LastError = lastErr
	})
}

func (r *MemoryRepository) update(id string, fn func(*OutboxEvent)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	evt, ok := r.events[id]
	if !ok {
		return ErrEventNotFound
	}
	fn(&evt)
	r.events[id] = evt
	return nil
}

// Events returns a snapshot of every stored event.
func (r *MemoryRepository) Events() []OutboxEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]OutboxEvent, 0, len(r.events))
	for _, evt := range r.events {
		out = append(out, evt)
	}
	return out
}
