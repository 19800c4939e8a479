package eventbus

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rcarvalho-pb/checkout_system-go/internal/domain/event"
)

type HandlerFunc func(event.Event) error

// InMemoryBus fans events out to handlers and to channel watchers. Watchers
// that fall behind lose events rather than block publishers.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[event.Type][]HandlerFunc
	watchers map[event.Type]map[uint64]chan event.Event
	nextID   uint64
	dropped  atomic.Uint64
}

func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[event.Type][]HandlerFunc),
		watchers: make(map[event.Type]map[uint64]chan event.Event),
	}
}

func (b *InMemoryBus) Subscribe(eventType event.Type, handler HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Watch returns a channel receiving every event of eventType published after
// the call, and a function that stops the watch and closes the channel.
func (b *InMemoryBus) Watch(eventType event.Type, buffer int) (<-chan event.Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan event.Event, buffer)

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	if b.watchers[eventType] == nil {
		b.watchers[eventType] = make(map[uint64]chan event.Event)
	}
	b.watchers[eventType][id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			delete(b.watchers[eventType], id)
			if len(b.watchers[eventType]) == 0 {
				delete(b.watchers, eventType)
			}
			close(ch)
		})
	}
	return ch, cancel
}

// Publish runs every handler even when one fails and joins their errors.
func (b *InMemoryBus) Publish(evt event.Event) error {
	b.mu.RLock()
	handlers := b.handlers[evt.Type]

	for _, ch := range b.watchers[evt.Type] {
		select {
		case ch <- evt:
		default:
			b.dropped.Add(1)
		}
	}
	b.mu.RUnlock()

	var errs []error
	for _, handler := range handlers {
		if err := handler(evt); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (b *InMemoryBus) Watchers(eventType event.Type) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.watchers[eventType])
}

// Dropped counts events a slow watcher missed.
func (b *InMemoryBus) Dropped() uint64 {
	return b.dropped.Load()
}
