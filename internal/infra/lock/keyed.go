package lock

import (
	"context"
	"errors"
	"sync"
)

const DefaultMaxPending = 1000

var ErrBacklogExceeded = errors.New("lock backlog exceeded")

type entry struct {
	sem  chan struct{}
	refs int // holder plus waiters
}

// Keyed serializes work per key. Different keys never block each other.
// Each key admits one holder and at most maxPending waiters; callers beyond
// that fail immediately with ErrBacklogExceeded.
type Keyed struct {
	mu         sync.Mutex
	entries    map[string]*entry
	maxPending int
}

func NewKeyed(maxPending int) *Keyed {
	if maxPending <= 0 {
		maxPending = DefaultMaxPending
	}
	return &Keyed{
		entries:    make(map[string]*entry),
		maxPending: maxPending,
	}
}

func (k *Keyed) acquire(ctx context.Context, key string) (*entry, error) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		k.entries[key] = e
	}
	if e.refs > k.maxPending {
		k.mu.Unlock()
		return nil, ErrBacklogExceeded
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
		return e, nil
	case <-ctx.Done():
		k.drop(key, e)
		return nil, ctx.Err()
	}
}

func (k *Keyed) release(key string, e *entry) {
	<-e.sem
	k.drop(key, e)
}

func (k *Keyed) drop(key string, e *entry) {
	k.mu.Lock()
	defer k.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
}

// Do runs fn while holding key.
func (k *Keyed) Do(ctx context.Context, key string, fn func(context.Context) error) error {
	e, err := k.acquire(ctx, key)
	if err != nil {
		return err
	}
	defer k.release(key, e)

	return fn(ctx)
}
