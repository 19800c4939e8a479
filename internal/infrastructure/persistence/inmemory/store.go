package inmemory

import (
	"maps"
	"slices"
	"sync"
)

// childStore keeps records owned by a checkout. Values are copied in and out
// so callers never share a row. The latest record saved for a checkout wins.
type childStore[T any] struct {
	mu         sync.RWMutex
	rows       map[string]T
	byCheckout map[string]string

	id       func(*T) string
	checkout func(*T) string
}

func newChildStore[T any](id, checkout func(*T) string) *childStore[T] {
	return &childStore[T]{
		rows:       make(map[string]T),
		byCheckout: make(map[string]string),
		id:         id,
		checkout:   checkout,
	}
}

func (s *childStore[T]) save(v *T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows[s.id(v)] = *v
	if owner := s.checkout(v); owner != "" {
		s.byCheckout[owner] = s.id(v)
	}
}

func (s *childStore[T]) update(v *T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rows[s.id(v)]; !ok {
		return false
	}
	s.rows[s.id(v)] = *v
	return true
}

func (s *childStore[T]) find(id string) (*T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.rows[id]
	if !ok {
		return nil, false
	}
	return &v, true
}

func (s *childStore[T]) findByCheckout(checkoutID string) (*T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byCheckout[checkoutID]
	if !ok {
		return nil, false
	}
	v, ok := s.rows[id]
	if !ok {
		return nil, false
	}
	return &v, true
}

func (s *childStore[T]) all() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Collect(maps.Values(s.rows))
}
