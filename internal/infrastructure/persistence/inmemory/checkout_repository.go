package inmemory

import (
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/rcarvalho-pb/checkout_system-go/internal/domain/checkout"
)

var ErrDuplicateID = errors.New("duplicate id")

type CheckoutRepository struct {
	mu        sync.RWMutex
	checkouts map[string]checkout.Checkout
}

func NewCheckoutRepository() *CheckoutRepository {
	return &CheckoutRepository{
		checkouts: make(map[string]checkout.Checkout),
	}
}

func (r *CheckoutRepository) Save(c *checkout.Checkout) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.checkouts[c.ID]; exists {
		return ErrDuplicateID
	}
	r.checkouts[c.ID] = *c
	return nil
}

func (r *CheckoutRepository) FindByID(id string) (*checkout.Checkout, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.checkouts[id]
	if !ok {
		return nil, checkout.ErrCheckoutNotFound
	}
	return &c, nil
}

func (r *CheckoutRepository) TransitionStatus(id string, to checkout.Status, from ...checkout.Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.checkouts[id]
	if !ok {
		return false, checkout.ErrCheckoutNotFound
	}
	if !slices.Contains(from, c.Status) {
		return false, nil
	}

	c.Status = to
	c.UpdatedAt = time.Now()
	r.checkouts[id] = c
	return true, nil
}

func (r *CheckoutRepository) FindPendingByCustodialAccount(accountID string) ([]*checkout.Checkout, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*checkout.Checkout
	for _, c := range r.checkouts {
		if c.CustodialAccountID == accountID && c.Status == checkout.StatusPending {
			out = append(out, &c)
		}
	}
	slices.SortFunc(out, func(a, b *checkout.Checkout) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

// Checkouts returns a snapshot of every stored checkout.
func (r *CheckoutRepository) Checkouts() map[string]checkout.Checkout {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return maps.Clone(r.checkouts)
}

type RequestRepository struct {
	mu       sync.RWMutex
	requests map[string]checkout.CheckoutRequest
}

func NewRequestRepository() *RequestRepository {
	return &RequestRepository{
		requests: make(map[string]checkout.CheckoutRequest),
	}
}

func (r *RequestRepository) Save(req *checkout.CheckoutRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.requests[req.ID]; exists {
		return ErrDuplicateID
	}
	r.requests[req.ID] = *req
	return nil
}

func (r *RequestRepository) FindByID(id string) (*checkout.CheckoutRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.requests[id]
	if !ok {
		return nil, checkout.ErrRequestNotFound
	}
	return &req, nil
}

func (r *RequestRepository) UpdateStatus(id string, status checkout.Status, transactionHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[id]
	if !ok {
		return checkout.ErrRequestNotFound
	}

	req.Status = status
	if transactionHash != "" {
		req.TransactionHash = transactionHash
	}
	req.UpdatedAt = time.Now()
	r.requests[id] = req
	return nil
}
