package inmemory

import (
	"sync"

	"github.com/rcarvalho-pb/checkout_system-go/internal/domain/checkout"
)

type ChargeRepository struct {
	mu         sync.RWMutex
	byCheckout map[string]checkout.Charge
}

func NewChargeRepository() *ChargeRepository {
	return &ChargeRepository{
		byCheckout: make(map[string]checkout.Charge),
	}
}

func (r *ChargeRepository) SaveIfNotExist(ch *checkout.Charge) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byCheckout[ch.CheckoutID]; exists {
		return false, nil
	}

	r.byCheckout[ch.CheckoutID] = *ch
	return true, nil
}

func (r *ChargeRepository) FindByCheckout(checkoutID string) (*checkout.Charge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ch, ok := r.byCheckout[checkoutID]
	if !ok {
		return nil, checkout.ErrChargeNotFound
	}
	return &ch, nil
}
