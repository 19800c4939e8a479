package inmemory

import (
	"github.com/rcarvalho-pb/checkout_system-go/internal/domain/checkout"
)

type FundsTransferRepository struct {
	store *childStore[checkout.FundsTransfer]
}

func NewFundsTransferRepository() *FundsTransferRepository {
	return &FundsTransferRepository{store: newChildStore(
		func(t *checkout.FundsTransfer) string { return t.ID },
		func(t *checkout.FundsTransfer) string { return t.CheckoutID },
	)}
}

func (r *FundsTransferRepository) Save(t *checkout.FundsTransfer) error {
	r.store.save(t)
	return nil
}

func (r *FundsTransferRepository) Update(t *checkout.FundsTransfer) error {
	if !r.store.update(t) {
		return checkout.ErrFundsTransferNotFound
	}
	return nil
}

func (r *FundsTransferRepository) FindByID(id string) (*checkout.FundsTransfer, error) {
	t, ok := r.store.find(id)
	if !ok {
		return nil, checkout.ErrFundsTransferNotFound
	}
	return t, nil
}

func (r *FundsTransferRepository) FindByCheckout(checkoutID string) (*checkout.FundsTransfer, error) {
	t, ok := r.store.findByCheckout(checkoutID)
	if !ok {
		return nil, checkout.ErrFundsTransferNotFound
	}
	return t, nil
}

type AssetQuoteRepository struct {
	store *childStore[checkout.AssetQuote]
}

func NewAssetQuoteRepository() *AssetQuoteRepository {
	return &AssetQuoteRepository{store: newChildStore(
		func(q *checkout.AssetQuote) string { return q.ID },
		func(q *checkout.AssetQuote) string { return q.CheckoutID },
	)}
}

func (r *AssetQuoteRepository) Save(q *checkout.AssetQuote) error {
	r.store.save(q)
	return nil
}

func (r *AssetQuoteRepository) Update(q *checkout.AssetQuote) error {
	if !r.store.update(q) {
		return checkout.ErrQuoteNotFound
	}
	return nil
}

func (r *AssetQuoteRepository) FindByID(id string) (*checkout.AssetQuote, error) {
	q, ok := r.store.find(id)
	if !ok {
		return nil, checkout.ErrQuoteNotFound
	}
	return q, nil
}

func (r *AssetQuoteRepository) FindByCheckout(checkoutID string) (*checkout.AssetQuote, error) {
	q, ok := r.store.findByCheckout(checkoutID)
	if !ok {
		return nil, checkout.ErrQuoteNotFound
	}
	return q, nil
}

type AssetTransferRepository struct {
	store *childStore[checkout.AssetTransfer]
}

func NewAssetTransferRepository() *AssetTransferRepository {
	return &AssetTransferRepository{store: newChildStore(
		func(t *checkout.AssetTransfer) string { return t.ID },
		func(t *checkout.AssetTransfer) string { return t.CheckoutID },
	)}
}

func (r *AssetTransferRepository) Save(t *checkout.AssetTransfer) error {
	r.store.save(t)
	return nil
}

func (r *AssetTransferRepository) Update(t *checkout.AssetTransfer) error {
	if !r.store.update(t) {
		return checkout.ErrAssetTransferNotFound
	}
	return nil
}

func (r *AssetTransferRepository) FindByID(id string) (*checkout.AssetTransfer, error) {
	t, ok := r.store.find(id)
	if !ok {
		return nil, checkout.ErrAssetTransferNotFound
	}
	return t, nil
}

func (r *AssetTransferRepository) FindByCheckout(checkoutID string) (*checkout.AssetTransfer, error) {
	t, ok := r.store.findByCheckout(checkoutID)
	if !ok {
		return nil, checkout.ErrAssetTransferNotFound
	}
	return t, nil
}

// Transfers returns every stored asset transfer.
func (r *AssetTransferRepository) Transfers() []checkout.AssetTransfer {
	return r.store.all()
}
