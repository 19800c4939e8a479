package inmemory

import (
	"sync"
	"time"

	"github.com/rcarvalho-pb/checkout_system-go/internal/domain/checkout"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infrastructure/provider/custody"
)

type CustodialAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]checkout.CustodialAccount
}

func NewCustodialAccountRepository() *CustodialAccountRepository {
	return &CustodialAccountRepository{
		accounts: make(map[string]checkout.CustodialAccount),
	}
}

func (r *CustodialAccountRepository) Save(a *checkout.CustodialAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.accounts[a.ID] = *a
	return nil
}

func (r *CustodialAccountRepository) FindByID(id string) (*checkout.CustodialAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[id]
	if !ok {
		return nil, checkout.ErrAccountNotFound
	}
	return &a, nil
}

func (r *CustodialAccountRepository) FindByUserID(userID string) (*checkout.CustodialAccount, error) {
	return r.findBy(func(a *checkout.CustodialAccount) bool { return a.UserID == userID })
}

func (r *CustodialAccountRepository) FindByContactID(contactID string) (*checkout.CustodialAccount, error) {
	return r.findBy(func(a *checkout.CustodialAccount) bool { return a.ContactID == contactID })
}

func (r *CustodialAccountRepository) findBy(match func(*checkout.CustodialAccount) bool) (*checkout.CustodialAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.accounts {
		if match(&a) {
			return &a, nil
		}
	}
	return nil, checkout.ErrAccountNotFound
}

func (r *CustodialAccountRepository) UpdateVerification(id string, status string, v checkout.Verification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok {
		return checkout.ErrAccountNotFound
	}

	if status != "" {
		a.Status = status
	}
	a.Verification = v
	a.UpdatedAt = time.Now()
	r.accounts[id] = a
	return nil
}

// TokenStore keeps custody service account tokens for the process lifetime.
type TokenStore struct {
	mu     sync.RWMutex
	tokens map[string]custody.Token
}

func NewTokenStore() *TokenStore {
	return &TokenStore{tokens: make(map[string]custody.Token)}
}

func (s *TokenStore) LoadToken(email string) (*custody.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tokens[email]
	if !ok {
		return nil, custody.ErrNoToken
	}
	return &t, nil
}

func (s *TokenStore) SaveToken(email string, t custody.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[email] = t
	return nil
}
