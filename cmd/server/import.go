package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rcarvalho-pb/checkout_system-go/internal/domain/checkout"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infrastructure/provider/custody"
)

type accountSource interface {
	GetAccount(ctx context.Context, id string) (*custody.Account, error)
	GetContact(ctx context.Context, id string) (*custody.Contact, error)
}

// accountOpener opens a sandbox account, which otherwise stays pending.
type accountOpener interface {
	OpenAccount(ctx context.Context, id string) error
}

const accountOpened = "opened"

var errAccountLinked = errors.New("account already linked to another user")

// importCustodialAccount links accountID to userID. A nil opener leaves the
// account status as the provider reports it.
func importCustodialAccount(ctx context.Context, src accountSource, opener accountOpener, repo checkout.CustodialAccountRepository, userID, accountID string) (*checkout.CustodialAccount, error) {
	existing, err := repo.FindByID(accountID)
	switch {
	case err == nil && existing.UserID != userID:
		return nil, fmt.Errorf("%w: %s", errAccountLinked, existing.UserID)
	case err != nil && !errors.Is(err, checkout.ErrAccountNotFound):
		return nil, err
	}

	acct, err := src.GetAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("fetch account: %w", err)
	}
	if opener != nil && acct.Status != accountOpened {
		if err := opener.OpenAccount(ctx, acct.ID); err != nil {
			return nil, fmt.Errorf("open sandbox account: %w", err)
		}
		if acct, err = src.GetAccount(ctx, accountID); err != nil {
			return nil, fmt.Errorf("fetch account: %w", err)
		}
	}
	if acct.ContactID == "" {
		return nil, fmt.Errorf("account %s has no primary contact", accountID)
	}

	contact, err := src.GetContact(ctx, acct.ContactID)
	if err != nil {
		return nil, fmt.Errorf("fetch contact: %w", err)
	}

	now := time.Now().UTC()
	out := &checkout.CustodialAccount{
		ID:           acct.ID,
		ContactID:    contact.ID,
		UserID:       userID,
		Status:       acct.Status,
		FirstName:    contact.FirstName,
		LastName:     contact.LastName,
		Email:        contact.Email,
		PhoneNumber:  contact.PhoneNumber,
		Verification: contact.Verification,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if existing != nil {
		out.CreatedAt = existing.CreatedAt
	}

	if err := repo.Save(out); err != nil {
		return nil, err
	}
	return out, nil
}
