package custody

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rcarvalho-pb/checkout_system-go/internal/domain/checkout"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infrastructure/provider/idempotency"
)

// Provider is the custody API surface the checkout pipeline uses. Every
// mutating call takes the idempotency key of its logical request.
type Provider interface {
	AddFunds(ctx context.Context, in AddFundsInput, key idempotency.Key) (*checkout.FundsTransfer, error)
	GetFundsTransfer(ctx context.Context, id string) (*FundsTransferState, error)
	CreateQuote(ctx context.Context, accountID string, amount decimal.Decimal, key idempotency.Key) (*checkout.AssetQuote, error)
	ExecuteQuote(ctx context.Context, quoteID string, key idempotency.Key) (*checkout.AssetQuote, error)
	GetQuote(ctx context.Context, id string) (*checkout.AssetQuote, error)
	CreateDisbursementMethod(ctx context.Context, in DisbursementMethodInput, key idempotency.Key) (string, error)
	CreateDisbursement(ctx context.Context, accountID, methodID string, unitCount decimal.Decimal, key idempotency.Key) (*checkout.AssetTransfer, error)
	GetAssetTransfer(ctx context.Context, id string) (*checkout.AssetTransfer, error)
	TransferFunds(ctx context.Context, fromAccountID, toAccountID string, amount decimal.Decimal, key idempotency.Key) (*CashTransfer, error)
	GetAccount(ctx context.Context, id string) (*Account, error)
	GetContact(ctx context.Context, id string) (*Contact, error)
	EnableWebhookConfig(ctx context.Context, id string) error
}

// Sandbox drives resources that never progress on their own outside
// production.
type Sandbox interface {
	SettleFundsTransfer(ctx context.Context, id string) error
	ClearContingentHold(ctx context.Context, id string) error
	SettleAssetTransfer(ctx context.Context, id string) error
	OpenAccount(ctx context.Context, id string) error
}

// StoreObserver is told when the caller has persisted a funds transfer the
// provider created.
type StoreObserver interface {
	FundsTransferStored(ctx context.Context, id string)
}

// AddFundsInput falls back to the configured central account, contact and
// transfer method for empty fields.
type AddFundsInput struct {
	AccountID             string
	ContactID             string
	FundsTransferMethodID string
	Amount                decimal.Decimal
	Reference             string
}

type DisbursementMethodInput struct {
	WalletAddress string
	AccountID     string
	ContactID     string
}

const HoldCleared = "cleared"

type ContingentHold struct {
	ID        string
	Status    string
	ClearedAt *time.Time
}

func (h ContingentHold) Cleared() bool {
	return h.Status == HoldCleared || h.ClearedAt != nil
}

// FundsTransferState is a funds transfer together with its contingent holds.
type FundsTransferState struct {
	Transfer *checkout.FundsTransfer
	Holds    []ContingentHold
}

func (s *FundsTransferState) UnclearedHolds() []ContingentHold {
	if s.Transfer != nil && s.Transfer.ContingenciesClearedAt != nil {
		return nil
	}
	var out []ContingentHold
	for _, h := range s.Holds {
		if !h.Cleared() {
			out = append(out, h)
		}
	}
	return out
}

type CashTransfer struct {
	ID            string
	Status        string
	Amount        decimal.Decimal
	FromAccountID string
	ToAccountID   string
}

func (t *CashTransfer) Failed() bool {
	return checkout.TransferStatus(t.Status).Failed()
}

type Account struct {
	ID        string
	Name      string
	Status    string
	ContactID string
}

type Contact struct {
	ID          string
	AccountID   string
	FirstName   string
	LastName    string
	Email       string
	PhoneNumber string
	DateOfBirth string
	TaxID       string
	Sex         string
	Address     Address

	Verification checkout.Verification
}

type Address struct {
	Street1    string
	Street2    string
	City       string
	Region     string
	PostalCode string
	Country    string
}
