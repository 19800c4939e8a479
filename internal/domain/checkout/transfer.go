package checkout

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferStatus is the provider lifecycle shared by funds and asset transfers.
type TransferStatus string

const (
	TransferPending   TransferStatus = "pending"
	TransferSettled   TransferStatus = "settled"
	TransferCancelled TransferStatus = "cancelled"
	TransferReversed  TransferStatus = "reversed"
)

func (s TransferStatus) Known() bool {
	switch s {
	case TransferPending, TransferSettled, TransferCancelled, TransferReversed:
		return true
	}
	return false
}

func (s TransferStatus) IsTerminal() bool {
	return s == TransferSettled || s.Failed()
}

func (s TransferStatus) Failed() bool {
	return s == TransferCancelled || s == TransferReversed
}

// FundsTransfer moves the charged fiat into the custody ledger.
type FundsTransfer struct {
	ID                     string
	CheckoutID             string
	ContingentHoldID       string
	Status                 TransferStatus
	Amount                 decimal.Decimal
	AmountExpected         decimal.Decimal
	Currency               string
	Reference              string
	ClearsOn               *time.Time
	ContingenciesClearedAt *time.Time
	ContingenciesClearedOn *time.Time
	SettledAt              *time.Time
	CancelledAt            *time.Time
	CancellationDetails    string
	ReversedAt             *time.Time
	ReversedAmount         decimal.Decimal
	ReversalDetails        string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// AssetTransfer disburses the purchased asset to the customer wallet.
type AssetTransfer struct {
	ID                          string
	DisbursementAuthorizationID string
	CheckoutID                  string
	Status                      TransferStatus
	UnitCount                   decimal.Decimal
	UnitCountExpected           decimal.Decimal
	TransactionHash             string
	SettlementDetails           string
	HotTransfer                 bool
	ContingenciesClearedAt      *time.Time
	ContingenciesClearedOn      *time.Time
	CancelledAt                 *time.Time
	ReconciledAt                *time.Time
	CreatedAt                   time.Time
	UpdatedAt                   time.Time
}
