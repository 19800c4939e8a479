package checkout

import (
	"time"

	"github.com/shopspring/decimal"
)

type QuoteStatus string

const (
	QuotePending   QuoteStatus = "pending"
	QuoteExecuted  QuoteStatus = "executed"
	QuoteSettled   QuoteStatus = "settled"
	QuoteCancelled QuoteStatus = "cancelled"
	QuoteExpired   QuoteStatus = "expired"
	QuoteRejected  QuoteStatus = "rejected"
)

func (s QuoteStatus) Known() bool {
	switch s {
	case QuotePending, QuoteExecuted, QuoteSettled, QuoteCancelled, QuoteExpired, QuoteRejected:
		return true
	}
	return false
}

func (s QuoteStatus) IsTerminal() bool {
	return s == QuoteSettled || s.Failed()
}

func (s QuoteStatus) Failed() bool {
	return s == QuoteCancelled || s == QuoteExpired || s == QuoteRejected
}

// AssetQuote is a price-locked conversion of custody fiat into the asset.
type AssetQuote struct {
	ID                string
	CheckoutID        string
	Status            QuoteStatus
	AssetName         string
	TransactionType   string
	BaseAmount        decimal.Decimal
	FeeAmount         decimal.Decimal
	TotalAmount       decimal.Decimal
	PricePerUnit      decimal.Decimal
	UnitCount         decimal.Decimal
	Hot               bool
	DelayedSettlement bool
	IntegratorSettled bool
	ExecutedAt        *time.Time
	ExpiresAt         *time.Time
	RejectedAt        *time.Time
	SettledAt         *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
