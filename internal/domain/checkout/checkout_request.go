package checkout

import (
	"time"

	"github.com/shopspring/decimal"
)

// CheckoutRequest is an order registered ahead of time, usually by a partner.
// A checkout created against it must match its wallet, contact and amount.
type CheckoutRequest struct {
	ID              string
	PartnerOrderID  string
	WalletAddress   string
	Email           string
	PhoneNumber     string
	Currency        string
	Amount          int64
	Fee             decimal.Decimal
	FeeType         TipType
	Webhook         string
	Status          Status
	TransactionHash string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Match verifies a checkout was submitted for this request.
func (r *CheckoutRequest) Match(c *Checkout) error {
	if r.WalletAddress != c.WalletAddress {
		return invalid("walletAddress", "mismatch wallet address")
	}
	if r.PhoneNumber != c.PhoneNumber {
		return invalid("phoneNumber", "mismatch phone number")
	}
	if r.Email != "" && r.Email != c.Email {
		return invalid("email", "mismatch email address")
	}
	if r.Amount != c.Amount || (r.Currency != "" && r.Currency != c.Currency) {
		return invalid("amount", "mismatch amount")
	}
	return nil
}
