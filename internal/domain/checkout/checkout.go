package checkout

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rcarvalho-pb/checkout_system-go/internal/domain/money"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusPaid       Status = "paid"
	// StatusPostponed is kept for schema compatibility. Nothing assigns it.
	StatusPostponed Status = "postponed"
	StatusError     Status = "error"
)

func (s Status) IsTerminal() bool {
	return s == StatusPaid || s == StatusError
}

// TipType says how Tip and Fee are interpreted.
type TipType string

const (
	TipTypeCash    TipType = "cash"
	TipTypePercent TipType = "percent"
)

func (t TipType) Valid() bool {
	return t == TipTypeCash || t == TipTypePercent
}

// KYC is the identity a buyer gives for amounts at or above the KYC
// threshold. Empty below it.
type KYC struct {
	TaxID       string
	DateOfBirth string
	Gender      string
	DocumentID  string
}

func (k KYC) IsZero() bool {
	return k == KYC{}
}

type Checkout struct {
	ID                 string
	CheckoutRequestID  string
	CustodialAccountID string
	CheckoutTokenID    string

	WalletAddress string
	FirstName     string
	LastName      string
	Email         string
	PhoneNumber   string

	StreetAddress  string
	StreetAddress2 string
	City           string
	State          string
	Zip            string
	Country        string

	KYC KYC

	// Amount is in the currency's minor unit.
	Amount   int64
	Currency string
	Tip      decimal.Decimal
	TipType  TipType
	Fee      decimal.Decimal
	FeeType  TipType

	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c *Checkout) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

func (c *Checkout) IsZeroAmount() bool {
	return c.Amount == 0
}

func (c *Checkout) IsCustodial() bool {
	return c.CustodialAccountID != ""
}

func (c *Checkout) AmountMoney() money.Money {
	return money.New(c.Amount, c.Currency)
}

func (c *Checkout) TipAmount() money.Money {
	return surcharge(c.AmountMoney(), c.Tip, c.TipType)
}

func (c *Checkout) FeeAmount() money.Money {
	return surcharge(c.AmountMoney(), c.Fee, c.FeeType)
}

// FundsAmount is what lands in custody: amount plus tip.
func (c *Checkout) FundsAmount() money.Money {
	return plus(c.AmountMoney(), c.TipAmount())
}

// TotalChargeAmount is what the card is charged: amount plus tip plus fee.
func (c *Checkout) TotalChargeAmount() money.Money {
	return plus(c.FundsAmount(), c.FeeAmount())
}

func surcharge(base money.Money, value decimal.Decimal, kind TipType) money.Money {
	if value.IsZero() {
		return money.Zero(base.Currency())
	}
	if kind == TipTypeCash {
		return money.FromMajor(value, base.Currency())
	}
	return base.Percent(value)
}

// all derived amounts share the checkout currency
func plus(a, b money.Money) money.Money {
	return money.New(a.Amount()+b.Amount(), a.Currency())
}
