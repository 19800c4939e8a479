package checkout

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	domain "github.com/rcarvalho-pb/checkout_system-go/internal/domain/checkout"
)

// Input is a checkout submission. Amount and Tip are in major units.
type Input struct {
	CheckoutRequestID string `json:"checkoutRequestId"`
	CheckoutTokenID   string `json:"checkoutTokenId" validate:"required"`

	WalletAddress string `json:"walletAddress" validate:"required"`
	FirstName     string `json:"firstName" validate:"required"`
	LastName      string `json:"lastName" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	PhoneNumber   string `json:"phoneNumber" validate:"required"`

	StreetAddress  string `json:"streetAddress"`
	StreetAddress2 string `json:"streetAddress2"`
	City           string `json:"city"`
	State          string `json:"state"`
	Zip            string `json:"zip"`
	Country        string `json:"country"`

	Amount   decimal.Decimal `json:"amount" validate:"gt=0"`
	Currency string          `json:"currency"`
	Tip      decimal.Decimal `json:"tip" validate:"gte=0"`
	TipType  domain.TipType  `json:"tipType" validate:"tiptype"`

	// required once the amount reaches the KYC threshold
	TaxID       string `json:"taxId"`
	DateOfBirth string `json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
	Gender      string `json:"gender"`
	DocumentID  string `json:"documentId"`
}

func (in *Input) normalize() {
	in.CheckoutTokenID = strings.TrimSpace(in.CheckoutTokenID)
	in.WalletAddress = strings.TrimSpace(in.WalletAddress)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency == "" {
		in.Currency = "USD"
	}
	if in.TipType == "" {
		in.TipType = domain.TipTypeCash
	}
	in.TaxID = strings.TrimSpace(in.TaxID)
	in.DateOfBirth = strings.TrimSpace(in.DateOfBirth)
	in.Gender = strings.TrimSpace(in.Gender)
	in.DocumentID = strings.TrimSpace(in.DocumentID)
}

func (in *Input) validate(kycThreshold decimal.Decimal) error {
	ctx := context.WithValue(context.Background(), kycThresholdKey{}, kycThreshold)
	return toValidationError(validate.StructCtx(ctx, in))
}

// KYC returns the identity fields collected with the checkout.
func (in *Input) KYC() domain.KYC {
	return domain.KYC{
		TaxID:       in.TaxID,
		DateOfBirth: in.DateOfBirth,
		Gender:      in.Gender,
		DocumentID:  in.DocumentID,
	}
}

// RequestInput registers a checkout request. Fee and FeeType fall back to
// the configured default when empty.
type RequestInput struct {
	PartnerOrderID string           `json:"partnerOrderId"`
	WalletAddress  string           `json:"walletAddress" validate:"required"`
	Email          string           `json:"email" validate:"omitempty,email"`
	PhoneNumber    string           `json:"phoneNumber" validate:"required"`
	Amount         decimal.Decimal  `json:"amount" validate:"gt=0"`
	Currency       string           `json:"currency"`
	Webhook        string           `json:"webhook" validate:"omitempty,url"`
	Fee            *decimal.Decimal `json:"fee" validate:"omitempty,gte=0"`
	FeeType        domain.TipType   `json:"feeType" validate:"omitempty,tiptype"`
}

type RequestResult struct {
	ID  string `json:"id"`
	URI string `json:"uri"`
}

func (in *RequestInput) normalize() {
	in.WalletAddress = strings.TrimSpace(in.WalletAddress)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Webhook = strings.TrimSpace(in.Webhook)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency == "" {
		in.Currency = "USD"
	}
}

func (in *RequestInput) validate() error {
	return toValidationError(validate.Struct(in))
}
