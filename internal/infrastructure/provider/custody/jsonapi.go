package custody

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rcarvalho-pb/checkout_system-go/internal/domain/checkout"
)

type resource struct {
	Type          string                  `json:"type"`
	ID            string                  `json:"id"`
	Attributes    json.RawMessage         `json:"attributes"`
	Relationships map[string]relationship `json:"relationships,omitempty"`
}

type relationship struct {
	Data json.RawMessage `json:"data"`
}

type linkage struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// ids returns the linked ids whether the relationship is to-one or to-many.
func (r relationship) ids() []string {
	raw := strings.TrimSpace(string(r.Data))
	if raw == "" || raw == "null" {
		return nil
	}
	if strings.HasPrefix(raw, "[") {
		var many []linkage
		if err := json.Unmarshal(r.Data, &many); err != nil {
			return nil
		}
		out := make([]string, 0, len(many))
		for _, l := range many {
			out = append(out, l.ID)
		}
		return out
	}
	var one linkage
	if err := json.Unmarshal(r.Data, &one); err != nil || one.ID == "" {
		return nil
	}
	return []string{one.ID}
}

type document struct {
	Data     resource   `json:"data"`
	Included []resource `json:"included,omitempty"`
}

func (d *document) included(kind string) []resource {
	var out []resource
	for _, r := range d.Included {
		if r.Type == kind {
			out = append(out, r)
		}
	}
	return out
}

func (d *document) firstIncluded(kind string) (resource, bool) {
	for _, r := range d.Included {
		if r.Type == kind {
			return r, true
		}
	}
	return resource{}, false
}

type requestData struct {
	Type       string `json:"type"`
	ID         string `json:"id,omitempty"`
	Attributes any    `json:"attributes"`
}

type requestDocument struct {
	Data requestData `json:"data"`
}

func newRequest(kind string, attrs any) requestDocument {
	return requestDocument{Data: requestData{Type: kind, Attributes: attrs}}
}

type apiErrors struct {
	Errors []struct {
		Status string `json:"status"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
		Source struct {
			Pointer string `json:"pointer"`
		} `json:"source"`
	} `json:"errors"`
}

func (e *apiErrors) message() string {
	parts := make([]string, 0, len(e.Errors))
	for _, item := range e.Errors {
		msg := item.Title
		if item.Detail != "" {
			msg = item.Detail
		}
		if item.Source.Pointer != "" {
			msg = fmt.Sprintf("%s (%s)", msg, item.Source.Pointer)
		}
		if msg != "" {
			parts = append(parts, msg)
		}
	}
	return strings.Join(parts, "; ")
}

type tokenResponse struct {
	Token string `json:"token"`
}

type fundsTransferAttributes struct {
	Status                 string          `json:"status"`
	Amount                 decimal.Decimal `json:"amount"`
	AmountExpected         decimal.Decimal `json:"amount-expected"`
	CurrencyType           string          `json:"currency-type"`
	Reference              string          `json:"reference"`
	ClearsOn               string          `json:"clears-on"`
	ContingenciesClearedAt *time.Time      `json:"contingencies-cleared-at"`
	ContingenciesClearedOn string          `json:"contingencies-cleared-on"`
	SettledAt              *time.Time      `json:"settled-at"`
	CancelledAt            *time.Time      `json:"cancelled-at"`
	CancellationDetails    string          `json:"cancellation-details"`
	ReversedAt             *time.Time      `json:"reversed-at"`
	ReversedAmount         decimal.Decimal `json:"reversed-amount"`
	ReversalDetails        string          `json:"reversal-details"`
}

type contingentHoldAttributes struct {
	Status    string     `json:"status"`
	ClearedAt *time.Time `json:"cleared-at"`
}

type quoteAttributes struct {
	Status            string          `json:"status"`
	AssetName         string          `json:"asset-name"`
	TransactionType   string          `json:"transaction-type"`
	BaseAmount        decimal.Decimal `json:"base-amount"`
	FeeAmount         decimal.Decimal `json:"fee-amount"`
	TotalAmount       decimal.Decimal `json:"total-amount"`
	PricePerUnit      decimal.Decimal `json:"price-per-unit"`
	UnitCount         decimal.Decimal `json:"unit-count"`
	Hot               bool            `json:"hot"`
	DelayedSettlement bool            `json:"delayed-settlement"`
	IntegratorSettled bool            `json:"integrator-settled"`
	ExecutedAt        *time.Time      `json:"executed-at"`
	ExpiresAt         *time.Time      `json:"expires-at"`
	RejectedAt        *time.Time      `json:"rejected-at"`
	SettledAt         *time.Time      `json:"settled-at"`
}

type assetTransferAttributes struct {
	Status                 string          `json:"status"`
	UnitCount              decimal.Decimal `json:"unit-count"`
	UnitCountExpected      decimal.Decimal `json:"unit-count-expected"`
	TransactionHash        string          `json:"transaction-hash"`
	SettlementDetails      string          `json:"settlement-details"`
	HotTransfer            bool            `json:"hot-transfer"`
	ContingenciesClearedAt *time.Time      `json:"contingencies-cleared-at"`
	ContingenciesClearedOn string          `json:"contingencies-cleared-on"`
	CancelledAt            *time.Time      `json:"cancelled-at"`
	ReconciledAt           *time.Time      `json:"reconciled-at"`
}

type cashTransferAttributes struct {
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	FromAccountID string          `json:"from-account-id"`
	ToAccountID   string          `json:"to-account-id"`
}

type accountAttributes struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

type contactAttributes struct {
	AccountID                       string `json:"account-id"`
	FirstName                       string `json:"first-name"`
	LastName                        string `json:"last-name"`
	Email                           string `json:"email"`
	DateOfBirth                     string `json:"date-of-birth"`
	TaxIDNumber                     string `json:"tax-id-number"`
	Sex                             string `json:"sex"`
	IdentityConfirmed               bool   `json:"identity-confirmed"`
	IdentityDocumentsVerified       bool   `json:"identity-documents-verified"`
	ProofOfAddressDocumentsVerified bool   `json:"proof-of-address-documents-verified"`
	AMLCleared                      bool   `json:"aml-cleared"`
	CIPCleared                      bool   `json:"cip-cleared"`
}

type addressAttributes struct {
	Street1    string `json:"street-1"`
	Street2    string `json:"street-2"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postal-code"`
	Country    string `json:"country"`
}

type phoneNumberAttributes struct {
	Number      string `json:"number"`
	ClientInput string `json:"client-input"`
	Primary     bool   `json:"primary"`
}

func decodeAttributes(r resource, into any) error {
	if len(r.Attributes) == 0 {
		return fmt.Errorf("%s %s has no attributes", r.Type, r.ID)
	}
	if err := json.Unmarshal(r.Attributes, into); err != nil {
		return fmt.Errorf("decode %s attributes: %w", r.Type, err)
	}
	return nil
}

// parseDate reads the provider's YYYY-MM-DD fields.
func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}

func toFundsTransfer(r resource) (*checkout.FundsTransfer, error) {
	var a fundsTransferAttributes
	if err := decodeAttributes(r, &a); err != nil {
		return nil, err
	}

	ft := &checkout.FundsTransfer{
		ID:                     r.ID,
		Status:                 checkout.TransferStatus(a.Status),
		Amount:                 a.Amount,
		AmountExpected:         a.AmountExpected,
		Currency:               strings.ToUpper(a.CurrencyType),
		Reference:              a.Reference,
		ClearsOn:               parseDate(a.ClearsOn),
		ContingenciesClearedAt: a.ContingenciesClearedAt,
		ContingenciesClearedOn: parseDate(a.ContingenciesClearedOn),
		SettledAt:              a.SettledAt,
		CancelledAt:            a.CancelledAt,
		CancellationDetails:    a.CancellationDetails,
		ReversedAt:             a.ReversedAt,
		ReversedAmount:         a.ReversedAmount,
		ReversalDetails:        a.ReversalDetails,
	}
	if holds, ok := r.Relationships["contingent-holds"]; ok {
		if ids := holds.ids(); len(ids) > 0 {
			ft.ContingentHoldID = ids[0]
		}
	}
	return ft, nil
}

func toContingentHold(r resource) (ContingentHold, error) {
	var a contingentHoldAttributes
	if err := decodeAttributes(r, &a); err != nil {
		return ContingentHold{}, err
	}
	return ContingentHold{ID: r.ID, Status: a.Status, ClearedAt: a.ClearedAt}, nil
}

func toQuote(r resource) (*checkout.AssetQuote, error) {
	var a quoteAttributes
	if err := decodeAttributes(r, &a); err != nil {
		return nil, err
	}
	return &checkout.AssetQuote{
		ID:                r.ID,
		Status:            checkout.QuoteStatus(a.Status),
		AssetName:         a.AssetName,
		TransactionType:   a.TransactionType,
		BaseAmount:        a.BaseAmount,
		FeeAmount:         a.FeeAmount,
		TotalAmount:       a.TotalAmount,
		PricePerUnit:      a.PricePerUnit,
		UnitCount:         a.UnitCount,
		Hot:               a.Hot,
		DelayedSettlement: a.DelayedSettlement,
		IntegratorSettled: a.IntegratorSettled,
		ExecutedAt:        a.ExecutedAt,
		ExpiresAt:         a.ExpiresAt,
		RejectedAt:        a.RejectedAt,
		SettledAt:         a.SettledAt,
	}, nil
}

func toAssetTransfer(r resource) (*checkout.AssetTransfer, error) {
	var a assetTransferAttributes
	if err := decodeAttributes(r, &a); err != nil {
		return nil, err
	}
	return &checkout.AssetTransfer{
		ID:                     r.ID,
		Status:                 checkout.TransferStatus(a.Status),
		UnitCount:              a.UnitCount,
		UnitCountExpected:      a.UnitCountExpected,
		TransactionHash:        a.TransactionHash,
		SettlementDetails:      a.SettlementDetails,
		HotTransfer:            a.HotTransfer,
		ContingenciesClearedAt: a.ContingenciesClearedAt,
		ContingenciesClearedOn: parseDate(a.ContingenciesClearedOn),
		CancelledAt:            a.CancelledAt,
		ReconciledAt:           a.ReconciledAt,
	}, nil
}
