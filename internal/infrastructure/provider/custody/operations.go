package custody

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/rcarvalho-pb/checkout_system-go/internal/domain/checkout"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infrastructure/provider/idempotency"
)

var _ Provider = (*Client)(nil)
var _ Sandbox = (*Client)(nil)

func (c *Client) AddFunds(ctx context.Context, in AddFundsInput, key idempotency.Key) (*checkout.FundsTransfer, error) {
	attrs := map[string]any{
		"account-id":               firstNonEmpty(in.AccountID, c.cfg.AccountID),
		"contact-id":               firstNonEmpty(in.ContactID, c.cfg.ContactID),
		"funds-transfer-method-id": firstNonEmpty(in.FundsTransferMethodID, c.cfg.FundsTransferMethodID),
		"amount":                   in.Amount.StringFixed(2),
	}
	if in.Reference != "" {
		attrs["reference"] = in.Reference
	}

	var doc document
	err := c.send(ctx, call{
		operation: "add_funds",
		method:    http.MethodPost,
		path:      "/v2/contributions?include=funds-transfer",
		body:      newRequest("contributions", attrs),
		key:       key,
	}, &doc)
	if err != nil {
		return nil, err
	}

	r, ok := doc.firstIncluded("funds-transfers")
	if !ok {
		return nil, fmt.Errorf("contribution %s: funds transfer not included", doc.Data.ID)
	}
	return toFundsTransfer(r)
}

func (c *Client) GetFundsTransfer(ctx context.Context, id string) (*FundsTransferState, error) {
	var doc document
	err := c.send(ctx, call{
		operation: "get_funds_transfer",
		method:    http.MethodGet,
		path:      "/v2/funds-transfers/" + url.PathEscape(id) + "?include=contingent-holds",
	}, &doc)
	if err != nil {
		return nil, err
	}

	ft, err := toFundsTransfer(doc.Data)
	if err != nil {
		return nil, err
	}

	state := &FundsTransferState{Transfer: ft}
	for _, r := range doc.included("contingent-holds") {
		hold, err := toContingentHold(r)
		if err != nil {
			return nil, err
		}
		state.Holds = append(state.Holds, hold)
	}
	if ft.ContingentHoldID == "" && len(state.Holds) > 0 {
		ft.ContingentHoldID = state.Holds[0].ID
	}
	return state, nil
}

func (c *Client) CreateQuote(ctx context.Context, accountID string, amount decimal.Decimal, key idempotency.Key) (*checkout.AssetQuote, error) {
	var doc document
	err := c.send(ctx, call{
		operation: "create_quote",
		method:    http.MethodPost,
		path:      "/v2/quotes",
		body: newRequest("quotes", map[string]any{
			"account-id":       firstNonEmpty(accountID, c.cfg.AccountID),
			"asset-id":         c.cfg.AssetID,
			"transaction-type": "buy",
			"hot":              true,
			"amount":           amount.StringFixed(2),
		}),
		key: key,
	}, &doc)
	if err != nil {
		return nil, err
	}
	return toQuote(doc.Data)
}

func (c *Client) ExecuteQuote(ctx context.Context, quoteID string, key idempotency.Key) (*checkout.AssetQuote, error) {
	var doc document
	err := c.send(ctx, call{
		operation: "execute_quote",
		method:    http.MethodPost,
		path:      "/v2/quotes/" + url.PathEscape(quoteID) + "/execute",
		key:       key,
	}, &doc)
	if err != nil {
		return nil, err
	}
	return toQuote(doc.Data)
}

func (c *Client) GetQuote(ctx context.Context, id string) (*checkout.AssetQuote, error) {
	var doc document
	err := c.send(ctx, call{
		operation: "get_quote",
		method:    http.MethodGet,
		path:      "/v2/quotes/" + url.PathEscape(id),
	}, &doc)
	if err != nil {
		return nil, err
	}
	return toQuote(doc.Data)
}

func (c *Client) CreateDisbursementMethod(ctx context.Context, in DisbursementMethodInput, key idempotency.Key) (string, error) {
	var doc document
	err := c.send(ctx, call{
		operation: "create_disbursement_method",
		method:    http.MethodPost,
		path:      "/v2/asset-transfer-methods",
		body: newRequest("asset-transfer-methods", map[string]any{
			"asset-id":            c.cfg.AssetID,
			"account-id":          firstNonEmpty(in.AccountID, c.cfg.AccountID),
			"contact-id":          firstNonEmpty(in.ContactID, c.cfg.ContactID),
			"asset-transfer-type": "ethereum",
			"transfer-direction":  "outgoing",
			"label":               "Checkout disbursement",
			"wallet-address":      in.WalletAddress,
		}),
		key: key,
	}, &doc)
	if err != nil {
		return "", err
	}
	if doc.Data.ID == "" {
		return "", fmt.Errorf("asset transfer method response has no id")
	}
	return doc.Data.ID, nil
}

func (c *Client) CreateDisbursement(ctx context.Context, accountID, methodID string, unitCount decimal.Decimal, key idempotency.Key) (*checkout.AssetTransfer, error) {
	var doc document
	err := c.send(ctx, call{
		operation: "create_disbursement",
		method:    http.MethodPost,
		path:      "/v2/asset-disbursements?include=asset-transfer,disbursement-authorization",
		body: newRequest("asset-disbursements", map[string]any{
			"account-id": firstNonEmpty(accountID, c.cfg.AccountID),
			"unit-count": unitCount.StringFixed(2),
			"asset-transfer": map[string]string{
				"asset-transfer-method-id": methodID,
			},
			"hot-transfer":            false,
			"owner-verification-type": "waived_by_owner",
		}),
		key: key,
	}, &doc)
	if err != nil {
		return nil, err
	}

	r, ok := doc.firstIncluded("asset-transfers")
	if !ok {
		return nil, fmt.Errorf("disbursement %s: asset transfer not included", doc.Data.ID)
	}
	at, err := toAssetTransfer(r)
	if err != nil {
		return nil, err
	}
	if auth, ok := doc.firstIncluded("disbursement-authorizations"); ok {
		at.DisbursementAuthorizationID = auth.ID
	}
	return at, nil
}

func (c *Client) GetAssetTransfer(ctx context.Context, id string) (*checkout.AssetTransfer, error) {
	var doc document
	err := c.send(ctx, call{
		operation: "get_asset_transfer",
		method:    http.MethodGet,
		path:      "/v2/asset-transfers/" + url.PathEscape(id),
	}, &doc)
	if err != nil {
		return nil, err
	}
	return toAssetTransfer(doc.Data)
}

func (c *Client) TransferFunds(ctx context.Context, fromAccountID, toAccountID string, amount decimal.Decimal, key idempotency.Key) (*CashTransfer, error) {
	var doc document
	err := c.send(ctx, call{
		operation: "transfer_funds",
		method:    http.MethodPost,
		path:      "/v2/account-cash-transfers",
		body: newRequest("account-cash-transfers", map[string]any{
			"amount":          amount.StringFixed(2),
			"from-account-id": firstNonEmpty(fromAccountID, c.cfg.AccountID),
			"to-account-id":   toAccountID,
		}),
		key: key,
	}, &doc)
	if err != nil {
		return nil, err
	}

	var a cashTransferAttributes
	if err := decodeAttributes(doc.Data, &a); err != nil {
		return nil, err
	}
	return &CashTransfer{
		ID:            doc.Data.ID,
		Status:        a.Status,
		Amount:        a.Amount,
		FromAccountID: a.FromAccountID,
		ToAccountID:   a.ToAccountID,
	}, nil
}

func (c *Client) GetAccount(ctx context.Context, id string) (*Account, error) {
	var doc document
	err := c.send(ctx, call{
		operation: "get_account",
		method:    http.MethodGet,
		path:      "/v2/accounts/" + url.PathEscape(id),
	}, &doc)
	if err != nil {
		return nil, err
	}

	var a accountAttributes
	if err := decodeAttributes(doc.Data, &a); err != nil {
		return nil, err
	}
	acct := &Account{ID: doc.Data.ID, Name: a.Name, Status: a.Status}
	if rel, ok := doc.Data.Relationships["contacts"]; ok {
		if ids := rel.ids(); len(ids) > 0 {
			acct.ContactID = ids[0]
		}
	}
	return acct, nil
}

func (c *Client) GetContact(ctx context.Context, id string) (*Contact, error) {
	var doc document
	err := c.send(ctx, call{
		operation: "get_contact",
		method:    http.MethodGet,
		path:      "/v2/contacts/" + url.PathEscape(id) + "?include=addresses,phone-numbers",
	}, &doc)
	if err != nil {
		return nil, err
	}

	var a contactAttributes
	if err := decodeAttributes(doc.Data, &a); err != nil {
		return nil, err
	}

	contact := &Contact{
		ID:          doc.Data.ID,
		AccountID:   a.AccountID,
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		Email:       a.Email,
		DateOfBirth: a.DateOfBirth,
		TaxID:       a.TaxIDNumber,
		Sex:         a.Sex,
		Verification: checkout.Verification{
			IdentityConfirmed:               a.IdentityConfirmed,
			IdentityDocumentsVerified:       a.IdentityDocumentsVerified,
			ProofOfAddressDocumentsVerified: a.ProofOfAddressDocumentsVerified,
			AMLCleared:                      a.AMLCleared,
			CIPCleared:                      a.CIPCleared,
		},
	}

	if r, ok := doc.firstIncluded("addresses"); ok {
		var addr addressAttributes
		if err := decodeAttributes(r, &addr); err == nil {
			contact.Address = Address{
				Street1:    addr.Street1,
				Street2:    addr.Street2,
				City:       addr.City,
				Region:     addr.Region,
				PostalCode: addr.PostalCode,
				Country:    addr.Country,
			}
		}
	}
	for _, r := range doc.included("phone-numbers") {
		var phone phoneNumberAttributes
		if err := decodeAttributes(r, &phone); err != nil {
			continue
		}
		if contact.PhoneNumber == "" || phone.Primary {
			contact.PhoneNumber = firstNonEmpty(phone.Number, phone.ClientInput)
		}
	}
	return contact, nil
}

func (c *Client) EnableWebhookConfig(ctx context.Context, id string) error {
	return c.send(ctx, call{
		operation: "enable_webhook_config",
		method:    http.MethodPatch,
		path:      "/v2/webhook-configs/" + url.PathEscape(id),
		body: requestDocument{Data: requestData{
			Type:       "webhook-configs",
			ID:         id,
			Attributes: map[string]any{"enabled": true},
		}},
	}, nil)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
