package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rcarvalho-pb/checkout_system-go/internal/domain/checkout"
	"github.com/rcarvalho-pb/checkout_system-go/internal/domain/event"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infra/lock"
)

const (
	ResourceFundsTransfers    = "funds_transfers"
	ResourceFacilitatedTrades = "facilitated_trades"
	ResourceAssetTransfers    = "asset_transfers"
	ResourceContacts          = "contacts"
	ResourceContact           = "contact"
)

type WebhookData struct {
	KYCRequiredActions []string `json:"kyc-required-actions"`
}

// Webhook is a custody provider callback. Older integrations send the
// resource id as resource_id.
type Webhook struct {
	ResourceType       string       `json:"resource-type"`
	ResourceID         string       `json:"resource-id"`
	LegacyResourceID   string       `json:"resource_id"`
	AccountID          string       `json:"account-id"`
	Action             string       `json:"action"`
	KYCRequiredActions []string     `json:"kyc-required-actions"`
	Data               *WebhookData `json:"data"`
}

func (w Webhook) ID() string {
	if w.ResourceID != "" {
		return w.ResourceID
	}
	return w.LegacyResourceID
}

func (w Webhook) RequiredActions() []string {
	actions := append([]string(nil), w.KYCRequiredActions...)
	if w.Data != nil {
		actions = append(actions, w.Data.KYCRequiredActions...)
	}
	return actions
}

// HandleWebhook routes a callback to exactly one handler. Unknown resource
// types and callbacks for foreign accounts are ignored.
func (o *Orchestrator) HandleWebhook(ctx context.Context, w Webhook) error {
	id := w.ID()
	fields := map[string]any{
		"func":          "HandleWebhook",
		"resource-type": w.ResourceType,
		"resource-id":   id,
	}

	if id == "" || !o.acceptsAccount(w.AccountID) {
		o.deps.Metrics.IncWebhook(w.ResourceType, "ignored")
		o.deps.Logger.Debug("webhook ignored", fields)
		return nil
	}

	var err error
	switch w.ResourceType {
	case ResourceFundsTransfers:
		err = o.HandleFundsTransferUpdate(ctx, id)
	case ResourceFacilitatedTrades:
		err = o.HandleQuoteUpdate(ctx, id)
	case ResourceAssetTransfers:
		err = o.HandleAssetTransferUpdate(ctx, id)
	case ResourceContacts, ResourceContact:
		err = o.HandleContactUpdate(ctx, id, w.RequiredActions())
	default:
		o.deps.Metrics.IncWebhook(w.ResourceType, "ignored")
		o.deps.Logger.Debug("webhook ignored", fields)
		return nil
	}

	if err != nil {
		o.deps.Metrics.IncWebhook(w.ResourceType, "error")
		fields["err"] = err
		o.deps.Logger.Error("webhook handling failed", fields)
		return err
	}
	o.deps.Metrics.IncWebhook(w.ResourceType, "handled")
	return nil
}

// acceptsAccount filters legacy callbacks carrying an account id.
func (o *Orchestrator) acceptsAccount(accountID string) bool {
	if accountID == "" || accountID == o.deps.CentralAccountID {
		return true
	}
	_, err := o.deps.Repos.Accounts.FindByID(accountID)
	return err == nil
}

func (o *Orchestrator) withLock(ctx context.Context, key string, fn func(context.Context) error) error {
	err := o.deps.Lock.Do(ctx, key, fn)
	if errors.Is(err, lock.ErrBacklogExceeded) {
		o.deps.Metrics.IncLockRejected()
		o.deps.Logger.Warn("lock backlog exceeded", map[string]any{"key": key})
	}
	return err
}

// loadOpen returns the checkout unless it already reached Paid or Error.
func (o *Orchestrator) loadOpen(checkoutID string) (*checkout.Checkout, bool, error) {
	co, err := o.deps.Repos.Checkouts.FindByID(checkoutID)
	if errors.Is(err, checkout.ErrCheckoutNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if co.Status.IsTerminal() {
		return nil, false, nil
	}
	return co, true, nil
}

func (o *Orchestrator) HandleFundsTransferUpdate(ctx context.Context, id string) error {
	return o.withLock(ctx, "funds-transfer-update/"+id, func(ctx context.Context) error {
		local, err := o.deps.Repos.FundsTransfers.FindByID(id)
		if errors.Is(err, checkout.ErrFundsTransferNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if local.Status.IsTerminal() {
			return o.resumeAfterFunds(ctx, local)
		}

		co, open, err := o.loadOpen(local.CheckoutID)
		if err != nil || !open {
			return err
		}

		state, err := o.deps.Custody.GetFundsTransfer(ctx, id)
		if err != nil {
			return o.fail(co, event.StepFundsTransfer, err)
		}
		fetched := state.Transfer
		if fetched == nil || !fetched.Status.Known() {
			return nil
		}

		fetched.ID = local.ID
		fetched.CheckoutID = local.CheckoutID
		fetched.CreatedAt = local.CreatedAt
		if fetched.ContingentHoldID == "" {
			fetched.ContingentHoldID = local.ContingentHoldID
		}
		if err := o.deps.Repos.FundsTransfers.Update(fetched); err != nil {
			return err
		}

		switch {
		case fetched.Status.Failed():
			return o.fail(co, event.StepFundsTransfer, fmt.Errorf("%w: funds transfer %s %s", ErrTransferFailed, id, fetched.Status))
		case fetched.Status != checkout.TransferSettled:
			// holds not cleared yet; the next callback picks it up
			return nil
		}

		o.deps.Metrics.IncStep(string(event.StepFundsTransfer), "settled")
		o.notify(co, event.StepFundsTransfer, event.StepSettled, co.Status, fetched.ID, "funds settled")
		return o.fundsSettled(ctx, co)
	})
}

// resumeAfterFunds handles a callback for a transfer stored as terminal.
// The row may have been written settled before anything acted on it, so
// the quote step is the marker of progress, not the row's status.
func (o *Orchestrator) resumeAfterFunds(ctx context.Context, local *checkout.FundsTransfer) error {
	if local.Status != checkout.TransferSettled {
		return nil
	}
	if _, err := o.deps.Repos.Quotes.FindByCheckout(local.CheckoutID); !errors.Is(err, checkout.ErrQuoteNotFound) {
		return err
	}

	co, open, err := o.loadOpen(local.CheckoutID)
	if err != nil || !open {
		return err
	}
	o.deps.Logger.Info("resuming checkout after settled funds", map[string]any{
		"checkout-id":       co.ID,
		"funds-transfer-id": local.ID,
	})
	return o.fundsSettled(ctx, co)
}

func (o *Orchestrator) fundsSettled(ctx context.Context, co *checkout.Checkout) error {
	if co.IsCustodial() {
		if err := o.moveToCustodialAccount(ctx, co); err != nil {
			return o.fail(co, event.StepFundsTransfer, err)
		}
	}
	return o.startQuote(ctx, co)
}

func (o *Orchestrator) HandleQuoteUpdate(ctx context.Context, id string) error {
	return o.withLock(ctx, "quotes-update/"+id, func(ctx context.Context) error {
		local, err := o.deps.Repos.Quotes.FindByID(id)
		if errors.Is(err, checkout.ErrQuoteNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if local.Status.IsTerminal() {
			return o.resumeAfterQuote(ctx, local)
		}

		co, open, err := o.loadOpen(local.CheckoutID)
		if err != nil || !open {
			return err
		}

		fetched, err := o.deps.Custody.GetQuote(ctx, id)
		if err != nil {
			return o.fail(co, event.StepQuote, err)
		}
		if !fetched.Status.Known() {
			return nil
		}

		fetched.ID = local.ID
		fetched.CheckoutID = local.CheckoutID
		fetched.CreatedAt = local.CreatedAt
		if err := o.deps.Repos.Quotes.Update(fetched); err != nil {
			return err
		}

		switch {
		case fetched.Status.Failed():
			return o.fail(co, event.StepQuote, fmt.Errorf("%w: quote %s %s", ErrQuoteFailed, id, fetched.Status))
		case fetched.Status != checkout.QuoteSettled:
			return nil
		}

		return o.quoteSettled(ctx, co, fetched)
	})
}

// resumeAfterQuote is resumeAfterFunds one step later: a settled quote with
// no disbursement yet still owes the customer the asset.
func (o *Orchestrator) resumeAfterQuote(ctx context.Context, local *checkout.AssetQuote) error {
	if local.Status != checkout.QuoteSettled {
		return nil
	}
	if _, err := o.deps.Repos.AssetTransfers.FindByCheckout(local.CheckoutID); !errors.Is(err, checkout.ErrAssetTransferNotFound) {
		return err
	}

	co, open, err := o.loadOpen(local.CheckoutID)
	if err != nil || !open {
		return err
	}
	o.deps.Logger.Info("resuming checkout after settled quote", map[string]any{
		"checkout-id": co.ID,
		"quote-id":    local.ID,
	})
	return o.quoteSettled(ctx, co, local)
}

func (o *Orchestrator) HandleAssetTransferUpdate(ctx context.Context, id string) error {
	return o.withLock(ctx, "asset-transfer-update/"+id, func(ctx context.Context) error {
		local, err := o.deps.Repos.AssetTransfers.FindByID(id)
		if errors.Is(err, checkout.ErrAssetTransferNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if local.Status.IsTerminal() {
			return nil
		}

		co, open, err := o.loadOpen(local.CheckoutID)
		if err != nil || !open {
			return err
		}

		fetched, err := o.deps.Custody.GetAssetTransfer(ctx, id)
		if err != nil {
			return o.fail(co, event.StepAssetTransfer, err)
		}
		if !fetched.Status.Known() {
			return nil
		}

		fetched.ID = local.ID
		fetched.CheckoutID = local.CheckoutID
		fetched.CreatedAt = local.CreatedAt
		if fetched.DisbursementAuthorizationID == "" {
			fetched.DisbursementAuthorizationID = local.DisbursementAuthorizationID
		}
		if err := o.deps.Repos.AssetTransfers.Update(fetched); err != nil {
			return err
		}

		switch {
		case fetched.Status.Failed():
			return o.fail(co, event.StepAssetTransfer, fmt.Errorf("%w: asset transfer %s %s", ErrTransferFailed, id, fetched.Status))
		case fetched.Status == checkout.TransferSettled:
			return o.markPaid(co, fetched)
		}
		return nil
	})
}

// HandleContactUpdate refreshes the KYC flags of the account owning
// contactID. Once the account is verified its blocked checkouts are
// scheduled again.
func (o *Orchestrator) HandleContactUpdate(ctx context.Context, contactID string, requiredActions []string) error {
	return o.withLock(ctx, "contact-update/"+contactID, func(ctx context.Context) error {
		acct, err := o.deps.Repos.Accounts.FindByContactID(contactID)
		if errors.Is(err, checkout.ErrAccountNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if len(requiredActions) > 0 {
			o.publishAccount(acct, false, requiredActions, "additional verification required")
			return fmt.Errorf("%w: %s", ErrKYCActionsRequired, strings.Join(requiredActions, ", "))
		}

		contact, err := o.deps.Custody.GetContact(ctx, contactID)
		if err != nil {
			return err
		}
		if err := o.deps.Repos.Accounts.UpdateVerification(acct.ID, "", contact.Verification); err != nil {
			return err
		}

		if !contact.Verification.Verified() {
			o.publishAccount(acct, false, nil, "verification in progress")
			return nil
		}

		o.publishAccount(acct, true, nil, "verified")

		pending, err := o.deps.Repos.Checkouts.FindPendingByCustodialAccount(acct.ID)
		if err != nil {
			return err
		}
		for _, co := range pending {
			o.Schedule(co.ID)
		}
		o.deps.Logger.Info("account verified", map[string]any{
			"account-id": acct.ID,
			"resumed":    len(pending),
		})
		return nil
	})
}

func (o *Orchestrator) publishAccount(acct *checkout.CustodialAccount, verified bool, actions []string, msg string) {
	if o.deps.Notifier == nil {
		return
	}
	o.deps.Notifier.PublishAccountStatus(event.AccountStatusPayload{
		UserID:          acct.UserID,
		AccountID:       acct.ID,
		Verified:        verified,
		Status:          acct.Status,
		RequiredActions: actions,
		Message:         msg,
		Timestamp:       o.now(),
	})
}
