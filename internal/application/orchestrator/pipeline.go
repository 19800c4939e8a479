package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/rcarvalho-pb/checkout_system-go/internal/domain/checkout"
	"github.com/rcarvalho-pb/checkout_system-go/internal/domain/event"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infra/lock"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infrastructure/provider/charge"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infrastructure/provider/custody"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infrastructure/provider/idempotency"
)

// Run claims a pending checkout and drives it through the synchronous
// steps: charge, then the funds transfer into custody. A checkout that is
// no longer pending, or whose custodial account is not verified yet, is
// left alone.
func (o *Orchestrator) Run(ctx context.Context, checkoutID string) error {
	co, err := o.deps.Repos.Checkouts.FindByID(checkoutID)
	if err != nil {
		return err
	}
	if co.Status != checkout.StatusPending {
		return nil
	}

	if co.IsCustodial() {
		acct, err := o.deps.Repos.Accounts.FindByID(co.CustodialAccountID)
		if err != nil {
			return o.fail(co, event.StepCharge, fmt.Errorf("custodial account %s: %w", co.CustodialAccountID, err))
		}
		if !acct.IsVerified() {
			o.deps.Logger.Info("checkout waits for account verification", map[string]any{
				"checkout-id": co.ID,
				"account-id":  acct.ID,
			})
			return nil
		}
	}

	claimed, err := o.deps.Repos.Checkouts.TransitionStatus(co.ID, checkout.StatusProcessing, checkout.StatusPending)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}
	co.Status = checkout.StatusProcessing
	o.deps.Metrics.IncCheckout(string(checkout.StatusProcessing))

	if err := o.charge(ctx, co); err != nil {
		return o.fail(co, event.StepCharge, err)
	}
	if err := o.addFunds(ctx, co); err != nil {
		return o.fail(co, event.StepFundsTransfer, err)
	}
	return nil
}

func (o *Orchestrator) charge(ctx context.Context, co *checkout.Checkout) error {
	if existing, err := o.deps.Repos.Charges.FindByCheckout(co.ID); err == nil {
		if !existing.Authorized() {
			return fmt.Errorf("%w: status %s", ErrChargeDeclined, existing.Status)
		}
		return nil
	} else if !errors.Is(err, checkout.ErrChargeNotFound) {
		return err
	}

	o.notify(co, event.StepCharge, event.StepProcessing, co.Status, "", "charging card")

	res, err := o.deps.Charge.Charge(ctx, co, idempotency.Derive(co.ID, "charge"))
	if err != nil {
		return err
	}

	ch := res.ToCharge(co.ID, o.now())
	if _, err := o.deps.Repos.Charges.SaveIfNotExist(ch); err != nil {
		return fmt.Errorf("save charge: %w", err)
	}
	if !ch.Authorized() {
		return fmt.Errorf("%w: status %s, response code %s", ErrChargeDeclined, ch.Status, ch.ResponseCode)
	}

	o.deps.Metrics.IncStep(string(event.StepCharge), "settled")
	o.notify(co, event.StepCharge, event.StepSettled, co.Status, ch.ID, "card charged")
	return nil
}

// addFunds always lands in the central account. Custodial checkouts move
// the money on once the transfer settles.
func (o *Orchestrator) addFunds(ctx context.Context, co *checkout.Checkout) error {
	o.notify(co, event.StepFundsTransfer, event.StepProcessing, co.Status, "", "moving funds into custody")

	ft, err := o.deps.Custody.AddFunds(ctx, custody.AddFundsInput{
		AccountID: o.deps.CentralAccountID,
		Amount:    co.FundsAmount().ToMajorUnit(),
		Reference: charge.Reference(co.ID),
	}, idempotency.Derive(co.ID, "add-funds"))
	if err != nil {
		return err
	}

	ft.CheckoutID = co.ID
	if ft.CreatedAt.IsZero() {
		ft.CreatedAt = o.now()
	}
	if err := o.deps.Repos.FundsTransfers.Save(ft); err != nil {
		return fmt.Errorf("save funds transfer: %w", err)
	}
	if obs, ok := o.deps.Custody.(custody.StoreObserver); ok {
		obs.FundsTransferStored(ctx, ft.ID)
	}

	o.deps.Logger.Info("funds transfer created", map[string]any{
		"checkout-id":       co.ID,
		"funds-transfer-id": ft.ID,
		"status":            ft.Status,
	})
	return nil
}

// quoteAccount is the custody account buying the asset.
func (o *Orchestrator) quoteAccount(co *checkout.Checkout) string {
	if co.IsCustodial() {
		return co.CustodialAccountID
	}
	return o.deps.CentralAccountID
}

func (o *Orchestrator) moveToCustodialAccount(ctx context.Context, co *checkout.Checkout) error {
	o.notify(co, event.StepFundsTransfer, event.StepProcessing, co.Status, "", "moving funds into the customer account")

	ct, err := o.deps.Custody.TransferFunds(
		ctx,
		o.deps.CentralAccountID,
		co.CustodialAccountID,
		co.FundsAmount().ToMajorUnit(),
		idempotency.Derive(co.ID, "cash-transfer"),
	)
	if err != nil {
		return err
	}
	if ct.Failed() {
		return fmt.Errorf("%w: cash transfer %s %s", ErrTransferFailed, ct.ID, ct.Status)
	}
	return nil
}

// startQuote creates and executes the quote. The quote's lock is held from
// the first save until the row reflects the execution, so a settlement
// callback never sees, or overwrites, a half-written quote. A quote that is
// already settled at execution moves straight on to the disbursement.
// Failures run the failure policy here.
func (o *Orchestrator) startQuote(ctx context.Context, co *checkout.Checkout) error {
	o.notify(co, event.StepQuote, event.StepProcessing, co.Status, "", "quoting asset purchase")

	q, err := o.deps.Custody.CreateQuote(ctx, o.quoteAccount(co), co.FundsAmount().ToMajorUnit(), idempotency.Derive(co.ID, "quote"))
	if err != nil {
		return o.fail(co, event.StepQuote, err)
	}
	q.CheckoutID = co.ID
	if q.CreatedAt.IsZero() {
		q.CreatedAt = o.now()
	}

	err = o.withLock(ctx, "quotes-update/"+q.ID, func(ctx context.Context) error {
		if err := o.deps.Repos.Quotes.Save(q); err != nil {
			return o.fail(co, event.StepQuote, fmt.Errorf("save quote: %w", err))
		}

		executed, err := o.deps.Custody.ExecuteQuote(ctx, q.ID, idempotency.Derive(co.ID, "quote-execute", q.ID))
		if err != nil {
			return o.fail(co, event.StepQuote, err)
		}
		executed.ID = q.ID
		executed.CheckoutID = co.ID
		executed.CreatedAt = q.CreatedAt
		if err := o.deps.Repos.Quotes.Update(executed); err != nil {
			return o.fail(co, event.StepQuote, fmt.Errorf("update quote: %w", err))
		}

		switch {
		case executed.Status.Failed():
			return o.fail(co, event.StepQuote, fmt.Errorf("%w: quote %s %s", ErrQuoteFailed, q.ID, executed.Status))
		case executed.Status != checkout.QuoteSettled:
			return nil
		}
		return o.quoteSettled(ctx, co, executed)
	})
	if errors.Is(err, lock.ErrBacklogExceeded) {
		return o.fail(co, event.StepQuote, err)
	}
	return err
}

// quoteSettled disburses the purchased units.
func (o *Orchestrator) quoteSettled(ctx context.Context, co *checkout.Checkout, q *checkout.AssetQuote) error {
	o.deps.Metrics.IncStep(string(event.StepQuote), "settled")
	o.notify(co, event.StepQuote, event.StepSettled, co.Status, q.ID, "asset purchased")

	if err := o.startAssetTransfer(ctx, co, q); err != nil {
		return o.fail(co, event.StepAssetTransfer, err)
	}
	return nil
}

func (o *Orchestrator) startAssetTransfer(ctx context.Context, co *checkout.Checkout, q *checkout.AssetQuote) error {
	o.notify(co, event.StepAssetTransfer, event.StepProcessing, co.Status, "", "disbursing asset")

	accountID := o.quoteAccount(co)
	var contactID string
	if co.IsCustodial() {
		acct, err := o.deps.Repos.Accounts.FindByID(co.CustodialAccountID)
		if err != nil {
			return fmt.Errorf("custodial account %s: %w", co.CustodialAccountID, err)
		}
		contactID = acct.ContactID
	}

	methodID, err := o.deps.Custody.CreateDisbursementMethod(ctx, custody.DisbursementMethodInput{
		WalletAddress: co.WalletAddress,
		AccountID:     accountID,
		ContactID:     contactID,
	}, idempotency.Derive(co.ID, "disbursement-method"))
	if err != nil {
		return err
	}

	at, err := o.deps.Custody.CreateDisbursement(ctx, accountID, methodID, q.UnitCount, idempotency.Derive(co.ID, "disbursement", q.ID))
	if err != nil {
		return err
	}
	at.CheckoutID = co.ID
	if at.CreatedAt.IsZero() {
		at.CreatedAt = o.now()
	}
	if err := o.deps.Repos.AssetTransfers.Save(at); err != nil {
		return fmt.Errorf("save asset transfer: %w", err)
	}

	o.deps.Logger.Info("asset transfer created", map[string]any{
		"checkout-id":       co.ID,
		"asset-transfer-id": at.ID,
		"unit-count":        at.UnitCountExpected.String(),
	})
	return nil
}

// markPaid is the only way into Paid. It returns without side effects when
// the checkout already left Processing.
func (o *Orchestrator) markPaid(co *checkout.Checkout, at *checkout.AssetTransfer) error {
	changed, err := o.deps.Repos.Checkouts.TransitionStatus(co.ID, checkout.StatusPaid, checkout.StatusProcessing)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	co.Status = checkout.StatusPaid
	o.deps.Metrics.IncCheckout(string(checkout.StatusPaid))
	o.deps.Metrics.IncStep(string(event.StepAssetTransfer), "settled")

	if co.CheckoutRequestID != "" {
		if err := o.deps.Repos.Requests.UpdateStatus(co.CheckoutRequestID, checkout.StatusPaid, at.TransactionHash); err != nil {
			o.deps.Logger.Error("mark checkout request paid", map[string]any{
				"checkout-id": co.ID,
				"request-id":  co.CheckoutRequestID,
				"err":         err,
			})
		} else {
			o.notifyPartner(co, checkout.StatusPaid, at.TransactionHash, at.UnitCount.String())
		}
	}

	o.deps.Logger.Info("checkout paid", map[string]any{
		"checkout-id":      co.ID,
		"transaction-hash": at.TransactionHash,
	})
	o.notify(co, event.StepAssetTransfer, event.StepSettled, checkout.StatusPaid, at.TransactionHash, "asset delivered")
	return nil
}
