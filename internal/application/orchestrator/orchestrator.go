package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rcarvalho-pb/checkout_system-go/internal/application/contracts"
	"github.com/rcarvalho-pb/checkout_system-go/internal/application/worker"
	"github.com/rcarvalho-pb/checkout_system-go/internal/domain/checkout"
	"github.com/rcarvalho-pb/checkout_system-go/internal/domain/event"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infra/lock"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infra/logging"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infra/metrics"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infrastructure/provider/charge"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infrastructure/provider/custody"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infrastructure/provider/idempotency"
)

var (
	ErrChargeDeclined     = errors.New("charge not authorized")
	ErrTransferFailed     = errors.New("transfer failed")
	ErrQuoteFailed        = errors.New("quote failed")
	ErrKYCActionsRequired = errors.New("kyc actions required")
)

type Charger interface {
	Charge(ctx context.Context, co *checkout.Checkout, key idempotency.Key) (*charge.Result, error)
}

type Notifier interface {
	PublishTransactionStatus(event.TransactionStatusPayload)
	PublishAccountStatus(event.AccountStatusPayload)
}

type Repositories struct {
	Checkouts      checkout.Repository
	Requests       checkout.RequestRepository
	Charges        checkout.ChargeRepository
	FundsTransfers checkout.FundsTransferRepository
	Quotes         checkout.AssetQuoteRepository
	AssetTransfers checkout.AssetTransferRepository
	Accounts       checkout.CustodialAccountRepository
}

type Dependencies struct {
	Repos    Repositories
	Charge   Charger
	Custody  custody.Provider
	Notifier Notifier
	// Outbox records partner webhooks for the dispatcher.
	Outbox  contracts.EventRecorder
	Lock    *lock.Keyed
	Logger  logging.Logger
	Metrics *metrics.Checkout

	CentralAccountID string
	ProcessDelay     time.Duration
	Now              func() time.Time
}

// Orchestrator drives a checkout from charge to asset disbursement. Calls
// that the custody provider completes asynchronously resume through
// HandleWebhook.
type Orchestrator struct {
	deps   Dependencies
	runner *worker.DelayedRunner
	cancel context.CancelFunc
}

func New(deps Dependencies) *Orchestrator {
	if deps.Lock == nil {
		deps.Lock = lock.NewKeyed(lock.DefaultMaxPending)
	}

	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{deps: deps, cancel: cancel}
	o.runner = worker.NewDelayedRunner(ctx, deps.ProcessDelay, o.Run, deps.Logger)
	return o
}

// Schedule runs the pipeline for checkoutID after the configured delay.
// Repeated calls before the run starts are collapsed.
func (o *Orchestrator) Schedule(checkoutID string) bool {
	return o.runner.Schedule(checkoutID)
}

// Wait blocks until every scheduled run has finished.
func (o *Orchestrator) Wait() {
	o.runner.Wait()
}

// Close drops runs that have not started and waits for the others.
func (o *Orchestrator) Close() {
	o.runner.Stop()
	o.cancel()
}

func (o *Orchestrator) now() time.Time {
	if o.deps.Now != nil {
		return o.deps.Now()
	}
	return time.Now().UTC()
}

// StepError is returned once the failure policy ran for a checkout.
type StepError struct {
	CheckoutID string
	Step       event.Step
	Err        error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("checkout %s: %s: %v", e.CheckoutID, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func (o *Orchestrator) notify(co *checkout.Checkout, step event.Step, status event.StepStatus, checkoutStatus checkout.Status, txID, msg string) {
	if o.deps.Notifier == nil {
		return
	}
	o.deps.Notifier.PublishTransactionStatus(event.TransactionStatusPayload{
		CheckoutID:     co.ID,
		Step:           step,
		Status:         status,
		CheckoutStatus: string(checkoutStatus),
		TransactionID:  txID,
		Message:        msg,
		Timestamp:      o.now(),
	})
}

// fail moves the checkout to Error, tells the partner and subscribers, and
// returns the cause as a *StepError. A checkout that already reached a
// terminal status is left untouched.
func (o *Orchestrator) fail(co *checkout.Checkout, step event.Step, cause error) error {
	stepErr := &StepError{CheckoutID: co.ID, Step: step, Err: cause}
	fields := map[string]any{
		"func":        "fail",
		"checkout-id": co.ID,
		"step":        step,
		"err":         cause,
	}

	changed, err := o.deps.Repos.Checkouts.TransitionStatus(co.ID, checkout.StatusError, checkout.StatusPending, checkout.StatusProcessing)
	if err != nil {
		fields["transition-err"] = err
		o.deps.Logger.Error("mark checkout failed", fields)
		return stepErr
	}
	if !changed {
		o.deps.Logger.Warn("failure on terminal checkout ignored", fields)
		return stepErr
	}

	co.Status = checkout.StatusError
	o.deps.Metrics.IncCheckout(string(checkout.StatusError))
	o.deps.Metrics.IncStep(string(step), "failed")
	o.deps.Logger.Error("checkout failed", fields)

	if co.CheckoutRequestID != "" {
		if err := o.deps.Repos.Requests.UpdateStatus(co.CheckoutRequestID, checkout.StatusError, ""); err != nil {
			o.deps.Logger.Error("mark checkout request failed", map[string]any{
				"checkout-id": co.ID,
				"request-id":  co.CheckoutRequestID,
				"err":         err,
			})
		} else {
			o.notifyPartner(co, checkout.StatusError, "", "")
		}
	}

	o.notify(co, step, event.StepFailed, checkout.StatusError, "", cause.Error())
	return stepErr
}

// notifyPartner records the outbound webhook of the linked checkout request.
func (o *Orchestrator) notifyPartner(co *checkout.Checkout, status checkout.Status, txHash, unitCount string) {
	if o.deps.Outbox == nil {
		return
	}

	req, err := o.deps.Repos.Requests.FindByID(co.CheckoutRequestID)
	if err != nil {
		o.deps.Logger.Error("load checkout request", map[string]any{
			"checkout-id": co.ID,
			"request-id":  co.CheckoutRequestID,
			"err":         err,
		})
		return
	}
	if req.Webhook == "" {
		return
	}

	amount := co.AmountMoney()
	err = o.deps.Outbox.Record(event.Event{
		Type: event.PartnerWebhook,
		Payload: event.PartnerWebhookPayload{
			URL:             req.Webhook,
			ID:              req.ID,
			PartnerOrderID:  req.PartnerOrderID,
			Status:          string(status),
			TransactionHash: txHash,
			UnitCount:       unitCount,
			Amount:          amount.ToMajorUnit().String(),
			Currency:        amount.Currency(),
			WalletAddress:   req.WalletAddress,
		},
	})
	if err != nil {
		o.deps.Logger.Error("record partner webhook", map[string]any{
			"checkout-id": co.ID,
			"request-id":  req.ID,
			"err":         err,
		})
	}
}
