package checkout

import (
	"context"
	"errors"

	domain "github.com/rcarvalho-pb/checkout_system-go/internal/domain/checkout"
	"github.com/rcarvalho-pb/checkout_system-go/internal/domain/event"
)

// StatusView is the polling answer for a checkout.
type StatusView struct {
	CheckoutID     string           `json:"checkoutId"`
	CheckoutStatus domain.Status    `json:"checkoutStatus"`
	Step           event.Step       `json:"step"`
	Status         event.StepStatus `json:"status"`
	TransactionID  string           `json:"transactionId,omitempty"`
	Message        string           `json:"message"`
}

var nextStep = map[event.Step]event.Step{
	event.StepCharge:        event.StepFundsTransfer,
	event.StepFundsTransfer: event.StepQuote,
	event.StepQuote:         event.StepAssetTransfer,
	event.StepAssetTransfer: event.StepAssetTransfer,
}

var stepMessages = map[event.Step]string{
	event.StepCharge:        "charging card",
	event.StepFundsTransfer: "moving funds into custody",
	event.StepQuote:         "purchasing asset",
	event.StepAssetTransfer: "delivering asset",
}

// progress is the furthest child record of a checkout.
type progress struct {
	step event.Step
	done bool
	txID string
}

func (s *Service) GetCheckoutStatus(ctx context.Context, id string) (*StatusView, error) {
	co, err := s.Checkouts.FindByID(id)
	if err != nil {
		return nil, err
	}

	view := &StatusView{CheckoutID: co.ID, CheckoutStatus: co.Status}

	switch co.Status {
	case domain.StatusPending, domain.StatusPostponed:
		view.Step = event.StepCharge
		view.Status = event.StepProcessing
		view.Message = "waiting to start"
		if co.IsCustodial() {
			if acct, err := s.Accounts.FindByID(co.CustodialAccountID); err == nil && !acct.IsVerified() {
				view.Message = "waiting for account verification"
			}
		}
		return view, nil
	}

	p, err := s.progress(co.ID)
	if err != nil {
		return nil, err
	}

	switch co.Status {
	case domain.StatusPaid:
		view.Step = event.StepAssetTransfer
		view.Status = event.StepSettled
		view.TransactionID = p.txID
		view.Message = "asset delivered"
	case domain.StatusError:
		view.Step = p.step
		if p.done {
			view.Step = nextStep[p.step]
		}
		view.Status = event.StepFailed
		view.Message = stepMessages[view.Step] + " failed"
	default:
		view.Step = p.step
		if p.done {
			view.Step = nextStep[p.step]
		}
		view.Status = event.StepProcessing
		view.Message = stepMessages[view.Step]
	}
	return view, nil
}

func (s *Service) progress(checkoutID string) (progress, error) {
	at, err := s.AssetTransfers.FindByCheckout(checkoutID)
	if err == nil {
		return progress{step: event.StepAssetTransfer, done: at.Status == domain.TransferSettled, txID: at.TransactionHash}, nil
	}
	if !errors.Is(err, domain.ErrAssetTransferNotFound) {
		return progress{}, err
	}

	q, err := s.Quotes.FindByCheckout(checkoutID)
	if err == nil {
		return progress{step: event.StepQuote, done: q.Status == domain.QuoteSettled, txID: q.ID}, nil
	}
	if !errors.Is(err, domain.ErrQuoteNotFound) {
		return progress{}, err
	}

	ft, err := s.FundsTransfers.FindByCheckout(checkoutID)
	if err == nil {
		return progress{step: event.StepFundsTransfer, done: ft.Status == domain.TransferSettled, txID: ft.ID}, nil
	}
	if !errors.Is(err, domain.ErrFundsTransferNotFound) {
		return progress{}, err
	}

	ch, err := s.Charges.FindByCheckout(checkoutID)
	if err == nil {
		return progress{step: event.StepCharge, done: ch.Authorized(), txID: ch.ID}, nil
	}
	if !errors.Is(err, domain.ErrChargeNotFound) {
		return progress{}, err
	}

	return progress{step: event.StepCharge}, nil
}
