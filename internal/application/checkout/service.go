package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rcarvalho-pb/checkout_system-go/internal/application/contracts"
	domain "github.com/rcarvalho-pb/checkout_system-go/internal/domain/checkout"
	"github.com/rcarvalho-pb/checkout_system-go/internal/domain/money"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infra/logging"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infra/metrics"
)

type Settings struct {
	KYCThreshold   decimal.Decimal
	DefaultFee     decimal.Decimal
	DefaultFeeType domain.TipType
	FrontendURI    string
}

type Service struct {
	Checkouts      domain.Repository
	Requests       domain.RequestRepository
	Charges        domain.ChargeRepository
	FundsTransfers domain.FundsTransferRepository
	Quotes         domain.AssetQuoteRepository
	AssetTransfers domain.AssetTransferRepository
	Accounts       domain.CustodialAccountRepository

	Scheduler contracts.Scheduler
	Settings  Settings
	Logger    logging.Logger
	Metrics   *metrics.Checkout
	Now       func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Process validates and stores a new checkout, then schedules its pipeline.
// Custodial checkouts of an unverified account stay Pending until the
// account is verified.
func (s *Service) Process(ctx context.Context, in Input, requesterID string) (*domain.Checkout, error) {
	in.normalize()
	if err := in.validate(s.Settings.KYCThreshold); err != nil {
		return nil, err
	}

	now := s.now()
	co := &domain.Checkout{
		ID:              uuid.NewString(),
		CheckoutTokenID: in.CheckoutTokenID,
		WalletAddress:   in.WalletAddress,
		FirstName:       in.FirstName,
		LastName:        in.LastName,
		Email:           in.Email,
		PhoneNumber:     in.PhoneNumber,
		StreetAddress:   in.StreetAddress,
		StreetAddress2:  in.StreetAddress2,
		City:            in.City,
		State:           in.State,
		Zip:             in.Zip,
		Country:         in.Country,
		KYC:             in.KYC(),
		Amount:          money.FromMajor(in.Amount, in.Currency).Amount(),
		Currency:        in.Currency,
		Tip:             in.Tip,
		TipType:         in.TipType,
		Fee:             s.Settings.DefaultFee,
		FeeType:         s.Settings.DefaultFeeType,
		Status:          domain.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if in.CheckoutRequestID != "" {
		req, err := s.Requests.FindByID(in.CheckoutRequestID)
		if errors.Is(err, domain.ErrRequestNotFound) {
			return nil, &domain.ValidationError{Field: "checkoutRequestId", Message: "checkout request not found"}
		}
		if err != nil {
			return nil, err
		}
		if req.Status != domain.StatusPending {
			return nil, &domain.ValidationError{Field: "checkoutRequestId", Message: "checkout request already " + string(req.Status)}
		}
		if err := req.Match(co); err != nil {
			return nil, err
		}
		co.CheckoutRequestID = req.ID
		co.Fee = req.Fee
		co.FeeType = req.FeeType
	}

	var acct *domain.CustodialAccount
	if !co.FundsAmount().ToMajorUnit().LessThan(s.Settings.KYCThreshold) {
		if requesterID == "" {
			return nil, &domain.ValidationError{Field: "amount", Message: "a custodial account is required for this amount"}
		}
		found, err := s.Accounts.FindByUserID(requesterID)
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, &domain.ValidationError{Field: "amount", Message: "a custodial account is required for this amount"}
		}
		if err != nil {
			return nil, err
		}
		acct = found
		co.CustodialAccountID = acct.ID
	}

	if err := s.Checkouts.Save(co); err != nil {
		return nil, fmt.Errorf("save checkout: %w", err)
	}
	s.Metrics.IncCheckout(string(domain.StatusPending))

	fields := map[string]any{
		"checkout-id": co.ID,
		"total":       co.TotalChargeAmount().String(),
	}
	if acct != nil && !acct.IsVerified() {
		fields["account-id"] = acct.ID
		s.Logger.Info("checkout blocked on account verification", fields)
		return co, nil
	}

	s.Scheduler.Schedule(co.ID)
	s.Logger.Info("checkout accepted", fields)
	return co, nil
}

func (s *Service) GetCheckout(ctx context.Context, id string) (*domain.Checkout, error) {
	return s.Checkouts.FindByID(id)
}

// CreateCheckoutRequest registers an order a later checkout has to match and
// returns the link the customer completes it at.
func (s *Service) CreateCheckoutRequest(ctx context.Context, in RequestInput) (*RequestResult, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}

	fee, feeType := s.Settings.DefaultFee, s.Settings.DefaultFeeType
	if in.Fee != nil {
		fee = *in.Fee
	}
	if in.FeeType != "" {
		feeType = in.FeeType
	}

	now := s.now()
	req := &domain.CheckoutRequest{
		ID:             uuid.NewString(),
		PartnerOrderID: in.PartnerOrderID,
		WalletAddress:  in.WalletAddress,
		Email:          in.Email,
		PhoneNumber:    in.PhoneNumber,
		Currency:       in.Currency,
		Amount:         money.FromMajor(in.Amount, in.Currency).Amount(),
		Fee:            fee,
		FeeType:        feeType,
		Webhook:        in.Webhook,
		Status:         domain.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.Requests.Save(req); err != nil {
		return nil, fmt.Errorf("save checkout request: %w", err)
	}

	return &RequestResult{
		ID:  req.ID,
		URI: strings.TrimRight(s.Settings.FrontendURI, "/") + "/" + req.ID,
	}, nil
}
