package orchestrator_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcarvalho-pb/checkout_system-go/internal/application/orchestrator"
	"github.com/rcarvalho-pb/checkout_system-go/internal/domain/checkout"
	"github.com/rcarvalho-pb/checkout_system-go/internal/domain/event"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infra/lock"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infrastructure/persistence/inmemory"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infrastructure/provider/charge"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infrastructure/provider/custody"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infrastructure/provider/idempotency"
)

const centralAccount = "central"

type harness struct {
	o        *orchestrator.Orchestrator
	charger  *fakeCharger
	custody  *fakeCustody
	notes    *recordingNotifier
	outbox   *recordingOutbox
	checkout *inmemory.CheckoutRepository
	requests *inmemory.RequestRepository
	charges  *inmemory.ChargeRepository
	funds    *inmemory.FundsTransferRepository
	quotes   *inmemory.AssetQuoteRepository
	assets   *inmemory.AssetTransferRepository
	accounts *inmemory.CustodialAccountRepository
}

func newHarness(t *testing.T, configure ...func(*harness, *orchestrator.Dependencies)) *harness {
	t.Helper()

	h := &harness{
		charger:  &fakeCharger{result: authorized()},
		custody:  newFakeCustody(),
		notes:    &recordingNotifier{},
		outbox:   &recordingOutbox{},
		checkout: inmemory.NewCheckoutRepository(),
		requests: inmemory.NewRequestRepository(),
		charges:  inmemory.NewChargeRepository(),
		funds:    inmemory.NewFundsTransferRepository(),
		quotes:   inmemory.NewAssetQuoteRepository(),
		assets:   inmemory.NewAssetTransferRepository(),
		accounts: inmemory.NewCustodialAccountRepository(),
	}

	deps := orchestrator.Dependencies{
		Repos: orchestrator.Repositories{
			Checkouts:      h.checkout,
			Requests:       h.requests,
			Charges:        h.charges,
			FundsTransfers: h.funds,
			Quotes:         h.quotes,
			AssetTransfers: h.assets,
			Accounts:       h.accounts,
		},
		Charge:           h.charger,
		Custody:          h.custody,
		Notifier:         h.notes,
		Outbox:           h.outbox,
		Lock:             lock.NewKeyed(10),
		Logger:           &noopLogger{},
		CentralAccountID: centralAccount,
		ProcessDelay:     time.Millisecond,
	}
	for _, c := range configure {
		c(h, &deps)
	}
	h.o = orchestrator.New(deps)
	t.Cleanup(h.o.Close)

	return h
}

func (h *harness) seedCheckout(t *testing.T, id string, status checkout.Status, mutate ...func(*checkout.Checkout)) *checkout.Checkout {
	t.Helper()

	co := &checkout.Checkout{
		ID:              id,
		CheckoutTokenID: "tok_visa",
		WalletAddress:   "0xabc",
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Email:           "ada@example.com",
		PhoneNumber:     "+15551234567",
		Amount:          10000,
		Currency:        "USD",
		Tip:             decimal.NewFromInt(10),
		TipType:         checkout.TipTypeCash,
		Fee:             decimal.NewFromInt(2),
		FeeType:         checkout.TipTypePercent,
		Status:          status,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}
	for _, m := range mutate {
		m(co)
	}
	require.NoError(t, h.checkout.Save(co))
	return co
}

func (h *harness) seedRequest(t *testing.T, id string) *checkout.CheckoutRequest {
	t.Helper()

	req := &checkout.CheckoutRequest{
		ID:             id,
		PartnerOrderID: "order-77",
		WalletAddress:  "0xabc",
		PhoneNumber:    "+15551234567",
		Currency:       "USD",
		Amount:         10000,
		Fee:            decimal.NewFromInt(2),
		FeeType:        checkout.TipTypePercent,
		Webhook:        "https://partner.example.com/hook",
		Status:         checkout.StatusPending,
	}
	require.NoError(t, h.requests.Save(req))
	return req
}

func (h *harness) seedAccount(t *testing.T, verified bool) *checkout.CustodialAccount {
	t.Helper()

	acct := &checkout.CustodialAccount{
		ID:        "acct-1",
		ContactID: "contact-1",
		UserID:    "user-1",
		Status:    "opened",
	}
	if verified {
		acct.Verification = verifiedFlags()
	}
	require.NoError(t, h.accounts.Save(acct))
	return acct
}

func verifiedFlags() checkout.Verification {
	return checkout.Verification{
		IdentityConfirmed:               true,
		IdentityDocumentsVerified:       true,
		ProofOfAddressDocumentsVerified: true,
		AMLCleared:                      true,
		CIPCleared:                      true,
	}
}

func (h *harness) status(t *testing.T, id string) checkout.Status {
	t.Helper()

	co, err := h.checkout.FindByID(id)
	require.NoError(t, err)
	return co.Status
}

func webhook(resourceType, id string) orchestrator.Webhook {
	return orchestrator.Webhook{ResourceType: resourceType, ResourceID: id}
}

func TestRun_ChargesAndCreatesFundsTransfer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	co := h.seedCheckout(t, "co-1", checkout.StatusPending)

	require.NoError(t, h.o.Run(ctx, co.ID))

	require.Equal(t, checkout.StatusProcessing, h.status(t, co.ID))

	ch, err := h.charges.FindByCheckout(co.ID)
	require.NoError(t, err)
	assert.Equal(t, "pay_1", ch.ID)
	assert.Equal(t, int64(11200), ch.Amount)

	ft, err := h.funds.FindByCheckout(co.ID)
	require.NoError(t, err)
	assert.Equal(t, "ft-1", ft.ID)
	assert.True(t, ft.Amount.Equal(decimal.NewFromInt(110)))
	assert.Equal(t, charge.Reference(co.ID), ft.Reference)

	require.Equal(t, []idempotency.Key{idempotency.Derive(co.ID, "charge")}, h.charger.keys)
	require.Equal(t, []idempotency.Key{idempotency.Derive(co.ID, "add-funds")}, h.custody.keys["add_funds"])

	settled := h.notes.With(event.StepSettled)
	require.Len(t, settled, 1)
	assert.Equal(t, event.StepCharge, settled[0].Step)
	assert.Equal(t, "pay_1", settled[0].TransactionID)
	assert.Len(t, h.notes.With(event.StepProcessing), 2)

	// the claim makes a second run a no-op
	require.NoError(t, h.o.Run(ctx, co.ID))
	assert.Equal(t, 1, h.charger.Calls())
	assert.Equal(t, 1, h.custody.Calls("add_funds"))
}

func TestRun_ChargeDeclined_FailureFanOut(t *testing.T) {
	h := newHarness(t)
	req := h.seedRequest(t, "req-1")
	co := h.seedCheckout(t, "co-1", checkout.StatusPending, func(c *checkout.Checkout) {
		c.CheckoutRequestID = req.ID
	})
	h.charger.result = charge.Result{ProviderID: "pay_2", Status: "Declined", ResponseCode: "20005"}

	err := h.o.Run(context.Background(), co.ID)
	require.Error(t, err)
	require.ErrorIs(t, err, orchestrator.ErrChargeDeclined)

	var stepErr *orchestrator.StepError
	require.ErrorAs(t, err, &stepErr)
	require.Equal(t, event.StepCharge, stepErr.Step)

	require.Equal(t, checkout.StatusError, h.status(t, co.ID))

	gotReq, err := h.requests.FindByID(req.ID)
	require.NoError(t, err)
	require.Equal(t, checkout.StatusError, gotReq.Status)

	failed := h.notes.With(event.StepFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, event.StepCharge, failed[0].Step)
	assert.Equal(t, string(checkout.StatusError), failed[0].CheckoutStatus)

	hooks := h.outbox.Webhooks()
	require.Len(t, hooks, 1)
	assert.Equal(t, "error", hooks[0].Status)
	assert.Empty(t, hooks[0].TransactionHash)
	assert.Equal(t, "https://partner.example.com/hook", hooks[0].URL)
	assert.Equal(t, "order-77", hooks[0].PartnerOrderID)

	assert.Zero(t, h.custody.Calls("add_funds"))
}

func TestRun_ChargeProviderError_Fails(t *testing.T) {
	h := newHarness(t)
	co := h.seedCheckout(t, "co-1", checkout.StatusPending)
	h.charger.err = &charge.ProviderError{Provider: "charge", Status: 422, Message: "card_expired"}

	err := h.o.Run(context.Background(), co.ID)

	var providerErr *charge.ProviderError
	require.ErrorAs(t, err, &providerErr)
	require.Equal(t, checkout.StatusError, h.status(t, co.ID))
	require.Len(t, h.notes.With(event.StepFailed), 1)
	require.Empty(t, h.outbox.Webhooks())
}

func TestRun_UnverifiedCustodialAccountStaysPending(t *testing.T) {
	h := newHarness(t)
	h.seedAccount(t, false)
	co := h.seedCheckout(t, "co-1", checkout.StatusPending, func(c *checkout.Checkout) {
		c.CustodialAccountID = "acct-1"
	})

	require.NoError(t, h.o.Run(context.Background(), co.ID))

	require.Equal(t, checkout.StatusPending, h.status(t, co.ID))
	require.Zero(t, h.charger.Calls())
}

func TestSchedule_CollapsesDuplicateTriggers(t *testing.T) {
	h := newHarness(t)
	co := h.seedCheckout(t, "co-1", checkout.StatusPending)

	require.True(t, h.o.Schedule(co.ID))
	require.False(t, h.o.Schedule(co.ID))
	h.o.Wait()

	require.Equal(t, 1, h.charger.Calls())
	require.Equal(t, checkout.StatusProcessing, h.status(t, co.ID))
}

func TestFundsTransferSettled_CentralFlowExecutesQuote(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	co := h.seedCheckout(t, "co-1", checkout.StatusPending)
	require.NoError(t, h.o.Run(ctx, co.ID))

	h.custody.SetFunds(checkout.FundsTransfer{
		ID:     "ft-1",
		Status: checkout.TransferSettled,
		Amount: decimal.NewFromInt(110),
	})

	require.NoError(t, h.o.HandleWebhook(ctx, webhook(orchestrator.ResourceFundsTransfers, "ft-1")))

	ft, err := h.funds.FindByID("ft-1")
	require.NoError(t, err)
	assert.Equal(t, checkout.TransferSettled, ft.Status)
	assert.Equal(t, co.ID, ft.CheckoutID)

	q, err := h.quotes.FindByCheckout(co.ID)
	require.NoError(t, err)
	assert.Equal(t, "q-1", q.ID)
	assert.Equal(t, checkout.QuoteExecuted, q.Status)
	assert.Equal(t, centralAccount, h.custody.quoteAccount)
	assert.Zero(t, h.custody.Calls("transfer_funds"))
	assert.Equal(t, []idempotency.Key{idempotency.Derive(co.ID, "quote-execute", "q-1")}, h.custody.keys["execute_quote"])

	// duplicate delivery
	require.NoError(t, h.o.HandleWebhook(ctx, webhook(orchestrator.ResourceFundsTransfers, "ft-1")))
	assert.Equal(t, 1, h.custody.Calls("get_funds_transfer"))
	assert.Equal(t, 1, h.custody.Calls("create_quote"))
	assert.Equal(t, 1, h.custody.Calls("execute_quote"))
	assert.Equal(t, checkout.StatusProcessing, h.status(t, co.ID))
}

func TestFundsTransferPending_WaitsForNextCallback(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	co := h.seedCheckout(t, "co-1", checkout.StatusPending)
	require.NoError(t, h.o.Run(ctx, co.ID))

	require.NoError(t, h.o.HandleWebhook(ctx, webhook(orchestrator.ResourceFundsTransfers, "ft-1")))

	assert.Equal(t, 1, h.custody.Calls("get_funds_transfer"))
	assert.Zero(t, h.custody.Calls("create_quote"))
	assert.Equal(t, checkout.StatusProcessing, h.status(t, co.ID))
}

func TestCustodialFlow_MovesFundsBeforeQuote(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedAccount(t, true)
	co := h.seedCheckout(t, "co-1", checkout.StatusPending, func(c *checkout.Checkout) {
		c.CustodialAccountID = "acct-1"
	})
	require.NoError(t, h.o.Run(ctx, co.ID))

	h.custody.SetFunds(checkout.FundsTransfer{ID: "ft-1", Status: checkout.TransferSettled})
	require.NoError(t, h.o.HandleWebhook(ctx, orchestrator.Webhook{
		ResourceType:     orchestrator.ResourceFundsTransfers,
		LegacyResourceID: "ft-1",
		AccountID:        "acct-1",
	}))

	assert.Equal(t, 1, h.custody.Calls("transfer_funds"))
	assert.Equal(t, centralAccount, h.custody.cashFrom)
	assert.Equal(t, "acct-1", h.custody.cashTo)
	assert.Equal(t, "acct-1", h.custody.quoteAccount)

	h.custody.SetQuote(checkout.AssetQuote{
		ID:        "q-1",
		Status:    checkout.QuoteSettled,
		UnitCount: decimal.NewFromInt(110),
	})
	require.NoError(t, h.o.HandleWebhook(ctx, webhook(orchestrator.ResourceFacilitatedTrades, "q-1")))

	assert.Equal(t, "acct-1", h.custody.methodInput.AccountID)
	assert.Equal(t, "contact-1", h.custody.methodInput.ContactID)
	assert.Equal(t, "0xabc", h.custody.methodInput.WalletAddress)

	at, err := h.assets.FindByCheckout(co.ID)
	require.NoError(t, err)
	assert.Equal(t, "at-1", at.ID)
	assert.True(t, at.UnitCountExpected.Equal(decimal.NewFromInt(110)))
}

func TestCustodialFlow_FailedCashTransferFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedAccount(t, true)
	co := h.seedCheckout(t, "co-1", checkout.StatusPending, func(c *checkout.Checkout) {
		c.CustodialAccountID = "acct-1"
	})
	require.NoError(t, h.o.Run(ctx, co.ID))

	h.custody.cashStatus = "cancelled"
	h.custody.SetFunds(checkout.FundsTransfer{ID: "ft-1", Status: checkout.TransferSettled})

	err := h.o.HandleWebhook(ctx, webhook(orchestrator.ResourceFundsTransfers, "ft-1"))
	require.ErrorIs(t, err, orchestrator.ErrTransferFailed)
	require.Equal(t, checkout.StatusError, h.status(t, co.ID))
	require.Zero(t, h.custody.Calls("create_quote"))
}

func TestFundsTransferCancelled_FailsCheckout(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	co := h.seedCheckout(t, "co-1", checkout.StatusPending)
	require.NoError(t, h.o.Run(ctx, co.ID))

	h.custody.SetFunds(checkout.FundsTransfer{ID: "ft-1", Status: checkout.TransferCancelled})

	err := h.o.HandleWebhook(ctx, webhook(orchestrator.ResourceFundsTransfers, "ft-1"))
	require.ErrorIs(t, err, orchestrator.ErrTransferFailed)

	require.Equal(t, checkout.StatusError, h.status(t, co.ID))
	failed := h.notes.With(event.StepFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, event.StepFundsTransfer, failed[0].Step)
	assert.Zero(t, h.custody.Calls("create_quote"))
}

func TestQuoteExpired_FailsWithoutAssetTransfer(t *testing.T) {
	h := newHarness(t)
	co := h.seedCheckout(t, "co-1", checkout.StatusProcessing)
	require.NoError(t, h.quotes.Save(&checkout.AssetQuote{ID: "q-1", CheckoutID: co.ID, Status: checkout.QuoteExecuted}))
	h.custody.SetQuote(checkout.AssetQuote{ID: "q-1", Status: checkout.QuoteExpired})

	err := h.o.HandleWebhook(context.Background(), webhook(orchestrator.ResourceFacilitatedTrades, "q-1"))
	require.ErrorIs(t, err, orchestrator.ErrQuoteFailed)

	require.Equal(t, checkout.StatusError, h.status(t, co.ID))

	_, err = h.assets.FindByCheckout(co.ID)
	require.ErrorIs(t, err, checkout.ErrAssetTransferNotFound)
	require.Zero(t, h.custody.Calls("create_disbursement"))

	failed := h.notes.With(event.StepFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, event.StepQuote, failed[0].Step)

	q, err := h.quotes.FindByID("q-1")
	require.NoError(t, err)
	assert.Equal(t, checkout.QuoteExpired, q.Status)
}

func TestAssetTransferSettled_MarksPaid(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := h.seedRequest(t, "req-1")
	co := h.seedCheckout(t, "co-1", checkout.StatusProcessing, func(c *checkout.Checkout) {
		c.CheckoutRequestID = req.ID
	})
	require.NoError(t, h.assets.Save(&checkout.AssetTransfer{
		ID:                "at-1",
		CheckoutID:        co.ID,
		Status:            checkout.TransferPending,
		UnitCountExpected: decimal.NewFromInt(110),
	}))
	h.custody.SetTransfer(checkout.AssetTransfer{
		ID:                "at-1",
		Status:            checkout.TransferSettled,
		UnitCount:         decimal.NewFromInt(110),
		UnitCountExpected: decimal.NewFromInt(110),
		TransactionHash:   "0xhash",
	})

	require.NoError(t, h.o.HandleWebhook(ctx, webhook(orchestrator.ResourceAssetTransfers, "at-1")))

	require.Equal(t, checkout.StatusPaid, h.status(t, co.ID))

	at, err := h.assets.FindByID("at-1")
	require.NoError(t, err)
	assert.Equal(t, checkout.TransferSettled, at.Status)
	assert.Equal(t, co.ID, at.CheckoutID)

	settled := h.notes.With(event.StepSettled)
	require.Len(t, settled, 1)
	assert.Equal(t, event.StepAssetTransfer, settled[0].Step)
	assert.Equal(t, "0xhash", settled[0].TransactionID)
	assert.Equal(t, string(checkout.StatusPaid), settled[0].CheckoutStatus)

	gotReq, err := h.requests.FindByID(req.ID)
	require.NoError(t, err)
	assert.Equal(t, checkout.StatusPaid, gotReq.Status)
	assert.Equal(t, "0xhash", gotReq.TransactionHash)

	hooks := h.outbox.Webhooks()
	require.Len(t, hooks, 1)
	assert.Equal(t, "paid", hooks[0].Status)
	assert.Equal(t, "0xhash", hooks[0].TransactionHash)
	assert.Equal(t, "110", hooks[0].UnitCount)
	assert.Equal(t, "100", hooks[0].Amount)

	// replays change nothing and never reach the provider
	require.NoError(t, h.o.HandleWebhook(ctx, webhook(orchestrator.ResourceAssetTransfers, "at-1")))
	require.NoError(t, h.o.HandleWebhook(ctx, webhook(orchestrator.ResourceAssetTransfers, "at-1")))
	assert.Equal(t, 1, h.custody.Calls("get_asset_transfer"))
	assert.Len(t, h.notes.With(event.StepSettled), 1)
	assert.Len(t, h.outbox.Webhooks(), 1)
}

func TestPaidCheckout_IgnoresLaterCallbacks(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	co := h.seedCheckout(t, "co-1", checkout.StatusPaid)

	require.NoError(t, h.funds.Save(&checkout.FundsTransfer{ID: "ft-9", CheckoutID: co.ID, Status: checkout.TransferPending}))
	require.NoError(t, h.quotes.Save(&checkout.AssetQuote{ID: "q-9", CheckoutID: co.ID, Status: checkout.QuotePending}))
	require.NoError(t, h.assets.Save(&checkout.AssetTransfer{ID: "at-9", CheckoutID: co.ID, Status: checkout.TransferPending}))
	h.custody.SetFunds(checkout.FundsTransfer{ID: "ft-9", Status: checkout.TransferReversed})
	h.custody.SetQuote(checkout.AssetQuote{ID: "q-9", Status: checkout.QuoteCancelled})
	h.custody.SetTransfer(checkout.AssetTransfer{ID: "at-9", Status: checkout.TransferCancelled})

	for _, w := range []orchestrator.Webhook{
		webhook(orchestrator.ResourceFundsTransfers, "ft-9"),
		webhook(orchestrator.ResourceFacilitatedTrades, "q-9"),
		webhook(orchestrator.ResourceAssetTransfers, "at-9"),
	} {
		require.NoError(t, h.o.HandleWebhook(ctx, w))
	}

	require.Equal(t, checkout.StatusPaid, h.status(t, co.ID))
	assert.Empty(t, h.notes.With(event.StepFailed))
	assert.Zero(t, h.custody.Calls("get_funds_transfer"))
	assert.Zero(t, h.custody.Calls("get_quote"))
	assert.Zero(t, h.custody.Calls("get_asset_transfer"))
}

func TestFundsTransferUpdate_SerializedPerResource(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	co := h.seedCheckout(t, "co-1", checkout.StatusPending)
	require.NoError(t, h.o.Run(ctx, co.ID))

	h.custody.delay = 20 * time.Millisecond
	h.custody.SetFunds(checkout.FundsTransfer{ID: "ft-1", Status: checkout.TransferSettled})

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, h.o.HandleFundsTransferUpdate(ctx, "ft-1"))
		}()
	}
	wg.Wait()

	require.Equal(t, 1, h.custody.MaxInFlight())
	require.Equal(t, 1, h.custody.Calls("get_funds_transfer"))
	require.Equal(t, 1, h.custody.Calls("create_quote"))
}

func TestContactVerified_ResumesBlockedCheckouts(t *testing.T) {
	h := newHarness(t)
	h.seedAccount(t, false)
	co := h.seedCheckout(t, "co-1", checkout.StatusPending, func(c *checkout.Checkout) {
		c.CustodialAccountID = "acct-1"
	})
	h.custody.contacts["contact-1"] = custodyContact(verifiedFlags())

	require.NoError(t, h.o.HandleWebhook(context.Background(), webhook(orchestrator.ResourceContacts, "contact-1")))
	h.o.Wait()

	acct, err := h.accounts.FindByID("acct-1")
	require.NoError(t, err)
	require.True(t, acct.IsVerified())

	require.Equal(t, 1, h.charger.Calls())
	require.Equal(t, checkout.StatusProcessing, h.status(t, co.ID))

	accounts := h.notes.Accounts()
	require.NotEmpty(t, accounts)
	assert.True(t, accounts[len(accounts)-1].Verified)
	assert.Equal(t, "user-1", accounts[len(accounts)-1].UserID)
}

func TestContactUnverified_KeepsCheckoutBlocked(t *testing.T) {
	h := newHarness(t)
	h.seedAccount(t, false)
	co := h.seedCheckout(t, "co-1", checkout.StatusPending, func(c *checkout.Checkout) {
		c.CustodialAccountID = "acct-1"
	})
	flags := verifiedFlags()
	flags.AMLCleared = false
	h.custody.contacts["contact-1"] = custodyContact(flags)

	require.NoError(t, h.o.HandleWebhook(context.Background(), webhook(orchestrator.ResourceContact, "contact-1")))
	h.o.Wait()

	require.Zero(t, h.charger.Calls())
	require.Equal(t, checkout.StatusPending, h.status(t, co.ID))

	acct, err := h.accounts.FindByID("acct-1")
	require.NoError(t, err)
	require.True(t, acct.Verification.CIPCleared)
	require.False(t, acct.IsVerified())
}

func TestContactRequiredActions_FailsFast(t *testing.T) {
	h := newHarness(t)
	h.seedAccount(t, false)

	err := h.o.HandleWebhook(context.Background(), orchestrator.Webhook{
		ResourceType: orchestrator.ResourceContacts,
		ResourceID:   "contact-1",
		Data:         &orchestrator.WebhookData{KYCRequiredActions: []string{"upload-proof-of-address"}},
	})
	require.ErrorIs(t, err, orchestrator.ErrKYCActionsRequired)

	assert.Zero(t, h.custody.Calls("get_contact"))
	accounts := h.notes.Accounts()
	require.Len(t, accounts, 1)
	assert.False(t, accounts[0].Verified)
	assert.Equal(t, []string{"upload-proof-of-address"}, accounts[0].RequiredActions)
}

func TestHandleWebhook_Ignores(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	co := h.seedCheckout(t, "co-1", checkout.StatusPending)
	require.NoError(t, h.o.Run(ctx, co.ID))

	cases := map[string]orchestrator.Webhook{
		"unknown resource type": webhook("disbursements", "ft-1"),
		"missing resource id":   webhook(orchestrator.ResourceFundsTransfers, ""),
		"foreign account": {
			ResourceType: orchestrator.ResourceFundsTransfers,
			ResourceID:   "ft-1",
			AccountID:    "someone-else",
		},
		"unknown resource": webhook(orchestrator.ResourceAssetTransfers, "at-404"),
	}

	for name, w := range cases {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, h.o.HandleWebhook(ctx, w))
		})
	}

	assert.Zero(t, h.custody.Calls("get_funds_transfer"))
	assert.Zero(t, h.custody.Calls("get_asset_transfer"))
}

func TestStepError_Unwraps(t *testing.T) {
	cause := errors.New("boom")
	err := &orchestrator.StepError{CheckoutID: "co-1", Step: event.StepQuote, Err: cause}

	require.ErrorIs(t, err, cause)
	require.Equal(t, "checkout co-1: quote: boom", err.Error())
}

func TestQuoteSettledAtExecution_DisbursesRightAway(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	co := h.seedCheckout(t, "co-1", checkout.StatusPending)
	require.NoError(t, h.o.Run(ctx, co.ID))

	h.custody.executeStatus = checkout.QuoteSettled
	h.custody.SetFunds(checkout.FundsTransfer{ID: "ft-1", Status: checkout.TransferSettled})
	require.NoError(t, h.o.HandleWebhook(ctx, webhook(orchestrator.ResourceFundsTransfers, "ft-1")))

	at, err := h.assets.FindByCheckout(co.ID)
	require.NoError(t, err)
	assert.Equal(t, "at-1", at.ID)
	assert.Equal(t, 1, h.custody.Calls("create_disbursement"))

	// the trade callback that follows finds the work done
	require.NoError(t, h.o.HandleWebhook(ctx, webhook(orchestrator.ResourceFacilitatedTrades, "q-1")))
	assert.Zero(t, h.custody.Calls("get_quote"))
	assert.Equal(t, 1, h.custody.Calls("create_disbursement"))
	assert.Equal(t, checkout.StatusProcessing, h.status(t, co.ID))
}

func TestSettledQuoteWithoutDisbursement_Resumes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	co := h.seedCheckout(t, "co-1", checkout.StatusProcessing)
	require.NoError(t, h.quotes.Save(&checkout.AssetQuote{
		ID:         "q-1",
		CheckoutID: co.ID,
		Status:     checkout.QuoteSettled,
		UnitCount:  decimal.NewFromInt(110),
	}))

	require.NoError(t, h.o.HandleWebhook(ctx, webhook(orchestrator.ResourceFacilitatedTrades, "q-1")))

	at, err := h.assets.FindByCheckout(co.ID)
	require.NoError(t, err)
	assert.True(t, at.UnitCountExpected.Equal(decimal.NewFromInt(110)))
	assert.Zero(t, h.custody.Calls("get_quote"))

	require.NoError(t, h.o.HandleWebhook(ctx, webhook(orchestrator.ResourceFacilitatedTrades, "q-1")))
	assert.Equal(t, 1, h.custody.Calls("create_disbursement"))
}

func TestSettledFundsWithoutQuote_Resumes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	co := h.seedCheckout(t, "co-1", checkout.StatusProcessing)
	require.NoError(t, h.funds.Save(&checkout.FundsTransfer{ID: "ft-1", CheckoutID: co.ID, Status: checkout.TransferSettled}))

	require.NoError(t, h.o.HandleWebhook(ctx, webhook(orchestrator.ResourceFundsTransfers, "ft-1")))

	assert.Zero(t, h.custody.Calls("get_funds_transfer"))
	assert.Equal(t, 1, h.custody.Calls("create_quote"))

	require.NoError(t, h.o.HandleWebhook(ctx, webhook(orchestrator.ResourceFundsTransfers, "ft-1")))
	assert.Equal(t, 1, h.custody.Calls("create_quote"))
}

// instantSandbox settles a funds transfer and delivers its callback before
// returning, the fastest the sandbox can answer.
type instantSandbox struct {
	h   *harness
	err error
}

func (s *instantSandbox) SettleFundsTransfer(ctx context.Context, id string) error {
	s.h.custody.SetFunds(checkout.FundsTransfer{ID: id, Status: checkout.TransferSettled})
	s.err = s.h.o.HandleWebhook(ctx, webhook(orchestrator.ResourceFundsTransfers, id))
	return nil
}

func (s *instantSandbox) ClearContingentHold(context.Context, string) error { return nil }
func (s *instantSandbox) SettleAssetTransfer(context.Context, string) error { return nil }
func (s *instantSandbox) OpenAccount(context.Context, string) error         { return nil }

func TestSandboxSettlement_AfterFundsTransferIsStored(t *testing.T) {
	sandbox := &instantSandbox{}
	h := newHarness(t, func(h *harness, deps *orchestrator.Dependencies) {
		sandbox.h = h
		deps.Custody = custody.NewTestModeProvider(h.custody, sandbox, &noopLogger{})
	})
	co := h.seedCheckout(t, "co-1", checkout.StatusPending)

	require.NoError(t, h.o.Run(context.Background(), co.ID))
	require.NoError(t, sandbox.err)

	ft, err := h.funds.FindByID("ft-1")
	require.NoError(t, err)
	assert.Equal(t, checkout.TransferSettled, ft.Status)
	assert.Equal(t, 1, h.custody.Calls("get_funds_transfer"))
	assert.Equal(t, 1, h.custody.Calls("create_quote"))
	assert.Equal(t, checkout.StatusProcessing, h.status(t, co.ID))
}
