package orchestrator_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rcarvalho-pb/checkout_system-go/internal/domain/checkout"
	"github.com/rcarvalho-pb/checkout_system-go/internal/domain/event"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infrastructure/provider/charge"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infrastructure/provider/custody"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infrastructure/provider/idempotency"
)

type noopLogger struct{}

func (n *noopLogger) Debug(string, map[string]any) {}
func (n *noopLogger) Info(string, map[string]any)  {}
func (n *noopLogger) Warn(string, map[string]any)  {}
func (n *noopLogger) Error(string, map[string]any) {}

type fakeCharger struct {
	mu     sync.Mutex
	result charge.Result
	err    error
	calls  int
	keys   []idempotency.Key
}

func (f *fakeCharger) Charge(_ context.Context, co *checkout.Checkout, key idempotency.Key) (*charge.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.keys = append(f.keys, key)
	if f.err != nil {
		return nil, f.err
	}
	res := f.result
	res.Amount = co.TotalChargeAmount().Amount()
	res.Currency = co.Currency
	res.Reference = charge.Reference(co.ID)
	return &res, nil
}

func (f *fakeCharger) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func authorized() charge.Result {
	return charge.Result{ProviderID: "pay_1", Status: "Authorized", Approved: true}
}

// fakeCustody serves provider state from maps tests prepare up front.
type fakeCustody struct {
	mu    sync.Mutex
	calls map[string]int
	keys  map[string][]idempotency.Key

	funds     map[string]checkout.FundsTransfer
	quotes    map[string]checkout.AssetQuote
	transfers map[string]checkout.AssetTransfer
	contacts  map[string]custody.Contact

	executeStatus checkout.QuoteStatus
	cashStatus    string

	quoteAccount string
	cashFrom     string
	cashTo       string
	methodInput  custody.DisbursementMethodInput

	delay       time.Duration
	inFlight    int
	maxInFlight int
}

func newFakeCustody() *fakeCustody {
	return &fakeCustody{
		calls:         make(map[string]int),
		keys:          make(map[string][]idempotency.Key),
		funds:         make(map[string]checkout.FundsTransfer),
		quotes:        make(map[string]checkout.AssetQuote),
		transfers:     make(map[string]checkout.AssetTransfer),
		contacts:      make(map[string]custody.Contact),
		executeStatus: checkout.QuoteExecuted,
		cashStatus:    "settled",
	}
}

func (f *fakeCustody) record(op string, key idempotency.Key) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	if key != "" {
		f.keys[op] = append(f.keys[op], key)
	}
}

func (f *fakeCustody) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeCustody) MaxInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}

func (f *fakeCustody) SetFunds(ft checkout.FundsTransfer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.funds[ft.ID] = ft
}

func (f *fakeCustody) SetQuote(q checkout.AssetQuote) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quotes[q.ID] = q
}

func (f *fakeCustody) SetTransfer(at checkout.AssetTransfer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transfers[at.ID] = at
}

func (f *fakeCustody) AddFunds(_ context.Context, in custody.AddFundsInput, key idempotency.Key) (*checkout.FundsTransfer, error) {
	f.record("add_funds", key)
	ft := checkout.FundsTransfer{
		ID:             "ft-1",
		Status:         checkout.TransferPending,
		Amount:         in.Amount,
		AmountExpected: in.Amount,
		Currency:       "USD",
		Reference:      in.Reference,
	}
	f.SetFunds(ft)
	return &ft, nil
}

func (f *fakeCustody) GetFundsTransfer(_ context.Context, id string) (*custody.FundsTransferState, error) {
	f.record("get_funds_transfer", "")

	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	ft, ok := f.funds[id]
	delay := f.delay
	f.mu.Unlock()

	time.Sleep(delay)

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	if !ok {
		return nil, &custody.ProviderError{Provider: "custody", Status: 404, Message: "not found"}
	}
	return &custody.FundsTransferState{Transfer: &ft}, nil
}

func (f *fakeCustody) CreateQuote(_ context.Context, accountID string, amount decimal.Decimal, key idempotency.Key) (*checkout.AssetQuote, error) {
	f.record("create_quote", key)
	q := checkout.AssetQuote{
		ID:              "q-1",
		Status:          checkout.QuotePending,
		AssetName:       "USDC",
		TransactionType: "buy",
		BaseAmount:      amount,
		TotalAmount:     amount,
		PricePerUnit:    decimal.NewFromInt(1),
		UnitCount:       amount,
		Hot:             true,
	}

	f.mu.Lock()
	f.quoteAccount = accountID
	f.quotes[q.ID] = q
	f.mu.Unlock()
	return &q, nil
}

func (f *fakeCustody) ExecuteQuote(_ context.Context, quoteID string, key idempotency.Key) (*checkout.AssetQuote, error) {
	f.record("execute_quote", key)

	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.quotes[quoteID]
	if !ok {
		return nil, fmt.Errorf("quote %s not found", quoteID)
	}
	q.Status = f.executeStatus
	f.quotes[quoteID] = q
	return &q, nil
}

func (f *fakeCustody) GetQuote(_ context.Context, id string) (*checkout.AssetQuote, error) {
	f.record("get_quote", "")

	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.quotes[id]
	if !ok {
		return nil, &custody.ProviderError{Provider: "custody", Status: 404, Message: "not found"}
	}
	return &q, nil
}

func (f *fakeCustody) CreateDisbursementMethod(_ context.Context, in custody.DisbursementMethodInput, key idempotency.Key) (string, error) {
	f.record("create_disbursement_method", key)

	f.mu.Lock()
	f.methodInput = in
	f.mu.Unlock()
	return "method-1", nil
}

func (f *fakeCustody) CreateDisbursement(_ context.Context, _, _ string, unitCount decimal.Decimal, key idempotency.Key) (*checkout.AssetTransfer, error) {
	f.record("create_disbursement", key)
	at := checkout.AssetTransfer{
		ID:                          "at-1",
		DisbursementAuthorizationID: "auth-1",
		Status:                      checkout.TransferPending,
		UnitCountExpected:           unitCount,
	}
	f.SetTransfer(at)
	return &at, nil
}

func (f *fakeCustody) GetAssetTransfer(_ context.Context, id string) (*checkout.AssetTransfer, error) {
	f.record("get_asset_transfer", "")

	f.mu.Lock()
	defer f.mu.Unlock()
	at, ok := f.transfers[id]
	if !ok {
		return nil, &custody.ProviderError{Provider: "custody", Status: 404, Message: "not found"}
	}
	return &at, nil
}

func (f *fakeCustody) TransferFunds(_ context.Context, from, to string, amount decimal.Decimal, key idempotency.Key) (*custody.CashTransfer, error) {
	f.record("transfer_funds", key)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.cashFrom, f.cashTo = from, to
	return &custody.CashTransfer{ID: "ct-1", Status: f.cashStatus, Amount: amount, FromAccountID: from, ToAccountID: to}, nil
}

func (f *fakeCustody) GetAccount(_ context.Context, id string) (*custody.Account, error) {
	f.record("get_account", "")
	return &custody.Account{ID: id, Status: "opened"}, nil
}

func (f *fakeCustody) GetContact(_ context.Context, id string) (*custody.Contact, error) {
	f.record("get_contact", "")

	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contacts[id]
	if !ok {
		return nil, &custody.ProviderError{Provider: "custody", Status: 404, Message: "not found"}
	}
	return &c, nil
}

func (f *fakeCustody) EnableWebhookConfig(context.Context, string) error {
	f.record("enable_webhook", "")
	return nil
}

type recordingNotifier struct {
	mu           sync.Mutex
	transactions []event.TransactionStatusPayload
	accounts     []event.AccountStatusPayload
}

func (n *recordingNotifier) PublishTransactionStatus(p event.TransactionStatusPayload) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.transactions = append(n.transactions, p)
}

func (n *recordingNotifier) PublishAccountStatus(p event.AccountStatusPayload) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.accounts = append(n.accounts, p)
}

// With filters transaction notifications by coarse status.
func (n *recordingNotifier) With(status event.StepStatus) []event.TransactionStatusPayload {
	n.mu.Lock()
	defer n.mu.Unlock()

	var out []event.TransactionStatusPayload
	for _, p := range n.transactions {
		if p.Status == status {
			out = append(out, p)
		}
	}
	return out
}

func (n *recordingNotifier) Accounts() []event.AccountStatusPayload {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]event.AccountStatusPayload(nil), n.accounts...)
}

type recordingOutbox struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recordingOutbox) Record(evt event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *recordingOutbox) Webhooks() []event.PartnerWebhookPayload {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []event.PartnerWebhookPayload
	for _, e := range r.events {
		if p, ok := e.Payload.(event.PartnerWebhookPayload); ok {
			out = append(out, p)
		}
	}
	return out
}

func custodyContact(v checkout.Verification) custody.Contact {
	return custody.Contact{ID: "contact-1", AccountID: "acct-1", Verification: v}
}
