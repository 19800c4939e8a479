package custody

import (
	"context"

	"github.com/rcarvalho-pb/checkout_system-go/internal/domain/checkout"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infra/logging"
)

// TestModeProvider pushes sandbox resources forward the way the live system
// moves them on its own: stored funds transfers are settled, contingent
// holds are cleared and cleared asset transfers are settled. Every read still
// returns what the provider reported, so callers wait for the follow-up
// webhook exactly as in production.
type TestModeProvider struct {
	Provider
	Sandbox Sandbox
	Logger  logging.Logger
}

func NewTestModeProvider(p Provider, s Sandbox, logger logging.Logger) *TestModeProvider {
	return &TestModeProvider{Provider: p, Sandbox: s, Logger: logger}
}

// FundsTransferStored settles the transfer once the caller has a row for it,
// so the settlement callback always finds something to update.
func (t *TestModeProvider) FundsTransferStored(ctx context.Context, id string) {
	if err := t.Sandbox.SettleFundsTransfer(ctx, id); err != nil {
		t.warn("sandbox settle funds transfer failed", map[string]any{
			"funds-transfer-id": id,
			"err":               err,
		})
	}
}

func (t *TestModeProvider) GetFundsTransfer(ctx context.Context, id string) (*FundsTransferState, error) {
	state, err := t.Provider.GetFundsTransfer(ctx, id)
	if err != nil {
		return nil, err
	}
	if state.Transfer.Status != checkout.TransferPending {
		return state, nil
	}

	for _, hold := range state.UnclearedHolds() {
		if err := t.Sandbox.ClearContingentHold(ctx, hold.ID); err != nil {
			t.warn("sandbox clear contingent hold failed", map[string]any{
				"funds-transfer-id":  id,
				"contingent-hold-id": hold.ID,
				"err":                err,
			})
		}
	}
	return state, nil
}

func (t *TestModeProvider) GetAssetTransfer(ctx context.Context, id string) (*checkout.AssetTransfer, error) {
	at, err := t.Provider.GetAssetTransfer(ctx, id)
	if err != nil {
		return nil, err
	}

	if at.Status == checkout.TransferPending && at.ContingenciesClearedAt != nil {
		if err := t.Sandbox.SettleAssetTransfer(ctx, id); err != nil {
			t.warn("sandbox settle asset transfer failed", map[string]any{
				"asset-transfer-id": id,
				"err":               err,
			})
		}
	}
	return at, nil
}

func (t *TestModeProvider) warn(msg string, fields map[string]any) {
	if t.Logger != nil {
		t.Logger.Warn(msg, fields)
	}
}
