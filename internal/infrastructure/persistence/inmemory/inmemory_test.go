package inmemory_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcarvalho-pb/checkout_system-go/internal/domain/checkout"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infrastructure/persistence/inmemory"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infrastructure/provider/custody"
)

func TestCheckoutRepository_TransitionStatus_OnlyFromAllowed(t *testing.T) {
	repo := inmemory.NewCheckoutRepository()
	require.NoError(t, repo.Save(&checkout.Checkout{ID: "chk-1", Status: checkout.StatusPending}))

	changed, err := repo.TransitionStatus("chk-1", checkout.StatusProcessing, checkout.StatusPending)
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = repo.TransitionStatus("chk-1", checkout.StatusProcessing, checkout.StatusPending)
	require.NoError(t, err)
	require.False(t, changed)

	changed, err = repo.TransitionStatus("chk-1", checkout.StatusPaid, checkout.StatusProcessing)
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = repo.TransitionStatus("chk-1", checkout.StatusError, checkout.StatusPending, checkout.StatusProcessing)
	require.NoError(t, err)
	require.False(t, changed)

	got, err := repo.FindByID("chk-1")
	require.NoError(t, err)
	require.Equal(t, checkout.StatusPaid, got.Status)

	_, err = repo.TransitionStatus("missing", checkout.StatusPaid, checkout.StatusProcessing)
	require.ErrorIs(t, err, checkout.ErrCheckoutNotFound)
}

func TestCheckoutRepository_ConcurrentClaimHasOneWinner(t *testing.T) {
	repo := inmemory.NewCheckoutRepository()
	require.NoError(t, repo.Save(&checkout.Checkout{ID: "chk-1", Status: checkout.StatusPending}))

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.TransitionStatus("chk-1", checkout.StatusProcessing, checkout.StatusPending)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, winners)
}

func TestCheckoutRepository_ReturnsCopies(t *testing.T) {
	repo := inmemory.NewCheckoutRepository()
	c := &checkout.Checkout{ID: "chk-1", Status: checkout.StatusPending}
	require.NoError(t, repo.Save(c))
	require.ErrorIs(t, repo.Save(c), inmemory.ErrDuplicateID)

	c.Status = checkout.StatusPaid
	got, err := repo.FindByID("chk-1")
	require.NoError(t, err)
	require.Equal(t, checkout.StatusPending, got.Status)
}

func TestCheckoutRepository_FindPendingByCustodialAccount(t *testing.T) {
	repo := inmemory.NewCheckoutRepository()
	now := time.Now()

	require.NoError(t, repo.Save(&checkout.Checkout{ID: "b", CustodialAccountID: "acct-1", Status: checkout.StatusPending, CreatedAt: now.Add(time.Second)}))
	require.NoError(t, repo.Save(&checkout.Checkout{ID: "a", CustodialAccountID: "acct-1", Status: checkout.StatusPending, CreatedAt: now}))
	require.NoError(t, repo.Save(&checkout.Checkout{ID: "c", CustodialAccountID: "acct-1", Status: checkout.StatusError}))
	require.NoError(t, repo.Save(&checkout.Checkout{ID: "d", CustodialAccountID: "acct-2", Status: checkout.StatusPending}))

	got, err := repo.FindPendingByCustodialAccount("acct-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "a", got[0].ID)
	require.Equal(t, "b", got[1].ID)
}

func TestRequestRepository_UpdateStatusKeepsHash(t *testing.T) {
	repo := inmemory.NewRequestRepository()
	require.NoError(t, repo.Save(&checkout.CheckoutRequest{ID: "req-1", Status: checkout.StatusPending}))

	require.NoError(t, repo.UpdateStatus("req-1", checkout.StatusPaid, "0xhash"))
	require.NoError(t, repo.UpdateStatus("req-1", checkout.StatusPaid, ""))

	got, err := repo.FindByID("req-1")
	require.NoError(t, err)
	require.Equal(t, checkout.StatusPaid, got.Status)
	require.Equal(t, "0xhash", got.TransactionHash)

	require.ErrorIs(t, repo.UpdateStatus("missing", checkout.StatusError, ""), checkout.ErrRequestNotFound)
}

func TestChargeRepository_FirstChargeWins(t *testing.T) {
	repo := inmemory.NewChargeRepository()

	saved, err := repo.SaveIfNotExist(&checkout.Charge{ID: "pay_1", CheckoutID: "chk-1", Status: "Authorized"})
	require.NoError(t, err)
	require.True(t, saved)

	saved, err = repo.SaveIfNotExist(&checkout.Charge{ID: "pay_2", CheckoutID: "chk-1", Status: "Declined"})
	require.NoError(t, err)
	require.False(t, saved)

	got, err := repo.FindByCheckout("chk-1")
	require.NoError(t, err)
	require.Equal(t, "pay_1", got.ID)

	_, err = repo.FindByCheckout("chk-2")
	require.ErrorIs(t, err, checkout.ErrChargeNotFound)
}

func TestFundsTransferRepository_LatestWinsPerCheckout(t *testing.T) {
	repo := inmemory.NewFundsTransferRepository()

	require.NoError(t, repo.Save(&checkout.FundsTransfer{ID: "ft-1", CheckoutID: "chk-1", Status: checkout.TransferCancelled}))
	require.NoError(t, repo.Save(&checkout.FundsTransfer{ID: "ft-2", CheckoutID: "chk-1", Status: checkout.TransferPending}))

	got, err := repo.FindByCheckout("chk-1")
	require.NoError(t, err)
	require.Equal(t, "ft-2", got.ID)

	got.Status = checkout.TransferSettled
	require.NoError(t, repo.Update(got))

	stored, err := repo.FindByID("ft-2")
	require.NoError(t, err)
	require.Equal(t, checkout.TransferSettled, stored.Status)

	require.ErrorIs(t, repo.Update(&checkout.FundsTransfer{ID: "nope"}), checkout.ErrFundsTransferNotFound)
}

func TestQuoteAndAssetTransferRepositories(t *testing.T) {
	quotes := inmemory.NewAssetQuoteRepository()
	require.NoError(t, quotes.Save(&checkout.AssetQuote{ID: "q-1", CheckoutID: "chk-1", Status: checkout.QuotePending}))

	q, err := quotes.FindByCheckout("chk-1")
	require.NoError(t, err)
	require.Equal(t, "q-1", q.ID)

	_, err = quotes.FindByID("q-2")
	require.ErrorIs(t, err, checkout.ErrQuoteNotFound)

	transfers := inmemory.NewAssetTransferRepository()
	require.NoError(t, transfers.Save(&checkout.AssetTransfer{ID: "at-1", CheckoutID: "chk-1"}))
	require.Len(t, transfers.Transfers(), 1)

	_, err = transfers.FindByCheckout("chk-2")
	require.ErrorIs(t, err, checkout.ErrAssetTransferNotFound)
}

func TestCustodialAccountRepository(t *testing.T) {
	repo := inmemory.NewCustodialAccountRepository()
	require.NoError(t, repo.Save(&checkout.CustodialAccount{ID: "acct-1", ContactID: "c-1", UserID: "u-1", Status: "pending"}))

	byUser, err := repo.FindByUserID("u-1")
	require.NoError(t, err)
	require.Equal(t, "acct-1", byUser.ID)

	byContact, err := repo.FindByContactID("c-1")
	require.NoError(t, err)
	require.Equal(t, "acct-1", byContact.ID)

	verified := checkout.Verification{
		IdentityConfirmed:               true,
		IdentityDocumentsVerified:       true,
		ProofOfAddressDocumentsVerified: true,
		AMLCleared:                      true,
		CIPCleared:                      true,
	}
	require.NoError(t, repo.UpdateVerification("acct-1", "opened", verified))

	got, err := repo.FindByID("acct-1")
	require.NoError(t, err)
	require.True(t, got.IsVerified())
	require.Equal(t, "opened", got.Status)

	_, err = repo.FindByUserID("u-2")
	require.ErrorIs(t, err, checkout.ErrAccountNotFound)
}

func TestTokenStore(t *testing.T) {
	store := inmemory.NewTokenStore()

	_, err := store.LoadToken("svc@example.com")
	require.ErrorIs(t, err, custody.ErrNoToken)

	exp := time.Now().Add(time.Hour)
	require.NoError(t, store.SaveToken("svc@example.com", custody.Token{Value: "tok", ExpiresAt: exp}))

	got, err := store.LoadToken("svc@example.com")
	require.NoError(t, err)
	require.Equal(t, "tok", got.Value)
}
