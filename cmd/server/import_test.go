package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rcarvalho-pb/checkout_system-go/internal/domain/checkout"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infrastructure/persistence/inmemory"
	"github.com/rcarvalho-pb/checkout_system-go/internal/infrastructure/provider/custody"
)

type stubSource struct {
	account *custody.Account
	contact *custody.Contact
	opened  []string
}

func (s *stubSource) OpenAccount(_ context.Context, id string) error {
	s.opened = append(s.opened, id)
	s.account.Status = accountOpened
	return nil
}

func (s *stubSource) GetAccount(context.Context, string) (*custody.Account, error) {
	return s.account, nil
}

func (s *stubSource) GetContact(context.Context, string) (*custody.Contact, error) {
	return s.contact, nil
}

func verifiedSource() *stubSource {
	return &stubSource{
		account: &custody.Account{ID: "acct-1", Status: accountOpened, ContactID: "ct-1"},
		contact: &custody.Contact{
			ID:        "ct-1",
			FirstName: "Ada",
			LastName:  "Lovelace",
			Email:     "ada@example.com",
			Verification: checkout.Verification{
				IdentityConfirmed:               true,
				IdentityDocumentsVerified:       true,
				ProofOfAddressDocumentsVerified: true,
				AMLCleared:                      true,
				CIPCleared:                      true,
			},
		},
	}
}

func TestImportCustodialAccount(t *testing.T) {
	repo := inmemory.NewCustodialAccountRepository()

	acct, err := importCustodialAccount(context.Background(), verifiedSource(), nil, repo, "user-1", "acct-1")
	require.NoError(t, err)
	require.True(t, acct.IsVerified())

	stored, err := repo.FindByUserID("user-1")
	require.NoError(t, err)
	require.Equal(t, "acct-1", stored.ID)
	require.Equal(t, "ct-1", stored.ContactID)
	require.Equal(t, accountOpened, stored.Status)

	// re-importing for the same user refreshes the row
	_, err = importCustodialAccount(context.Background(), verifiedSource(), nil, repo, "user-1", "acct-1")
	require.NoError(t, err)
}

func TestImportCustodialAccount_Rejects(t *testing.T) {
	repo := inmemory.NewCustodialAccountRepository()
	_, err := importCustodialAccount(context.Background(), verifiedSource(), nil, repo, "user-1", "acct-1")
	require.NoError(t, err)

	_, err = importCustodialAccount(context.Background(), verifiedSource(), nil, repo, "user-2", "acct-1")
	require.True(t, errors.Is(err, errAccountLinked))

	noContact := verifiedSource()
	noContact.account = &custody.Account{ID: "acct-2"}
	_, err = importCustodialAccount(context.Background(), noContact, nil, repo, "user-3", "acct-2")
	require.Error(t, err)
}

func TestImportCustodialAccount_OpensSandboxAccount(t *testing.T) {
	repo := inmemory.NewCustodialAccountRepository()
	src := verifiedSource()
	src.account.Status = "pending"

	acct, err := importCustodialAccount(context.Background(), src, src, repo, "user-1", "acct-1")
	require.NoError(t, err)
	require.Equal(t, []string{"acct-1"}, src.opened)
	require.Equal(t, accountOpened, acct.Status)

	// already open accounts are left alone
	_, err = importCustodialAccount(context.Background(), src, src, repo, "user-1", "acct-1")
	require.NoError(t, err)
	require.Len(t, src.opened, 1)
}

func TestImportCustodialAccount_KeepsPendingWithoutOpener(t *testing.T) {
	repo := inmemory.NewCustodialAccountRepository()
	src := verifiedSource()
	src.account.Status = "pending"

	acct, err := importCustodialAccount(context.Background(), src, nil, repo, "user-1", "acct-1")
	require.NoError(t, err)
	require.Equal(t, "pending", acct.Status)
	require.Empty(t, src.opened)
}
