package checkout

import "time"

// Verification holds the provider KYC flags of a custodial account contact.
type Verification struct {
	IdentityConfirmed               bool
	IdentityDocumentsVerified       bool
	ProofOfAddressDocumentsVerified bool
	AMLCleared                      bool
	CIPCleared                      bool
}

func (v Verification) Verified() bool {
	return v.IdentityConfirmed &&
		v.IdentityDocumentsVerified &&
		v.ProofOfAddressDocumentsVerified &&
		v.AMLCleared &&
		v.CIPCleared
}

// CustodialAccount is a per-user ledger account at the custody provider.
type CustodialAccount struct {
	ID           string
	ContactID    string
	UserID       string
	Status       string
	FirstName    string
	LastName     string
	Email        string
	PhoneNumber  string
	Verification Verification
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (a *CustodialAccount) IsVerified() bool {
	return a.Verification.Verified()
}
