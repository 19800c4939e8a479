package sqlite

import (
	"database/sql"
	"errors"
	"time"

	"github.com/rcarvalho-pb/checkout_system-go/internal/domain/checkout"
)

type CustodialAccountRepository struct {
	db *sql.DB
}

func NewCustodialAccountRepository(db *sql.DB) *CustodialAccountRepository {
	return &CustodialAccountRepository{db: db}
}

const accountColumns = `id, contact_id, user_id, status, first_name, last_name, email, phone_number,
	identity_confirmed, identity_documents_verified, proof_of_address_documents_verified,
	aml_cleared, cip_cleared, created_at, updated_at`

func (r *CustodialAccountRepository) Save(a *checkout.CustodialAccount) error {
	now := time.Now().UTC()
	created := a.CreatedAt
	if created.IsZero() {
		created = now
	}
	v := a.Verification

	_, err := r.db.Exec(
		`INSERT INTO custodial_accounts (`+accountColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   contact_id = excluded.contact_id,
		   user_id = excluded.user_id,
		   status = excluded.status,
		   first_name = excluded.first_name,
		   last_name = excluded.last_name,
		   email = excluded.email,
		   phone_number = excluded.phone_number,
		   identity_confirmed = excluded.identity_confirmed,
		   identity_documents_verified = excluded.identity_documents_verified,
		   proof_of_address_documents_verified = excluded.proof_of_address_documents_verified,
		   aml_cleared = excluded.aml_cleared,
		   cip_cleared = excluded.cip_cleared,
		   updated_at = excluded.updated_at`,
		a.ID,
		a.ContactID,
		a.UserID,
		a.Status,
		a.FirstName,
		a.LastName,
		a.Email,
		a.PhoneNumber,
		boolInt(v.IdentityConfirmed),
		boolInt(v.IdentityDocumentsVerified),
		boolInt(v.ProofOfAddressDocumentsVerified),
		boolInt(v.AMLCleared),
		boolInt(v.CIPCleared),
		created.UTC(),
		now,
	)
	return err
}

func (r *CustodialAccountRepository) FindByID(id string) (*checkout.CustodialAccount, error) {
	return r.findOne(`SELECT `+accountColumns+` FROM custodial_accounts WHERE id = ?`, id)
}

func (r *CustodialAccountRepository) FindByUserID(userID string) (*checkout.CustodialAccount, error) {
	return r.findOne(
		`SELECT `+accountColumns+` FROM custodial_accounts WHERE user_id = ? ORDER BY created_at LIMIT 1`,
		userID,
	)
}

func (r *CustodialAccountRepository) FindByContactID(contactID string) (*checkout.CustodialAccount, error) {
	return r.findOne(
		`SELECT `+accountColumns+` FROM custodial_accounts WHERE contact_id = ? ORDER BY created_at LIMIT 1`,
		contactID,
	)
}

// UpdateVerification overwrites the KYC flags. An empty status keeps the
// stored one.
func (r *CustodialAccountRepository) UpdateVerification(id string, status string, v checkout.Verification) error {
	res, err := r.db.Exec(
		`UPDATE custodial_accounts SET
		   status = CASE WHEN ? = '' THEN status ELSE ? END,
		   identity_confirmed = ?,
		   identity_documents_verified = ?,
		   proof_of_address_documents_verified = ?,
		   aml_cleared = ?,
		   cip_cleared = ?,
		   updated_at = ?
		 WHERE id = ?`,
		status,
		status,
		boolInt(v.IdentityConfirmed),
		boolInt(v.IdentityDocumentsVerified),
		boolInt(v.ProofOfAddressDocumentsVerified),
		boolInt(v.AMLCleared),
		boolInt(v.CIPCleared),
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return err
	}
	return expectOne(res, checkout.ErrAccountNotFound)
}

func (r *CustodialAccountRepository) findOne(query, arg string) (*checkout.CustodialAccount, error) {
	var a checkout.CustodialAccount
	var identity, documents, address, aml, cip int

	err := r.db.QueryRow(query, arg).Scan(
		&a.ID,
		&a.ContactID,
		&a.UserID,
		&a.Status,
		&a.FirstName,
		&a.LastName,
		&a.Email,
		&a.PhoneNumber,
		&identity,
		&documents,
		&address,
		&aml,
		&cip,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, checkout.ErrAccountNotFound
		}
		return nil, err
	}

	a.Verification = checkout.Verification{
		IdentityConfirmed:               identity == 1,
		IdentityDocumentsVerified:       documents == 1,
		ProofOfAddressDocumentsVerified: address == 1,
		AMLCleared:                      aml == 1,
		CIPCleared:                      cip == 1,
	}
	return &a, nil
}
