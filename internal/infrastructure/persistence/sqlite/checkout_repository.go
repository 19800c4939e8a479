package sqlite

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rcarvalho-pb/checkout_system-go/internal/domain/checkout"
)

type CheckoutRepository struct {
	db *sql.DB
}

func NewCheckoutRepository(db *sql.DB) *CheckoutRepository {
	return &CheckoutRepository{db: db}
}

const checkoutColumns = `id, checkout_request_id, custodial_account_id, checkout_token_id,
	wallet_address, first_name, last_name, email, phone_number,
	street_address, street_address2, city, state, zip, country,
	tax_id, date_of_birth, gender, document_id,
	amount, currency, tip, tip_type, fee, fee_type, status, created_at, updated_at`

func (r *CheckoutRepository) Save(c *checkout.Checkout) error {
	_, err := r.db.Exec(
		`INSERT INTO checkouts (`+checkoutColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.CheckoutRequestID,
		c.CustodialAccountID,
		c.CheckoutTokenID,
		c.WalletAddress,
		c.FirstName,
		c.LastName,
		c.Email,
		c.PhoneNumber,
		c.StreetAddress,
		c.StreetAddress2,
		c.City,
		c.State,
		c.Zip,
		c.Country,
		c.KYC.TaxID,
		c.KYC.DateOfBirth,
		c.KYC.Gender,
		c.KYC.DocumentID,
		c.Amount,
		c.Currency,
		c.Tip.String(),
		string(c.TipType),
		c.Fee.String(),
		string(c.FeeType),
		string(c.Status),
		c.CreatedAt.UTC(),
		c.UpdatedAt.UTC(),
	)
	return err
}

func (r *CheckoutRepository) FindByID(id string) (*checkout.Checkout, error) {
	row := r.db.QueryRow(
		`SELECT `+checkoutColumns+` FROM checkouts WHERE id = ?`,
		id,
	)

	c, err := scanCheckout(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, checkout.ErrCheckoutNotFound
	}
	return c, err
}

// TransitionStatus is a compare-and-set on the status column.
func (r *CheckoutRepository) TransitionStatus(id string, to checkout.Status, from ...checkout.Status) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}

	args := []any{string(to), time.Now().UTC(), id}
	for _, s := range from {
		args = append(args, string(s))
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(from)), ", ")

	res, err := r.db.Exec(
		`UPDATE checkouts
		 SET status = ?, updated_at = ?
		 WHERE id = ? AND status IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 1 {
		return true, nil
	}

	var exists int
	err = r.db.QueryRow(`SELECT 1 FROM checkouts WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, checkout.ErrCheckoutNotFound
	}
	return false, err
}

func (r *CheckoutRepository) FindPendingByCustodialAccount(accountID string) ([]*checkout.Checkout, error) {
	rows, err := r.db.Query(
		`SELECT `+checkoutColumns+`
		 FROM checkouts
		 WHERE custodial_account_id = ? AND status = ?
		 ORDER BY created_at`,
		accountID,
		string(checkout.StatusPending),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*checkout.Checkout
	for rows.Next() {
		c, err := scanCheckout(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanCheckout(s scanner) (*checkout.Checkout, error) {
	var c checkout.Checkout
	var tip, tipType, fee, feeType, status string

	if err := s.Scan(
		&c.ID,
		&c.CheckoutRequestID,
		&c.CustodialAccountID,
		&c.CheckoutTokenID,
		&c.WalletAddress,
		&c.FirstName,
		&c.LastName,
		&c.Email,
		&c.PhoneNumber,
		&c.StreetAddress,
		&c.StreetAddress2,
		&c.City,
		&c.State,
		&c.Zip,
		&c.Country,
		&c.KYC.TaxID,
		&c.KYC.DateOfBirth,
		&c.KYC.Gender,
		&c.KYC.DocumentID,
		&c.Amount,
		&c.Currency,
		&tip,
		&tipType,
		&fee,
		&feeType,
		&status,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if c.Tip, err = parseDecimal("tip", tip); err != nil {
		return nil, err
	}
	if c.Fee, err = parseDecimal("fee", fee); err != nil {
		return nil, err
	}
	c.TipType = checkout.TipType(tipType)
	c.FeeType = checkout.TipType(feeType)
	c.Status = checkout.Status(status)
	return &c, nil
}

type RequestRepository struct {
	db *sql.DB
}

func NewRequestRepository(db *sql.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

func (r *RequestRepository) Save(req *checkout.CheckoutRequest) error {
	_, err := r.db.Exec(
		`INSERT INTO checkout_requests
		 (id, partner_order_id, wallet_address, email, phone_number, currency, amount,
		  fee, fee_type, webhook, status, transaction_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID,
		req.PartnerOrderID,
		req.WalletAddress,
		req.Email,
		req.PhoneNumber,
		req.Currency,
		req.Amount,
		req.Fee.String(),
		string(req.FeeType),
		req.Webhook,
		string(req.Status),
		req.TransactionHash,
		req.CreatedAt.UTC(),
		req.UpdatedAt.UTC(),
	)
	return err
}

func (r *RequestRepository) FindByID(id string) (*checkout.CheckoutRequest, error) {
	row := r.db.QueryRow(
		`SELECT id, partner_order_id, wallet_address, email, phone_number, currency, amount,
		        fee, fee_type, webhook, status, transaction_hash, created_at, updated_at
		 FROM checkout_requests
		 WHERE id = ?`,
		id,
	)

	var req checkout.CheckoutRequest
	var fee, feeType, status string

	if err := row.Scan(
		&req.ID,
		&req.PartnerOrderID,
		&req.WalletAddress,
		&req.Email,
		&req.PhoneNumber,
		&req.Currency,
		&req.Amount,
		&fee,
		&feeType,
		&req.Webhook,
		&status,
		&req.TransactionHash,
		&req.CreatedAt,
		&req.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, checkout.ErrRequestNotFound
		}
		return nil, err
	}

	var err error
	if req.Fee, err = parseDecimal("fee", fee); err != nil {
		return nil, err
	}
	req.FeeType = checkout.TipType(feeType)
	req.Status = checkout.Status(status)
	return &req, nil
}

// UpdateStatus leaves the stored hash alone when transactionHash is empty.
func (r *RequestRepository) UpdateStatus(id string, status checkout.Status, transactionHash string) error {
	res, err := r.db.Exec(
		`UPDATE checkout_requests
		 SET status = ?,
		     transaction_hash = CASE WHEN ? = '' THEN transaction_hash ELSE ? END,
		     updated_at = ?
		 WHERE id = ?`,
		string(status),
		transactionHash,
		transactionHash,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return err
	}
	return expectOne(res, checkout.ErrRequestNotFound)
}
