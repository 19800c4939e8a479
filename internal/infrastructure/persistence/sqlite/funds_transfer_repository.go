package sqlite

import (
	"database/sql"
	"errors"
	"time"

	"github.com/rcarvalho-pb/checkout_system-go/internal/domain/checkout"
)

type FundsTransferRepository struct {
	db *sql.DB
}

func NewFundsTransferRepository(db *sql.DB) *FundsTransferRepository {
	return &FundsTransferRepository{db: db}
}

const fundsTransferColumns = `id, checkout_id, contingent_hold_id, status, amount, amount_expected,
	currency, reference, clears_on, contingencies_cleared_at, contingencies_cleared_on,
	settled_at, cancelled_at, cancellation_details, reversed_at, reversed_amount,
	reversal_details, created_at, updated_at`

// Save inserts the transfer or replaces the row with the same id.
func (r *FundsTransferRepository) Save(t *checkout.FundsTransfer) error {
	now := time.Now().UTC()
	created := t.CreatedAt
	if created.IsZero() {
		created = now
	}

	_, err := r.db.Exec(
		`INSERT INTO funds_transfers (`+fundsTransferColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   checkout_id = excluded.checkout_id,
		   contingent_hold_id = excluded.contingent_hold_id,
		   status = excluded.status,
		   amount = excluded.amount,
		   amount_expected = excluded.amount_expected,
		   currency = excluded.currency,
		   reference = excluded.reference,
		   clears_on = excluded.clears_on,
		   contingencies_cleared_at = excluded.contingencies_cleared_at,
		   contingencies_cleared_on = excluded.contingencies_cleared_on,
		   settled_at = excluded.settled_at,
		   cancelled_at = excluded.cancelled_at,
		   cancellation_details = excluded.cancellation_details,
		   reversed_at = excluded.reversed_at,
		   reversed_amount = excluded.reversed_amount,
		   reversal_details = excluded.reversal_details,
		   updated_at = excluded.updated_at`,
		t.ID,
		t.CheckoutID,
		t.ContingentHoldID,
		string(t.Status),
		t.Amount.String(),
		t.AmountExpected.String(),
		t.Currency,
		t.Reference,
		nullTime(t.ClearsOn),
		nullTime(t.ContingenciesClearedAt),
		nullTime(t.ContingenciesClearedOn),
		nullTime(t.SettledAt),
		nullTime(t.CancelledAt),
		t.CancellationDetails,
		nullTime(t.ReversedAt),
		t.ReversedAmount.String(),
		t.ReversalDetails,
		created.UTC(),
		now,
	)
	return err
}

func (r *FundsTransferRepository) Update(t *checkout.FundsTransfer) error {
	res, err := r.db.Exec(
		`UPDATE funds_transfers SET
		   contingent_hold_id = ?,
		   status = ?,
		   amount = ?,
		   amount_expected = ?,
		   currency = ?,
		   reference = ?,
		   clears_on = ?,
		   contingencies_cleared_at = ?,
		   contingencies_cleared_on = ?,
		   settled_at = ?,
		   cancelled_at = ?,
		   cancellation_details = ?,
		   reversed_at = ?,
		   reversed_amount = ?,
		   reversal_details = ?,
		   updated_at = ?
		 WHERE id = ?`,
		t.ContingentHoldID,
		string(t.Status),
		t.Amount.String(),
		t.AmountExpected.String(),
		t.Currency,
		t.Reference,
		nullTime(t.ClearsOn),
		nullTime(t.ContingenciesClearedAt),
		nullTime(t.ContingenciesClearedOn),
		nullTime(t.SettledAt),
		nullTime(t.CancelledAt),
		t.CancellationDetails,
		nullTime(t.ReversedAt),
		t.ReversedAmount.String(),
		t.ReversalDetails,
		time.Now().UTC(),
		t.ID,
	)
	if err != nil {
		return err
	}
	return expectOne(res, checkout.ErrFundsTransferNotFound)
}

func (r *FundsTransferRepository) FindByID(id string) (*checkout.FundsTransfer, error) {
	return r.findOne(`SELECT `+fundsTransferColumns+` FROM funds_transfers WHERE id = ?`, id)
}

func (r *FundsTransferRepository) FindByCheckout(checkoutID string) (*checkout.FundsTransfer, error) {
	return r.findOne(
		`SELECT `+fundsTransferColumns+`
		 FROM funds_transfers
		 WHERE checkout_id = ?
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT 1`,
		checkoutID,
	)
}

func (r *FundsTransferRepository) findOne(query string, arg string) (*checkout.FundsTransfer, error) {
	var t checkout.FundsTransfer
	var status, amount, expected, reversed string
	var clearsOn, clearedAt, clearedOn, settledAt, cancelledAt, reversedAt sql.NullTime

	err := r.db.QueryRow(query, arg).Scan(
		&t.ID,
		&t.CheckoutID,
		&t.ContingentHoldID,
		&status,
		&amount,
		&expected,
		&t.Currency,
		&t.Reference,
		&clearsOn,
		&clearedAt,
		&clearedOn,
		&settledAt,
		&cancelledAt,
		&t.CancellationDetails,
		&reversedAt,
		&reversed,
		&t.ReversalDetails,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, checkout.ErrFundsTransferNotFound
		}
		return nil, err
	}

	if t.Amount, err = parseDecimal("amount", amount); err != nil {
		return nil, err
	}
	if t.AmountExpected, err = parseDecimal("amount_expected", expected); err != nil {
		return nil, err
	}
	if t.ReversedAmount, err = parseDecimal("reversed_amount", reversed); err != nil {
		return nil, err
	}

	t.Status = checkout.TransferStatus(status)
	t.ClearsOn = timePtr(clearsOn)
	t.ContingenciesClearedAt = timePtr(clearedAt)
	t.ContingenciesClearedOn = timePtr(clearedOn)
	t.SettledAt = timePtr(settledAt)
	t.CancelledAt = timePtr(cancelledAt)
	t.ReversedAt = timePtr(reversedAt)
	return &t, nil
}
