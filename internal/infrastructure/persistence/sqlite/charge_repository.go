package sqlite

import (
	"database/sql"
	"errors"

	"github.com/rcarvalho-pb/checkout_system-go/internal/domain/checkout"
)

type ChargeRepository struct {
	db *sql.DB
}

func NewChargeRepository(db *sql.DB) *ChargeRepository {
	return &ChargeRepository{db: db}
}

func (r *ChargeRepository) SaveIfNotExist(ch *checkout.Charge) (bool, error) {
	res, err := r.db.Exec(
		`INSERT OR IGNORE INTO charges
		 (id, checkout_id, status, amount, currency, approved, flagged, processed_at,
		  reference, last4, bin, response_code, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ch.ID,
		ch.CheckoutID,
		ch.Status,
		ch.Amount,
		ch.Currency,
		boolInt(ch.Approved),
		boolInt(ch.Flagged),
		ch.ProcessedAt.UTC(),
		ch.Reference,
		ch.Last4,
		ch.Bin,
		ch.ResponseCode,
		ch.CreatedAt.UTC(),
	)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	// 0 rows = the checkout already has its charge
	return affected == 1, nil
}

func (r *ChargeRepository) FindByCheckout(checkoutID string) (*checkout.Charge, error) {
	row := r.db.QueryRow(
		`SELECT id, checkout_id, status, amount, currency, approved, flagged, processed_at,
		        reference, last4, bin, response_code, created_at
		 FROM charges
		 WHERE checkout_id = ?`,
		checkoutID,
	)

	var ch checkout.Charge
	var approved, flagged int

	if err := row.Scan(
		&ch.ID,
		&ch.CheckoutID,
		&ch.Status,
		&ch.Amount,
		&ch.Currency,
		&approved,
		&flagged,
		&ch.ProcessedAt,
		&ch.Reference,
		&ch.Last4,
		&ch.Bin,
		&ch.ResponseCode,
		&ch.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, checkout.ErrChargeNotFound
		}
		return nil, err
	}

	ch.Approved = approved == 1
	ch.Flagged = flagged == 1
	return &ch, nil
}
