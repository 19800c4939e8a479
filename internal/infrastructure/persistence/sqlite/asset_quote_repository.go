package sqlite

import (
	"database/sql"
	"errors"
	"time"

	"github.com/rcarvalho-pb/checkout_system-go/internal/domain/checkout"
)

type AssetQuoteRepository struct {
	db *sql.DB
}

func NewAssetQuoteRepository(db *sql.DB) *AssetQuoteRepository {
	return &AssetQuoteRepository{db: db}
}

const assetQuoteColumns = `id, checkout_id, status, asset_name, transaction_type, base_amount,
	fee_amount, total_amount, price_per_unit, unit_count, hot, delayed_settlement,
	integrator_settled, executed_at, expires_at, rejected_at, settled_at, created_at, updated_at`

func (r *AssetQuoteRepository) Save(q *checkout.AssetQuote) error {
	now := time.Now().UTC()
	created := q.CreatedAt
	if created.IsZero() {
		created = now
	}

	_, err := r.db.Exec(
		`INSERT INTO asset_quotes (`+assetQuoteColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   checkout_id = excluded.checkout_id,
		   status = excluded.status,
		   asset_name = excluded.asset_name,
		   transaction_type = excluded.transaction_type,
		   base_amount = excluded.base_amount,
		   fee_amount = excluded.fee_amount,
		   total_amount = excluded.total_amount,
		   price_per_unit = excluded.price_per_unit,
		   unit_count = excluded.unit_count,
		   hot = excluded.hot,
		   delayed_settlement = excluded.delayed_settlement,
		   integrator_settled = excluded.integrator_settled,
		   executed_at = excluded.executed_at,
		   expires_at = excluded.expires_at,
		   rejected_at = excluded.rejected_at,
		   settled_at = excluded.settled_at,
		   updated_at = excluded.updated_at`,
		q.ID,
		q.CheckoutID,
		string(q.Status),
		q.AssetName,
		q.TransactionType,
		q.BaseAmount.String(),
		q.FeeAmount.String(),
		q.TotalAmount.String(),
		q.PricePerUnit.String(),
		q.UnitCount.String(),
		boolInt(q.Hot),
		boolInt(q.DelayedSettlement),
		boolInt(q.IntegratorSettled),
		nullTime(q.ExecutedAt),
		nullTime(q.ExpiresAt),
		nullTime(q.RejectedAt),
		nullTime(q.SettledAt),
		created.UTC(),
		now,
	)
	return err
}

func (r *AssetQuoteRepository) Update(q *checkout.AssetQuote) error {
	res, err := r.db.Exec(
		`UPDATE asset_quotes SET
		   status = ?,
		   asset_name = ?,
		   transaction_type = ?,
		   base_amount = ?,
		   fee_amount = ?,
		   total_amount = ?,
		   price_per_unit = ?,
		   unit_count = ?,
		   hot = ?,
		   delayed_settlement = ?,
		   integrator_settled = ?,
		   executed_at = ?,
		   expires_at = ?,
		   rejected_at = ?,
		   settled_at = ?,
		   updated_at = ?
		 WHERE id = ?`,
		string(q.Status),
		q.AssetName,
		q.TransactionType,
		q.BaseAmount.String(),
		q.FeeAmount.String(),
		q.TotalAmount.String(),
		q.PricePerUnit.String(),
		q.UnitCount.String(),
		boolInt(q.Hot),
		boolInt(q.DelayedSettlement),
		boolInt(q.IntegratorSettled),
		nullTime(q.ExecutedAt),
		nullTime(q.ExpiresAt),
		nullTime(q.RejectedAt),
		nullTime(q.SettledAt),
		time.Now().UTC(),
		q.ID,
	)
	if err != nil {
		return err
	}
	return expectOne(res, checkout.ErrQuoteNotFound)
}

func (r *AssetQuoteRepository) FindByID(id string) (*checkout.AssetQuote, error) {
	return r.findOne(`SELECT `+assetQuoteColumns+` FROM asset_quotes WHERE id = ?`, id)
}

func (r *AssetQuoteRepository) FindByCheckout(checkoutID string) (*checkout.AssetQuote, error) {
	return r.findOne(
		`SELECT `+assetQuoteColumns+`
		 FROM asset_quotes
		 WHERE checkout_id = ?
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT 1`,
		checkoutID,
	)
}

func (r *AssetQuoteRepository) findOne(query string, arg string) (*checkout.AssetQuote, error) {
	var q checkout.AssetQuote
	var status, base, fee, total, price, units string
	var hot, delayed, integrator int
	var executedAt, expiresAt, rejectedAt, settledAt sql.NullTime

	err := r.db.QueryRow(query, arg).Scan(
		&q.ID,
		&q.CheckoutID,
		&status,
		&q.AssetName,
		&q.TransactionType,
		&base,
		&fee,
		&total,
		&price,
		&units,
		&hot,
		&delayed,
		&integrator,
		&executedAt,
		&expiresAt,
		&rejectedAt,
		&settledAt,
		&q.CreatedAt,
		&q.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, checkout.ErrQuoteNotFound
		}
		return nil, err
	}

	if q.BaseAmount, err = parseDecimal("base_amount", base); err != nil {
		return nil, err
	}
	if q.FeeAmount, err = parseDecimal("fee_amount", fee); err != nil {
		return nil, err
	}
	if q.TotalAmount, err = parseDecimal("total_amount", total); err != nil {
		return nil, err
	}
	if q.PricePerUnit, err = parseDecimal("price_per_unit", price); err != nil {
		return nil, err
	}
	if q.UnitCount, err = parseDecimal("unit_count", units); err != nil {
		return nil, err
	}

	q.Status = checkout.QuoteStatus(status)
	q.Hot = hot == 1
	q.DelayedSettlement = delayed == 1
	q.IntegratorSettled = integrator == 1
	q.ExecutedAt = timePtr(executedAt)
	q.ExpiresAt = timePtr(expiresAt)
	q.RejectedAt = timePtr(rejectedAt)
	q.SettledAt = timePtr(settledAt)
	return &q, nil
}
