package sqlite

import (
	"database/sql"
	"errors"
	"time"

	"github.com/rcarvalho-pb/checkout_system-go/internal/domain/checkout"
)

type AssetTransferRepository struct {
	db *sql.DB
}

func NewAssetTransferRepository(db *sql.DB) *AssetTransferRepository {
	return &AssetTransferRepository{db: db}
}

const assetTransferColumns = `id, disbursement_authorization_id, checkout_id, status, unit_count,
	unit_count_expected, transaction_hash, settlement_details, hot_transfer,
	contingencies_cleared_at, contingencies_cleared_on, cancelled_at, reconciled_at,
	created_at, updated_at`

func (r *AssetTransferRepository) Save(t *checkout.AssetTransfer) error {
	now := time.Now().UTC()
	created := t.CreatedAt
	if created.IsZero() {
		created = now
	}

	_, err := r.db.Exec(
		`INSERT INTO asset_transfers (`+assetTransferColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   disbursement_authorization_id = excluded.disbursement_authorization_id,
		   checkout_id = excluded.checkout_id,
		   status = excluded.status,
		   unit_count = excluded.unit_count,
		   unit_count_expected = excluded.unit_count_expected,
		   transaction_hash = excluded.transaction_hash,
		   settlement_details = excluded.settlement_details,
		   hot_transfer = excluded.hot_transfer,
		   contingencies_cleared_at = excluded.contingencies_cleared_at,
		   contingencies_cleared_on = excluded.contingencies_cleared_on,
		   cancelled_at = excluded.cancelled_at,
		   reconciled_at = excluded.reconciled_at,
		   updated_at = excluded.updated_at`,
		t.ID,
		t.DisbursementAuthorizationID,
		t.CheckoutID,
		string(t.Status),
		t.UnitCount.String(),
		t.UnitCountExpected.String(),
		t.TransactionHash,
		t.SettlementDetails,
		boolInt(t.HotTransfer),
		nullTime(t.ContingenciesClearedAt),
		nullTime(t.ContingenciesClearedOn),
		nullTime(t.CancelledAt),
		nullTime(t.ReconciledAt),
		created.UTC(),
		now,
	)
	return err
}

func (r *AssetTransferRepository) Update(t *checkout.AssetTransfer) error {
	res, err := r.db.Exec(
		`UPDATE asset_transfers SET
		   disbursement_authorization_id = ?,
		   status = ?,
		   unit_count = ?,
		   unit_count_expected = ?,
		   transaction_hash = ?,
		   settlement_details = ?,
		   hot_transfer = ?,
		   contingencies_cleared_at = ?,
		   contingencies_cleared_on = ?,
		   cancelled_at = ?,
		   reconciled_at = ?,
		   updated_at = ?
		 WHERE id = ?`,
		t.DisbursementAuthorizationID,
		string(t.Status),
		t.UnitCount.String(),
		t.UnitCountExpected.String(),
		t.TransactionHash,
		t.SettlementDetails,
		boolInt(t.HotTransfer),
		nullTime(t.ContingenciesClearedAt),
		nullTime(t.ContingenciesClearedOn),
		nullTime(t.CancelledAt),
		nullTime(t.ReconciledAt),
		time.Now().UTC(),
		t.ID,
	)
	if err != nil {
		return err
	}
	return expectOne(res, checkout.ErrAssetTransferNotFound)
}

func (r *AssetTransferRepository) FindByID(id string) (*checkout.AssetTransfer, error) {
	return r.findOne(`SELECT `+assetTransferColumns+` FROM asset_transfers WHERE id = ?`, id)
}

func (r *AssetTransferRepository) FindByCheckout(checkoutID string) (*checkout.AssetTransfer, error) {
	return r.findOne(
		`SELECT `+assetTransferColumns+`
		 FROM asset_transfers
		 WHERE checkout_id = ?
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT 1`,
		checkoutID,
	)
}

func (r *AssetTransferRepository) findOne(query string, arg string) (*checkout.AssetTransfer, error) {
	var t checkout.AssetTransfer
	var status, units, expected string
	var hot int
	var clearedAt, clearedOn, cancelledAt, reconciledAt sql.NullTime

	err := r.db.QueryRow(query, arg).Scan(
		&t.ID,
		&t.DisbursementAuthorizationID,
		&t.CheckoutID,
		&status,
		&units,
		&expected,
		&t.TransactionHash,
		&t.SettlementDetails,
		&hot,
		&clearedAt,
		&clearedOn,
		&cancelledAt,
		&reconciledAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, checkout.ErrAssetTransferNotFound
		}
		return nil, err
	}

	if t.UnitCount, err = parseDecimal("unit_count", units); err != nil {
		return nil, err
	}
	if t.UnitCountExpected, err = parseDecimal("unit_count_expected", expected); err != nil {
		return nil, err
	}

	t.Status = checkout.TransferStatus(status)
	t.HotTransfer = hot == 1
	t.ContingenciesClearedAt = timePtr(clearedAt)
	t.ContingenciesClearedOn = timePtr(clearedOn)
	t.CancelledAt = timePtr(cancelledAt)
	t.ReconciledAt = timePtr(reconciledAt)
	return &t, nil
}
