package sqlite

import "database/sql"

func RunMigrations(db *sql.DB) error {
	stmts := []string{

		`CREATE TABLE IF NOT EXISTS checkout_requests (
			id TEXT PRIMARY KEY,
			partner_order_id TEXT NOT NULL DEFAULT '',
			wallet_address TEXT NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			phone_number TEXT NOT NULL,
			currency TEXT NOT NULL,
			amount INTEGER NOT NULL,
			fee TEXT NOT NULL,
			fee_type TEXT NOT NULL,
			webhook TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			transaction_hash TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS custodial_accounts (
			id TEXT PRIMARY KEY,
			contact_id TEXT NOT NULL,
			user_id TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			phone_number TEXT NOT NULL DEFAULT '',
			identity_confirmed INTEGER NOT NULL DEFAULT 0,
			identity_documents_verified INTEGER NOT NULL DEFAULT 0,
			proof_of_address_documents_verified INTEGER NOT NULL DEFAULT 0,
			aml_cleared INTEGER NOT NULL DEFAULT 0,
			cip_cleared INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`,

		`CREATE INDEX IF NOT EXISTS idx_custodial_accounts_user ON custodial_accounts (user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_custodial_accounts_contact ON custodial_accounts (contact_id);`,

		`CREATE TABLE IF NOT EXISTS checkouts (
			id TEXT PRIMARY KEY,
			checkout_request_id TEXT NOT NULL DEFAULT '',
			custodial_account_id TEXT NOT NULL DEFAULT '',
			checkout_token_id TEXT NOT NULL,
			wallet_address TEXT NOT NULL,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			email TEXT NOT NULL,
			phone_number TEXT NOT NULL,
			street_address TEXT NOT NULL DEFAULT '',
			street_address2 TEXT NOT NULL DEFAULT '',
			city TEXT NOT NULL DEFAULT '',
			state TEXT NOT NULL DEFAULT '',
			zip TEXT NOT NULL DEFAULT '',
			country TEXT NOT NULL DEFAULT '',
			tax_id TEXT NOT NULL DEFAULT '',
			date_of_birth TEXT NOT NULL DEFAULT '',
			gender TEXT NOT NULL DEFAULT '',
			document_id TEXT NOT NULL DEFAULT '',
			amount INTEGER NOT NULL,
			currency TEXT NOT NULL,
			tip TEXT NOT NULL,
			tip_type TEXT NOT NULL,
			fee TEXT NOT NULL,
			fee_type TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`,

		`CREATE INDEX IF NOT EXISTS idx_checkouts_account_status ON checkouts (custodial_account_id, status);`,

		`CREATE TABLE IF NOT EXISTS charges (
			id TEXT PRIMARY KEY,
			checkout_id TEXT NOT NULL UNIQUE,
			status TEXT NOT NULL,
			amount INTEGER NOT NULL,
			currency TEXT NOT NULL,
			approved INTEGER NOT NULL,
			flagged INTEGER NOT NULL,
			processed_at DATETIME NOT NULL,
			reference TEXT NOT NULL,
			last4 TEXT NOT NULL DEFAULT '',
			bin TEXT NOT NULL DEFAULT '',
			response_code TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS funds_transfers (
			id TEXT PRIMARY KEY,
			checkout_id TEXT NOT NULL,
			contingent_hold_id TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			amount TEXT NOT NULL,
			amount_expected TEXT NOT NULL,
			currency TEXT NOT NULL DEFAULT '',
			reference TEXT NOT NULL DEFAULT '',
			clears_on DATETIME,
			contingencies_cleared_at DATETIME,
			contingencies_cleared_on DATETIME,
			settled_at DATETIME,
			cancelled_at DATETIME,
			cancellation_details TEXT NOT NULL DEFAULT '',
			reversed_at DATETIME,
			reversed_amount TEXT NOT NULL DEFAULT '0',
			reversal_details TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`,

		`CREATE INDEX IF NOT EXISTS idx_funds_transfers_checkout ON funds_transfers (checkout_id, created_at);`,

		`CREATE TABLE IF NOT EXISTS asset_quotes (
			id TEXT PRIMARY KEY,
			checkout_id TEXT NOT NULL,
			status TEXT NOT NULL,
			asset_name TEXT NOT NULL DEFAULT '',
			transaction_type TEXT NOT NULL DEFAULT '',
			base_amount TEXT NOT NULL,
			fee_amount TEXT NOT NULL,
			total_amount TEXT NOT NULL,
			price_per_unit TEXT NOT NULL,
			unit_count TEXT NOT NULL,
			hot INTEGER NOT NULL DEFAULT 0,
			delayed_settlement INTEGER NOT NULL DEFAULT 0,
			integrator_settled INTEGER NOT NULL DEFAULT 0,
			executed_at DATETIME,
			expires_at DATETIME,
			rejected_at DATETIME,
			settled_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`,

		`CREATE INDEX IF NOT EXISTS idx_asset_quotes_checkout ON asset_quotes (checkout_id, created_at);`,

		`CREATE TABLE IF NOT EXISTS asset_transfers (
			id TEXT PRIMARY KEY,
			disbursement_authorization_id TEXT NOT NULL DEFAULT '',
			checkout_id TEXT NOT NULL,
			status TEXT NOT NULL,
			unit_count TEXT NOT NULL,
			unit_count_expected TEXT NOT NULL,
			transaction_hash TEXT NOT NULL DEFAULT '',
			settlement_details TEXT NOT NULL DEFAULT '',
			hot_transfer INTEGER NOT NULL DEFAULT 0,
			contingencies_cleared_at DATETIME,
			contingencies_cleared_on DATETIME,
			cancelled_at DATETIME,
			reconciled_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`,

		`CREATE INDEX IF NOT EXISTS idx_asset_transfers_checkout ON asset_transfers (checkout_id, created_at);`,

		`CREATE TABLE IF NOT EXISTS service_accounts (
			email TEXT PRIMARY KEY,
			token TEXT NOT NULL,
			expires_at DATETIME NOT NULL,
			refreshed_at DATETIME NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS outbox_events (
			id TEXT PRIMARY KEY,
			event_type TEXT NOT NULL,
			payload BLOB NOT NULL,
			published INTEGER NOT NULL DEFAULT 0,
			abandoned INTEGER NOT NULL DEFAULT 0,
			attempts INTEGER NOT NULL DEFAULT 0,
			next_attempt_at INTEGER NOT NULL,
			last_error TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		);`,

		`CREATE INDEX IF NOT EXISTS idx_outbox_due ON outbox_events (published, abandoned, next_attempt_at);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
