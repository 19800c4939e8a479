package sqlite

import (
	"database/sql"
	"errors"

	"github.com/rcarvalho-pb/checkout_system-go/internal/infrastructure/provider/custody"
)

// TokenStore keeps custody service account tokens in service_accounts.
type TokenStore struct {
	db *sql.DB
}

func NewTokenStore(db *sql.DB) *TokenStore {
	return &TokenStore{db: db}
}

func (s *TokenStore) LoadToken(email string) (*custody.Token, error) {
	var t custody.Token
	err := s.db.QueryRow(
		`SELECT token, expires_at, refreshed_at FROM service_accounts WHERE email = ?`,
		email,
	).Scan(&t.Value, &t.ExpiresAt, &t.RefreshedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, custody.ErrNoToken
		}
		return nil, err
	}
	return &t, nil
}

func (s *TokenStore) SaveToken(email string, t custody.Token) error {
	_, err := s.db.Exec(
		`INSERT INTO service_accounts (email, token, expires_at, refreshed_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(email) DO UPDATE SET
		   token = excluded.token,
		   expires_at = excluded.expires_at,
		   refreshed_at = excluded.refreshed_at`,
		email,
		t.Value,
		t.ExpiresAt.UTC(),
		t.RefreshedAt.UTC(),
	)
	return err
}
