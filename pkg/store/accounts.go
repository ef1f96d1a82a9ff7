package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/eventdesk/dashboard/pkg/contracts"
)

// AccountStore persists dashboard operators and revoked token IDs.
type AccountStore struct {
	db *sql.DB
}

func NewAccountStore(db *sql.DB) *AccountStore {
	return &AccountStore{db: db}
}

// Insert stores a new account. A duplicate email yields ErrConflict.
func (s *AccountStore) Insert(ctx context.Context, a contracts.Account) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, email, password_hash, roles, created_at) VALUES ($1, $2, $3, $4, $5)`,
		a.ID, strings.ToLower(a.Email), a.PasswordHash, strings.Join(a.Roles, ","), a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert account: %w", classify(err))
	}
	return nil
}

func (s *AccountStore) GetByEmail(ctx context.Context, email string) (contracts.Account, error) {
	var (
		a     contracts.Account
		roles string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, roles, created_at FROM accounts WHERE email = $1`, strings.ToLower(email)).
		Scan(&a.ID, &a.Email, &a.PasswordHash, &roles, &a.CreatedAt)
	if err != nil {
		return contracts.Account{}, fmt.Errorf("get account: %w", classify(err))
	}
	if roles != "" {
		a.Roles = strings.Split(roles, ",")
	}
	return a, nil
}

// Count returns the number of accounts.
func (s *AccountStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}

// Revoke records a token ID as unusable until expiresAt. Revoking twice is not an error.
func (s *AccountStore) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO revoked_tokens (jti, expires_at) VALUES ($1, $2) ON CONFLICT (jti) DO NOTHING`,
		jti, expiresAt.UTC())
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether jti was revoked.
func (s *AccountStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM revoked_tokens WHERE jti = $1`, jti).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	return true, nil
}

// PurgeRevoked drops revocations whose token has expired anyway.
func (s *AccountStore) PurgeRevoked(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at < $1`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge revocations: %w", err)
	}
	return res.RowsAffected()
}
