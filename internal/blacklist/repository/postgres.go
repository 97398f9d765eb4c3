package repository

import (
	"context"
	"fmt"
	"time"

	"relay-chat/backend/internal/blacklist/domain"
	"relay-chat/backend/internal/dbx"
)

// PostgresRepository implements Repository over dbx.DBTX (satisfied by *sql.DB
// or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a blacklist repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Contains reports whether tokenHash is present in the blacklist.
func (r *PostgresRepository) Contains(ctx context.Context, tokenHash string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM blacklist_entries WHERE token_hash = $1)`
	var found bool
	if err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(&found); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return found, nil
}

// Insert records the revocation. Duplicate hashes are ignored so that two
// logouts racing for the same token both succeed.
func (r *PostgresRepository) Insert(ctx context.Context, e *domain.Entry) error {
	query := `
		INSERT INTO blacklist_entries (token_hash, owner_id, reason, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (token_hash) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, e.TokenHash, e.OwnerID, e.Reason, e.ExpiresAt, e.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// DeleteExpired removes entries whose expiry is at or before now.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM blacklist_entries WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
