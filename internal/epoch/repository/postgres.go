package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"relay-chat/backend/internal/dbx"
)

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs an epoch repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get returns the owner's current epoch, defaulting to 1 when no row exists.
func (r *PostgresRepository) Get(ctx context.Context, ownerID string) (int, error) {
	var version int
	err := r.db.QueryRowContext(ctx, `SELECT version FROM token_epochs WHERE owner_id = $1`, ownerID).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 1, nil
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return version, nil
}

// Bump increments the owner's epoch atomically via upsert and returns the new
// value. First bump moves a previously unseen owner from the implicit epoch 1
// to 2.
func (r *PostgresRepository) Bump(ctx context.Context, ownerID string) (int, error) {
	query := `
		INSERT INTO token_epochs (owner_id, version, bumped_at)
		VALUES ($1, 2, $2)
		ON CONFLICT (owner_id)
		DO UPDATE SET version = token_epochs.version + 1, bumped_at = $2
		RETURNING version
	`
	var version int
	if err := r.db.QueryRowContext(ctx, query, ownerID, time.Now().UTC()).Scan(&version); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return version, nil
}
