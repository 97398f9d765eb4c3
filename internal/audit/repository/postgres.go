package repository

import (
	"context"
	"fmt"

	"relay-chat/backend/internal/audit/domain"
	"relay-chat/backend/internal/dbx"
)

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs an auth event repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the event. The event must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, e *domain.AuthEvent) error {
	query := `
		INSERT INTO auth_events (id, owner_id, action, ip, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.db.ExecContext(ctx, query, e.ID, e.OwnerID, e.Action, e.IP, e.Metadata, e.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
