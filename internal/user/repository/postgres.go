// Package repository implements the auth core's UserDirectory on Postgres.
// The user-profile store proper lives outside this service; this repository
// carries only the columns login and registration need.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"relay-chat/backend/internal/auth/service"
	"relay-chat/backend/internal/dbx"
)

// PostgresDirectory implements service.UserDirectory over dbx.DBTX.
type PostgresDirectory struct {
	db dbx.DBTX
}

// NewPostgresDirectory constructs a user directory bound to the given DBTX.
func NewPostgresDirectory(db dbx.DBTX) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

// GetByEmail returns the user for email, or nil if not found. The lookup is
// case-insensitive, matching the unique index on lower(email).
func (d *PostgresDirectory) GetByEmail(ctx context.Context, email string) (*service.User, error) {
	query := `SELECT id, email, password_hash FROM users WHERE lower(email) = lower($1)`
	var u service.User
	err := d.db.QueryRowContext(ctx, query, email).Scan(&u.ID, &u.Email, &u.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &u, nil
}

// Create persists the user. A duplicate email violates the unique index and
// surfaces as a database error.
func (d *PostgresDirectory) Create(ctx context.Context, u *service.User) error {
	query := `INSERT INTO users (id, email, password_hash) VALUES ($1, $2, $3)`
	if _, err := d.db.ExecContext(ctx, query, u.ID, u.Email, u.PasswordHash); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
