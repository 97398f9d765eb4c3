package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"relay-chat/backend/internal/credential/domain"
	"relay-chat/backend/internal/dbx"
)

// PostgresRepository implements Repository over dbx.DBTX (satisfied by *sql.DB
// or *sql.Tx), so callers can run multi-statement operations in a transaction.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a credential repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const credentialColumns = `id, owner_id, token_hash, kind, version, expires_at, last_used_at, device_label, origin_address, created_at`

// GetByHash returns the credential for tokenHash, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE token_hash = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, tokenHash))
}

// GetByID returns the credential for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// ListLiveByOwner returns the owner's credentials that have not expired at now,
// newest first.
func (r *PostgresRepository) ListLiveByOwner(ctx context.Context, ownerID string, now time.Time) ([]*domain.Credential, error) {
	query := `
		SELECT ` + credentialColumns + `
		FROM credentials
		WHERE owner_id = $1 AND expires_at > $2
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID, now)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*domain.Credential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// Create persists the credential. The credential must have ID and TokenHash set.
func (r *PostgresRepository) Create(ctx context.Context, c *domain.Credential) error {
	query := `
		INSERT INTO credentials (` + credentialColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	var lastUsed sql.NullTime
	if c.LastUsedAt != nil {
		lastUsed = sql.NullTime{Time: *c.LastUsedAt, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.OwnerID, c.TokenHash, string(c.Kind), c.Version,
		c.ExpiresAt, lastUsed, c.DeviceLabel, c.OriginAddress, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// DeleteByHash removes the credential with the given token hash. Deleting a
// missing row is not an error.
func (r *PostgresRepository) DeleteByHash(ctx context.Context, tokenHash string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM credentials WHERE token_hash = $1`, tokenHash); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// DeleteByID removes the credential with the given row id.
func (r *PostgresRepository) DeleteByID(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM credentials WHERE id = $1`, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// DeleteByOwner removes all credentials for ownerID in one statement.
func (r *PostgresRepository) DeleteByOwner(ctx context.Context, ownerID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM credentials WHERE owner_id = $1`, ownerID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// DeleteExpired removes all credentials whose expiry is at or before now and
// returns the number of rows deleted.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM credentials WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// TouchLastUsed sets last_used_at for the credential with the given token hash.
func (r *PostgresRepository) TouchLastUsed(ctx context.Context, tokenHash string, at time.Time) error {
	query := `UPDATE credentials SET last_used_at = $2 WHERE token_hash = $1`
	if _, err := r.db.ExecContext(ctx, query, tokenHash, at); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*domain.Credential, error) {
	c, err := scanCredential(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func scanCredential(s rowScanner) (*domain.Credential, error) {
	var (
		c        domain.Credential
		kind     string
		lastUsed sql.NullTime
	)
	err := s.Scan(&c.ID, &c.OwnerID, &c.TokenHash, &kind, &c.Version,
		&c.ExpiresAt, &lastUsed, &c.DeviceLabel, &c.OriginAddress, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	c.Kind = domain.Kind(kind)
	if lastUsed.Valid {
		c.LastUsedAt = &lastUsed.Time
	}
	return &c, nil
}
