// Package store implements the auth core's storage surface on Postgres,
// composing the credential and blacklist repositories and wrapping the
// multi-statement operations in transactions.
package store

import (
	"context"
	"database/sql"
	"time"

	blacklistdomain "relay-chat/backend/internal/blacklist/domain"
	blacklistrepo "relay-chat/backend/internal/blacklist/repository"
	credentialdomain "relay-chat/backend/internal/credential/domain"
	credentialrepo "relay-chat/backend/internal/credential/repository"
	"relay-chat/backend/internal/dbx"
)

// Postgres implements service.Store.
type Postgres struct {
	db        *sql.DB
	creds     *credentialrepo.PostgresRepository
	blacklist *blacklistrepo.PostgresRepository
}

// NewPostgres returns a store over the given database handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{
		db:        db,
		creds:     credentialrepo.NewPostgresRepository(db),
		blacklist: blacklistrepo.NewPostgresRepository(db),
	}
}

// CreatePair inserts both credential rows in one transaction.
func (s *Postgres) CreatePair(ctx context.Context, access, refresh *credentialdomain.Credential) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		creds := credentialrepo.NewPostgresRepository(tx)
		if err := creds.Create(ctx, access); err != nil {
			return err
		}
		return creds.Create(ctx, refresh)
	})
}

// GetByHash returns the credential for tokenHash, or nil if not found.
func (s *Postgres) GetByHash(ctx context.Context, tokenHash string) (*credentialdomain.Credential, error) {
	return s.creds.GetByHash(ctx, tokenHash)
}

// GetByID returns the credential for id, or nil if not found.
func (s *Postgres) GetByID(ctx context.Context, id string) (*credentialdomain.Credential, error) {
	return s.creds.GetByID(ctx, id)
}

// ListLiveByOwner returns the owner's non-expired credentials.
func (s *Postgres) ListLiveByOwner(ctx context.Context, ownerID string, now time.Time) ([]*credentialdomain.Credential, error) {
	return s.creds.ListLiveByOwner(ctx, ownerID, now)
}

// TouchLastUsed records a successful verification timestamp.
func (s *Postgres) TouchLastUsed(ctx context.Context, tokenHash string, at time.Time) error {
	return s.creds.TouchLastUsed(ctx, tokenHash, at)
}

// IsBlacklisted reports whether tokenHash has been revoked.
func (s *Postgres) IsBlacklisted(ctx context.Context, tokenHash string) (bool, error) {
	return s.blacklist.Contains(ctx, tokenHash)
}

// RevokeOne blacklists the hash and deletes the credential row atomically.
func (s *Postgres) RevokeOne(ctx context.Context, e *blacklistdomain.Entry) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := blacklistrepo.NewPostgresRepository(tx).Insert(ctx, e); err != nil {
			return err
		}
		return credentialrepo.NewPostgresRepository(tx).DeleteByHash(ctx, e.TokenHash)
	})
}

// RevokeOwner blacklists every entry and deletes all the owner's credentials
// in one transaction, so a crash can never leave the owner half revoked.
func (s *Postgres) RevokeOwner(ctx context.Context, ownerID string, entries []*blacklistdomain.Entry) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		blacklist := blacklistrepo.NewPostgresRepository(tx)
		for _, e := range entries {
			if err := blacklist.Insert(ctx, e); err != nil {
				return err
			}
		}
		return credentialrepo.NewPostgresRepository(tx).DeleteByOwner(ctx, ownerID)
	})
}
