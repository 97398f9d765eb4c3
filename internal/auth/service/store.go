package service

import (
	"context"
	"time"

	blacklistdomain "relay-chat/backend/internal/blacklist/domain"
	credentialdomain "relay-chat/backend/internal/credential/domain"
)

// Store is the storage surface the auth core needs, spanning the credential
// and blacklist tables. CreatePair, RevokeOne, and RevokeOwner are the only
// multi-statement operations and must be atomic: a partially issued pair or a
// partially revoked owner must never be observable.
type Store interface {
	// CreatePair persists both halves of an issued pair, all-or-nothing.
	CreatePair(ctx context.Context, access, refresh *credentialdomain.Credential) error
	// GetByHash returns the credential for a token hash, or nil when unknown.
	GetByHash(ctx context.Context, tokenHash string) (*credentialdomain.Credential, error)
	// GetByID returns the credential for a row id, or nil when unknown.
	GetByID(ctx context.Context, id string) (*credentialdomain.Credential, error)
	// ListLiveByOwner returns the owner's non-expired credentials.
	ListLiveByOwner(ctx context.Context, ownerID string, now time.Time) ([]*credentialdomain.Credential, error)
	// TouchLastUsed records a successful verification. Best-effort callers may
	// ignore its error.
	TouchLastUsed(ctx context.Context, tokenHash string, at time.Time) error
	// IsBlacklisted reports whether a token hash has been revoked.
	IsBlacklisted(ctx context.Context, tokenHash string) (bool, error)
	// RevokeOne blacklists e.TokenHash and deletes the matching credential row
	// in one transaction. Idempotent: revoking an already revoked hash succeeds.
	RevokeOne(ctx context.Context, e *blacklistdomain.Entry) error
	// RevokeOwner blacklists every entry and deletes all of the owner's
	// credential rows in one transaction.
	RevokeOwner(ctx context.Context, ownerID string, entries []*blacklistdomain.Entry) error
}
