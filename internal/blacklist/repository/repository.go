package repository

import (
	"context"
	"time"

	"relay-chat/backend/internal/blacklist/domain"
)

// Repository defines persistence for blacklist entries.
type Repository interface {
	// Contains reports whether tokenHash has been revoked.
	Contains(ctx context.Context, tokenHash string) (bool, error)
	// Insert records a revocation. Inserting a hash that is already present is
	// a no-op, not an error.
	Insert(ctx context.Context, e *domain.Entry) error
	// DeleteExpired removes entries whose expiry is at or before now and
	// returns the number of rows deleted.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
