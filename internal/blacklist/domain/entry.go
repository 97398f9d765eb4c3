package domain

import "time"

// Entry is an explicitly revoked token hash. ExpiresAt is copied from the
// revoked credential's own expiry: an entry never needs to outlive the token
// it blocks.
type Entry struct {
	TokenHash string
	OwnerID   string
	Reason    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
