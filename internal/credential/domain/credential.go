package domain

import "time"

// Kind distinguishes the two halves of an issued token pair.
type Kind string

const (
	// KindAccess is the short-lived token presented on every request.
	KindAccess Kind = "access"
	// KindRefresh is the long-lived token exchanged for a new pair.
	KindRefresh Kind = "refresh"
)

// Valid reports whether k is one of the two known kinds.
func (k Kind) Valid() bool {
	return k == KindAccess || k == KindRefresh
}

// Credential is a persisted record binding a hashed token to an owner, kind,
// and expiry. TokenHash is a one-way digest; the raw token is never stored.
type Credential struct {
	ID            string
	OwnerID       string
	TokenHash     string
	Kind          Kind
	Version       int // owner's token epoch at issuance
	ExpiresAt     time.Time
	LastUsedAt    *time.Time // nil until the first successful verification
	DeviceLabel   string
	OriginAddress string
	CreatedAt     time.Time
}

// ExpiredAt reports whether the credential is expired at instant now.
// The boundary is exclusive of validity: a credential expiring exactly at now
// is already expired.
func (c *Credential) ExpiredAt(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
