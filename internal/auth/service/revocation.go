package service

import (
	"context"
	"fmt"
	"time"

	blacklistdomain "relay-chat/backend/internal/blacklist/domain"
	"relay-chat/backend/internal/security"
)

// Revocation reasons recorded on blacklist entries.
const (
	ReasonLogout    = "logout"
	ReasonLogoutAll = "logout_all"
	ReasonRotated   = "rotated"
)

// Revoker withdraws credentials, one at a time or per owner. Every revocation
// writes the blacklist entry and deletes the credential row in a single
// transaction; a partially revoked state is never observable.
type Revoker struct {
	store  Store
	epochs EpochStore
	tokens *security.TokenProvider
	nowF   func() time.Time
}

// NewRevoker returns a Revoker with the given dependencies.
func NewRevoker(store Store, epochs EpochStore, tokens *security.TokenProvider) *Revoker {
	return &Revoker{
		store:  store,
		epochs: epochs,
		tokens: tokens,
		nowF:   func() time.Time { return time.Now().UTC() },
	}
}

// RevokeToken revokes the presented raw token. The blacklist entry copies the
// credential row's expiry; when the row is already gone (a second logout for
// the same token) the envelope's own expiry is used instead, keeping the call
// idempotent.
func (r *Revoker) RevokeToken(ctx context.Context, raw, reason string) error {
	claims, err := r.tokens.Parse(raw)
	if err != nil {
		return ErrMalformedCredential
	}

	hash := security.HashToken(raw)
	cred, err := r.store.GetByHash(ctx, hash)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	entry := &blacklistdomain.Entry{
		TokenHash: hash,
		OwnerID:   claims.Subject,
		Reason:    reason,
		CreatedAt: r.nowF(),
	}
	if cred != nil {
		entry.OwnerID = cred.OwnerID
		entry.ExpiresAt = cred.ExpiresAt
	} else if claims.ExpiresAt != nil {
		entry.ExpiresAt = claims.ExpiresAt.Time
	}

	if err := r.store.RevokeOne(ctx, entry); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// RevokeByID revokes a single credential row, scoped to ownerID so a caller
// can only cut their own sessions. Returns ErrNotFound when the row does not
// exist or belongs to someone else.
func (r *Revoker) RevokeByID(ctx context.Context, ownerID, credentialID, reason string) error {
	cred, err := r.store.GetByID(ctx, credentialID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if cred == nil || cred.OwnerID != ownerID {
		return ErrNotFound
	}

	entry := &blacklistdomain.Entry{
		TokenHash: cred.TokenHash,
		OwnerID:   cred.OwnerID,
		Reason:    reason,
		ExpiresAt: cred.ExpiresAt,
		CreatedAt: r.nowF(),
	}
	if err := r.store.RevokeOne(ctx, entry); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// RevokeAll revokes every live credential for ownerID: each hash is
// blacklisted with its own expiry, then all rows are deleted, atomically
// across the owner. Used for logout-everywhere and credential-compromise
// response.
func (r *Revoker) RevokeAll(ctx context.Context, ownerID, reason string) error {
	now := r.nowF()
	live, err := r.store.ListLiveByOwner(ctx, ownerID, now)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	entries := make([]*blacklistdomain.Entry, 0, len(live))
	for _, c := range live {
		entries = append(entries, &blacklistdomain.Entry{
			TokenHash: c.TokenHash,
			OwnerID:   c.OwnerID,
			Reason:    reason,
			ExpiresAt: c.ExpiresAt,
			CreatedAt: now,
		})
	}

	if err := r.store.RevokeOwner(ctx, ownerID, entries); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// RotateVersion bumps the owner's token epoch, invalidating every token from
// earlier epochs without iterating credential rows.
func (r *Revoker) RotateVersion(ctx context.Context, ownerID string) (int, error) {
	version, err := r.epochs.Bump(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return version, nil
}
