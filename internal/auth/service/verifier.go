package service

import (
	"context"
	"fmt"
	"time"

	credentialdomain "relay-chat/backend/internal/credential/domain"
	"relay-chat/backend/internal/logging"
	"relay-chat/backend/internal/security"
)

// Verifier decides whether a presented raw token is acceptable for an
// expected kind and classifies every rejection.
type Verifier struct {
	store  Store
	epochs EpochStore
	tokens *security.TokenProvider
	log    logging.Logger

	// nowF is replaceable in tests to pin the expiry boundary.
	nowF func() time.Time
	// touchSync forces the last-used update onto the calling goroutine;
	// tests set it to observe the write deterministically.
	touchSync bool
}

// NewVerifier returns a Verifier with the given dependencies.
func NewVerifier(store Store, epochs EpochStore, tokens *security.TokenProvider, log logging.Logger) *Verifier {
	return &Verifier{
		store:  store,
		epochs: epochs,
		tokens: tokens,
		log:    log,
		nowF:   func() time.Time { return time.Now().UTC() },
	}
}

// Verify runs the acceptance state machine for raw against expectedKind.
// Checks run strictly in order, first match wins:
//
//  1. envelope signature (forged or garbled input never reaches the store)
//  2. blacklist, checked before existence so a replayed logged-out token,
//     whose row was already deleted, still reads "revoked" rather than a
//     generic "not found"
//  3. credential row existence
//  4. kind match
//  5. expiry, boundary instant counting as expired
//  6. epoch version match (stale epochs classify as revoked)
//
// On acceptance the credential's last_used_at is touched best-effort on a
// separate goroutine; a failed touch never fails the request.
func (v *Verifier) Verify(ctx context.Context, raw string, expectedKind credentialdomain.Kind) (*credentialdomain.Credential, error) {
	claims, err := v.tokens.Parse(raw)
	if err != nil {
		return nil, ErrMalformedCredential
	}

	hash := security.HashToken(raw)

	blacklisted, err := v.store.IsBlacklisted(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if blacklisted {
		return nil, ErrRevoked
	}

	cred, err := v.store.GetByHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if cred == nil {
		return nil, ErrNotFound
	}

	if cred.Kind != expectedKind {
		return nil, ErrWrongType
	}

	now := v.nowF()
	if cred.ExpiredAt(now) {
		return nil, ErrExpired
	}

	epoch, err := v.epochs.Get(ctx, cred.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if claims.Version < epoch {
		return nil, ErrRevoked
	}

	v.touchLastUsed(ctx, hash, now)
	return cred, nil
}

func (v *Verifier) touchLastUsed(ctx context.Context, hash string, at time.Time) {
	touch := func(ctx context.Context) {
		if err := v.store.TouchLastUsed(ctx, hash, at); err != nil {
			v.log.Warn(ctx, "last-used touch failed", "err", err)
		}
	}
	if v.touchSync {
		touch(ctx)
		return
	}
	// Detached from the request: the touch may outlive the handler and its
	// failure is invisible to the caller.
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		touch(ctx)
	}()
}
