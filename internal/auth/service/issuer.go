package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	credentialdomain "relay-chat/backend/internal/credential/domain"
	"relay-chat/backend/internal/security"
)

// EpochStore tracks per-owner token epochs for mass invalidation.
type EpochStore interface {
	Get(ctx context.Context, ownerID string) (int, error)
	Bump(ctx context.Context, ownerID string) (int, error)
}

// Pair is a freshly issued access/refresh token pair. The raw strings are
// returned to the caller exactly once; only their hashes are persisted.
type Pair struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
}

// Issuer creates linked access/refresh pairs. Both credential rows are
// written through Store.CreatePair: if the second insert fails, the first is
// rolled back and no token exists.
type Issuer struct {
	store      Store
	epochs     EpochStore
	tokens     *security.TokenProvider
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewIssuer returns an Issuer with the given dependencies.
func NewIssuer(store Store, epochs EpochStore, tokens *security.TokenProvider, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		store:      store,
		epochs:     epochs,
		tokens:     tokens,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Issue mints a pair for ownerID stamped with the owner's current token epoch
// and persists both credential rows atomically. Storage failures propagate as
// ErrStoreUnavailable; there is no other error path.
func (i *Issuer) Issue(ctx context.Context, ownerID, deviceLabel, originAddress string) (*Pair, error) {
	version, err := i.epochs.Get(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	accessRaw, accessExp, err := i.tokens.Issue(ownerID, string(credentialdomain.KindAccess), version, i.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refreshRaw, refreshExp, err := i.tokens.Issue(ownerID, string(credentialdomain.KindRefresh), version, i.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	now := time.Now().UTC()
	access := &credentialdomain.Credential{
		ID:            uuid.New().String(),
		OwnerID:       ownerID,
		TokenHash:     security.HashToken(accessRaw),
		Kind:          credentialdomain.KindAccess,
		Version:       version,
		ExpiresAt:     accessExp,
		DeviceLabel:   deviceLabel,
		OriginAddress: originAddress,
		CreatedAt:     now,
	}
	refresh := &credentialdomain.Credential{
		ID:            uuid.New().String(),
		OwnerID:       ownerID,
		TokenHash:     security.HashToken(refreshRaw),
		Kind:          credentialdomain.KindRefresh,
		Version:       version,
		ExpiresAt:     refreshExp,
		DeviceLabel:   deviceLabel,
		OriginAddress: originAddress,
		CreatedAt:     now,
	}

	if err := i.store.CreatePair(ctx, access, refresh); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return &Pair{
		AccessToken:     accessRaw,
		RefreshToken:    refreshRaw,
		AccessExpiresAt: accessExp,
	}, nil
}
