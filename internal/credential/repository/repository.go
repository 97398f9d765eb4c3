package repository

import (
	"context"
	"time"

	"relay-chat/backend/internal/credential/domain"
)

// Repository defines persistence for credentials.
type Repository interface {
	GetByHash(ctx context.Context, tokenHash string) (*domain.Credential, error)
	GetByID(ctx context.Context, id string) (*domain.Credential, error)
	ListLiveByOwner(ctx context.Context, ownerID string, now time.Time) ([]*domain.Credential, error)
	Create(ctx context.Context, c *domain.Credential) error
	DeleteByHash(ctx context.Context, tokenHash string) error
	DeleteByID(ctx context.Context, id string) error
	DeleteByOwner(ctx context.Context, ownerID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	TouchLastUsed(ctx context.Context, tokenHash string, at time.Time) error
}
