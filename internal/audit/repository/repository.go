package repository

import (
	"context"

	"relay-chat/backend/internal/audit/domain"
)

// Repository defines persistence for auth events.
type Repository interface {
	Create(ctx context.Context, e *domain.AuthEvent) error
}
