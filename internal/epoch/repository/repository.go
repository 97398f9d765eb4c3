package repository

import "context"

// Repository tracks each owner's token epoch. Incrementing the epoch
// invalidates every token stamped with an earlier version without touching
// credential rows one by one.
type Repository interface {
	// Get returns the owner's current epoch. Owners without a row are at epoch 1.
	Get(ctx context.Context, ownerID string) (int, error)
	// Bump increments the owner's epoch and returns the new value.
	Bump(ctx context.Context, ownerID string) (int, error)
}
