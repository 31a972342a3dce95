package store

import (
	"context"
	"errors"

	"warungpos/backend/internal/domain"
)

var ErrNotFound = errors.New("snapshot not found")

// Repository is the durable home of store snapshots. Save replaces the whole
// document for the store id; there is no merging.
type Repository interface {
	Load(ctx context.Context, storeID string) (*domain.Snapshot, error)
	Save(ctx context.Context, storeID string, snapshot *domain.Snapshot) error
}
