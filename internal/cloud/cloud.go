// Package cloud mirrors store snapshots to a remote copy. The mirror is best
// effort: local storage stays the source of truth.
package cloud

import (
	"context"
	"errors"
	"time"

	"warungpos/backend/internal/domain"
)

type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

var ErrOffline = errors.New("cloud offline")

type PushResult struct {
	Success bool   `json:"success"`
	Status  Status `json:"status"`
}

type PullResult struct {
	Success   bool             `json:"success"`
	Data      *domain.Snapshot `json:"-"`
	Timestamp *time.Time       `json:"timestamp,omitempty"`
}

type Client interface {
	Push(ctx context.Context, storeID string, snapshot *domain.Snapshot) (PushResult, error)
	Pull(ctx context.Context, storeID string) (PullResult, error)
	LastSyncTime(ctx context.Context, storeID string) *time.Time
	ConnectionStatus(ctx context.Context) Status
}
