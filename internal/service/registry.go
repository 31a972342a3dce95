package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/store"
)

// Syncer commits snapshots and can push a pending cloud copy on demand.
type Syncer interface {
	Committer
	Flush(ctx context.Context, storeID string) error
}

// Registry keeps one Engine per open store. Closing a store discards its
// engine; the next Open reloads it from storage.
type Registry struct {
	repo   store.Repository
	syncer Syncer
	opts   []Option

	mu      sync.Mutex
	engines map[string]*Engine
}

func NewRegistry(repo store.Repository, syncer Syncer, opts ...Option) *Registry {
	return &Registry{
		repo:    repo,
		syncer:  syncer,
		opts:    opts,
		engines: make(map[string]*Engine),
	}
}

func ValidateStoreID(storeID string) error {
	storeID = strings.TrimSpace(storeID)
	if storeID == "" {
		return fmt.Errorf("%w: store_id is required", domain.ErrInvalidInput)
	}
	if len(storeID) > 64 {
		return fmt.Errorf("%w: store_id is too long", domain.ErrInvalidInput)
	}
	return nil
}

// Open returns the engine for storeID, loading it from storage on first use.
// A store with no saved state starts from defaults.
func (r *Registry) Open(ctx context.Context, storeID string) (*Engine, error) {
	if err := ValidateStoreID(storeID); err != nil {
		return nil, err
	}
	storeID = strings.TrimSpace(storeID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.engines[storeID]; ok {
		return e, nil
	}

	snap, err := r.load(ctx, storeID)
	if err != nil {
		return nil, err
	}
	return r.register(storeID, snap), nil
}

// View returns the engine for storeID for reading. A store that is neither
// open nor saved gets a closed engine over defaults that is not kept, so
// reads of unknown store IDs leave nothing behind.
func (r *Registry) View(ctx context.Context, storeID string) (*Engine, error) {
	if err := ValidateStoreID(storeID); err != nil {
		return nil, err
	}
	storeID = strings.TrimSpace(storeID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.engines[storeID]; ok {
		return e, nil
	}

	snap, err := r.repo.Load(ctx, storeID)
	if errors.Is(err, store.ErrNotFound) {
		e := NewEngine(storeID, domain.NewSnapshot(), nil, r.opts...)
		e.shutdown()
		return e, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load store %s: %w", storeID, err)
	}
	return r.register(storeID, snap), nil
}

func (r *Registry) load(ctx context.Context, storeID string) (*domain.Snapshot, error) {
	snap, err := r.repo.Load(ctx, storeID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.NewSnapshot(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load store %s: %w", storeID, err)
	}
	return snap, nil
}

// register caches a new engine; the caller holds r.mu.
func (r *Registry) register(storeID string, snap *domain.Snapshot) *Engine {
	var committer Committer
	if r.syncer != nil {
		committer = r.syncer
	}
	e := NewEngine(storeID, snap, committer, r.opts...)
	r.engines[storeID] = e
	log.Info().Str("component", "service").Str("store_id", storeID).Int("products", len(snap.Products)).Int("sales", len(snap.Sales)).Msg("store opened")
	return e
}

// Close discards the engine for storeID and pushes its pending cloud copy.
func (r *Registry) Close(ctx context.Context, storeID string) error {
	storeID = strings.TrimSpace(storeID)

	r.mu.Lock()
	e, ok := r.engines[storeID]
	if ok {
		delete(r.engines, storeID)
		e.shutdown()
	}
	r.mu.Unlock()

	if !ok || r.syncer == nil {
		return nil
	}
	if err := r.syncer.Flush(ctx, storeID); err != nil {
		return fmt.Errorf("flush store %s: %w", storeID, err)
	}
	return nil
}

// Switch closes from and opens to with a full reload. A failed cloud flush
// does not block the switch; local state is already saved.
func (r *Registry) Switch(ctx context.Context, from string, to string) (*Engine, error) {
	if err := ValidateStoreID(to); err != nil {
		return nil, err
	}
	closing := []string{strings.TrimSpace(to)}
	if f := strings.TrimSpace(from); f != "" && f != closing[0] {
		closing = append(closing, f)
	}
	for _, id := range closing {
		if err := r.Close(ctx, id); err != nil {
			log.Warn().Err(err).Str("component", "service").Str("store_id", id).Msg("cloud flush on store switch failed")
		}
	}
	return r.Open(ctx, to)
}

func (r *Registry) CloseAll(ctx context.Context) error {
	r.mu.Lock()
	ids := make([]string, 0, len(r.engines))
	for id := range r.engines {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	var errs []error
	for _, id := range ids {
		if err := r.Close(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
