package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"warungpos/backend/internal/catalog"
	"warungpos/backend/internal/cloud"
	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/events"
	"warungpos/backend/internal/logging"
	"warungpos/backend/internal/xid"
)

var (
	ErrStoreClosed      = errors.New("store closed")
	ErrCloudUnavailable = errors.New("cloud sync not configured")
)

// Committer makes a new snapshot durable. It is the only writer to storage.
type Committer interface {
	Commit(ctx context.Context, storeID string, snapshot *domain.Snapshot) error
}

// Engine owns the state of one store. Mutations run one at a time and swap
// in a new snapshot only after it has been committed.
type Engine struct {
	storeID      string
	committer    Committer
	publisher    events.Publisher
	cloud        cloud.Client
	now          func() time.Time
	newProductID func() string
	newSaleID    func(time.Time) string
	log          zerolog.Logger

	mu     sync.RWMutex
	snap   *domain.Snapshot
	closed bool
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(e *Engine) {
		if p != nil {
			e.publisher = p
		}
	}
}

func WithCloud(c cloud.Client) Option {
	return func(e *Engine) {
		e.cloud = c
	}
}

func WithProductIDs(next func() string) Option {
	return func(e *Engine) {
		if next != nil {
			e.newProductID = next
		}
	}
}

func WithSaleIDs(next func(time.Time) string) Option {
	return func(e *Engine) {
		if next != nil {
			e.newSaleID = next
		}
	}
}

func NewEngine(storeID string, snap *domain.Snapshot, committer Committer, opts ...Option) *Engine {
	if snap == nil {
		snap = domain.NewSnapshot()
	}
	e := &Engine{
		storeID:      storeID,
		committer:    committer,
		publisher:    events.Noop{},
		now:          func() time.Time { return time.Now().UTC() },
		newProductID: uuid.NewString,
		newSaleID:    func(at time.Time) string { return xid.NewAt("sale", at) },
		log:          logging.Component("service").With().Str("store_id", storeID).Logger(),
		snap:         snap,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) StoreID() string {
	return e.storeID
}

// mutate applies fn to a private copy of the current snapshot and commits it.
// fn reports whether anything changed; unchanged copies are discarded.
func (e *Engine) mutate(ctx context.Context, fn func(next *domain.Snapshot) (bool, error)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrStoreClosed
	}

	next := e.snap.Clone()
	changed, err := fn(next)
	if err != nil || !changed {
		return err
	}

	if e.committer != nil {
		if err := e.committer.Commit(ctx, e.storeID, next); err != nil {
			return fmt.Errorf("commit store %s: %w", e.storeID, err)
		}
	}
	e.snap = next
	return nil
}

// shutdown waits for an in-flight mutation and rejects later ones.
func (e *Engine) shutdown() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
}

func (e *Engine) current() *domain.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap
}

// Snapshot returns a copy of the committed state.
func (e *Engine) Snapshot() *domain.Snapshot {
	return e.current().Clone()
}

func (e *Engine) Products() []domain.Product {
	return e.Snapshot().Products
}

func (e *Engine) Sales() []domain.Sale {
	return e.Snapshot().Sales
}

func (e *Engine) Transactions() []domain.Receipt {
	return e.current().Transactions()
}

func (e *Engine) Settings() domain.Settings {
	return e.current().Settings
}

// LowStockItems lists products at or below the low stock threshold.
func (e *Engine) LowStockItems() []domain.Product {
	snap := e.current()
	return catalog.LowStock(snap.Products, snap.Settings.LowStockThreshold)
}

func (e *Engine) SearchProducts(query string) []domain.Product {
	snap := e.current()
	found := catalog.SearchProducts(snap.Products, query)
	out := make([]domain.Product, len(found))
	for i, p := range found {
		out[i] = p.Clone()
	}
	return out
}

// ExpiringProducts lists products whose expiration date falls within days.
func (e *Engine) ExpiringProducts(days int) []domain.Product {
	return catalog.ExpiringWithin(e.current().Products, e.now(), days)
}

func (e *Engine) audit(ctx context.Context, action string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}
	e.log.Info().
		Str("actor", actor.Username).
		Str("role", actor.Role).
		Str("action", action).
		Str("entity_id", entityID).
		Str("detail", detail).
		Msg("audit")
}

func (e *Engine) publish(ctx context.Context, eventType string, at time.Time, payload any) {
	env, err := events.NewEnvelope(eventType, e.storeID, at, payload)
	if err == nil {
		err = e.publisher.Publish(ctx, env)
	}
	if err != nil {
		e.log.Warn().Err(err).Str("event_type", eventType).Msg("publish event failed")
	}
}

// publishLowStock emits stock.low for products that crossed the threshold
// between before and after.
func (e *Engine) publishLowStock(ctx context.Context, before []domain.Product, after []domain.Product, threshold int, at time.Time) {
	for _, p := range after {
		if p.Quantity > threshold {
			continue
		}
		prev, ok := catalog.FindByID(before, p.ID)
		if ok && prev.Quantity <= threshold {
			continue
		}
		e.publish(ctx, events.TypeStockLow, at, events.StockLowPayload{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  p.Quantity,
			Threshold: threshold,
		})
	}
}

func defaultString(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}
