// Package syncer writes committed snapshots to durable storage and mirrors
// them to the cloud after a trailing debounce.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"warungpos/backend/internal/cloud"
	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/logging"
	"warungpos/backend/internal/store"
)

const DefaultDelay = 2 * time.Second

var ErrNothingToSync = errors.New("nothing to sync")

type State string

const (
	StateIdle    State = "idle"
	StatePending State = "pending"
	StateSyncing State = "syncing"
	StateSynced  State = "synced"
	StateFailed  State = "failed"
)

type Status struct {
	StoreID      string       `json:"store_id"`
	State        State        `json:"state"`
	Connection   cloud.Status `json:"connection"`
	LastSyncedAt *time.Time   `json:"last_synced_at,omitempty"`
	LastError    string       `json:"last_error,omitempty"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// job is the single scheduled push for a store. A newer commit replaces it.
type job struct {
	seq      uint64
	snapshot *domain.Snapshot
	timer    *time.Timer
}

type Bridge struct {
	repo    store.Repository
	cloud   cloud.Client
	delay   time.Duration
	timeout time.Duration
	log     zerolog.Logger

	mu       sync.Mutex
	seq      uint64
	jobs     map[string]*job
	last     map[string]*domain.Snapshot
	lastSeq  map[string]uint64
	applied  map[string]uint64
	pushMu   map[string]*sync.Mutex
	statuses map[string]Status
	subs     map[int]chan Status
	nextSub  int
	closed   bool
	inflight sync.WaitGroup
}

type Option func(*Bridge)

func WithDelay(delay time.Duration) Option {
	return func(b *Bridge) {
		if delay > 0 {
			b.delay = delay
		}
	}
}

// WithPushTimeout bounds each cloud push.
func WithPushTimeout(timeout time.Duration) Option {
	return func(b *Bridge) {
		if timeout > 0 {
			b.timeout = timeout
		}
	}
}

func New(repo store.Repository, client cloud.Client, opts ...Option) *Bridge {
	b := &Bridge{
		repo:     repo,
		cloud:    client,
		delay:    DefaultDelay,
		timeout:  10 * time.Second,
		log:      logging.Component("syncer"),
		jobs:     make(map[string]*job),
		last:     make(map[string]*domain.Snapshot),
		lastSeq:  make(map[string]uint64),
		applied:  make(map[string]uint64),
		pushMu:   make(map[string]*sync.Mutex),
		statuses: make(map[string]Status),
		subs:     make(map[int]chan Status),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Commit writes the snapshot to the repository and schedules a cloud push.
// A failed write returns an error and schedules nothing.
func (b *Bridge) Commit(ctx context.Context, storeID string, snapshot *domain.Snapshot) error {
	if err := b.repo.Save(ctx, storeID, snapshot); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	b.schedule(storeID, snapshot)
	return nil
}

func (b *Bridge) schedule(storeID string, snapshot *domain.Snapshot) {
	b.mu.Lock()
	b.seq++
	seq := b.seq
	b.last[storeID] = snapshot
	b.lastSeq[storeID] = seq
	if b.closed || b.cloud == nil {
		b.mu.Unlock()
		return
	}

	if prev, ok := b.jobs[storeID]; ok {
		prev.timer.Stop()
	}
	j := &job{seq: seq, snapshot: snapshot}
	j.timer = time.AfterFunc(b.delay, func() {
		b.fire(storeID, seq)
	})
	b.jobs[storeID] = j
	status := b.setStatusLocked(storeID, func(s *Status) {
		s.State = StatePending
	})
	b.mu.Unlock()

	b.broadcast(status)
}

func (b *Bridge) fire(storeID string, seq uint64) {
	b.mu.Lock()
	j, ok := b.jobs[storeID]
	if !ok || j.seq != seq || b.closed {
		b.mu.Unlock()
		return
	}
	delete(b.jobs, storeID)
	b.inflight.Add(1)
	b.mu.Unlock()

	defer b.inflight.Done()
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	_ = b.push(ctx, storeID, j.seq, j.snapshot)
}

// storeLock serializes pushes for one store so at most one is in flight.
func (b *Bridge) storeLock(storeID string) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.pushMu[storeID]
	if !ok {
		m = &sync.Mutex{}
		b.pushMu[storeID] = m
	}
	return m
}

// push sends snapshot unless a newer commit already reached the cloud.
func (b *Bridge) push(ctx context.Context, storeID string, seq uint64, snapshot *domain.Snapshot) error {
	lock := b.storeLock(storeID)
	lock.Lock()
	defer lock.Unlock()

	b.mu.Lock()
	superseded := seq < b.applied[storeID]
	b.mu.Unlock()
	if superseded {
		return nil
	}

	b.updateStatus(storeID, func(s *Status) {
		s.State = StateSyncing
	})

	res, err := b.cloud.Push(ctx, storeID, snapshot)
	if err == nil && !res.Success {
		err = fmt.Errorf("cloud rejected push (status %s)", res.Status)
	}
	if err != nil {
		b.log.Warn().Err(err).Str("store_id", storeID).Msg("cloud push failed; local state kept")
		b.updateStatus(storeID, func(s *Status) {
			s.State = StateFailed
			s.Connection = res.Status
			if s.Connection == "" {
				s.Connection = cloud.StatusOffline
			}
			s.LastError = err.Error()
		})
		return err
	}

	now := time.Now().UTC()
	b.mu.Lock()
	if seq > b.applied[storeID] {
		b.applied[storeID] = seq
	}
	newer := b.lastSeq[storeID] > seq
	b.mu.Unlock()
	b.updateStatus(storeID, func(s *Status) {
		s.State = StateSynced
		if newer {
			s.State = StatePending
		}
		s.Connection = res.Status
		s.LastSyncedAt = &now
		s.LastError = ""
	})
	b.log.Debug().Str("store_id", storeID).Msg("cloud push complete")
	return nil
}

// Flush pushes the pending job for storeID immediately. It is a no-op when
// nothing is scheduled.
func (b *Bridge) Flush(ctx context.Context, storeID string) error {
	b.mu.Lock()
	j, ok := b.jobs[storeID]
	if ok {
		j.timer.Stop()
		delete(b.jobs, storeID)
	}
	b.mu.Unlock()

	if !ok {
		return nil
	}
	return b.push(ctx, storeID, j.seq, j.snapshot)
}

// Retry re-pushes the last committed snapshot for storeID, cancelling any
// pending job.
func (b *Bridge) Retry(ctx context.Context, storeID string) error {
	b.mu.Lock()
	if j, ok := b.jobs[storeID]; ok {
		j.timer.Stop()
		delete(b.jobs, storeID)
	}
	snapshot := b.last[storeID]
	seq := b.lastSeq[storeID]
	b.mu.Unlock()

	if b.cloud == nil || snapshot == nil {
		return ErrNothingToSync
	}
	return b.push(ctx, storeID, seq, snapshot)
}

func (b *Bridge) Status(storeID string) Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	status, ok := b.statuses[storeID]
	if !ok {
		return Status{StoreID: storeID, State: StateIdle}
	}
	return status
}

// Subscribe returns a channel of status changes. Slow subscribers miss
// updates rather than block the bridge.
func (b *Bridge) Subscribe(buffer int) (<-chan Status, func()) {
	if buffer < 1 {
		buffer = 8
	}
	ch := make(chan Status, buffer)

	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Close flushes every pending job and stops scheduling new ones.
func (b *Bridge) Close(ctx context.Context) error {
	b.mu.Lock()
	pending := make([]string, 0, len(b.jobs))
	for storeID := range b.jobs {
		pending = append(pending, storeID)
	}
	b.mu.Unlock()

	var errs []error
	for _, storeID := range pending {
		if err := b.Flush(ctx, storeID); err != nil {
			errs = append(errs, fmt.Errorf("flush %s: %w", storeID, err))
		}
	}

	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.inflight.Wait()

	return errors.Join(errs...)
}

func (b *Bridge) updateStatus(storeID string, apply func(*Status)) {
	b.mu.Lock()
	status := b.setStatusLocked(storeID, apply)
	b.mu.Unlock()
	b.broadcast(status)
}

func (b *Bridge) setStatusLocked(storeID string, apply func(*Status)) Status {
	status, ok := b.statuses[storeID]
	if !ok {
		status = Status{StoreID: storeID, State: StateIdle}
	}
	apply(&status)
	status.UpdatedAt = time.Now().UTC()
	b.statuses[storeID] = status
	return status
}

func (b *Bridge) broadcast(status Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- status:
		default:
		}
	}
}
