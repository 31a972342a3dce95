package cloud

import (
	"context"
	"sync"
	"time"

	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/store"
)

// Stub is an in-process mirror that answers after a fixed artificial delay.
type Stub struct {
	delay time.Duration

	mu       sync.Mutex
	online   bool
	docs     map[string][]byte
	syncedAt map[string]time.Time
	pushes   map[string]int
}

func NewStub(delay time.Duration) *Stub {
	return &Stub{
		delay:    delay,
		online:   true,
		docs:     make(map[string][]byte),
		syncedAt: make(map[string]time.Time),
		pushes:   make(map[string]int),
	}
}

// SetOnline toggles simulated connectivity.
func (s *Stub) SetOnline(online bool) {
	s.mu.Lock()
	s.online = online
	s.mu.Unlock()
}

// Pushes reports how many pushes for storeID reached the mirror.
func (s *Stub) Pushes(storeID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pushes[storeID]
}

func (s *Stub) Push(ctx context.Context, storeID string, snapshot *domain.Snapshot) (PushResult, error) {
	if err := s.wait(ctx); err != nil {
		return PushResult{Success: false, Status: StatusOffline}, err
	}

	data, err := store.Encode(snapshot)
	if err != nil {
		return PushResult{Success: false, Status: s.ConnectionStatus(ctx)}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.online {
		return PushResult{Success: false, Status: StatusOffline}, ErrOffline
	}
	s.docs[storeID] = data
	s.syncedAt[storeID] = time.Now().UTC()
	s.pushes[storeID]++
	return PushResult{Success: true, Status: StatusOnline}, nil
}

func (s *Stub) Pull(ctx context.Context, storeID string) (PullResult, error) {
	if err := s.wait(ctx); err != nil {
		return PullResult{}, err
	}

	s.mu.Lock()
	if !s.online {
		s.mu.Unlock()
		return PullResult{}, ErrOffline
	}
	data, ok := s.docs[storeID]
	at := s.syncedAt[storeID]
	s.mu.Unlock()

	if !ok {
		return PullResult{Success: false}, nil
	}
	snapshot, err := store.Decode(data)
	if err != nil {
		return PullResult{}, err
	}
	return PullResult{Success: true, Data: snapshot, Timestamp: &at}, nil
}

func (s *Stub) LastSyncTime(_ context.Context, storeID string) *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.syncedAt[storeID]
	if !ok {
		return nil
	}
	return &at
}

func (s *Stub) ConnectionStatus(_ context.Context) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.online {
		return StatusOnline
	}
	return StatusOffline
}

func (s *Stub) wait(ctx context.Context) error {
	if s.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
