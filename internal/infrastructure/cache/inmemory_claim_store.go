package cache

import (
	"context"
	"sync"
	"time"

	"github.com/bizops/backend/internal/domain/shared"
)

// InMemoryClaimStore implements ClaimStore with a process-local map. Claims
// only exclude callers within the same process.
type InMemoryClaimStore struct {
	mu        sync.Mutex
	claims    map[string]time.Time
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryClaimStore creates an in-memory claim store and starts the
// background sweep of expired claims
func NewInMemoryClaimStore() *InMemoryClaimStore {
	s := &InMemoryClaimStore{
		claims:   make(map[string]time.Time),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.sweepLoop(time.Minute)
	return s
}

// Claim takes key for ttl unless someone else holds an unexpired claim on it
func (s *InMemoryClaimStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if expiresAt, held := s.claims[key]; held && now.Before(expiresAt) {
		return false, nil
	}
	s.claims[key] = now.Add(ttl)
	return true, nil
}

// Release drops the claim on key
func (s *InMemoryClaimStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.claims, key)
	s.mu.Unlock()
	return nil
}

// Close stops the sweep goroutine. Safe to call more than once.
func (s *InMemoryClaimStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryClaimStore) sweepLoop(every time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *InMemoryClaimStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, expiresAt := range s.claims {
		if !now.Before(expiresAt) {
			delete(s.claims, key)
		}
	}
}

// Size returns the number of claims currently tracked, expired or not
func (s *InMemoryClaimStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.claims)
}

var _ shared.ClaimStore = (*InMemoryClaimStore)(nil)
