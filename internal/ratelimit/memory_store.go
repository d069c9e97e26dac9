package ratelimit

import (
	"context"
	"sync"
	"time"
)

// countingWindow tracks request counts for one identity within a fixed window.
type countingWindow struct {
	count   int64
	expires time.Time
}

func (w *countingWindow) expired(now time.Time) bool {
	return now.After(w.expires)
}

// MemoryStore implements an in-memory rate limit store using fixed counting
// windows. Suitable for single-instance deployments. For distributed
// deployments, use RedisStore.
type MemoryStore struct {
	windows map[string]*countingWindow
	mu      sync.Mutex

	// Cleanup
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	closeOnce       sync.Once
}

// NewMemoryStore creates a new in-memory rate limit store.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithCleanup(5 * time.Minute)
}

// NewMemoryStoreWithCleanup creates a new in-memory store with custom cleanup interval.
func NewMemoryStoreWithCleanup(cleanupInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		windows:         make(map[string]*countingWindow),
		cleanupInterval: cleanupInterval,
		stopCleanup:     make(chan struct{}),
	}

	// Start background cleanup
	go s.cleanupLoop()

	return s
}

// Allow checks the identity's counter against the limit, incrementing it when
// the request fits. An expired window is reset to zero before the check.
func (s *MemoryStore) Allow(ctx context.Context, identity string, limit int64, window time.Duration) (bool, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	w, exists := s.windows[identity]
	if !exists || w.expired(now) {
		w = &countingWindow{expires: now.Add(window)}
		s.windows[identity] = w
	}

	if w.count >= limit {
		return false, 0, nil
	}
	w.count++
	return true, limit - w.count, nil
}

// Remaining reports the identity's unused budget in the current window.
func (s *MemoryStore) Remaining(ctx context.Context, identity string, limit int64, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, exists := s.windows[identity]
	if !exists || w.expired(time.Now()) {
		return limit, nil
	}
	remaining := limit - w.count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Reset clears the counter for an identity.
func (s *MemoryStore) Reset(ctx context.Context, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.windows, identity)
	return nil
}

// Close stops background cleanup.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopCleanup)
	})
	return nil
}

// ActiveWindows returns the number of tracked identities.
func (s *MemoryStore) ActiveWindows() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

// cleanupLoop periodically removes expired windows.
func (s *MemoryStore) cleanupLoop() {
	if s.cleanupInterval <= 0 {
		return
	}

	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCleanup:
			return
		}
	}
}

// cleanup removes expired windows to prevent memory growth.
func (s *MemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for identity, w := range s.windows {
		if w.expired(now) {
			delete(s.windows, identity)
		}
	}
}
