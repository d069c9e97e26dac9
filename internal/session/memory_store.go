package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	sess    *Session
	expires time.Time
}

// InMemoryStore keeps sessions in a mutex-guarded map. Suitable for
// single-instance deployments; sessions expire lazily on Get and eagerly via
// Sweep.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
}

// NewInMemoryStore creates an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]memoryEntry)}
}

// Put implements Store.
func (s *InMemoryStore) Put(ctx context.Context, sess *Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.ID] = memoryEntry{sess: sess, expires: time.Now().Add(ttl)}
	return nil
}

// Get implements Store. Expired entries are treated as absent.
func (s *InMemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	entry, exists := s.sessions[id]
	s.mu.RUnlock()

	if !exists {
		return nil, nil
	}
	if time.Now().After(entry.expires) {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return nil, nil
	}
	return entry.sess, nil
}

// Delete implements Store.
func (s *InMemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

// Sweep implements Store: drops every session older than maxAge.
func (s *InMemoryStore) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	now := time.Now()
	removed := 0
	for id, entry := range s.sessions {
		if entry.sess.CreatedAt.Before(cutoff) || now.After(entry.expires) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of live entries, expired ones included until swept.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close implements Store.
func (s *InMemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = nil
	return nil
}
