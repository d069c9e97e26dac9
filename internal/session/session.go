// Package session tracks ephemeral per-delivery streaming sessions. A session
// is created at the start of one delivery, is never resumed, and is removed on
// completion or swept once its TTL lapses.
package session

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/igianni84/woo-ai-assistant/internal/assist"
)

// Session lifetime: the delivery itself is capped at 30 seconds, plus a grace
// period so an abandoned session survives long enough to be observed before
// it self-expires.
const (
	StreamTimeout = 30 * time.Second
	GracePeriod   = 30 * time.Second
	DefaultTTL    = StreamTimeout + GracePeriod
)

// ErrNotFound is returned when a session id is unknown or already expired.
var ErrNotFound = errors.New("session not found")

// Status describes where a session is in its lifecycle.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
)

// Session is the transient record for one in-flight delivery.
type Session struct {
	ID             string              `json:"id"`
	ConversationID string              `json:"conversation_id"`
	Identity       string              `json:"identity"`
	Config         assist.StreamConfig `json:"config"`
	Status         Status              `json:"status"`
	CreatedAt      time.Time           `json:"created_at"`
}

// Store is the transient key/value backend for sessions. Implementations must
// support safe concurrent insert from independent request handlers.
type Store interface {
	// Put inserts or replaces a session with the given TTL.
	Put(ctx context.Context, sess *Session, ttl time.Duration) error

	// Get returns the session, or nil when it is unknown or expired.
	Get(ctx context.Context, id string) (*Session, error)

	// Delete removes a session. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error

	// Sweep removes every session older than maxAge and reports how many
	// were dropped. Backends with native TTL expiry may make this a no-op.
	Sweep(ctx context.Context, maxAge time.Duration) (int, error)

	// Close releases resources.
	Close() error
}

// Registry creates, looks up, and expires sessions on top of a Store.
type Registry struct {
	store  Store
	ttl    time.Duration
	logger *log.Logger
}

// NewRegistry builds a registry. A non-positive ttl falls back to DefaultTTL.
func NewRegistry(store Store, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{store: store, ttl: ttl}
}

// SetLogger installs a logger for sweep and bookkeeping diagnostics.
func (r *Registry) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// Create opens a new active session with a fresh collision-resistant token.
func (r *Registry) Create(ctx context.Context, conversationID, identity string, cfg assist.StreamConfig) (*Session, error) {
	sess := &Session{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Identity:       identity,
		Config:         cfg,
		Status:         StatusActive,
		CreatedAt:      time.Now().UTC(),
	}
	if err := r.store.Put(ctx, sess, r.ttl); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get looks up a session by id.
func (r *Registry) Get(ctx context.Context, id string) (*Session, error) {
	sess, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNotFound
	}
	return sess, nil
}

// SetStatus records a lifecycle transition. Only the coordinator that owns
// the session calls this.
func (r *Registry) SetStatus(ctx context.Context, sess *Session, status Status) error {
	sess.Status = status
	return r.store.Put(ctx, sess, r.ttl)
}

// Remove deletes a session. Safe to call on every exit path; removing an
// already-removed session is a no-op.
func (r *Registry) Remove(ctx context.Context, id string) error {
	return r.store.Delete(ctx, id)
}

// Sweep drops sessions older than the registry TTL regardless of status.
// Idempotent; meant to be driven by a periodic ticker.
func (r *Registry) Sweep(ctx context.Context) int {
	n, err := r.store.Sweep(ctx, r.ttl)
	if err != nil {
		if r.logger != nil {
			r.logger.Printf("session sweep failed: %v", err)
		}
		return 0
	}
	if n > 0 && r.logger != nil {
		r.logger.Printf("session sweep removed=%d", n)
	}
	return n
}

// Close releases the backing store.
func (r *Registry) Close() error {
	return r.store.Close()
}
