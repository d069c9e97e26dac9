package ratelimit

import (
	"context"
	"log"
	"time"
)

// Store defines the interface for rate limit storage backends.
// Implementations can be in-memory (for single instance) or distributed (Redis, etc.).
type Store interface {
	// Allow checks whether a request from the identity fits in the current
	// window, incrementing the counter when it does. The counter must not
	// grow once the limit is reached.
	Allow(ctx context.Context, identity string, limit int64, window time.Duration) (allowed bool, remaining int64, err error)

	// Remaining returns how many requests the identity has left in the
	// current window without consuming one.
	Remaining(ctx context.Context, identity string, limit int64, window time.Duration) (int64, error)

	// Reset clears the counter for an identity.
	Reset(ctx context.Context, identity string) error

	// Close releases resources.
	Close() error
}

// Limiter gates streaming requests per caller identity using a fixed counting
// window and a pluggable storage backend.
// For single-instance deployments, use MemoryStore (default).
// For distributed/clustered deployments, use RedisStore.
type Limiter struct {
	store  Store
	limit  int64
	window time.Duration
	logger *log.Logger
}

// Config holds configuration for the rate limiter.
type Config struct {
	// Storage backend (optional, defaults to MemoryStore)
	Store Store

	// RequestsPerWindow is the number of streaming deliveries an identity
	// may start within one window.
	RequestsPerWindow int64

	// Window is the counting window duration.
	Window time.Duration
}

// DefaultConfig returns the production defaults: 10 streaming requests per
// hour per identity. Streaming is deliberately throttled harder than plain
// chat requests because each delivery holds a connection open.
func DefaultConfig() Config {
	return Config{
		RequestsPerWindow: 10,
		Window:            time.Hour,
	}
}

// NewLimiter creates a new rate limiter with the given configuration.
func NewLimiter(cfg Config) *Limiter {
	if cfg.RequestsPerWindow <= 0 {
		cfg.RequestsPerWindow = 10
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Hour
	}

	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}

	return &Limiter{
		store:  store,
		limit:  cfg.RequestsPerWindow,
		window: cfg.Window,
	}
}

// SetLogger installs a logger for store failures.
func (l *Limiter) SetLogger(logger *log.Logger) {
	l.logger = logger
}

// Allow checks if a streaming request from the given identity should proceed.
// This is advisory gating, not authoritative metering: when the backing store
// is unavailable the limiter fails open, because denying real-time assistance
// is worse than a missed rate-limit edge case.
func (l *Limiter) Allow(ctx context.Context, identity string) bool {
	if identity == "" {
		return true // No identity, allow by default
	}

	allowed, _, err := l.store.Allow(ctx, identity, l.limit, l.window)
	if err != nil {
		if l.logger != nil {
			l.logger.Printf("ratelimit store error, failing open identity=%s err=%v", identity, err)
		}
		return true
	}
	return allowed
}

// Remaining returns how many streaming requests the identity has left in the
// current window.
func (l *Limiter) Remaining(ctx context.Context, identity string) int64 {
	if identity == "" {
		return l.limit
	}

	remaining, err := l.store.Remaining(ctx, identity, l.limit, l.window)
	if err != nil {
		return l.limit // On error, report full budget
	}
	return remaining
}

// Reset clears the counter for a specific identity.
func (l *Limiter) Reset(ctx context.Context, identity string) error {
	return l.store.Reset(ctx, identity)
}

// Close stops the limiter and releases resources.
func (l *Limiter) Close() error {
	return l.store.Close()
}
