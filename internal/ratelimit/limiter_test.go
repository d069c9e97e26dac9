package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLimiter_AllowSequence(t *testing.T) {
	limiter := NewLimiter(Config{RequestsPerWindow: 10, Window: time.Hour})
	defer limiter.Close()

	ctx := context.Background()
	identity := "user:42"

	// Calls 1-10 inside one window are allowed
	for i := 1; i <= 10; i++ {
		if !limiter.Allow(ctx, identity) {
			t.Errorf("call %d should be allowed", i)
		}
	}

	// Call 11 is denied
	if limiter.Allow(ctx, identity) {
		t.Error("11th call should be denied")
	}

	// Different identity has its own budget
	if !limiter.Allow(ctx, "visitor:abc") {
		t.Error("different identity should be allowed")
	}
}

func TestLimiter_DeniedCallDoesNotConsume(t *testing.T) {
	limiter := NewLimiter(Config{RequestsPerWindow: 2, Window: time.Hour})
	defer limiter.Close()

	ctx := context.Background()
	limiter.Allow(ctx, "u")
	limiter.Allow(ctx, "u")

	// Hammer the denied path; remaining must stay at zero, not go negative.
	for i := 0; i < 5; i++ {
		limiter.Allow(ctx, "u")
	}
	if remaining := limiter.Remaining(ctx, "u"); remaining != 0 {
		t.Errorf("expected 0 remaining, got %d", remaining)
	}
}

func TestLimiter_WindowRollover(t *testing.T) {
	limiter := NewLimiter(Config{RequestsPerWindow: 1, Window: 30 * time.Millisecond})
	defer limiter.Close()

	ctx := context.Background()
	if !limiter.Allow(ctx, "u") {
		t.Fatal("first call should be allowed")
	}
	if limiter.Allow(ctx, "u") {
		t.Fatal("second call in same window should be denied")
	}

	time.Sleep(50 * time.Millisecond)

	if !limiter.Allow(ctx, "u") {
		t.Error("call after window expiry should be allowed")
	}
}

func TestLimiter_EmptyIdentity(t *testing.T) {
	limiter := NewLimiter(DefaultConfig())
	defer limiter.Close()

	// Empty identity should always be allowed
	for i := 0; i < 20; i++ {
		if !limiter.Allow(context.Background(), "") {
			t.Fatal("empty identity should be allowed")
		}
	}
}

func TestLimiter_Reset(t *testing.T) {
	limiter := NewLimiter(Config{RequestsPerWindow: 1, Window: time.Hour})
	defer limiter.Close()

	ctx := context.Background()
	limiter.Allow(ctx, "u")
	if limiter.Allow(ctx, "u") {
		t.Error("should be denied before reset")
	}

	if err := limiter.Reset(ctx, "u"); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	if !limiter.Allow(ctx, "u") {
		t.Error("should be allowed after reset")
	}
}

func TestLimiter_Remaining(t *testing.T) {
	limiter := NewLimiter(Config{RequestsPerWindow: 10, Window: time.Hour})
	defer limiter.Close()

	ctx := context.Background()
	if remaining := limiter.Remaining(ctx, "u"); remaining != 10 {
		t.Errorf("expected 10 remaining, got %d", remaining)
	}

	for i := 0; i < 3; i++ {
		limiter.Allow(ctx, "u")
	}
	if remaining := limiter.Remaining(ctx, "u"); remaining != 7 {
		t.Errorf("expected 7 remaining, got %d", remaining)
	}
}

type failingStore struct{}

func (failingStore) Allow(ctx context.Context, identity string, limit int64, window time.Duration) (bool, int64, error) {
	return false, 0, errors.New("store unavailable")
}

func (failingStore) Remaining(ctx context.Context, identity string, limit int64, window time.Duration) (int64, error) {
	return 0, errors.New("store unavailable")
}

func (failingStore) Reset(ctx context.Context, identity string) error { return nil }
func (failingStore) Close() error                                     { return nil }

func TestLimiter_FailsOpenOnStoreError(t *testing.T) {
	limiter := NewLimiter(Config{Store: failingStore{}, RequestsPerWindow: 1, Window: time.Hour})
	defer limiter.Close()

	if !limiter.Allow(context.Background(), "u") {
		t.Error("limiter should fail open when the store errors")
	}
	if remaining := limiter.Remaining(context.Background(), "u"); remaining != 1 {
		t.Errorf("expected full budget on store error, got %d", remaining)
	}
}

func TestMemoryStore_Cleanup(t *testing.T) {
	store := NewMemoryStoreWithCleanup(50 * time.Millisecond)
	defer store.Close()

	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		store.Allow(ctx, id, 10, 20*time.Millisecond)
	}
	if n := store.ActiveWindows(); n != 3 {
		t.Fatalf("expected 3 active windows, got %d", n)
	}

	// Wait for the windows to expire and the cleanup pass to run.
	time.Sleep(150 * time.Millisecond)

	if n := store.ActiveWindows(); n != 0 {
		t.Errorf("expected 0 active windows after cleanup, got %d", n)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.RequestsPerWindow != 10 {
		t.Errorf("expected RequestsPerWindow=10, got %d", cfg.RequestsPerWindow)
	}
	if cfg.Window != time.Hour {
		t.Errorf("expected Window=1h, got %v", cfg.Window)
	}
}
