// Package ledger records per-delivery usage so operators can audit assistant
// consumption. Recording is best-effort: a ledger failure never blocks a
// delivery in flight.
package ledger

import (
	"context"
	"time"
)

// Transport labels which delivery path served a request.
type Transport string

const (
	TransportPush     Transport = "sse"
	TransportBuffered Transport = "buffered"
)

// Entry represents a single delivery written to the local ledger.
type Entry struct {
	ID             int64     `json:"id"`
	Identity       string    `json:"identity"`
	ConversationID string    `json:"conversation_id"`
	SessionID      string    `json:"session_id"`
	ModelUsed      string    `json:"model_used"`
	TokensUsed     int64     `json:"tokens_used"`
	ChunkCount     int64     `json:"chunk_count"`
	Transport      Transport `json:"transport"`
	DurationMs     int64     `json:"duration_ms"`
	Memo           string    `json:"memo"`
	CreatedAt      time.Time `json:"created_at"`
}

// Summary aggregates deliveries for one identity.
type Summary struct {
	Deliveries  int64 `json:"deliveries"`
	TokensUsed  int64 `json:"tokens_used"`
	ChunksTotal int64 `json:"chunks_total"`
}

// Store defines persistence behaviour for the ledger.
type Store interface {
	Record(ctx context.Context, entry Entry) error
	Summary(ctx context.Context, identity string) (Summary, error)
	ListRecent(ctx context.Context, identity string, limit int) ([]Entry, error)
	Close() error
}
