// Package assist holds the wire-level request and response types shared by
// the delivery coordinator, the session registry, and the HTTP layer.
package assist

import (
	"errors"
	"strings"
	"time"

	"github.com/igianni84/woo-ai-assistant/internal/chunker"
)

// MaxMessageLength bounds the incoming user message.
const MaxMessageLength = 2000

// Stream configuration bounds. Client-supplied knobs are clamped into these
// ranges rather than rejected.
const (
	MinChunkDelayMs = 0
	MaxChunkDelayMs = 2000

	MinHeartbeatSeconds = 1
	MaxHeartbeatSeconds = 30

	MinChunks = 1
	MaxChunks = 1000

	DefaultChunkDelayMs     = 150
	DefaultHeartbeatSeconds = 15
	DefaultMaxChunks        = 100
)

// StreamRequest is one delivery request. Identity is established by the
// platform's auth layer before this core is invoked; it is either an
// authenticated user id or an anonymous client fingerprint.
type StreamRequest struct {
	Message        string            `json:"message"`
	ConversationID string            `json:"conversation_id,omitempty"`
	Identity       string            `json:"-"`
	UserContext    map[string]string `json:"user_context,omitempty"`
	Config         StreamConfig      `json:"stream_config"`
}

// Validate checks the request invariants that must hold before any session or
// generator work begins.
func (r *StreamRequest) Validate() error {
	msg := strings.TrimSpace(r.Message)
	if msg == "" {
		return errors.New("message is required")
	}
	if len(msg) > MaxMessageLength {
		return errors.New("message exceeds maximum length")
	}
	return nil
}

// StreamConfig carries the client-tunable delivery knobs.
type StreamConfig struct {
	ChunkSize        int  `json:"chunk_size"`
	ChunkDelayMs     int  `json:"chunk_delay_ms"`
	TypingIndicator  bool `json:"typing_indicator"`
	EnableSSE        bool `json:"enable_sse"`
	HeartbeatSeconds int  `json:"heartbeat_interval_s"`
	MaxChunks        int  `json:"max_chunks"`
}

// Clamp returns a bounded copy of the config. Zero values fall back to the
// defaults; out-of-range values are pulled to the nearest bound.
func (c StreamConfig) Clamp() StreamConfig {
	out := c
	if out.ChunkSize == 0 {
		out.ChunkSize = chunker.DefaultChunkSize
	}
	out.ChunkSize = clampInt(out.ChunkSize, chunker.MinChunkSize, chunker.MaxChunkSize)
	out.ChunkDelayMs = clampInt(out.ChunkDelayMs, MinChunkDelayMs, MaxChunkDelayMs)
	if out.HeartbeatSeconds == 0 {
		out.HeartbeatSeconds = DefaultHeartbeatSeconds
	}
	out.HeartbeatSeconds = clampInt(out.HeartbeatSeconds, MinHeartbeatSeconds, MaxHeartbeatSeconds)
	if out.MaxChunks == 0 {
		out.MaxChunks = DefaultMaxChunks
	}
	out.MaxChunks = clampInt(out.MaxChunks, MinChunks, MaxChunks)
	return out
}

// ChunkDelay returns the inter-chunk pacing delay.
func (c StreamConfig) ChunkDelay() time.Duration {
	return time.Duration(c.ChunkDelayMs) * time.Millisecond
}

// HeartbeatInterval returns the keep-alive cadence for idle push connections.
func (c StreamConfig) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatSeconds) * time.Second
}

// ResponseChunk is one bounded, sentence-aligned slice of the full answer.
// Concatenating chunk contents in index order reproduces the response text.
type ResponseChunk struct {
	Index          int       `json:"index"`
	Content        string    `json:"content"`
	IsFinal        bool      `json:"is_final"`
	ConversationID string    `json:"conversation_id"`
	Timestamp      time.Time `json:"timestamp"`
}

// DeliveryMetadata summarises one completed delivery.
type DeliveryMetadata struct {
	TotalChunks     int      `json:"total_chunks"`
	ExecutionTimeMs int64    `json:"execution_time"`
	ModelUsed       string   `json:"model_used"`
	TokensUsed      int      `json:"tokens_used"`
	Sources         []string `json:"sources,omitempty"`
}

// FallbackResponse is the single buffered payload returned when the client
// cannot consume an event stream.
type FallbackResponse struct {
	Success        bool             `json:"success"`
	Streaming      bool             `json:"streaming"`
	ConversationID string           `json:"conversation_id"`
	SessionID      string           `json:"session_id"`
	Chunks         []ResponseChunk  `json:"chunks"`
	Metadata       DeliveryMetadata `json:"metadata"`
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
