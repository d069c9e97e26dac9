package streaming

import (
	"time"

	"github.com/igianni84/woo-ai-assistant/internal/assist"
)

// EventType names the push-path wire events.
type EventType string

const (
	EventTypingStart      EventType = "typing_start"
	EventResponseChunk    EventType = "response_chunk"
	EventTypingStop       EventType = "typing_stop"
	EventResponseComplete EventType = "response_complete"
	EventResponseError    EventType = "response_error"
	EventHeartbeat        EventType = "heartbeat"
)

// Event is one frame of the push stream. Each variant carries its own
// strongly-typed payload; the payload struct is what gets serialized into the
// data field of the SSE frame.
type Event interface {
	EventType() EventType
}

// TypingStartEvent signals that the assistant is composing an answer.
type TypingStartEvent struct {
	ConversationID string    `json:"conversation_id"`
	Timestamp      time.Time `json:"timestamp"`
}

func (TypingStartEvent) EventType() EventType { return EventTypingStart }

// TypingStopEvent signals that no further chunks will carry new text.
type TypingStopEvent struct {
	ConversationID string    `json:"conversation_id"`
	Timestamp      time.Time `json:"timestamp"`
}

func (TypingStopEvent) EventType() EventType { return EventTypingStop }

// ChunkEvent delivers one slice of the answer.
type ChunkEvent struct {
	assist.ResponseChunk
}

func (ChunkEvent) EventType() EventType { return EventResponseChunk }

// CompleteEvent closes a successful stream with delivery metadata.
type CompleteEvent struct {
	ConversationID string                  `json:"conversation_id"`
	SessionID      string                  `json:"session_id"`
	Metadata       assist.DeliveryMetadata `json:"metadata"`
	Timestamp      time.Time               `json:"timestamp"`
}

func (CompleteEvent) EventType() EventType { return EventResponseComplete }

// ErrorEvent terminates a stream after a failure. Message is always generic;
// internal detail stays in the logs.
type ErrorEvent struct {
	ConversationID string    `json:"conversation_id"`
	Message        string    `json:"message"`
	Timestamp      time.Time `json:"timestamp"`
}

func (ErrorEvent) EventType() EventType { return EventResponseError }

// HeartbeatEvent keeps the connection alive between paced chunks.
type HeartbeatEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (HeartbeatEvent) EventType() EventType { return EventHeartbeat }
