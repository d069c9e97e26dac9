package streaming

import "fmt"

// ValidationError rejects malformed requests before any session or generator
// work begins. Never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + e.Reason
}

// RateLimitError reports that the caller exhausted the streaming budget for
// the current window. Surfaced with a distinct status so clients can back off.
type RateLimitError struct {
	Identity string
}

func (e *RateLimitError) Error() string {
	return "rate limit exceeded"
}

// ServiceError wraps generator or transport failures. The wrapped cause is
// for logs only; the wire sees a generic message.
type ServiceError struct {
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("service unavailable: %v", e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// SessionError reports internal session bookkeeping failures. Logged and
// swallowed where it would otherwise block delivery.
type SessionError struct {
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session error: %v", e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}
