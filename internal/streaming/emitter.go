package streaming

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Emitter frames events onto one HTTP response using the text/event-stream
// convention: an event name line, a data line with the JSON payload, a blank
// line, then a flush so nothing sits in intermediate buffers.
type Emitter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	opened  bool
}

// NewEmitter wraps a response writer for push delivery.
func NewEmitter(w http.ResponseWriter) *Emitter {
	flusher, _ := w.(http.Flusher)
	return &Emitter{w: w, flusher: flusher}
}

// Open sets the streaming response headers. Must be called before the first
// Emit and exactly once.
func (e *Emitter) Open() {
	if e.opened {
		return
	}
	e.w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	e.w.Header().Set("Cache-Control", "no-cache")
	e.w.Header().Set("Connection", "keep-alive")
	e.w.Header().Set("X-Accel-Buffering", "no")
	e.opened = true
}

// Opened reports whether headers have been committed, i.e. whether errors can
// still be returned as a plain HTTP status.
func (e *Emitter) Opened() bool {
	return e.opened
}

// Emit writes one event frame and flushes it. A write error means the client
// is gone; the caller should abort the chunk loop and release the session.
func (e *Emitter) Emit(ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.EventType(), err)
	}
	if _, err := fmt.Fprintf(e.w, "event: %s\n", ev.EventType()); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	if e.flusher != nil {
		e.flusher.Flush()
	}
	return nil
}
