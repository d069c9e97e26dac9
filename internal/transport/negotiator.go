// Package transport decides whether a client gets the push event stream or
// the buffered fallback payload.
package transport

import (
	"net/http"
	"strings"
)

// EventStreamMediaType is the accept-type that unambiguously requests push.
const EventStreamMediaType = "text/event-stream"

// defaultPushCapableHints matches user-agent classes known to handle SSE.
// Hints are spoofable, so they rank below the explicit signals.
var defaultPushCapableHints = []string{
	"mozilla",
	"chrome",
	"safari",
	"firefox",
	"edg",
	"opera",
}

// Negotiator picks the delivery transport for a request. The decision order
// is explicit-before-inferred: an Accept header or config flag always wins
// over a user-agent guess, and the default is the buffered fallback.
type Negotiator struct {
	hints []string
}

// NewNegotiator builds a negotiator with the default push-capable hint set.
func NewNegotiator() *Negotiator {
	return &Negotiator{hints: defaultPushCapableHints}
}

// SetHints replaces the user-agent hint classes (see LoadHints).
func (n *Negotiator) SetHints(hints []string) {
	if len(hints) > 0 {
		n.hints = hints
	}
}

// ChoosePush reports whether the response should be delivered as a push
// event stream.
//
//  1. Accept header naming text/event-stream: push, regardless of hints.
//  2. Explicit client flag requesting push: push.
//  3. User-agent matching a known push-capable class: push.
//  4. Otherwise: buffered fallback.
func (n *Negotiator) ChoosePush(r *http.Request, explicitPush bool) bool {
	if acceptsEventStream(r.Header.Get("Accept")) {
		return true
	}
	if explicitPush {
		return true
	}
	if n.matchesHint(r.UserAgent()) {
		return true
	}
	return false
}

func (n *Negotiator) matchesHint(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	if ua == "" {
		return false
	}
	for _, hint := range n.hints {
		if strings.Contains(ua, hint) {
			return true
		}
	}
	return false
}

func acceptsEventStream(accept string) bool {
	for _, part := range strings.Split(accept, ",") {
		mediaType := strings.TrimSpace(part)
		if i := strings.IndexByte(mediaType, ';'); i >= 0 {
			mediaType = strings.TrimSpace(mediaType[:i])
		}
		if strings.EqualFold(mediaType, EventStreamMediaType) {
			return true
		}
	}
	return false
}
