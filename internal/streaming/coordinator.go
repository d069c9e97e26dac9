package streaming

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/igianni84/woo-ai-assistant/internal/assist"
	"github.com/igianni84/woo-ai-assistant/internal/chunker"
	"github.com/igianni84/woo-ai-assistant/internal/generator"
	"github.com/igianni84/woo-ai-assistant/internal/ledger"
	"github.com/igianni84/woo-ai-assistant/internal/metrics"
	"github.com/igianni84/woo-ai-assistant/internal/ratelimit"
	"github.com/igianni84/woo-ai-assistant/internal/session"
	"github.com/igianni84/woo-ai-assistant/internal/transport"
)

// genericErrorMessage is the only failure text that ever reaches the wire
// after streaming has begun. Internal detail stays in the logs.
const genericErrorMessage = "The assistant is unavailable right now. Please try again."

// Coordinator drives one delivery end to end: validation, rate limiting,
// session bookkeeping, the single generator call, chunking, transport
// negotiation, and either paced push emission or the buffered fallback.
type Coordinator struct {
	limiter    *ratelimit.Limiter
	sessions   *session.Registry
	negotiator *transport.Negotiator
	generator  generator.Generator
	ledger     ledger.Store
	metrics    *metrics.Collector
	model      string
	logger     *log.Logger
	logLevel   string
}

// Config wires the coordinator's collaborators. Ledger and Metrics are
// optional.
type Config struct {
	Limiter    *ratelimit.Limiter
	Sessions   *session.Registry
	Negotiator *transport.Negotiator
	Generator  generator.Generator
	Ledger     ledger.Store
	Metrics    *metrics.Collector
	Model      string
}

// NewCoordinator builds a coordinator from its collaborators.
func NewCoordinator(cfg Config) *Coordinator {
	negotiator := cfg.Negotiator
	if negotiator == nil {
		negotiator = transport.NewNegotiator()
	}
	return &Coordinator{
		limiter:    cfg.Limiter,
		sessions:   cfg.Sessions,
		negotiator: negotiator,
		generator:  cfg.Generator,
		ledger:     cfg.Ledger,
		metrics:    cfg.Metrics,
		model:      cfg.Model,
	}
}

// SetLogger installs a logger and level ("debug" enables chatty output).
func (c *Coordinator) SetLogger(level string, logger *log.Logger) {
	c.logLevel = level
	c.logger = logger
}

func (c *Coordinator) debugf(format string, args ...any) {
	if c.logLevel == "debug" && c.logger != nil {
		c.logger.Printf(format, args...)
	}
}

// Deliver runs the full pipeline for one request. When the buffered fallback
// is chosen it returns the payload for the caller to serialize; after a push
// stream it returns (nil, nil) because the response has already been written.
// Errors are only returned before any output is sent, so the caller can still
// answer with a plain HTTP status.
func (c *Coordinator) Deliver(ctx context.Context, w http.ResponseWriter, r *http.Request, req assist.StreamRequest) (*assist.FallbackResponse, error) {
	start := time.Now()

	if err := req.Validate(); err != nil {
		c.countError("validation")
		return nil, &ValidationError{Reason: err.Error()}
	}
	if !c.limiter.Allow(ctx, req.Identity) {
		if c.metrics != nil {
			c.metrics.RecordRateLimitHit()
		}
		c.countError("rate_limit")
		return nil, &RateLimitError{Identity: req.Identity}
	}

	cfg := req.Config.Clamp()
	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.New().String()
	}

	// The whole delivery, pacing included, runs under the session timeout.
	ctx, cancel := context.WithTimeout(ctx, session.StreamTimeout)
	defer cancel()

	sess, err := c.sessions.Create(ctx, conversationID, req.Identity, cfg)
	if err != nil {
		// Session store trouble must not block delivery: continue with an
		// unregistered session and let the store recover on its own.
		if c.logger != nil {
			c.logger.Printf("session create failed, continuing unregistered: %v", &SessionError{Err: err})
		}
		sess = &session.Session{
			ID:             uuid.New().String(),
			ConversationID: conversationID,
			Identity:       req.Identity,
			Config:         cfg,
			Status:         session.StatusActive,
			CreatedAt:      time.Now().UTC(),
		}
	}
	// Release on every exit path. The request context may already be gone,
	// so cleanup runs on a fresh one.
	defer func() {
		releaseCtx, releaseCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer releaseCancel()
		if err := c.sessions.Remove(releaseCtx, sess.ID); err != nil && c.logger != nil {
			c.logger.Printf("session release failed id=%s err=%v", sess.ID, &SessionError{Err: err})
		}
	}()

	result, err := c.generator.Generate(ctx, generator.Request{
		Message:        req.Message,
		ConversationID: conversationID,
		Context:        req.UserContext,
		Model:          c.model,
	})
	if err != nil {
		c.countError("service")
		return nil, &ServiceError{Err: err}
	}

	parts := chunker.Split(result.Text, cfg.ChunkSize)
	parts = chunker.MergeTail(parts, cfg.MaxChunks)
	it := NewChunkIterator(conversationID, parts)

	meta := assist.DeliveryMetadata{
		TotalChunks: it.Len(),
		ModelUsed:   result.ModelUsed,
		TokensUsed:  result.TokensUsed,
		Sources:     sourceTitles(result.Sources),
	}

	if c.negotiator.ChoosePush(r, cfg.EnableSSE) {
		if c.metrics != nil {
			c.metrics.RecordStreamStart()
		}
		emitted := c.streamPush(ctx, w, sess, it, meta, start)
		if c.metrics != nil {
			c.metrics.RecordStreamEnd()
		}
		c.count(ledger.TransportPush, meta, emitted, start)
		c.record(sess, meta, ledger.TransportPush, emitted, start)
		return nil, nil
	}

	chunks := it.Collect()
	meta.ExecutionTimeMs = time.Since(start).Milliseconds()
	payload := &assist.FallbackResponse{
		Success:        true,
		Streaming:      false,
		ConversationID: conversationID,
		SessionID:      sess.ID,
		Chunks:         chunks,
		Metadata:       meta,
	}
	if err := c.sessions.SetStatus(ctx, sess, session.StatusCompleted); err != nil {
		c.debugf("session status update failed id=%s err=%v", sess.ID, err)
	}
	c.count(ledger.TransportBuffered, meta, len(chunks), start)
	c.record(sess, meta, ledger.TransportBuffered, len(chunks), start)
	c.debugf("assist.deliver buffered conv=%s chunks=%d total_ms=%d", conversationID, len(chunks), meta.ExecutionTimeMs)
	return payload, nil
}

// streamPush emits the chunk sequence over SSE with pacing and heartbeats.
// Returns the number of chunks that reached the wire. A write failure means
// the client disconnected: the loop aborts and the caller releases the
// session, with no retry of already-attempted chunks.
func (c *Coordinator) streamPush(ctx context.Context, w http.ResponseWriter, sess *session.Session, it *ChunkIterator, meta assist.DeliveryMetadata, start time.Time) int {
	cfg := sess.Config
	em := NewEmitter(w)
	em.Open()

	heartbeat := time.NewTicker(cfg.HeartbeatInterval())
	defer heartbeat.Stop()

	if cfg.TypingIndicator {
		if err := em.Emit(TypingStartEvent{ConversationID: sess.ConversationID, Timestamp: time.Now().UTC()}); err != nil {
			c.debugf("typing_start write failed conv=%s err=%v", sess.ConversationID, err)
			return 0
		}
	}

	emitted := 0
	for {
		chunk, ok := it.Next()
		if !ok {
			break
		}
		if err := em.Emit(ChunkEvent{ResponseChunk: chunk}); err != nil {
			c.debugf("chunk write failed conv=%s index=%d err=%v", sess.ConversationID, chunk.Index, err)
			return emitted
		}
		emitted++
		if chunk.IsFinal {
			break
		}
		if err := c.pace(ctx, em, cfg.ChunkDelay(), heartbeat.C); err != nil {
			if ctx.Err() == context.DeadlineExceeded {
				// Timed out with the transport still alive: tell the client
				// to stop waiting instead of going silent.
				_ = em.Emit(ErrorEvent{ConversationID: sess.ConversationID, Message: genericErrorMessage, Timestamp: time.Now().UTC()})
			}
			c.debugf("stream aborted conv=%s emitted=%d err=%v", sess.ConversationID, emitted, err)
			return emitted
		}
	}

	if cfg.TypingIndicator {
		if err := em.Emit(TypingStopEvent{ConversationID: sess.ConversationID, Timestamp: time.Now().UTC()}); err != nil {
			return emitted
		}
	}

	meta.ExecutionTimeMs = time.Since(start).Milliseconds()
	if err := em.Emit(CompleteEvent{
		ConversationID: sess.ConversationID,
		SessionID:      sess.ID,
		Metadata:       meta,
		Timestamp:      time.Now().UTC(),
	}); err != nil {
		return emitted
	}

	if err := c.sessions.SetStatus(ctx, sess, session.StatusCompleted); err != nil {
		c.debugf("session status update failed id=%s err=%v", sess.ID, err)
	}
	c.debugf("assist.deliver push conv=%s chunks=%d total_ms=%d", sess.ConversationID, emitted, meta.ExecutionTimeMs)
	return emitted
}

// pace waits out the inter-chunk delay. The wait is cooperative: heartbeats
// keep flowing and context cancellation cuts it short. This is pacing, not
// backpressure; the client has no flow-control signal in this design.
func (c *Coordinator) pace(ctx context.Context, em *Emitter, delay time.Duration, heartbeatC <-chan time.Time) error {
	if delay <= 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-heartbeatC:
			if err := em.Emit(HeartbeatEvent{Timestamp: time.Now().UTC()}); err != nil {
				return err
			}
		case <-timer.C:
			return nil
		}
	}
}

func (c *Coordinator) count(tr ledger.Transport, meta assist.DeliveryMetadata, chunks int, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordDelivery(string(tr), chunks, time.Since(start))
	c.metrics.RecordTokenUsage(meta.ModelUsed, int64(meta.TokensUsed))
}

func (c *Coordinator) countError(kind string) {
	if c.metrics != nil {
		c.metrics.RecordError(kind)
	}
}

// record writes one best-effort ledger entry. Ledger failures never affect
// the delivery outcome.
func (c *Coordinator) record(sess *session.Session, meta assist.DeliveryMetadata, tr ledger.Transport, chunks int, start time.Time) {
	if c.ledger == nil || sess.Identity == "" {
		return
	}
	entry := ledger.Entry{
		Identity:       sess.Identity,
		ConversationID: sess.ConversationID,
		SessionID:      sess.ID,
		ModelUsed:      meta.ModelUsed,
		TokensUsed:     int64(meta.TokensUsed),
		ChunkCount:     int64(chunks),
		Transport:      tr,
		DurationMs:     time.Since(start).Milliseconds(),
		Memo:           "assist.deliver",
	}
	recordCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.ledger.Record(recordCtx, entry); err != nil && c.logger != nil {
		c.logger.Printf("ledger record failed conv=%s err=%v", sess.ConversationID, err)
	}
}

func sourceTitles(sources []generator.Source) []string {
	if len(sources) == 0 {
		return nil
	}
	titles := make([]string, 0, len(sources))
	for _, s := range sources {
		titles = append(titles, s.Title)
	}
	return titles
}
