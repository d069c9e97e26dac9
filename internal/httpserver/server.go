// Package httpserver exposes the delivery coordinator over HTTP. It owns
// request decoding, identity extraction, and the mapping from delivery errors
// to status codes; everything after that is the coordinator's job.
package httpserver

import (
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/igianni84/woo-ai-assistant/internal/assist"
	"github.com/igianni84/woo-ai-assistant/internal/ledger"
	"github.com/igianni84/woo-ai-assistant/internal/metrics"
	"github.com/igianni84/woo-ai-assistant/internal/streaming"
	"github.com/igianni84/woo-ai-assistant/internal/version"
)

// maxRequestBody caps the decoded request size. Messages top out at 2000
// characters, so anything near this limit is garbage.
const maxRequestBody = 64 << 10

// Server wires HTTP routes to the streaming coordinator.
type Server struct {
	coordinator *streaming.Coordinator
	ledger      ledger.Store
	metrics     *metrics.Collector
	defaults    assist.StreamConfig
	logger      *log.Logger
	logLevel    string
}

// NewServer builds a server around the coordinator. The ledger is optional;
// without it the usage endpoints answer 404.
func NewServer(coordinator *streaming.Coordinator, ledgerStore ledger.Store) *Server {
	return &Server{coordinator: coordinator, ledger: ledgerStore}
}

// SetLogger installs a logger and level for request diagnostics.
func (s *Server) SetLogger(level string, logger *log.Logger) {
	s.logLevel = level
	s.logger = logger
}

// SetDefaults installs the delivery config applied when a request carries no
// stream_config of its own.
func (s *Server) SetDefaults(cfg assist.StreamConfig) {
	s.defaults = cfg
}

// SetMetrics enables the /metrics endpoint backed by the given collector.
func (s *Server) SetMetrics(collector *metrics.Collector) {
	s.metrics = collector
}

func (s *Server) debugf(format string, args ...any) {
	if s.logLevel == "debug" && s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

// Router returns a configured chi router for embedding in HTTP servers.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Get("/metrics", s.handleMetrics)
	}
	r.Route("/v1/assist", func(api chi.Router) {
		api.Post("/stream", s.handleStream)
		if s.ledger != nil {
			api.Get("/usage/summary", s.handleUsageSummary)
			api.Get("/usage/recent", s.handleUsageRecent)
		}
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": version.Version,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	_, _ = w.Write([]byte(metrics.FormatPrometheus(s.metrics.GetSnapshot())))
}

// handleStream decodes one delivery request and hands it to the coordinator.
// On the push path the coordinator writes the whole response itself; here we
// only serialize the buffered payload or a pre-output error.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	var req assist.StreamRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, errors.New("malformed request body"))
		return
	}
	req.Identity = clientIdentity(r)
	if req.Config == (assist.StreamConfig{}) {
		req.Config = s.defaults
	}

	payload, err := s.coordinator.Deliver(r.Context(), w, r, req)
	if err != nil {
		s.respondDeliveryError(w, err)
		return
	}
	if payload != nil {
		s.respondJSON(w, http.StatusOK, payload)
	}
}

func (s *Server) respondDeliveryError(w http.ResponseWriter, err error) {
	var (
		verr *streaming.ValidationError
		rerr *streaming.RateLimitError
		serr *streaming.ServiceError
	)
	switch {
	case errors.As(err, &verr):
		s.respondError(w, http.StatusBadRequest, err)
	case errors.As(err, &rerr):
		w.Header().Set("Retry-After", "3600")
		s.respondError(w, http.StatusTooManyRequests, err)
	case errors.As(err, &serr):
		s.debugf("delivery failed: %v", err)
		s.respondError(w, http.StatusServiceUnavailable, errors.New("assistant temporarily unavailable"))
	default:
		if s.logger != nil {
			s.logger.Printf("unexpected delivery error: %v", err)
		}
		s.respondError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

func (s *Server) handleUsageSummary(w http.ResponseWriter, r *http.Request) {
	identity := clientIdentity(r)
	summary, err := s.ledger.Summary(r.Context(), identity)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, errors.New("usage lookup failed"))
		return
	}
	s.respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleUsageRecent(w http.ResponseWriter, r *http.Request) {
	identity := clientIdentity(r)
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	entries, err := s.ledger.ListRecent(r.Context(), identity, limit)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, errors.New("usage lookup failed"))
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	if payload == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) respondError(w http.ResponseWriter, status int, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	s.respondJSON(w, status, map[string]any{"error": err.Error()})
}

// clientIdentity resolves who is calling: an authenticated client id when the
// platform forwarded one, otherwise the remote IP. The RealIP middleware has
// already unwrapped proxy headers by the time this runs.
func clientIdentity(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-Client-Id")); id != "" {
		return id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
