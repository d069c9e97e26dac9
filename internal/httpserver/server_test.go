package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/igianni84/woo-ai-assistant/internal/assist"
	"github.com/igianni84/woo-ai-assistant/internal/generator/loopback"
	ledgersqlite "github.com/igianni84/woo-ai-assistant/internal/ledger/sqlite"
	"github.com/igianni84/woo-ai-assistant/internal/ratelimit"
	"github.com/igianni84/woo-ai-assistant/internal/session"
	"github.com/igianni84/woo-ai-assistant/internal/streaming"
	"github.com/igianni84/woo-ai-assistant/internal/transport"
)

func newTestServer(t *testing.T, limit int64) *Server {
	t.Helper()
	registry := session.NewRegistry(session.NewInMemoryStore(), 0)
	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerWindow: limit})
	t.Cleanup(func() {
		_ = registry.Close()
		_ = limiter.Close()
	})
	store, err := ledgersqlite.New(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	coordinator := streaming.NewCoordinator(streaming.Config{
		Limiter:    limiter,
		Sessions:   registry,
		Negotiator: transport.NewNegotiator(),
		Generator:  loopback.New(),
		Ledger:     store,
	})
	return NewServer(coordinator, store)
}

func postStream(t *testing.T, srv *Server, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/assist/stream", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "curl/8.5.0")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestStreamBuffered(t *testing.T) {
	srv := newTestServer(t, 10)

	rec := postStream(t, srv, `{"message":"where is my order?"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
	}
	var payload assist.FallbackResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if !payload.Success || payload.Streaming {
		t.Errorf("unexpected flags: %+v", payload)
	}
	if len(payload.Chunks) == 0 || payload.ConversationID == "" {
		t.Errorf("incomplete payload: %+v", payload)
	}
}

func TestStreamPush(t *testing.T) {
	srv := newTestServer(t, 10)

	rec := postStream(t, srv, `{"message":"hello"}`, map[string]string{"Accept": "text/event-stream"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream; charset=utf-8" {
		t.Fatalf("unexpected content type %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "event: response_chunk\n") {
		t.Errorf("missing chunk frame:\n%s", body)
	}
	if !strings.Contains(body, "event: response_complete\n") {
		t.Errorf("missing completion frame:\n%s", body)
	}
}

func TestStreamValidationError(t *testing.T) {
	srv := newTestServer(t, 10)

	rec := postStream(t, srv, `{"message":"  "}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if resp["error"] == "" {
		t.Error("expected error message in body")
	}
}

func TestStreamMalformedBody(t *testing.T) {
	srv := newTestServer(t, 10)

	rec := postStream(t, srv, `{not json`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
}

func TestStreamRateLimited(t *testing.T) {
	srv := newTestServer(t, 1)
	headers := map[string]string{"X-Client-Id": "user:42"}

	if rec := postStream(t, srv, `{"message":"hi"}`, headers); rec.Code != http.StatusOK {
		t.Fatalf("first request: status %d", rec.Code)
	}
	rec := postStream(t, srv, `{"message":"hi"}`, headers)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestUsageSummary(t *testing.T) {
	srv := newTestServer(t, 10)
	headers := map[string]string{"X-Client-Id": "user:7"}

	if rec := postStream(t, srv, `{"message":"hi"}`, headers); rec.Code != http.StatusOK {
		t.Fatalf("delivery: status %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/assist/usage/summary", nil)
	req.Header.Set("X-Client-Id", "user:7")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var summary struct {
		Deliveries int64 `json:"deliveries"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.Deliveries != 1 {
		t.Errorf("expected 1 delivery, got %d", summary.Deliveries)
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, 10)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}
