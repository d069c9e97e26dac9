package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/igianni84/woo-ai-assistant/internal/generator"
)

func TestGenerate_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"success": true,
			"result": {
				"response_text": "Shipping takes 3 to 5 days.",
				"model_used": "assist-small",
				"tokens_used": 12,
				"confidence": 0.93,
				"sources": [{"title": "Shipping policy"}]
			}
		}`))
	}))
	defer srv.Close()

	client, err := New(srv.URL, "sk-test", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := client.Generate(context.Background(), generator.Request{
		Message:        "How long does shipping take?",
		ConversationID: "conv-1",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.Text != "Shipping takes 3 to 5 days." {
		t.Errorf("unexpected text %q", result.Text)
	}
	if result.ModelUsed != "assist-small" || result.TokensUsed != 12 {
		t.Errorf("unexpected metadata: %+v", result)
	}
	if len(result.Sources) != 1 || result.Sources[0].Title != "Shipping policy" {
		t.Errorf("unexpected sources: %+v", result.Sources)
	}
}

func TestGenerate_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := New(srv.URL, "", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := client.Generate(context.Background(), generator.Request{Message: "hi"}); err == nil {
		t.Error("expected error on non-200 status")
	}
}

func TestGenerate_ReportedFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success": false, "error": "model overloaded"}`))
	}))
	defer srv.Close()

	client, err := New(srv.URL, "", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = client.Generate(context.Background(), generator.Request{Message: "hi"})
	if err == nil || !strings.Contains(err.Error(), "model overloaded") {
		t.Errorf("expected reported failure, got %v", err)
	}
}

func TestNew_InvalidURL(t *testing.T) {
	if _, err := New("://bad", "", nil); err == nil {
		t.Error("expected error for invalid base URL")
	}
}
