package loopback

import (
	"context"
	"testing"

	"github.com/igianni84/woo-ai-assistant/internal/generator"
)

func TestGenerate_EchoesMessage(t *testing.T) {
	g := New()

	result, err := g.Generate(context.Background(), generator.Request{Message: "  Where is my order?  "})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.Text != "[loopback] Where is my order?" {
		t.Errorf("unexpected text %q", result.Text)
	}
	if result.ModelUsed != "loopback" {
		t.Errorf("unexpected model %q", result.ModelUsed)
	}
	if result.TokensUsed == 0 {
		t.Error("expected non-zero token estimate")
	}
}

func TestGenerate_EmptyMessage(t *testing.T) {
	g := New()

	if _, err := g.Generate(context.Background(), generator.Request{Message: "   "}); err == nil {
		t.Error("expected error for empty message")
	}
}
