package loopback

import (
	"context"
	"errors"
	"strings"

	"github.com/igianni84/woo-ai-assistant/internal/generator"
)

// Ensure Generator implements the collaborator interface.
var _ generator.Generator = (*Generator)(nil)

// Generator echoes the user message back as the answer. Used in development
// and tests to exercise the full delivery pipeline without an upstream
// generation service.
type Generator struct{}

// New creates a loopback generator.
func New() *Generator {
	return &Generator{}
}

// Generate fabricates a deterministic answer from the request message.
func (g *Generator) Generate(ctx context.Context, req generator.Request) (generator.Result, error) {
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return generator.Result{}, errors.New("no message provided")
	}

	text := "[loopback] " + msg
	model := req.Model
	if model == "" {
		model = "loopback"
	}

	return generator.Result{
		Text:       text,
		ModelUsed:  model,
		TokensUsed: len(text)/4 + 1,
		Confidence: 1.0,
	}, nil
}
