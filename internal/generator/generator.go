// Package generator defines the boundary with the AI response generator.
// The generator produces one complete answer per call; all incremental
// delivery behaviour lives on this side of the boundary.
package generator

import (
	"context"
)

// Request carries everything the generator needs for one answer.
type Request struct {
	Message        string            `json:"message"`
	ConversationID string            `json:"conversation_id"`
	Context        map[string]string `json:"context,omitempty"`
	Model          string            `json:"model,omitempty"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	Temperature    float64           `json:"temperature,omitempty"`
}

// Source is a knowledge-base citation attached to an answer.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// Result is the generator's complete answer plus metadata.
type Result struct {
	Text       string   `json:"response_text"`
	ModelUsed  string   `json:"model_used"`
	TokensUsed int      `json:"tokens_used"`
	Confidence float64  `json:"confidence"`
	Sources    []Source `json:"sources,omitempty"`
}

// Generator produces one complete response per call. The call is atomic: no
// partial or streaming output, no automatic retry by the caller. Retries, if
// any, belong behind this interface.
type Generator interface {
	Generate(ctx context.Context, req Request) (Result, error)
}
