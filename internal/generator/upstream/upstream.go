// Package upstream calls the external generation service over JSON HTTP.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/igianni84/woo-ai-assistant/internal/generator"
)

// HTTPClient abstracts the Do method for easier testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the generation service's /generate endpoint.
type Client struct {
	baseURL    *url.URL
	apiKey     string
	httpClient HTTPClient
	logger     *log.Logger
}

// New constructs a client for the given base URL. A nil httpClient gets a
// default with a 25 second timeout, inside the 30 second delivery cap.
func New(baseURL, apiKey string, httpClient HTTPClient) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid generator base URL: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 25 * time.Second}
	}
	return &Client{baseURL: parsed, apiKey: apiKey, httpClient: httpClient}, nil
}

// SetLogger installs a logger for request diagnostics.
func (c *Client) SetLogger(logger *log.Logger) {
	c.logger = logger
}

type generateResponse struct {
	Success bool             `json:"success"`
	Error   string           `json:"error,omitempty"`
	Result  generator.Result `json:"result"`
}

// Generate implements generator.Generator with a single upstream call.
func (c *Client) Generate(ctx context.Context, req generator.Request) (generator.Result, error) {
	start := time.Now()

	body, err := json.Marshal(req)
	if err != nil {
		return generator.Result{}, fmt.Errorf("marshal generate request: %w", err)
	}

	endpoint := c.baseURL.JoinPath("/v1/generate")
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return generator.Result{}, fmt.Errorf("build generate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return generator.Result{}, fmt.Errorf("generator request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return generator.Result{}, fmt.Errorf("read generator response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return generator.Result{}, fmt.Errorf("generator returned status %d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return generator.Result{}, fmt.Errorf("decode generator response: %w", err)
	}
	if !out.Success {
		if out.Error != "" {
			return generator.Result{}, fmt.Errorf("generator error: %s", out.Error)
		}
		return generator.Result{}, fmt.Errorf("generator reported failure")
	}

	if c.logger != nil {
		c.logger.Printf("generate total_ms=%d model=%s tokens=%d", time.Since(start).Milliseconds(), out.Result.ModelUsed, out.Result.TokensUsed)
	}
	return out.Result, nil
}
