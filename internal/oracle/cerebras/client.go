// Package cerebras implements the oracle boundary against the Cerebras
// OpenAI-compatible chat completions API.
package cerebras

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/RonitGandotra05/agent-xray/internal/oracle"
)

const (
	// DefaultBaseURL is the Cerebras inference endpoint.
	DefaultBaseURL = "https://api.cerebras.ai/v1"

	// DefaultModel balances quality against the per-window latency budget.
	DefaultModel = "llama-3.3-70b"
)

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithModel sets the model name sent with each request.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// Client is an HTTP client for the Cerebras chat completions API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

var _ oracle.Client = (*Client)(nil)

// New creates a new Cerebras client.
func New(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		model:      DefaultModel,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends one completion request and returns the response text.
// All failures come back as *oracle.Error so callers can treat them as
// local window failures.
func (c *Client) Complete(ctx context.Context, req oracle.Request) (string, error) {
	apiReq := chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemInstructions},
			{Role: "user", Content: req.Prompt},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxOutputTokens,
	}

	body, err := json.Marshal(apiReq)
	if err != nil {
		return "", &oracle.Error{Message: "failed to marshal request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", &oracle.Error{Message: "failed to create request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &oracle.Error{Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &oracle.Error{Message: "failed to read response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error.Message != "" {
			return "", &oracle.Error{StatusCode: resp.StatusCode, Message: apiErr.Error.Message}
		}
		return "", &oracle.Error{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	var result chatCompletionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", &oracle.Error{Message: "failed to unmarshal response", Err: err}
	}
	if len(result.Choices) == 0 {
		return "", &oracle.Error{Message: "response contained no choices"}
	}

	return result.Choices[0].Message.Content, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// String implements fmt.Stringer for log output without leaking the key.
func (c *Client) String() string {
	return fmt.Sprintf("cerebras(%s, %s)", c.model, c.baseURL)
}
