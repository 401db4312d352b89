// Package gemini implements an HTTP client for the Google Generative
// Language API with function calling support. The client is transport
// only: tool semantics live in internal/agent.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/artemkaplagg/upiontelegram-classbot/pkg/logger"
	"github.com/artemkaplagg/upiontelegram-classbot/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config holds Gemini client configuration.
type Config struct {
	// APIKey is the Google AI API key.
	APIKey string

	// BaseURL is the API base URL.
	BaseURL string

	// Model is the model identifier used for completions.
	Model string

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// MaxOutputTokens caps the completion length.
	MaxOutputTokens int

	// Temperature controls sampling randomness.
	Temperature float64
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:          apiKey,
		BaseURL:         "https://generativelanguage.googleapis.com/v1beta",
		Model:           "gemini-2.0-flash",
		Timeout:         60 * time.Second,
		MaxOutputTokens: 2048,
		Temperature:     0.7,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// TOOL CONTRACT
// ══════════════════════════════════════════════════════════════════════════════

// ToolDefinition describes a function the model may call.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
}

// ToolCall is the model's request to invoke a tool.
type ToolCall struct {
	Name string
	Args map[string]interface{}
}

// ToolResult is the outcome of a tool invocation fed back to the model.
// Content is a JSON document describing the result.
type ToolResult struct {
	Name    string
	Content string
	IsError bool
}

// Completion is the parsed model output of one generate call.
type Completion struct {
	// Text is the concatenated text parts, trimmed.
	Text string

	// ToolCalls lists the function calls requested by the model.
	ToolCalls []ToolCall

	// FinishReason is the raw finish reason from the API.
	FinishReason string

	// ModelContent is the raw model message, to be appended to the
	// conversation before sending tool results back.
	ModelContent Content
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is an HTTP client for the Gemini generateContent endpoint.
type Client struct {
	config     Config
	httpClient *http.Client
	retrier    *retry.Retrier
	log        *logger.Logger
}

// NewClient creates a new Gemini client.
func NewClient(cfg Config, log *logger.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConfig(cfg.APIKey).BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultConfig(cfg.APIKey).Model
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		retrier: retry.LLMRetrier(),
		log:     log.With(logger.Component("gemini")),
	}
}

// Generate sends a conversation with tool declarations and returns the
// parsed completion. Rate limits and server errors are retried with
// backoff; other API errors fail immediately.
func (c *Client) Generate(ctx context.Context, systemPrompt string, contents []Content, tools []ToolDefinition) (*Completion, error) {
	if c.config.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key not configured")
	}

	reqBody := Request{
		Contents: contents,
		GenerationConfig: &GenerationConfig{
			Temperature:     c.config.Temperature,
			MaxOutputTokens: c.config.MaxOutputTokens,
		},
	}

	if systemPrompt != "" {
		reqBody.SystemInstruction = &Content{
			Parts: []Part{{Text: systemPrompt}},
		}
	}

	if len(tools) > 0 {
		declarations := make([]FunctionDeclaration, len(tools))
		for i, t := range tools {
			declarations[i] = FunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			}
		}
		reqBody.Tools = []Tool{{FunctionDeclarations: declarations}}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.config.BaseURL, c.config.Model, c.config.APIKey)

	start := time.Now()

	var apiResp Response
	err = c.retrier.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.Retryable(fmt.Errorf("request failed: %w", err))
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.Retryable(fmt.Errorf("failed to read response: %w", err))
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return retry.Retryable(fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncate(string(body), 200)))
		}
		if resp.StatusCode != http.StatusOK {
			return retry.Permanent(fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncate(string(body), 200)))
		}

		apiResp = Response{}
		if err := json.Unmarshal(body, &apiResp); err != nil {
			return retry.Permanent(fmt.Errorf("failed to parse response: %w", err))
		}
		if apiResp.Error != nil {
			return retry.Permanent(fmt.Errorf("API error %d: %s", apiResp.Error.Code, apiResp.Error.Message))
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	if len(apiResp.Candidates) == 0 {
		return nil, fmt.Errorf("gemini: no completion returned")
	}

	candidate := apiResp.Candidates[0]

	completion := &Completion{
		FinishReason: candidate.FinishReason,
		ModelContent: candidate.Content,
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if part.Text != "" {
			text.WriteString(part.Text)
		}
		if part.FunctionCall != nil {
			completion.ToolCalls = append(completion.ToolCalls, ToolCall{
				Name: part.FunctionCall.Name,
				Args: part.FunctionCall.Args,
			})
		}
	}
	completion.Text = strings.TrimSpace(text.String())

	c.log.Debug("completion received",
		logger.Latency(time.Since(start)),
		logger.Int("tool_calls", len(completion.ToolCalls)),
		logger.Int("text_len", len(completion.Text)),
	)

	return completion, nil
}

// UserText builds a user message from plain text.
func UserText(text string) Content {
	return Content{
		Role:  "user",
		Parts: []Part{{Text: text}},
	}
}

// FunctionResults builds a function-role message carrying tool results
// back to the model.
func FunctionResults(results ...ToolResult) Content {
	parts := make([]Part, 0, len(results))
	for _, r := range results {
		parts = append(parts, Part{
			FunctionResponse: &FunctionResponse{
				Name: r.Name,
				Response: map[string]interface{}{
					"content":  r.Content,
					"is_error": r.IsError,
				},
			},
		})
	}

	return Content{
		Role:  "function",
		Parts: parts,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
