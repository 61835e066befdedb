package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Client is the provider collaborator: one chat completion per call.
// Implementations must be safe for concurrent use.
type Client interface {
	Chat(ctx context.Context, messages []Message, tools []ToolDefinition) (*Response, error)
	Model() string
}

// HTTPClient talks to any OpenAI-compatible /chat/completions endpoint.
type HTTPClient struct {
	baseURL     string
	apiKey      string
	model       string
	maxRetries  int
	temperature *float64
	maxTokens   *int
	httpClient  *http.Client
	logger      *slog.Logger
}

// ClientOptions configures optional HTTPClient behavior.
type ClientOptions struct {
	MaxRetries  int      // attempts beyond the first on retryable errors (default 2)
	Temperature *float64 // nil = omit from requests
	MaxTokens   *int     // nil = omit from requests
	Timeout     time.Duration
}

// NewHTTPClient builds a client for baseURL (e.g. "https://api.openai.com/v1").
func NewHTTPClient(baseURL, apiKey, model string, opts ClientOptions, logger *slog.Logger) *HTTPClient {
	if logger == nil {
		logger = slog.Default()
	}
	retries := opts.MaxRetries
	if retries <= 0 {
		retries = 2
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &HTTPClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		model:       model,
		maxRetries:  retries,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger.With("component", "llm"),
	}
}

// Model returns the configured model identifier.
func (c *HTTPClient) Model() string { return c.model }

type chatRequest struct {
	Model       string           `json:"model"`
	Messages    []Message        `json:"messages"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
	Temperature *float64         `json:"temperature,omitempty"`
	MaxTokens   *int             `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string     `json:"content"`
			ToolCalls []ToolCall `json:"tool_calls,omitempty"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Chat sends one completion request, retrying transient failures with
// exponential backoff. Context overflow and other fatal kinds return
// immediately so callers can compact or abort.
func (c *HTTPClient) Chat(ctx context.Context, messages []Message, tools []ToolDefinition) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * 2 * time.Second
			if apiErr, ok := lastErr.(*APIError); ok && apiErr.RetryAfterSec > 0 {
				delay = time.Duration(apiErr.RetryAfterSec) * time.Second
			}
			c.logger.Warn("retrying chat completion", "attempt", attempt, "delay", delay, "err", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := c.chatOnce(ctx, messages, tools)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		apiErr, ok := err.(*APIError)
		if !ok || !apiErr.Kind().Retryable() {
			return nil, err
		}
	}
	return nil, fmt.Errorf("chat completion failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *HTTPClient) chatOnce(ctx context.Context, messages []Message, tools []ToolDefinition) (*Response, error) {
	reqBody := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	if len(tools) > 0 {
		reqBody.Tools = tools
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.logger.Debug("sending chat completion",
		"model", c.model,
		"messages", len(messages),
		"tools", len(tools),
		"endpoint", endpoint,
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	bodyStr := string(respBody)

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: bodyStr}
		if resp.StatusCode == 429 {
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if sec, err := strconv.Atoi(ra); err == nil && sec > 0 {
					apiErr.RetryAfterSec = sec
				}
			}
		}
		c.logger.Error("API error",
			"model", c.model,
			"status", resp.StatusCode,
			"body", truncate(bodyStr, 500),
		)
		return nil, apiErr
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	if chatResp.Error != nil {
		if classifyAPIError(resp.StatusCode, chatResp.Error.Message) == ErrContext {
			return nil, &APIError{StatusCode: 400, Body: chatResp.Error.Message}
		}
		return nil, fmt.Errorf("API error: %s", chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("no response from model")
	}

	choice := chatResp.Choices[0]
	c.logger.Info("chat completion done",
		"model", c.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_tokens", chatResp.Usage.PromptTokens,
		"completion_tokens", chatResp.Usage.CompletionTokens,
		"finish_reason", choice.FinishReason,
		"tool_calls", len(choice.Message.ToolCalls),
	)

	return &Response{
		Content:      strings.TrimSpace(choice.Message.Content),
		ToolCalls:    choice.Message.ToolCalls,
		FinishReason: choice.FinishReason,
		ModelUsed:    c.model,
		Usage:        chatResp.Usage,
	}, nil
}
