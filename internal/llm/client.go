// Package llm is a client for OpenAI-compatible chat-completion providers.
// It never retries; callers decide what to do with an *UpstreamError.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

var ErrMissingAPIKey = errors.New("llm: provider api key is not configured")

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Completion struct {
	Text  string
	Usage *Usage
}

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	// Timeout bounds a whole single-shot call and the wait for the first
	// response byte of a streaming call.
	Timeout time.Duration
}

// Params overrides sampling defaults for a single call. Nil fields keep the
// client's configured values.
type Params struct {
	Temperature *float64
	MaxTokens   *int
}

type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("llm: base url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	// No overall client timeout: it would cut long streams short. Single-shot
	// calls are bounded through their context instead.
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Transport: transport},
	}, nil
}

func (c *Client) Model() string {
	return c.cfg.Model
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *Usage `json:"usage"`
}

// Complete runs one blocking chat completion.
func (c *Client) Complete(ctx context.Context, history []Message, systemPrompt string) (*Completion, error) {
	return c.CompleteWith(ctx, history, systemPrompt, Params{})
}

func (c *Client) CompleteWith(ctx context.Context, history []Message, systemPrompt string, p Params) (*Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.do(ctx, c.buildRequest(history, systemPrompt, p, false))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("llm: decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return nil, errors.New("llm: response has no choices")
	}

	return &Completion{
		Text:  strings.TrimSpace(out.Choices[0].Message.Content),
		Usage: out.Usage,
	}, nil
}

// CompleteStream opens one streaming completion. The returned Stream must be
// closed; closing it before the end aborts the upstream request.
func (c *Client) CompleteStream(ctx context.Context, history []Message, systemPrompt string) (*Stream, error) {
	return c.CompleteStreamWith(ctx, history, systemPrompt, Params{})
}

func (c *Client) CompleteStreamWith(ctx context.Context, history []Message, systemPrompt string, p Params) (*Stream, error) {
	ctx, cancel := context.WithCancel(ctx)

	resp, err := c.do(ctx, c.buildRequest(history, systemPrompt, p, true))
	if err != nil {
		cancel()
		return nil, err
	}

	s := NewStream(resp.Body)
	s.cancel = cancel
	return s, nil
}

func (c *Client) buildRequest(history []Message, systemPrompt string, p Params, stream bool) chatRequest {
	req := chatRequest{
		Model:       c.cfg.Model,
		Messages:    WithSystemPrompt(history, systemPrompt),
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
		Stream:      stream,
	}
	if p.Temperature != nil {
		req.Temperature = *p.Temperature
	}
	if p.MaxTokens != nil && *p.MaxTokens > 0 {
		req.MaxTokens = *p.MaxTokens
	}
	return req
}

func (c *Client) do(ctx context.Context, body chatRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("llm: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("llm: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if body.Stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Message: err.Error(), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, newUpstreamError(resp.StatusCode, raw)
	}

	return resp, nil
}

// WithSystemPrompt prepends a system turn unless history already has one.
func WithSystemPrompt(history []Message, systemPrompt string) []Message {
	if systemPrompt == "" {
		return history
	}
	for _, m := range history {
		if m.Role == RoleSystem {
			return history
		}
	}
	out := make([]Message, 0, len(history)+1)
	out = append(out, Message{Role: RoleSystem, Content: systemPrompt})
	return append(out, history...)
}
