package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// APIClient handles HTTP communication with the gateway
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient creates a new API client. No client timeout: streamed replies
// run as long as the upstream keeps talking.
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

// Response types matching the gateway

type AuthResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type PidginResponse struct {
	Response       string  `json:"response"`
	Language       string  `json:"language"`
	ProcessingTime float64 `json:"processing_time"`
	SessionID      string  `json:"session_id"`
}

type ChatSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Language  string    `json:"language"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type completionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// RegisterUser creates a throwaway account and returns its email and token
func (c *APIClient) RegisterUser(baseName string) (string, string, error) {
	email := fmt.Sprintf("%s_%d@sim.zeempo.dev", strings.ToLower(baseName), time.Now().UnixNano()%100000)

	body := map[string]string{
		"email":    email,
		"password": "simulator123",
		"name":     baseName,
	}

	resp, err := c.post("/api/auth/register", body, "")
	if err != nil {
		return "", "", fmt.Errorf("register request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", statusError("register", resp)
	}

	var result AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", "", fmt.Errorf("failed to decode response: %w", err)
	}

	return email, result.AccessToken, nil
}

// Login exchanges credentials for a token
func (c *APIClient) Login(email, password string) (string, error) {
	resp, err := c.post("/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	if err != nil {
		return "", fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusError("login", resp)
	}

	var result AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return result.AccessToken, nil
}

// Send runs one single-shot exchange. sessionID empty starts a new session.
func (c *APIClient) Send(token, sessionID, message, language string) (*PidginResponse, error) {
	body := map[string]any{
		"message":  message,
		"language": language,
	}
	if sessionID != "" {
		body["session_id"] = sessionID
	}

	resp, err := c.post("/api/text-to-pidgin", body, token)
	if err != nil {
		return nil, fmt.Errorf("text-to-pidgin request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("text-to-pidgin", resp)
	}

	var result PidginResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

// Stream runs one streamed exchange, calling onFragment for every delta. It
// returns the session id from the X-Session-ID header.
func (c *APIClient) Stream(token, sessionID, message, language string, onFragment func(string)) (string, error) {
	body := map[string]any{
		"message":  message,
		"language": language,
	}
	if sessionID != "" {
		body["session_id"] = sessionID
	}

	resp, err := c.post("/api/text-to-pidgin/stream", body, token)
	if err != nil {
		return "", fmt.Errorf("stream request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusError("stream", resp)
	}

	if err := readSSE(resp.Body, onFragment); err != nil {
		return "", err
	}
	return resp.Header.Get("X-Session-ID"), nil
}

// Complete calls the OpenAI-compatible endpoint with a single user message
func (c *APIClient) Complete(apiKey, message string, stream bool, onFragment func(string)) error {
	body := map[string]any{
		"model":    "zeempo-simulator",
		"messages": []map[string]string{{"role": "user", "content": message}},
		"stream":   stream,
	}

	resp, err := c.post("/v1/chat/completions", body, apiKey)
	if err != nil {
		return fmt.Errorf("completions request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError("completions", resp)
	}

	if stream {
		return readSSE(resp.Body, onFragment)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Choices) > 0 {
		onFragment(result.Choices[0].Message.Content)
	}
	return nil
}

// ListChats returns the user's sessions, most recent first
func (c *APIClient) ListChats(token string) ([]ChatSummary, error) {
	resp, err := c.get("/api/chats", token)
	if err != nil {
		return nil, fmt.Errorf("list chats request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("list chats", resp)
	}

	var chats []ChatSummary
	if err := json.NewDecoder(resp.Body).Decode(&chats); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return chats, nil
}

// readSSE consumes chat.completion.chunk frames until [DONE]. A stream that
// ends without [DONE] is an error.
func readSSE(r io.Reader, onFragment func(string)) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		if data == "[DONE]" {
			return nil
		}

		var chunk completionChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return fmt.Errorf("malformed chunk: %w", err)
		}
		if chunk.Error != nil {
			return fmt.Errorf("stream error: %s", chunk.Error.Message)
		}
		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" {
				onFragment(choice.Delta.Content)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return io.ErrUnexpectedEOF
}

func statusError(op string, resp *http.Response) error {
	bodyBytes, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("%s failed (status %d): %s", op, resp.StatusCode, string(bodyBytes))
}

// HTTP helpers

func (c *APIClient) post(path string, body any, token string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.httpClient.Do(req)
}

func (c *APIClient) get(path string, token string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.httpClient.Do(req)
}
