package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/zeempo/zeempo-gateway/internal/llm"
)

// ProviderRequest is a chat completion request as the fake provider saw it.
type ProviderRequest struct {
	Model         string        `json:"model"`
	Messages      []llm.Message `json:"messages"`
	Temperature   float64       `json:"temperature"`
	MaxTokens     int           `json:"max_tokens"`
	Stream        bool          `json:"stream"`
	Authorization string        `json:"-"`
}

// FakeProvider is an OpenAI-compatible upstream that answers with canned
// replies, JSON for single-shot calls and SSE for streams.
type FakeProvider struct {
	server *httptest.Server

	mu        sync.Mutex
	reply     string
	usage     *llm.Usage
	fragments []string
	delay     time.Duration
	status    int
	errBody   string
	requests  []ProviderRequest
	cancelled int
}

func NewFakeProvider(t *testing.T) *FakeProvider {
	t.Helper()

	p := &FakeProvider{
		reply:     "I dey kampe! Wetin you wan make we yarn about?",
		usage:     &llm.Usage{PromptTokens: 12, CompletionTokens: 9, TotalTokens: 21},
		fragments: []string{"I dey", " kampe!", " Wetin you", " wan yarn?"},
	}
	p.server = httptest.NewServer(http.HandlerFunc(p.handle))
	t.Cleanup(p.server.Close)
	return p
}

func (p *FakeProvider) URL() string {
	return p.server.URL
}

// SetReply sets the single-shot reply and its usage.
func (p *FakeProvider) SetReply(reply string, usage *llm.Usage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reply = reply
	p.usage = usage
}

// SetFragments sets the streamed reply, one delta per fragment, with delay
// before each one.
func (p *FakeProvider) SetFragments(delay time.Duration, fragments ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fragments = fragments
	p.delay = delay
}

// Fail makes every following call answer with status and body.
func (p *FakeProvider) Fail(status int, body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = status
	p.errBody = body
}

func (p *FakeProvider) Requests() []ProviderRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ProviderRequest, len(p.requests))
	copy(out, p.requests)
	return out
}

// LastRequest returns the most recent request. It fails the test when there
// is none.
func (p *FakeProvider) LastRequest(t *testing.T) ProviderRequest {
	t.Helper()
	reqs := p.Requests()
	if len(reqs) == 0 {
		t.Fatal("fake provider received no requests")
	}
	return reqs[len(reqs)-1]
}

// Cancelled reports how many streams the caller abandoned mid-way.
func (p *FakeProvider) Cancelled() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancelled
}

func (p *FakeProvider) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.URL.Path != "/chat/completions" {
		http.NotFound(w, r)
		return
	}

	var req ProviderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req.Authorization = r.Header.Get("Authorization")

	p.mu.Lock()
	p.requests = append(p.requests, req)
	status, errBody := p.status, p.errBody
	reply, usage := p.reply, p.usage
	fragments, delay := p.fragments, p.delay
	p.mu.Unlock()

	if status != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, errBody)
		return
	}

	if !req.Stream {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-fake",
			"object": "chat.completion",
			"model":  req.Model,
			"choices": []any{map[string]any{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": reply},
				"finish_reason": "stop",
			}},
			"usage": usage,
		})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	flusher := w.(http.Flusher)
	flusher.Flush()

	for _, f := range fragments {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				p.mu.Lock()
				p.cancelled++
				p.mu.Unlock()
				return
			}
		}
		chunk, _ := json.Marshal(map[string]any{
			"id":     "chatcmpl-fake",
			"object": "chat.completion.chunk",
			"choices": []any{map[string]any{
				"index": 0,
				"delta": map[string]string{"content": f},
			}},
		})
		fmt.Fprintf(w, "data: %s\n\n", chunk)
		flusher.Flush()
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}
