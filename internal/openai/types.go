// Package openai speaks the OpenAI chat-completion wire format to third-party
// consumers: request decoding, completion objects, and streamed chunks.
package openai

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/zeempo/zeempo-gateway/internal/llm"
)

const (
	ObjectChunk      = "chat.completion.chunk"
	ObjectCompletion = "chat.completion"

	FinishReasonStop = "stop"
)

var ErrNoMessages = errors.New("messages must not be empty")

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream"`
}

func (r *ChatCompletionRequest) Validate() error {
	if len(r.Messages) == 0 {
		return ErrNoMessages
	}
	for _, m := range r.Messages {
		switch m.Role {
		case llm.RoleSystem, llm.RoleUser, llm.RoleAssistant:
		default:
			return errors.New("unsupported message role: " + m.Role)
		}
	}
	return nil
}

// History converts the request turns for the llm client.
func (r *ChatCompletionRequest) History() []llm.Message {
	out := make([]llm.Message, len(r.Messages))
	for i, m := range r.Messages {
		out[i] = llm.Message{Role: m.Role, Content: m.Content}
	}
	return out
}

// Params carries the per-request sampling overrides.
func (r *ChatCompletionRequest) Params() llm.Params {
	return llm.Params{Temperature: r.Temperature, MaxTokens: r.MaxTokens}
}

type Delta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

type ChunkChoice struct {
	Index        int     `json:"index"`
	Delta        Delta   `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

type Chunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []ChunkChoice `json:"choices"`
}

type CompletionChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type Completion struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []CompletionChoice `json:"choices"`
	Usage   *llm.Usage         `json:"usage,omitempty"`
}

// NewCompletion wraps a finished generation as a chat.completion object.
func NewCompletion(model string, c *llm.Completion) *Completion {
	return &Completion{
		ID:      NewCompletionID(),
		Object:  ObjectCompletion,
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []CompletionChoice{{
			Index:        0,
			Message:      ChatMessage{Role: llm.RoleAssistant, Content: c.Text},
			FinishReason: FinishReasonStop,
		}},
		Usage: c.Usage,
	}
}

type ErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func NewCompletionID() string {
	return "chatcmpl-" + uuid.NewString()
}
