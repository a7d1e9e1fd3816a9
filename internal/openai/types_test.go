package openai

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeempo/zeempo-gateway/internal/llm"
)

func TestChatCompletionRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     ChatCompletionRequest
		wantErr bool
	}{
		{
			name: "user turn",
			req:  ChatCompletionRequest{Messages: []ChatMessage{{Role: "user", Content: "hi"}}},
		},
		{
			name: "with system and assistant",
			req: ChatCompletionRequest{Messages: []ChatMessage{
				{Role: "system", Content: "s"},
				{Role: "user", Content: "hi"},
				{Role: "assistant", Content: "hello"},
			}},
		},
		{
			name:    "empty",
			req:     ChatCompletionRequest{},
			wantErr: true,
		},
		{
			name:    "tool role",
			req:     ChatCompletionRequest{Messages: []ChatMessage{{Role: "tool", Content: "x"}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestChatCompletionRequest_Decode(t *testing.T) {
	raw := `{"model":"x","messages":[{"role":"user","content":"How far"}],"temperature":0.2,"max_tokens":64,"stream":true}`

	var req ChatCompletionRequest
	require.NoError(t, json.Unmarshal([]byte(raw), &req))

	assert.True(t, req.Stream)
	assert.Equal(t, []llm.Message{{Role: "user", Content: "How far"}}, req.History())

	p := req.Params()
	require.NotNil(t, p.Temperature)
	require.NotNil(t, p.MaxTokens)
	assert.InDelta(t, 0.2, *p.Temperature, 1e-9)
	assert.Equal(t, 64, *p.MaxTokens)
}

func TestNewCompletion(t *testing.T) {
	c := NewCompletion("m", &llm.Completion{Text: "I dey", Usage: &llm.Usage{TotalTokens: 3}})

	assert.Equal(t, ObjectCompletion, c.Object)
	require.Len(t, c.Choices, 1)
	assert.Equal(t, "assistant", c.Choices[0].Message.Role)
	assert.Equal(t, "I dey", c.Choices[0].Message.Content)
	assert.Equal(t, FinishReasonStop, c.Choices[0].FinishReason)
	assert.Equal(t, 3, c.Usage.TotalTokens)
}
