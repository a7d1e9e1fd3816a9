package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"

	"github.com/zeempo/zeempo-gateway/internal/api/middleware"
	"github.com/zeempo/zeempo-gateway/internal/llm"
	"github.com/zeempo/zeempo-gateway/internal/openai"
	"github.com/zeempo/zeempo-gateway/internal/service"
)

// CompletionClient is the part of *llm.Client the completions proxy uses.
type CompletionClient interface {
	CompleteWith(ctx context.Context, history []llm.Message, systemPrompt string, p llm.Params) (*llm.Completion, error)
	CompleteStreamWith(ctx context.Context, history []llm.Message, systemPrompt string, p llm.Params) (*llm.Stream, error)
}

// CompletionsHandler is a stateless OpenAI-compatible proxy for voice and
// agent platforms that keep their own conversation state. Nothing is
// persisted.
type CompletionsHandler struct {
	llm    CompletionClient
	model  string
	apiKey string
	logger *slog.Logger
}

func NewCompletionsHandler(client CompletionClient, model, apiKey string, logger *slog.Logger) *CompletionsHandler {
	return &CompletionsHandler{
		llm:    client,
		model:  model,
		apiKey: apiKey,
		logger: logger.With("component", "handlers.completions"),
	}
}

func (h *CompletionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeOpenAIError(w, http.StatusUnauthorized, "invalid_api_key", "Invalid API key")
		return
	}

	var req openai.ChatCompletionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeOpenAIError(w, http.StatusBadRequest, "invalid_request_error", "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeOpenAIError(w, http.StatusBadRequest, "invalid_request_error", err.Error())
		return
	}

	model := req.Model
	if model == "" {
		model = h.model
	}

	if req.Stream {
		h.stream(w, r, &req, model)
		return
	}

	completion, err := h.llm.CompleteWith(r.Context(), req.History(), service.DefaultPersona, req.Params())
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, openai.NewCompletion(model, completion))
}

func (h *CompletionsHandler) stream(w http.ResponseWriter, r *http.Request, req *openai.ChatCompletionRequest, model string) {
	if _, ok := w.(http.Flusher); !ok {
		writeOpenAIError(w, http.StatusInternalServerError, "server_error", openai.ErrStreamingUnsupported.Error())
		return
	}

	ctx := r.Context()
	upstream, err := h.llm.CompleteStreamWith(ctx, req.History(), service.DefaultPersona, req.Params())
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	defer upstream.Close()

	cw, err := openai.NewChunkWriter(w, model)
	if err != nil {
		writeOpenAIError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	if _, err := openai.Pipe(ctx, cw, upstream); err != nil {
		if ctx.Err() != nil {
			h.logger.Debug("consumer disconnected mid-stream", "id", cw.ID())
			return
		}
		h.logger.Error("completion stream failed", "id", cw.ID(), "error", err)
		cw.WriteError(detailAIUnavailable)
	}
}

func (h *CompletionsHandler) authorized(r *http.Request) bool {
	if h.apiKey == "" {
		return true
	}
	token, ok := middleware.BearerToken(r)
	return ok && subtle.ConstantTimeCompare([]byte(token), []byte(h.apiKey)) == 1
}

func (h *CompletionsHandler) writeUpstreamError(w http.ResponseWriter, err error) {
	var upErr *llm.UpstreamError
	if errors.As(err, &upErr) {
		h.logger.Error("upstream completion failed", "status", upErr.StatusCode, "message", upErr.Message, "body", upErr.Body)
		writeOpenAIError(w, http.StatusServiceUnavailable, "upstream_error", detailAIUnavailable)
		return
	}
	h.logger.Error("completion failed", "error", err)
	writeOpenAIError(w, http.StatusInternalServerError, "server_error", detailInternal)
}

func writeOpenAIError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, openai.ErrorResponse{Error: openai.ErrorBody{Message: message, Type: errType}})
}
