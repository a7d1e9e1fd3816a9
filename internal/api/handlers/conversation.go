package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/zeempo/zeempo-gateway/internal/api/middleware"
	"github.com/zeempo/zeempo-gateway/internal/domain"
	"github.com/zeempo/zeempo-gateway/internal/llm"
	"github.com/zeempo/zeempo-gateway/internal/openai"
	"github.com/zeempo/zeempo-gateway/internal/service"
)

type ConversationHandler struct {
	conversation *service.ConversationService
	model        string
	logger       *slog.Logger
}

func NewConversationHandler(conversation *service.ConversationService, model string, logger *slog.Logger) *ConversationHandler {
	return &ConversationHandler{
		conversation: conversation,
		model:        model,
		logger:       logger.With("component", "handlers.conversation"),
	}
}

type TextMessageRequest struct {
	Message   string  `json:"message"`
	Language  string  `json:"language"`
	SessionID *string `json:"session_id"`
}

type PidginResponse struct {
	Response       string  `json:"response"`
	Language       string  `json:"language"`
	ProcessingTime float64 `json:"processing_time"`
	SessionID      string  `json:"session_id"`
}

// TextToPidgin runs one exchange and returns the whole reply.
func (h *ConversationHandler) TextToPidgin(w http.ResponseWriter, r *http.Request) {
	in, ok := h.exchangeInput(w, r)
	if !ok {
		return
	}

	result, err := h.conversation.Exchange(r.Context(), in)
	if err != nil {
		h.writeExchangeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, PidginResponse{
		Response:       result.Reply,
		Language:       string(result.Language),
		ProcessingTime: result.Elapsed.Seconds(),
		SessionID:      result.SessionID.String(),
	})
}

// TextToPidginStream runs one exchange and streams the reply as
// chat.completion.chunk events. The session id is sent in X-Session-ID.
func (h *ConversationHandler) TextToPidginStream(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		writeDetail(w, http.StatusInternalServerError, detailStreamingFailure)
		return
	}

	in, ok := h.exchangeInput(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	stream, err := h.conversation.StreamExchange(ctx, in)
	if err != nil {
		h.writeExchangeError(w, err)
		return
	}

	w.Header().Set("X-Session-ID", stream.SessionID().String())
	cw, err := openai.NewChunkWriter(w, h.model)
	if err != nil {
		stream.Close(ctx)
		writeDetail(w, http.StatusInternalServerError, detailStreamingFailure)
		return
	}

	if _, err := openai.Pipe(ctx, cw, stream); err != nil && ctx.Err() == nil {
		cw.WriteError(detailAIUnavailable)
	}

	if _, err := stream.Close(ctx); err != nil {
		if errors.Is(err, service.ErrExchangeIncomplete) {
			h.logger.Info("stream abandoned by client", "session_id", stream.SessionID())
			return
		}
		h.logger.Error("stream exchange failed", "session_id", stream.SessionID(), "error", err)
	}
}

func (h *ConversationHandler) exchangeInput(w http.ResponseWriter, r *http.Request) (service.ExchangeInput, bool) {
	userID, _ := middleware.GetUserID(r.Context())

	var req TextMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, detailInvalidBody)
		return service.ExchangeInput{}, false
	}

	message, err := domain.NormalizeMessage(req.Message)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, detailMessageLength)
		return service.ExchangeInput{}, false
	}

	in := service.ExchangeInput{
		UserID:   userID,
		Message:  message,
		Language: req.Language,
	}

	raw := r.URL.Query().Get("session_id")
	if req.SessionID != nil && *req.SessionID != "" {
		raw = *req.SessionID
	}
	if raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeDetail(w, http.StatusNotFound, detailSessionNotFound)
			return service.ExchangeInput{}, false
		}
		in.SessionID = &id
	}

	return in, true
}

func (h *ConversationHandler) writeExchangeError(w http.ResponseWriter, err error) {
	var upErr *llm.UpstreamError

	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		writeDetail(w, http.StatusNotFound, detailSessionNotFound)
	case errors.Is(err, domain.ErrInvalidLanguage):
		writeDetail(w, http.StatusUnprocessableEntity, detailInvalidLanguage)
	case errors.As(err, &upErr):
		writeDetail(w, http.StatusServiceUnavailable, detailAIUnavailable)
	case errors.Is(err, domain.ErrGenerationFailed):
		h.logger.Error("exchange failed", "error", err)
		writeDetail(w, http.StatusInternalServerError, detailAIUnavailable)
	default:
		h.logger.Error("exchange failed", "error", err)
		writeDetail(w, http.StatusInternalServerError, detailInternal)
	}
}
