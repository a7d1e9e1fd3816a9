package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/zeempo/zeempo-gateway/internal/api/middleware"
	"github.com/zeempo/zeempo-gateway/internal/domain"
	"github.com/zeempo/zeempo-gateway/internal/service"
)

type ChatHandler struct {
	chatService *service.ChatService
	logger      *slog.Logger
}

func NewChatHandler(chatService *service.ChatService, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		logger:      logger.With("component", "handlers.chats"),
	}
}

type ChatSessionResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Language  string    `json:"language"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ChatMessageResponse struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type ChatHistoryResponse struct {
	ID       string                `json:"id"`
	Messages []ChatMessageResponse `json:"messages"`
}

type DeleteChatResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	sessions, err := h.chatService.ListSessions(r.Context(), userID)
	if err != nil {
		h.logger.Error("list sessions failed", "user_id", userID, "error", err)
		writeDetail(w, http.StatusInternalServerError, detailInternal)
		return
	}

	resp := make([]ChatSessionResponse, 0, len(sessions))
	for _, s := range sessions {
		resp = append(resp, ChatSessionResponse{
			ID:        s.ID.String(),
			Title:     s.Title,
			Language:  string(s.Language),
			UpdatedAt: s.UpdatedAt,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	// A malformed id cannot name an owned session.
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeDetail(w, http.StatusNotFound, detailChatNotFound)
		return
	}

	session, err := h.chatService.GetSession(r.Context(), sessionID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			writeDetail(w, http.StatusNotFound, detailChatNotFound)
			return
		}
		h.logger.Error("get session failed", "session_id", sessionID, "error", err)
		writeDetail(w, http.StatusInternalServerError, detailInternal)
		return
	}

	resp := ChatHistoryResponse{
		ID:       session.ID.String(),
		Messages: make([]ChatMessageResponse, 0, len(session.Messages)),
	}
	for _, m := range session.Messages {
		resp.Messages = append(resp.Messages, ChatMessageResponse{
			Role:      string(m.Role),
			Content:   m.Content,
			Timestamp: m.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeDetail(w, http.StatusNotFound, detailDeleteNotFound)
		return
	}

	if err := h.chatService.DeleteSession(r.Context(), sessionID, userID); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			writeDetail(w, http.StatusNotFound, detailDeleteNotFound)
			return
		}
		h.logger.Error("delete session failed", "session_id", sessionID, "error", err)
		writeDetail(w, http.StatusInternalServerError, detailInternal)
		return
	}

	writeJSON(w, http.StatusOK, DeleteChatResponse{Status: "success", Message: detailSessionDeleted})
}
