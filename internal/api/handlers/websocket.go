package handlers

import (
	"log/slog"
	"net/http"

	ws "github.com/gorilla/websocket"

	"github.com/zeempo/zeempo-gateway/internal/api/middleware"
	"github.com/zeempo/zeempo-gateway/internal/websocket"
)

type WebSocketHandler struct {
	hub       *websocket.Hub
	tokens    middleware.TokenVerifier
	exchanger websocket.Exchanger
	upgrader  ws.Upgrader
	logger    *slog.Logger
}

// NewWebSocketHandler accepts upgrades from the given origins. An empty list
// accepts any origin.
func NewWebSocketHandler(hub *websocket.Hub, tokens middleware.TokenVerifier, exchanger websocket.Exchanger, origins []string, logger *slog.Logger) *WebSocketHandler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}

	return &WebSocketHandler{
		hub:       hub,
		tokens:    tokens,
		exchanger: exchanger,
		upgrader: ws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowed) == 0 || allowed[origin]
			},
		},
		logger: logger.With("component", "websocket"),
	}
}

// Handle authenticates with the token query parameter (browsers cannot set
// headers on a socket) or a bearer header, then upgrades.
func (h *WebSocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token, _ = middleware.BearerToken(r)
	}
	if token == "" {
		writeDetail(w, http.StatusUnauthorized, "Token required")
		return
	}

	claims, ok := h.tokens.Verify(token)
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := websocket.NewClient(h.hub, conn, claims.Subject, h.exchanger, h.logger)
	if !h.hub.Register(client) {
		client.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
