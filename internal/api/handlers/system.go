package handlers

import (
	"net/http"
	"time"
)

type SystemHandler struct {
	appName    string
	appVersion string
}

func NewSystemHandler(appName, appVersion string) *SystemHandler {
	return &SystemHandler{appName: appName, appVersion: appVersion}
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Service:   h.appName,
		Version:   h.appVersion,
		Timestamp: time.Now().UTC(),
	})
}

func (h *SystemHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        h.appName,
		"version":     h.appVersion,
		"message":     "Welcome to " + h.appName + "! E don set!",
		"description": "AI platform for Nigerian/Ghanaian Pidgin English",
		"endpoints": map[string]string{
			"GET /health":                     "Health check",
			"POST /api/auth/register":         "Create an account",
			"POST /api/auth/login":            "Get a bearer token",
			"GET /api/auth/me":                "Current user profile",
			"GET /api/chats":                  "List your chats",
			"GET /api/chats/{id}":             "Chat history",
			"DELETE /api/chats/{id}":          "Delete a chat",
			"POST /api/text-to-pidgin":        "Text input, Pidgin text response",
			"POST /api/text-to-pidgin/stream": "Text input, streamed Pidgin response",
			"GET /api/ws":                     "Realtime chat socket",
			"POST /v1/chat/completions":       "OpenAI-compatible completions",
		},
		"status": "running",
	})
}

// Disabled answers a voice route that is switched off.
func Disabled(detail string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusServiceUnavailable, detail)
	}
}

var (
	VoiceToVoiceDisabled = Disabled(detailVoiceToVoiceOff)
	VoiceOutputDisabled  = Disabled(detailVoiceOutputOff)
	VoicesDisabled       = Disabled(detailVoiceDisabled)
)
