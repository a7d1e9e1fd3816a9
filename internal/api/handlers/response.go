package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

const maxBodyBytes = 1 << 20

// Client-facing error copy.
const (
	detailInvalidBody      = "Invalid request body"
	detailInvalidEmail     = "A valid email is required"
	detailEmailTaken       = "Dis email don already get owner o!"
	detailBadCredentials   = "Email or password no correct o!"
	detailUserNotFound     = "User not found"
	detailChatNotFound     = "Chat no exist o!"
	detailDeleteNotFound   = "I no fit find the yarn to delete."
	detailSessionNotFound  = "Yarn session no dey!"
	detailSessionDeleted   = "Yarn don go!"
	detailAIUnavailable    = "AI no work o. Abeg try again small time."
	detailInternal         = "Wahala dey o! Something no work."
	detailInvalidLanguage  = "Language no dey supported. Use pidgin or swahili."
	detailVoiceDisabled    = "Voice features are temporarily disabled."
	detailVoiceToVoiceOff  = "Voice-to-voice feature is temporarily disabled. Please use /api/text-to-pidgin for text-based interactions."
	detailVoiceOutputOff   = "Voice output feature is temporarily disabled. Text-to-Pidgin functionality is still available."
	detailMessageLength    = "Message must be between 1 and 1000 characters"
	detailStreamingFailure = "Streaming no dey supported for this connection"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

// decodeJSON reads a bounded JSON body into v. An empty body is an error.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty request body")
		}
		return err
	}
	return nil
}
