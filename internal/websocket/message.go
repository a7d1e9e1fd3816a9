package websocket

import (
	"encoding/json"
	"time"
)

type MessageType string

const (
	// Client to Server
	MessageTypeSendMessage MessageType = "SEND_MESSAGE"
	MessageTypeCancel      MessageType = "CANCEL"

	// Server to Client
	MessageTypeStarted   MessageType = "STARTED"
	MessageTypeFragment  MessageType = "FRAGMENT"
	MessageTypeCompleted MessageType = "COMPLETED"
	MessageTypeError     MessageType = "ERROR"
)

// Error codes carried in ERROR payloads.
const (
	ErrCodeInvalidPayload   = "INVALID_PAYLOAD"
	ErrCodeInvalidMessage   = "INVALID_MESSAGE"
	ErrCodeInvalidLanguage  = "INVALID_LANGUAGE"
	ErrCodeSessionNotFound  = "SESSION_NOT_FOUND"
	ErrCodeGenerationFailed = "GENERATION_FAILED"
	ErrCodeBusy             = "BUSY"
	ErrCodeCancelled        = "CANCELLED"
	ErrCodeUnknownType      = "UNKNOWN_TYPE"
)

type Message struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

func NewMessage(msgType MessageType, payload any) (*Message, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      msgType,
		Payload:   payloadBytes,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// Client to Server payloads

type SendMessagePayload struct {
	Message   string  `json:"message"`
	SessionID *string `json:"sessionId"`
	Language  string  `json:"language"`
}

// Server to Client payloads

type StartedPayload struct {
	SessionID string `json:"sessionId"`
}

type FragmentPayload struct {
	Text string `json:"text"`
}

type CompletedPayload struct {
	SessionID      string  `json:"sessionId"`
	Response       string  `json:"response"`
	Language       string  `json:"language"`
	ProcessingTime float64 `json:"processingTime"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
