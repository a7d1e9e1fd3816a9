package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

func (r MessageRole) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// ChatSession is a conversation thread. Ownership never changes after creation.
type ChatSession struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID    uuid.UUID `json:"userId" gorm:"type:uuid;not null;index"`
	Title     string    `json:"title" gorm:"not null"`
	Language  Language  `json:"language" gorm:"not null;default:'pidgin'"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Messages []ChatMessage `json:"messages,omitempty" gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
}

// ChatMessage is immutable once written. Seq is assigned by the database and
// breaks ties between messages created in the same instant.
type ChatMessage struct {
	ID         uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Seq        int64          `json:"-" gorm:"->"`
	SessionID  uuid.UUID      `json:"sessionId" gorm:"type:uuid;not null;index"`
	Role       MessageRole    `json:"role" gorm:"not null"`
	Content    string         `json:"content" gorm:"type:text;not null"`
	TokenUsage datatypes.JSON `json:"tokenUsage,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// TokenUsage is the provider-reported usage stored on assistant turns.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

const (
	sessionTitleMaxRunes = 30
	sessionTitleMarker   = "..."
)

// SessionTitle derives a session title from the first user message.
func SessionTitle(seed string) string {
	runes := []rune(seed)
	if len(runes) <= sessionTitleMaxRunes {
		return seed
	}
	return string(runes[:sessionTitleMaxRunes]) + sessionTitleMarker
}

const MaxMessageRunes = 1000

// NormalizeMessage trims a user message and checks it is 1..MaxMessageRunes
// characters long.
func NormalizeMessage(text string) (string, error) {
	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n == 0 || n > MaxMessageRunes {
		return "", ErrInvalidMessage
	}
	return text, nil
}
