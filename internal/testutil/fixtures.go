package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/zeempo/zeempo-gateway/internal/auth"
	"github.com/zeempo/zeempo-gateway/internal/domain"
	"gorm.io/gorm"
)

// UserBuilder creates test users with a builder pattern
type UserBuilder struct {
	email    string
	name     string
	password string
}

// NewUserBuilder creates a new UserBuilder with default values
func NewUserBuilder() *UserBuilder {
	suffix := uuid.New().String()[:8]
	return &UserBuilder{
		email:    fmt.Sprintf("user_%s@example.com", suffix),
		name:     "user_" + suffix,
		password: "testpassword123",
	}
}

func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.email = email
	return b
}

func (b *UserBuilder) WithName(name string) *UserBuilder {
	b.name = name
	return b
}

func (b *UserBuilder) WithPassword(password string) *UserBuilder {
	b.password = password
	return b
}

// Build creates the user in the database and returns the user with the raw password
func (b *UserBuilder) Build(t *testing.T, db *gorm.DB) (*domain.User, string) {
	t.Helper()

	hash, err := auth.HashPassword(b.password)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		Email:        b.email,
		PasswordHash: hash,
		Name:         b.name,
		PlanType:     domain.PlanFree,
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return user, b.password
}

// AuthResponse matches the API auth response
type AuthResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// RegisterViaAPI registers the user through the HTTP API and returns the access token
func (b *UserBuilder) RegisterViaAPI(t *testing.T, ts *TestServer) string {
	t.Helper()

	body, _ := json.Marshal(map[string]string{
		"email":    b.email,
		"password": b.password,
		"name":     b.name,
	})

	resp, err := http.Post(ts.URL("/api/auth/register"), "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("failed to register user: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status code: %d", resp.StatusCode)
	}

	var authResp AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return authResp.AccessToken
}

// SessionBuilder creates chat sessions, optionally with messages
type SessionBuilder struct {
	userID    uuid.UUID
	title     string
	language  domain.Language
	updatedAt time.Time
	turns     []domain.ChatMessage
}

func NewSessionBuilder(userID uuid.UUID) *SessionBuilder {
	return &SessionBuilder{
		userID:    userID,
		title:     "Test chat",
		language:  domain.LanguagePidgin,
		updatedAt: time.Now(),
	}
}

func (b *SessionBuilder) WithTitle(title string) *SessionBuilder {
	b.title = title
	return b
}

func (b *SessionBuilder) WithLanguage(lang domain.Language) *SessionBuilder {
	b.language = lang
	return b
}

func (b *SessionBuilder) WithUpdatedAt(at time.Time) *SessionBuilder {
	b.updatedAt = at
	return b
}

// WithExchange appends a user turn and its assistant reply
func (b *SessionBuilder) WithExchange(user, assistant string) *SessionBuilder {
	b.turns = append(b.turns,
		domain.ChatMessage{Role: domain.RoleUser, Content: user},
		domain.ChatMessage{Role: domain.RoleAssistant, Content: assistant},
	)
	return b
}

func (b *SessionBuilder) Build(t *testing.T, db *gorm.DB) *domain.ChatSession {
	t.Helper()

	session := &domain.ChatSession{
		ID:        uuid.New(),
		UserID:    b.userID,
		Title:     b.title,
		Language:  b.language,
		CreatedAt: b.updatedAt,
		UpdatedAt: b.updatedAt,
	}
	if err := db.Omit("Messages").Create(session).Error; err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	base := time.Now().Add(-time.Duration(len(b.turns)) * time.Second)
	for i, turn := range b.turns {
		msg := turn
		msg.ID = uuid.New()
		msg.SessionID = session.ID
		msg.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if err := db.Create(&msg).Error; err != nil {
			t.Fatalf("failed to create message: %v", err)
		}
		session.Messages = append(session.Messages, msg)
	}

	return session
}
