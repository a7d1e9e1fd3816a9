package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/zeempo/zeempo-gateway/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// ChatRepository owns sessions and their messages. Every lookup that takes a
// userID filters on ownership, so a session owned by someone else is reported
// exactly like a missing one.
type ChatRepository interface {
	ListSessions(ctx context.Context, userID uuid.UUID) ([]*domain.ChatSession, error)
	FindOwnedSession(ctx context.Context, sessionID, userID uuid.UUID, withMessages bool) (*domain.ChatSession, error)
	CreateSession(ctx context.Context, session *domain.ChatSession) error
	DeleteOwnedSession(ctx context.Context, sessionID, userID uuid.UUID) error

	AppendMessage(ctx context.Context, msg *domain.ChatMessage) error
	// ListMessages returns up to limit of the most recent messages in
	// chronological order. limit <= 0 returns all of them.
	ListMessages(ctx context.Context, sessionID uuid.UUID, limit int) ([]*domain.ChatMessage, error)
	TouchSession(ctx context.Context, sessionID uuid.UUID, at time.Time) error
}

type Repositories struct {
	User UserRepository
	Chat ChatRepository
}
