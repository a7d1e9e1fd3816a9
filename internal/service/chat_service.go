package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/zeempo/zeempo-gateway/internal/domain"
	"github.com/zeempo/zeempo-gateway/internal/repository"
)

// ChatService exposes a user's own sessions. Sessions owned by anyone else
// behave as if they did not exist.
type ChatService struct {
	chats repository.ChatRepository
}

func NewChatService(chats repository.ChatRepository) *ChatService {
	return &ChatService{chats: chats}
}

func (s *ChatService) ListSessions(ctx context.Context, userID uuid.UUID) ([]*domain.ChatSession, error) {
	return s.chats.ListSessions(ctx, userID)
}

func (s *ChatService) GetSession(ctx context.Context, sessionID, userID uuid.UUID) (*domain.ChatSession, error) {
	return s.chats.FindOwnedSession(ctx, sessionID, userID, true)
}

func (s *ChatService) DeleteSession(ctx context.Context, sessionID, userID uuid.UUID) error {
	return s.chats.DeleteOwnedSession(ctx, sessionID, userID)
}
