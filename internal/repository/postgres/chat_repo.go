package postgres

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/zeempo/zeempo-gateway/internal/domain"
	"gorm.io/gorm"
)

type chatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *chatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) ListSessions(ctx context.Context, userID uuid.UUID) ([]*domain.ChatSession, error) {
	var sessions []*domain.ChatSession
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *chatRepository) FindOwnedSession(ctx context.Context, sessionID, userID uuid.UUID, withMessages bool) (*domain.ChatSession, error) {
	q := r.db.WithContext(ctx)
	if withMessages {
		q = q.Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, seq ASC")
		})
	}

	var session domain.ChatSession
	err := q.First(&session, "id = ? AND user_id = ?", sessionID, userID).Error
	if err != nil {
		return nil, notFound(err, domain.ErrSessionNotFound)
	}
	return &session, nil
}

func (r *chatRepository) CreateSession(ctx context.Context, session *domain.ChatSession) error {
	return r.db.WithContext(ctx).Omit("Messages").Create(session).Error
}

// DeleteOwnedSession removes the session and, through the foreign key, its
// messages.
func (r *chatRepository) DeleteOwnedSession(ctx context.Context, sessionID, userID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Delete(&domain.ChatSession{}, "id = ? AND user_id = ?", sessionID, userID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *chatRepository) AppendMessage(ctx context.Context, msg *domain.ChatMessage) error {
	if !msg.Role.Valid() {
		return domain.ErrInvalidRole
	}
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *chatRepository) ListMessages(ctx context.Context, sessionID uuid.UUID, limit int) ([]*domain.ChatMessage, error) {
	q := r.db.WithContext(ctx).Where("session_id = ?", sessionID)

	var messages []*domain.ChatMessage
	if limit <= 0 {
		err := q.Order("created_at ASC, seq ASC").Find(&messages).Error
		return messages, err
	}

	err := q.Order("created_at DESC, seq DESC").Limit(limit).Find(&messages).Error
	if err != nil {
		return nil, err
	}
	slices.Reverse(messages)
	return messages, nil
}

func (r *chatRepository) TouchSession(ctx context.Context, sessionID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.ChatSession{}).
		Where("id = ?", sessionID).
		Update("updated_at", at).Error
}
