package service

import (
	"log/slog"

	"github.com/zeempo/zeempo-gateway/internal/repository"
)

type Services struct {
	Auth         *AuthService
	Chat         *ChatService
	Conversation *ConversationService
}

func NewServices(repos *repository.Repositories, tokens TokenIssuer, gen Generator, historyLimit int, logger *slog.Logger) *Services {
	return &Services{
		Auth:         NewAuthService(repos.User, tokens, logger),
		Chat:         NewChatService(repos.Chat),
		Conversation: NewConversationService(repos.Chat, gen, historyLimit, logger),
	}
}
