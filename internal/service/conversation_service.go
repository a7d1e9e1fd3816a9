package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeempo/zeempo-gateway/internal/domain"
	"github.com/zeempo/zeempo-gateway/internal/llm"
	"github.com/zeempo/zeempo-gateway/internal/repository"
	"gorm.io/datatypes"
)

// ErrExchangeIncomplete is returned when a streamed exchange is closed before
// the upstream finished.
var ErrExchangeIncomplete = errors.New("exchange did not complete")

// Generator produces assistant replies. *llm.Client satisfies it.
type Generator interface {
	Complete(ctx context.Context, history []llm.Message, systemPrompt string) (*llm.Completion, error)
	CompleteStream(ctx context.Context, history []llm.Message, systemPrompt string) (*llm.Stream, error)
}

// ConversationService runs one user exchange: resolve or create the
// session, record the user turn, generate, record the reply.
//
// The user turn is written before generation and is kept if generation
// fails, so a session can end with an unanswered user message.
type ConversationService struct {
	chats        repository.ChatRepository
	llm          Generator
	historyLimit int
	logger       *slog.Logger
	now          func() time.Time
}

func NewConversationService(chats repository.ChatRepository, gen Generator, historyLimit int, logger *slog.Logger) *ConversationService {
	return &ConversationService{
		chats:        chats,
		llm:          gen,
		historyLimit: historyLimit,
		logger:       logger.With("component", "conversation"),
		now:          time.Now,
	}
}

type ExchangeInput struct {
	UserID uuid.UUID
	// SessionID nil starts a new session.
	SessionID *uuid.UUID
	Message   string
	// Language empty keeps an existing session's language, or the default
	// for a new one.
	Language string
}

type ExchangeResult struct {
	Reply     string
	SessionID uuid.UUID
	Language  domain.Language
	Elapsed   time.Duration
}

func (s *ConversationService) Exchange(ctx context.Context, in ExchangeInput) (*ExchangeResult, error) {
	start := s.now()

	session, lang, err := s.resolveSession(ctx, in)
	if err != nil {
		return nil, err
	}

	history, err := s.recordUserTurn(ctx, session.ID, in.Message)
	if err != nil {
		return nil, err
	}

	completion, err := s.llm.Complete(ctx, history, SystemPrompt(lang))
	if err != nil {
		s.logUpstream(err, session.ID)
		return nil, fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}

	if err := s.recordReply(ctx, session.ID, completion.Text, completion.Usage); err != nil {
		return nil, err
	}

	return &ExchangeResult{
		Reply:     completion.Text,
		SessionID: session.ID,
		Language:  lang,
		Elapsed:   s.now().Sub(start),
	}, nil
}

// StreamExchange starts a streamed exchange. The session is resolved and the
// user turn recorded before the upstream stream is opened.
func (s *ConversationService) StreamExchange(ctx context.Context, in ExchangeInput) (*ExchangeStream, error) {
	start := s.now()

	session, lang, err := s.resolveSession(ctx, in)
	if err != nil {
		return nil, err
	}

	history, err := s.recordUserTurn(ctx, session.ID, in.Message)
	if err != nil {
		return nil, err
	}

	upstream, err := s.llm.CompleteStream(ctx, history, SystemPrompt(lang))
	if err != nil {
		s.logUpstream(err, session.ID)
		return nil, fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}

	return &ExchangeStream{
		svc:       s,
		upstream:  upstream,
		sessionID: session.ID,
		language:  lang,
		start:     start,
	}, nil
}

func (s *ConversationService) resolveSession(ctx context.Context, in ExchangeInput) (*domain.ChatSession, domain.Language, error) {
	if in.SessionID == nil {
		lang, err := domain.ParseLanguage(in.Language)
		if err != nil {
			return nil, "", err
		}
		session, err := s.createSession(ctx, in.UserID, in.Message, lang)
		return session, lang, err
	}

	session, err := s.chats.FindOwnedSession(ctx, *in.SessionID, in.UserID, false)
	if err != nil {
		return nil, "", err
	}

	if in.Language == "" {
		return session, session.Language, nil
	}
	lang, err := domain.ParseLanguage(in.Language)
	if err != nil {
		return nil, "", err
	}
	return session, lang, nil
}

func (s *ConversationService) createSession(ctx context.Context, userID uuid.UUID, seed string, lang domain.Language) (*domain.ChatSession, error) {
	now := s.now()
	session := &domain.ChatSession{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     domain.SessionTitle(strings.TrimSpace(seed)),
		Language:  lang,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.chats.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.logger.Info("session created", "session_id", session.ID, "user_id", userID, "language", lang)
	return session, nil
}

// recordUserTurn stores the message and returns the history to send upstream,
// which ends with that message.
func (s *ConversationService) recordUserTurn(ctx context.Context, sessionID uuid.UUID, text string) ([]llm.Message, error) {
	msg := &domain.ChatMessage{
		ID:        uuid.New(),
		SessionID: sessionID,
		Role:      domain.RoleUser,
		Content:   text,
	}
	if err := s.chats.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("%w: record user message: %w", domain.ErrGenerationFailed, err)
	}

	prior, err := s.chats.ListMessages(ctx, sessionID, s.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: load history: %w", domain.ErrGenerationFailed, err)
	}

	history := make([]llm.Message, 0, len(prior))
	for _, m := range prior {
		history = append(history, llm.Message{Role: string(m.Role), Content: m.Content})
	}
	return history, nil
}

// recordReply stores the assistant turn and bumps the session once.
func (s *ConversationService) recordReply(ctx context.Context, sessionID uuid.UUID, text string, usage *llm.Usage) error {
	msg := &domain.ChatMessage{
		ID:        uuid.New(),
		SessionID: sessionID,
		Role:      domain.RoleAssistant,
		Content:   text,
	}
	if usage != nil {
		raw, err := json.Marshal(domain.TokenUsage{
			PromptTokens:     usage.PromptTokens,
			CompletionTokens: usage.CompletionTokens,
			TotalTokens:      usage.TotalTokens,
		})
		if err == nil {
			msg.TokenUsage = datatypes.JSON(raw)
		}
	}

	if err := s.chats.AppendMessage(ctx, msg); err != nil {
		return fmt.Errorf("%w: record assistant message: %w", domain.ErrGenerationFailed, err)
	}
	if err := s.chats.TouchSession(ctx, sessionID, s.now()); err != nil {
		return fmt.Errorf("%w: touch session: %w", domain.ErrGenerationFailed, err)
	}
	return nil
}

func (s *ConversationService) logUpstream(err error, sessionID uuid.UUID) {
	var upErr *llm.UpstreamError
	if errors.As(err, &upErr) {
		s.logger.Error("upstream generation failed",
			"session_id", sessionID,
			"status", upErr.StatusCode,
			"message", upErr.Message,
			"body", upErr.Body,
		)
		return
	}
	s.logger.Error("generation failed", "session_id", sessionID, "error", err)
}

// ExchangeStream yields reply fragments of a streamed exchange. The reply is
// recorded by Close, and only if the upstream stream ran to completion.
type ExchangeStream struct {
	svc       *ConversationService
	upstream  *llm.Stream
	sessionID uuid.UUID
	language  domain.Language
	start     time.Time

	reply strings.Builder
	ended bool
}

func (e *ExchangeStream) SessionID() uuid.UUID {
	return e.sessionID
}

func (e *ExchangeStream) Next() bool {
	if e.upstream.Next() {
		e.reply.WriteString(e.upstream.Text())
		return true
	}
	e.ended = true
	return false
}

func (e *ExchangeStream) Text() string {
	return e.upstream.Text()
}

func (e *ExchangeStream) Err() error {
	return e.upstream.Err()
}

// Close releases the upstream connection. If the stream completed, the reply
// is recorded even when ctx has already been cancelled.
func (e *ExchangeStream) Close(ctx context.Context) (*ExchangeResult, error) {
	_ = e.upstream.Close()

	if !e.ended {
		return nil, ErrExchangeIncomplete
	}
	if err := e.upstream.Err(); err != nil {
		if ctx.Err() != nil {
			return nil, ErrExchangeIncomplete
		}
		e.svc.logUpstream(err, e.sessionID)
		return nil, fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}

	reply := strings.TrimSpace(e.reply.String())
	if err := e.svc.recordReply(context.WithoutCancel(ctx), e.sessionID, reply, nil); err != nil {
		return nil, err
	}

	return &ExchangeResult{
		Reply:     reply,
		SessionID: e.sessionID,
		Language:  e.language,
		Elapsed:   e.svc.now().Sub(e.start),
	}, nil
}
