package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeempo/zeempo-gateway/internal/domain"
	"github.com/zeempo/zeempo-gateway/internal/llm"
)

func newConversation(repo *fakeChatRepo, gen *fakeGenerator, limit int) *ConversationService {
	return NewConversationService(repo, gen, limit, discardLogger)
}

func TestExchange_NewSession(t *testing.T) {
	repo := newFakeChatRepo()
	gen := &fakeGenerator{reply: "I dey o! Wetin dey happen?"}
	svc := newConversation(repo, gen, 20)
	userID := uuid.New()

	message := "How far, abeg tell me about Lagos traffic today"
	res, err := svc.Exchange(context.Background(), ExchangeInput{UserID: userID, Message: message})
	require.NoError(t, err)

	assert.Equal(t, "I dey o! Wetin dey happen?", res.Reply)
	assert.Equal(t, domain.LanguagePidgin, res.Language)
	assert.GreaterOrEqual(t, res.Elapsed.Nanoseconds(), int64(0))

	session, err := repo.FindOwnedSession(context.Background(), res.SessionID, userID, true)
	require.NoError(t, err)
	assert.Equal(t, "How far, abeg tell me about La...", session.Title)
	assert.Equal(t, domain.LanguagePidgin, session.Language)
	assert.Equal(t, []domain.MessageRole{domain.RoleUser, domain.RoleAssistant}, repo.roles(res.SessionID))
	assert.Equal(t, 1, repo.touches[res.SessionID])

	assert.Equal(t, SystemPrompt(domain.LanguagePidgin), gen.gotPrompt)
	require.Len(t, gen.gotHistory, 1)
	assert.Equal(t, llm.Message{Role: "user", Content: message}, gen.gotHistory[0])
}

func TestExchange_ShortTitleNotTruncated(t *testing.T) {
	repo := newFakeChatRepo()
	svc := newConversation(repo, &fakeGenerator{reply: "ok"}, 20)
	userID := uuid.New()

	res, err := svc.Exchange(context.Background(), ExchangeInput{UserID: userID, Message: "How far"})
	require.NoError(t, err)

	session, err := repo.FindOwnedSession(context.Background(), res.SessionID, userID, false)
	require.NoError(t, err)
	assert.Equal(t, "How far", session.Title)
}

func TestExchange_ExistingSession(t *testing.T) {
	repo := newFakeChatRepo()
	gen := &fakeGenerator{reply: "Asante!"}
	svc := newConversation(repo, gen, 20)
	userID := uuid.New()
	session := repo.seed(userID, domain.LanguageSwahili, "Habari", "Nzuri sana")

	res, err := svc.Exchange(context.Background(), ExchangeInput{
		UserID:    userID,
		SessionID: &session.ID,
		Message:   "Asante",
	})
	require.NoError(t, err)

	assert.Equal(t, session.ID, res.SessionID)
	assert.Equal(t, domain.LanguageSwahili, res.Language)
	assert.Equal(t, SystemPrompt(domain.LanguageSwahili), gen.gotPrompt)
	assert.Equal(t, []llm.Message{
		{Role: "user", Content: "Habari"},
		{Role: "assistant", Content: "Nzuri sana"},
		{Role: "user", Content: "Asante"},
	}, gen.gotHistory)
	assert.Len(t, repo.roles(session.ID), 4)
	assert.Equal(t, 1, repo.touches[session.ID])
}

func TestExchange_HistoryLimit(t *testing.T) {
	repo := newFakeChatRepo()
	gen := &fakeGenerator{reply: "ok"}
	svc := newConversation(repo, gen, 3)
	userID := uuid.New()
	session := repo.seed(userID, domain.LanguagePidgin, "a", "b", "c", "d")

	_, err := svc.Exchange(context.Background(), ExchangeInput{UserID: userID, SessionID: &session.ID, Message: "e"})
	require.NoError(t, err)

	require.Len(t, gen.gotHistory, 3)
	assert.Equal(t, "c", gen.gotHistory[0].Content)
	assert.Equal(t, "e", gen.gotHistory[2].Content)
}

func TestExchange_SessionNotOwned(t *testing.T) {
	repo := newFakeChatRepo()
	gen := &fakeGenerator{reply: "ok"}
	svc := newConversation(repo, gen, 20)
	owner := uuid.New()
	session := repo.seed(owner, domain.LanguagePidgin, "hi", "hello")
	missing := uuid.New()

	tests := []struct {
		name      string
		userID    uuid.UUID
		sessionID *uuid.UUID
	}{
		{"other user", uuid.New(), &session.ID},
		{"missing session", owner, &missing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Exchange(context.Background(), ExchangeInput{
				UserID:    tt.userID,
				SessionID: tt.sessionID,
				Message:   "intrude",
			})
			assert.ErrorIs(t, err, domain.ErrSessionNotFound)
		})
	}

	assert.Len(t, repo.roles(session.ID), 2)
	assert.Nil(t, gen.gotHistory)
}

func TestExchange_InvalidLanguage(t *testing.T) {
	repo := newFakeChatRepo()
	svc := newConversation(repo, &fakeGenerator{reply: "ok"}, 20)

	_, err := svc.Exchange(context.Background(), ExchangeInput{UserID: uuid.New(), Message: "hi", Language: "klingon"})
	assert.ErrorIs(t, err, domain.ErrInvalidLanguage)
	assert.Empty(t, repo.sessions)
}

func TestExchange_UpstreamFailureKeepsUserTurn(t *testing.T) {
	repo := newFakeChatRepo()
	upstream := &llm.UpstreamError{StatusCode: http.StatusServiceUnavailable, Message: "over capacity"}
	svc := newConversation(repo, &fakeGenerator{err: upstream}, 20)
	userID := uuid.New()
	session := repo.seed(userID, domain.LanguagePidgin)

	_, err := svc.Exchange(context.Background(), ExchangeInput{UserID: userID, SessionID: &session.ID, Message: "hello?"})
	require.ErrorIs(t, err, domain.ErrGenerationFailed)

	var upErr *llm.UpstreamError
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, http.StatusServiceUnavailable, upErr.StatusCode)

	assert.Equal(t, []domain.MessageRole{domain.RoleUser}, repo.roles(session.ID))
	assert.Zero(t, repo.touches[session.ID])
}

func TestExchange_PersistenceFailure(t *testing.T) {
	repo := newFakeChatRepo()
	repo.appendErr = errors.New("connection reset")
	gen := &fakeGenerator{reply: "ok"}
	svc := newConversation(repo, gen, 20)

	_, err := svc.Exchange(context.Background(), ExchangeInput{UserID: uuid.New(), Message: "hi"})
	assert.ErrorIs(t, err, domain.ErrGenerationFailed)
	assert.Nil(t, gen.gotHistory)
}

func TestExchange_StoresTokenUsage(t *testing.T) {
	repo := newFakeChatRepo()
	gen := &fakeGenerator{reply: "ok", usage: &llm.Usage{PromptTokens: 9, CompletionTokens: 3, TotalTokens: 12}}
	svc := newConversation(repo, gen, 20)

	res, err := svc.Exchange(context.Background(), ExchangeInput{UserID: uuid.New(), Message: "hi"})
	require.NoError(t, err)

	reply := repo.last(res.SessionID)
	require.NotNil(t, reply)
	var usage domain.TokenUsage
	require.NoError(t, json.Unmarshal(reply.TokenUsage, &usage))
	assert.Equal(t, 12, usage.TotalTokens)
}

func TestStreamExchange_Completes(t *testing.T) {
	repo := newFakeChatRepo()
	gen := &fakeGenerator{fragments: []string{"Wet", "in", " dey"}}
	svc := newConversation(repo, gen, 20)
	userID := uuid.New()

	stream, err := svc.StreamExchange(context.Background(), ExchangeInput{UserID: userID, Message: "How far"})
	require.NoError(t, err)

	// The user turn is recorded before any fragment arrives.
	assert.Equal(t, []domain.MessageRole{domain.RoleUser}, repo.roles(stream.SessionID()))

	var got []string
	for stream.Next() {
		got = append(got, stream.Text())
	}
	require.NoError(t, stream.Err())
	assert.Equal(t, []string{"Wet", "in", " dey"}, got)

	res, err := stream.Close(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Wetin dey", res.Reply)
	assert.Equal(t, stream.SessionID(), res.SessionID)

	assert.Equal(t, []domain.MessageRole{domain.RoleUser, domain.RoleAssistant}, repo.roles(res.SessionID))
	assert.Equal(t, "Wetin dey", repo.last(res.SessionID).Content)
	assert.Equal(t, 1, repo.touches[res.SessionID])
}

func TestStreamExchange_ClosedEarly(t *testing.T) {
	repo := newFakeChatRepo()
	svc := newConversation(repo, &fakeGenerator{fragments: []string{"one", "two"}}, 20)

	stream, err := svc.StreamExchange(context.Background(), ExchangeInput{UserID: uuid.New(), Message: "hi"})
	require.NoError(t, err)
	require.True(t, stream.Next())

	_, err = stream.Close(context.Background())
	assert.ErrorIs(t, err, ErrExchangeIncomplete)
	assert.Equal(t, []domain.MessageRole{domain.RoleUser}, repo.roles(stream.SessionID()))
	assert.Zero(t, repo.touches[stream.SessionID()])
}

func TestStreamExchange_Truncated(t *testing.T) {
	repo := newFakeChatRepo()
	svc := newConversation(repo, &fakeGenerator{fragments: []string{"half"}, truncate: true}, 20)

	stream, err := svc.StreamExchange(context.Background(), ExchangeInput{UserID: uuid.New(), Message: "hi"})
	require.NoError(t, err)
	for stream.Next() {
	}
	require.Error(t, stream.Err())

	_, err = stream.Close(context.Background())
	assert.ErrorIs(t, err, domain.ErrGenerationFailed)
	assert.Equal(t, []domain.MessageRole{domain.RoleUser}, repo.roles(stream.SessionID()))
}

func TestStreamExchange_UpstreamRejects(t *testing.T) {
	repo := newFakeChatRepo()
	svc := newConversation(repo, &fakeGenerator{err: &llm.UpstreamError{StatusCode: 401, Message: "bad key"}}, 20)

	_, err := svc.StreamExchange(context.Background(), ExchangeInput{UserID: uuid.New(), Message: strings.Repeat("x", 10)})
	assert.ErrorIs(t, err, domain.ErrGenerationFailed)
}
