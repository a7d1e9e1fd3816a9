package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zeempo/zeempo-gateway/internal/domain"
	"github.com/zeempo/zeempo-gateway/internal/llm"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeChatRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*domain.ChatSession
	messages map[uuid.UUID][]*domain.ChatMessage
	touches  map[uuid.UUID]int

	appendErr error
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{
		sessions: make(map[uuid.UUID]*domain.ChatSession),
		messages: make(map[uuid.UUID][]*domain.ChatMessage),
		touches:  make(map[uuid.UUID]int),
	}
}

func (r *fakeChatRepo) ListSessions(_ context.Context, userID uuid.UUID) ([]*domain.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.ChatSession
	for _, s := range r.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b *domain.ChatSession) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return out, nil
}

func (r *fakeChatRepo) FindOwnedSession(_ context.Context, sessionID, userID uuid.UUID, withMessages bool) (*domain.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok || s.UserID != userID {
		return nil, domain.ErrSessionNotFound
	}
	cp := *s
	if withMessages {
		for _, m := range r.messages[sessionID] {
			cp.Messages = append(cp.Messages, *m)
		}
	}
	return &cp, nil
}

func (r *fakeChatRepo) CreateSession(_ context.Context, session *domain.ChatSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = session
	return nil
}

func (r *fakeChatRepo) DeleteOwnedSession(_ context.Context, sessionID, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok || s.UserID != userID {
		return domain.ErrSessionNotFound
	}
	delete(r.sessions, sessionID)
	delete(r.messages, sessionID)
	return nil
}

func (r *fakeChatRepo) AppendMessage(_ context.Context, msg *domain.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return r.appendErr
	}
	if _, ok := r.sessions[msg.SessionID]; !ok {
		return domain.ErrSessionNotFound
	}
	r.messages[msg.SessionID] = append(r.messages[msg.SessionID], msg)
	return nil
}

func (r *fakeChatRepo) ListMessages(_ context.Context, sessionID uuid.UUID, limit int) ([]*domain.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.messages[sessionID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return slices.Clone(all), nil
}

func (r *fakeChatRepo) TouchSession(_ context.Context, sessionID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[sessionID]; ok {
		s.UpdatedAt = at
	}
	r.touches[sessionID]++
	return nil
}

func (r *fakeChatRepo) seed(userID uuid.UUID, lang domain.Language, turns ...string) *domain.ChatSession {
	s := &domain.ChatSession{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     "seeded",
		Language:  lang,
		UpdatedAt: time.Now().Add(-time.Hour),
	}
	r.sessions[s.ID] = s
	for i, text := range turns {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		r.messages[s.ID] = append(r.messages[s.ID], &domain.ChatMessage{
			ID: uuid.New(), SessionID: s.ID, Role: role, Content: text,
		})
	}
	return s
}

func (r *fakeChatRepo) roles(sessionID uuid.UUID) []domain.MessageRole {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.MessageRole
	for _, m := range r.messages[sessionID] {
		out = append(out, m.Role)
	}
	return out
}

func (r *fakeChatRepo) last(sessionID uuid.UUID) *domain.ChatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := r.messages[sessionID]
	if len(msgs) == 0 {
		return nil
	}
	return msgs[len(msgs)-1]
}

type fakeGenerator struct {
	reply string
	usage *llm.Usage
	err   error

	fragments []string
	// truncate drops the [DONE] marker from streamed responses.
	truncate bool

	mu         sync.Mutex
	gotHistory []llm.Message
	gotPrompt  string
}

func (g *fakeGenerator) record(history []llm.Message, prompt string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gotHistory = slices.Clone(history)
	g.gotPrompt = prompt
}

func (g *fakeGenerator) Complete(_ context.Context, history []llm.Message, prompt string) (*llm.Completion, error) {
	g.record(history, prompt)
	if g.err != nil {
		return nil, g.err
	}
	return &llm.Completion{Text: g.reply, Usage: g.usage}, nil
}

func (g *fakeGenerator) CompleteStream(_ context.Context, history []llm.Message, prompt string) (*llm.Stream, error) {
	g.record(history, prompt)
	if g.err != nil {
		return nil, g.err
	}

	var b strings.Builder
	for _, f := range g.fragments {
		chunk, _ := json.Marshal(map[string]any{
			"choices": []any{map[string]any{"delta": map[string]string{"content": f}}},
		})
		fmt.Fprintf(&b, "data: %s\n\n", chunk)
	}
	if !g.truncate {
		b.WriteString("data: [DONE]\n\n")
	}
	return llm.NewStream(io.NopCloser(strings.NewReader(b.String()))), nil
}
