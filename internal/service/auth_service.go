package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeempo/zeempo-gateway/internal/auth"
	"github.com/zeempo/zeempo-gateway/internal/domain"
	"github.com/zeempo/zeempo-gateway/internal/repository"
)

// TokenIssuer signs bearer tokens for a user id.
type TokenIssuer interface {
	Issue(subject uuid.UUID) (string, time.Time, error)
}

type AuthService struct {
	users  repository.UserRepository
	tokens TokenIssuer
	logger *slog.Logger

	// dummyHash is compared against when the email is unknown so both login
	// failures cost one bcrypt comparison.
	dummyHash string
}

func NewAuthService(users repository.UserRepository, tokens TokenIssuer, logger *slog.Logger) *AuthService {
	dummy, _ := auth.HashPassword(uuid.NewString())
	return &AuthService{
		users:     users,
		tokens:    tokens,
		logger:    logger.With("component", "auth"),
		dummyHash: dummy,
	}
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Avatar   *string
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResult struct {
	User        *domain.User
	AccessToken string
	ExpiresAt   time.Time
}

// NormalizeEmail is the canonical form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email, err := domain.ParseEmail(input.Email)
	if err != nil {
		return nil, err
	}

	_, err = s.users.GetByEmail(ctx, email)
	if err == nil {
		return nil, domain.ErrEmailTaken
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Avatar:       input.Avatar,
		PlanType:     domain.PlanFree,
	}

	// A concurrent registration can still win the race; the unique index
	// reports it as ErrEmailTaken.
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return s.issue(user)
}

// Login fails with the same ErrInvalidCredentials whether the email is
// unknown or the password is wrong.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, NormalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			auth.VerifyPassword(input.Password, s.dummyHash)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !auth.VerifyPassword(input.Password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	return s.issue(user)
}

func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		User:        user,
		AccessToken: token,
		ExpiresAt:   expiresAt,
	}, nil
}
