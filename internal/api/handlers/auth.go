package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/zeempo/zeempo-gateway/internal/api/middleware"
	"github.com/zeempo/zeempo-gateway/internal/domain"
	"github.com/zeempo/zeempo-gateway/internal/service"
)

const minPasswordLength = 6

type AuthHandler struct {
	authService *service.AuthService
	logger      *slog.Logger
}

func NewAuthHandler(authService *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger.With("component", "handlers.auth"),
	}
}

type RegisterRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     string  `json:"name"`
	Avatar   *string `json:"avatar"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type UserResponse struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email"`
	Name               string    `json:"name"`
	Avatar             *string   `json:"avatar"`
	PlanType           string    `json:"planType"`
	SubscriptionStatus *string   `json:"subscriptionStatus"`
	CreatedAt          time.Time `json:"createdAt"`
}

func newTokenResponse(result *service.AuthResult) TokenResponse {
	return TokenResponse{
		AccessToken: result.AccessToken,
		TokenType:   "bearer",
		ExpiresAt:   result.ExpiresAt,
	}
}

// validate rewrites Email to its canonical form when it is accepted.
func (req *RegisterRequest) validate() string {
	email, err := domain.ParseEmail(req.Email)
	if err != nil {
		return detailInvalidEmail
	}
	req.Email = email
	if len(req.Password) < minPasswordLength {
		return "Password must be at least 6 characters"
	}
	return ""
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, detailInvalidBody)
		return
	}

	if msg := req.validate(); msg != "" {
		writeDetail(w, http.StatusUnprocessableEntity, msg)
		return
	}

	result, err := h.authService.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Avatar:   req.Avatar,
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			writeDetail(w, http.StatusBadRequest, detailEmailTaken)
			return
		}
		if errors.Is(err, domain.ErrInvalidEmail) {
			writeDetail(w, http.StatusUnprocessableEntity, detailInvalidEmail)
			return
		}
		h.logger.Error("register failed", "error", err)
		writeDetail(w, http.StatusInternalServerError, detailInternal)
		return
	}

	writeJSON(w, http.StatusOK, newTokenResponse(result))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, detailInvalidBody)
		return
	}

	if req.Email == "" || req.Password == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "Email and password are required")
		return
	}

	result, err := h.authService.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			writeDetail(w, http.StatusUnauthorized, detailBadCredentials)
			return
		}
		h.logger.Error("login failed", "error", err)
		writeDetail(w, http.StatusInternalServerError, detailInternal)
		return
	}

	writeJSON(w, http.StatusOK, newTokenResponse(result))
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.authService.Me(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			writeDetail(w, http.StatusNotFound, detailUserNotFound)
			return
		}
		h.logger.Error("load user failed", "user_id", userID, "error", err)
		writeDetail(w, http.StatusInternalServerError, detailInternal)
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{
		ID:                 user.ID.String(),
		Email:              user.Email,
		Name:               user.Name,
		Avatar:             user.Avatar,
		PlanType:           user.PlanType,
		SubscriptionStatus: user.SubscriptionStatus,
		CreatedAt:          user.CreatedAt,
	})
}
