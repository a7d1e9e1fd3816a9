package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/zeempo/zeempo-gateway/internal/auth"
)

type contextKey string

const (
	UserIDKey contextKey = "userID"
)

const invalidTokenDetail = "Invalid or expired token"

// TokenVerifier checks a bearer token. *auth.TokenManager satisfies it.
type TokenVerifier interface {
	Verify(token string) (auth.Claims, bool)
}

// Auth rejects requests without a valid bearer token. Missing, malformed,
// badly signed and expired tokens all get the same 401.
func Auth(tokens TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With("component", "middleware.auth")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				logger.Debug("missing or malformed authorization header", "path", r.URL.Path)
				writeUnauthorized(w)
				return
			}

			claims, ok := tokens.Verify(token)
			if !ok {
				logger.Debug("token rejected", "path", r.URL.Path)
				writeUnauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively.
func BearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}

// WithUserID stores an authenticated user id, for handlers that
// authenticate outside this middleware.
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"detail": invalidTokenDetail})
}
