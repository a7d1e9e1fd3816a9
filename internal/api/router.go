package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/zeempo/zeempo-gateway/internal/api/handlers"
	"github.com/zeempo/zeempo-gateway/internal/api/middleware"
	"github.com/zeempo/zeempo-gateway/internal/config"
	"github.com/zeempo/zeempo-gateway/internal/service"
	"github.com/zeempo/zeempo-gateway/internal/websocket"
)

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Config   *config.Config
	Services *service.Services
	Tokens   middleware.TokenVerifier
	LLM      handlers.CompletionClient
	Hub      *websocket.Hub
	Logger   *slog.Logger
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(d.Config.CORSOrigins))

	// Initialize handlers
	systemHandler := handlers.NewSystemHandler(d.Config.AppName, d.Config.AppVersion)
	authHandler := handlers.NewAuthHandler(d.Services.Auth, d.Logger)
	chatHandler := handlers.NewChatHandler(d.Services.Chat, d.Logger)
	conversationHandler := handlers.NewConversationHandler(d.Services.Conversation, d.Config.LLMModel, d.Logger)
	completionsHandler := handlers.NewCompletionsHandler(d.LLM, d.Config.LLMModel, d.Config.CompletionsAPIKey, d.Logger)
	wsHandler := handlers.NewWebSocketHandler(d.Hub, d.Tokens, d.Services.Conversation, d.Config.CORSOrigins, d.Logger)

	requireAuth := middleware.Auth(d.Tokens, d.Logger)

	r.Get("/", systemHandler.Root)
	r.Get("/health", systemHandler.Health)

	r.Route("/api", func(r chi.Router) {
		// Public auth routes
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)

			r.With(requireAuth).Get("/me", authHandler.Me)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Route("/chats", func(r chi.Router) {
				r.Get("/", chatHandler.List)
				r.Get("/{id}", chatHandler.Get)
				r.Delete("/{id}", chatHandler.Delete)
			})

			r.Post("/text-to-pidgin", conversationHandler.TextToPidgin)
			r.Post("/text-to-pidgin/stream", conversationHandler.TextToPidginStream)
		})

		// Voice routes are switched off
		r.Post("/voice-to-voice", handlers.VoiceToVoiceDisabled)
		r.Post("/pidgin-to-voice", handlers.VoiceOutputDisabled)
		r.Get("/voices", handlers.VoicesDisabled)

		// WebSocket endpoint authenticates itself
		r.Get("/ws", wsHandler.Handle)

		r.Post("/v1/chat/completions", completionsHandler.Create)
	})

	// OpenAI-compatible clients expect the bare /v1 prefix
	r.Post("/v1/chat/completions", completionsHandler.Create)

	return r
}
