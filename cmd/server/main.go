package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/gorm/logger"

	"github.com/zeempo/zeempo-gateway/internal/api"
	"github.com/zeempo/zeempo-gateway/internal/auth"
	"github.com/zeempo/zeempo-gateway/internal/config"
	"github.com/zeempo/zeempo-gateway/internal/llm"
	"github.com/zeempo/zeempo-gateway/internal/logging"
	"github.com/zeempo/zeempo-gateway/internal/repository/postgres"
	"github.com/zeempo/zeempo-gateway/internal/service"
	"github.com/zeempo/zeempo-gateway/internal/websocket"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	slog.SetDefault(log)

	// Initialize database
	db, err := postgres.NewConnection(cfg.DatabaseURL, logger.Warn)
	if err != nil {
		return err
	}

	migrateCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	err = postgres.Migrate(migrateCtx, db)
	cancel()
	if err != nil {
		return err
	}

	repos := postgres.NewRepositories(db)

	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}

	client, err := llm.NewClient(llm.Config{
		APIKey:      cfg.LLMAPIKey,
		BaseURL:     cfg.LLMBaseURL,
		Model:       cfg.LLMModel,
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
		Timeout:     cfg.LLMTimeout,
	})
	if err != nil {
		return err
	}

	services := service.NewServices(repos, tokens, client, cfg.HistoryLimit, log)

	// Initialize WebSocket hub
	hub := websocket.NewHub(log)
	go hub.Run()

	router := api.NewRouter(api.Deps{
		Config:   cfg,
		Services: services,
		Tokens:   tokens,
		LLM:      client,
		Hub:      hub,
		Logger:   log,
	})

	// No write timeout: streamed replies can outlive any fixed bound.
	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server starting",
			"port", cfg.Port,
			"environment", cfg.Environment,
			"model", client.Model(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return err
	case <-quit:
	}

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Sockets are hijacked, so Shutdown does not wait for them.
	hub.Stop()

	if err := srv.Shutdown(ctx); err != nil {
		return err
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	log.Info("server stopped")
	return nil
}
