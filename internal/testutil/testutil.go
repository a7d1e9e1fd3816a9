package testutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zeempo/zeempo-gateway/internal/api"
	"github.com/zeempo/zeempo-gateway/internal/auth"
	"github.com/zeempo/zeempo-gateway/internal/config"
	"github.com/zeempo/zeempo-gateway/internal/llm"
	"github.com/zeempo/zeempo-gateway/internal/repository"
	repoPostgres "github.com/zeempo/zeempo-gateway/internal/repository/postgres"
	"github.com/zeempo/zeempo-gateway/internal/service"
	"github.com/zeempo/zeempo-gateway/internal/websocket"
)

// TestDB manages a testcontainers PostgreSQL instance
type TestDB struct {
	Container testcontainers.Container
	DB        *gorm.DB
	DSN       string
}

// NewTestDB starts a PostgreSQL container, applies the migrations and
// returns a connection. The test is skipped when no container runtime is
// available.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	container, err := tcPostgres.Run(ctx,
		"postgres:15-alpine",
		tcPostgres.WithDatabase("test_zeempo"),
		tcPostgres.WithUsername("test"),
		tcPostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	testDB := &TestDB{Container: container}
	t.Cleanup(func() {
		testDB.Cleanup()
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}
	testDB.DSN = dsn

	db, err := repoPostgres.NewConnection(dsn, logger.Silent)
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}
	if err := repoPostgres.Migrate(ctx, db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	testDB.DB = db

	return testDB
}

// Cleanup terminates the container
func (tdb *TestDB) Cleanup() {
	if tdb.Container != nil {
		tdb.Container.Terminate(context.Background())
	}
}

// Truncate clears all tables for test isolation
func (tdb *TestDB) Truncate(t *testing.T) {
	t.Helper()

	tables := []string{
		"chat_messages",
		"chat_sessions",
		"users",
	}

	for _, table := range tables {
		if err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
			t.Logf("warning: failed to truncate %s: %v", table, err)
		}
	}
}

// TestConfig returns a configuration suitable for testing
func TestConfig() *config.Config {
	return &config.Config{
		Port:           "0",
		Environment:    "test",
		AppName:        "Zeempo",
		AppVersion:     "test",
		CORSOrigins:    []string{"http://localhost:5173"},
		JWTSecret:      "test-jwt-secret-key-for-testing-only",
		TokenTTL:       time.Hour,
		LLMAPIKey:      "test-llm-key",
		LLMModel:       "test-model",
		LLMTemperature: 0.7,
		LLMMaxTokens:   1000,
		LLMTimeout:     5 * time.Second,
		HistoryLimit:   20,
		LogLevel:       "error",
		LogFormat:      "text",
	}
}

func NewTokenManager(t *testing.T, cfg *config.Config) *auth.TokenManager {
	t.Helper()
	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		t.Fatalf("failed to create token manager: %v", err)
	}
	return tokens
}

func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestServer holds all components for integration testing
type TestServer struct {
	Server   *httptest.Server
	DB       *TestDB
	Repos    *repository.Repositories
	Services *service.Services
	Tokens   *auth.TokenManager
	Provider *FakeProvider
	Hub      *websocket.Hub
	Config   *config.Config
}

// NewTestServer creates a complete test server backed by a real database and
// a fake upstream provider. opts adjust the config before wiring.
func NewTestServer(t *testing.T, opts ...func(*config.Config)) *TestServer {
	t.Helper()

	testDB := NewTestDB(t)
	provider := NewFakeProvider(t)

	cfg := TestConfig()
	cfg.LLMBaseURL = provider.URL()
	for _, opt := range opts {
		opt(cfg)
	}

	log := DiscardLogger()
	tokens := NewTokenManager(t, cfg)

	client, err := llm.NewClient(llm.Config{
		APIKey:      cfg.LLMAPIKey,
		BaseURL:     cfg.LLMBaseURL,
		Model:       cfg.LLMModel,
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
		Timeout:     cfg.LLMTimeout,
	})
	if err != nil {
		t.Fatalf("failed to create llm client: %v", err)
	}

	repos := repoPostgres.NewRepositories(testDB.DB)
	services := service.NewServices(repos, tokens, client, cfg.HistoryLimit, log)

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

	server := httptest.NewServer(router)

	t.Cleanup(func() {
		server.Close()
	})
	t.Cleanup(func() {
		hub.Stop()
	})

	return &TestServer{
		Server:   server,
		DB:       testDB,
		Repos:    repos,
		Services: services,
		Tokens:   tokens,
		Provider: provider,
		Hub:      hub,
		Config:   cfg,
	}
}

// URL returns the absolute URL for path
func (ts *TestServer) URL(path string) string {
	return ts.Server.URL + path
}

// WebSocketURL returns the socket URL with token
func (ts *TestServer) WebSocketURL(token string) string {
	wsURL := "ws" + strings.TrimPrefix(ts.Server.URL, "http")
	return fmt.Sprintf("%s/api/ws?token=%s", wsURL, token)
}
