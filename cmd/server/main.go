// Course Chat - Streaming course recommendation server
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

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gracepapers/coursechat/internal/agent"
	"github.com/gracepapers/coursechat/internal/api"
	"github.com/gracepapers/coursechat/internal/chat"
	"github.com/gracepapers/coursechat/internal/config"
	"github.com/gracepapers/coursechat/internal/middleware"
	"github.com/gracepapers/coursechat/internal/search"
	"github.com/gracepapers/coursechat/internal/store"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize the course catalog. Without a DB path the service serves
	// deterministic template results instead.
	var searcher search.Searcher
	var catalog *search.Catalog
	if cfg.CourseDBPath != "" {
		catalog, err = search.NewCatalog(cfg.CourseDBPath)
		if err != nil {
			slog.Error("Failed to initialize course catalog", "error", err)
			os.Exit(1)
		}
		defer func() {
			if closeErr := catalog.Close(); closeErr != nil {
				slog.Error("Failed to close course catalog", "error", closeErr)
			}
		}()

		if err := catalog.Ping(context.Background()); err != nil {
			slog.Error("Course catalog health check failed", "error", err)
			os.Exit(1)
		}
		searcher = catalog
		slog.Info("Course catalog connected", "path", cfg.CourseDBPath)
	} else {
		searcher = search.TemplateSearcher{}
		slog.Info("No course database configured, using template results")
	}

	// Initialize the agent. Without an API key the service still answers,
	// with canned replies backed by the searcher.
	var invoker agent.Invoker
	if cfg.OpenAI.APIKey != "" {
		invoker = agent.NewOpenAIInvoker(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model, searcher)
		slog.Info("Agent backend configured", "model", cfg.OpenAI.Model)
	} else {
		invoker = agent.NewOfflineInvoker(searcher)
		slog.Info("Agent backend disabled (OPENAI_API_KEY not set), using offline replies")
	}

	// Initialize services.
	sessions := store.NewMemoryStore()
	orch := chat.NewOrchestrator(sessions, invoker, cfg.AgentTimeout, cfg.MaxSearchResults)

	// Initialize handlers.
	chatHandler := chat.NewHandler(sessions, orch, cfg)
	apiHandler := api.NewHandler(searcher, api.HealthInfo{
		AgentReady:   invoker.Ready,
		SessionCount: sessions.Len,
		CourseCount: func(ctx context.Context) (int, error) {
			if catalog == nil {
				return 0, errors.New("no catalog configured")
			}
			return catalog.Count(ctx)
		},
	})

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	corsOrigins := []string{"*"}
	if cfg.FrontendURL != "" {
		corsOrigins = []string{cfg.FrontendURL}
	}
	r.Use(middleware.CORS(corsOrigins))

	chatHandler.RegisterRoutes(r)
	apiHandler.RegisterRoutes(r)

	// Create server.
	// Note: SSE connections require long timeouts (no WriteTimeout)
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,                 // 0 = no timeout for SSE support
		IdleTimeout:  120 * time.Second, // 2 minutes for idle connections
	}

	// Start TTL worker.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store.StartTTLWorker(ctx, sessions, cfg.SessionTTL)
	slog.Info("TTL worker started", "session_ttl", cfg.SessionTTL)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
