// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/laguz/internal/api"
	"github.com/starford/laguz/internal/engine"
	"github.com/starford/laguz/internal/index"
	"github.com/starford/laguz/internal/mcpserver"
	"github.com/starford/laguz/internal/sse"
	"github.com/starford/laguz/internal/storage"
	"github.com/starford/laguz/internal/tags"
)

// Run starts the application with the given options: initial index
// build, file watcher, SSE broker, and HTTP API.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("workspace_path", cfg.Workspace.Path),
		slog.String("database_path", cfg.Data.DatabasePath()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker receives every index mutation.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	eng, _, cleanup, err := buildEngine(cfg, logger, func(ev engine.Event) {
		broker.PublishDocumentEvent(ev.Kind, ev.ID)
	})
	if err != nil {
		return err
	}
	defer cleanup()
	defer eng.Close()

	// Initial build.
	if _, err := eng.Rebuild(ctx); err != nil {
		logger.Warn("initial rebuild failed", slog.String("error", err.Error()))
	}

	apiRouter := api.NewRouter(eng, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher.
	g.Go(func() error {
		return eng.Watch(gCtx, cfg.Workspace.Path)
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP starts the MCP stdio server instead of the HTTP stack. Logs go
// to stderr because stdout carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	eng, store, cleanup, err := buildEngine(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer cleanup()
	defer eng.Close()

	if _, err := eng.Rebuild(ctx); err != nil {
		logger.Warn("initial rebuild failed", slog.String("error", err.Error()))
	}

	return mcpserver.New(store, eng).ServeStdio()
}

// buildEngine opens storage and index and constructs the engine.
func buildEngine(cfg *Config, logger *slog.Logger, notify engine.NotifyFunc) (*engine.Engine, *storage.FS, func(), error) {
	if err := os.MkdirAll(cfg.Workspace.Path, 0o755); err != nil {
		return nil, nil, nil, fmt.Errorf("create workspace dir: %w", err)
	}
	if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
		return nil, nil, nil, fmt.Errorf("create data dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Workspace.Path, cfg.Workspace.Include, cfg.Workspace.Exclude)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.Data.DatabasePath())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init index: %w", err)
	}

	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithDebounce(cfg.Data.Debounce()),
		engine.WithWorkers(cfg.Data.Workers),
		engine.WithStorageTimeout(cfg.Data.StorageTimeout()),
	}
	if notify != nil {
		opts = append(opts, engine.WithNotify(notify))
	}
	eng := engine.New(store, db, tags.NewHierarchy(), opts...)
	return eng, store, func() { db.Close() }, nil
}
