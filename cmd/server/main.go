package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	sentrygo "github.com/getsentry/sentry-go"

	"github.com/setlive/backend/internal/config"
	"github.com/setlive/backend/internal/hub"
	"github.com/setlive/backend/internal/logging"
	"github.com/setlive/backend/internal/router"
	"github.com/setlive/backend/internal/sentry"
	"github.com/setlive/backend/internal/session"
	"github.com/setlive/backend/internal/store"
)

func main() {
	// Initialize structured logging (reads LOGGING_LEVEL env var)
	logging.Initialize()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Error reporting
	if cfg.SentryDSN != "" {
		if err := sentrygo.Init(sentrygo.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.SentryEnvironment,
			BeforeSend:  sentry.ScrubEvent,
		}); err != nil {
			slog.Error("failed to initialize sentry", slog.String("error", err.Error()))
		}
		defer sentrygo.Flush(2 * time.Second)
	}

	// Initialize database
	sqlDB, err := store.Open(cfg.DatabasePath)
	if err != nil {
		slog.Error("failed to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer sqlDB.Close()

	// Run migrations
	if err := store.RunMigrations(sqlDB); err != nil {
		slog.Error("failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Wire the engine: sqlite write-through store, room hub, session manager
	queries := store.New(sqlDB)
	rooms := hub.New()
	engine := session.NewManager(queries, rooms)

	// Create router
	r := router.New(cfg, engine, rooms)

	// Start server
	addr := ":" + cfg.Port
	slog.Info("starting server", slog.String("addr", addr))

	if err := http.ListenAndServe(addr, r); err != nil {
		slog.Error("server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
