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

	"github.com/joho/godotenv"
	"github.com/MikeSquared-Agency/echo/internal/api"
	"github.com/MikeSquared-Agency/echo/internal/config"
	"github.com/MikeSquared-Agency/echo/internal/domains"
	"github.com/MikeSquared-Agency/echo/internal/events"
	"github.com/MikeSquared-Agency/echo/internal/extractor"
	"github.com/MikeSquared-Agency/echo/internal/gemini"
	"github.com/MikeSquared-Agency/echo/internal/metrics"
	"github.com/MikeSquared-Agency/echo/internal/pipeline"
	"github.com/MikeSquared-Agency/echo/internal/prompts"
	"github.com/MikeSquared-Agency/echo/internal/store"
	"github.com/MikeSquared-Agency/echo/internal/tasks"
	"github.com/MikeSquared-Agency/echo/internal/tonal"
	"github.com/MikeSquared-Agency/echo/internal/transcriber"
)

func main() {
	_ = godotenv.Load() // loads .env

	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("echo starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database connected")

	// Domain registry, seeded from the prompts already on record.
	registry := domains.New(slog.Default())
	if pairs, err := db.ListDomainCategories(ctx); err != nil {
		slog.Warn("failed to load stored domain pairs, starting with defaults", "error", err)
	} else {
		registry.Merge(pairs)
	}

	// Gemini client
	if cfg.GeminiAPIKey == "" {
		slog.Error("GEMINI_API_KEY is required")
		os.Exit(1)
	}
	llm := gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel)
	slog.Info("gemini client ready", "model", cfg.GeminiModel)

	// Background task supervision for prompt write-backs.
	runner := tasks.NewRunner(slog.Default())

	// NATS is optional. Without it echo runs with event publication disabled.
	var eventsClient *events.Client
	if cfg.NatsURL != "" {
		eventsClient, err = events.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS not configured, running without event publication")
	}

	m := metrics.New()

	// Pipeline stages
	pipe := pipeline.New(
		transcriber.New(llm, registry, slog.Default()),
		prompts.New(llm, db, registry, runner, slog.Default()),
		extractor.New(llm, db, slog.Default()),
		tonal.New(llm, slog.Default()),
		db,
		eventsClient,
		m,
		slog.Default(),
	)

	// HTTP API
	srv := api.NewServer(cfg.Port, pipe, registry, db, m, slog.Default())
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	// Announce registration
	if eventsClient != nil {
		if err := eventsClient.Publish("swarm.agent.echo.registered", map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"port":      cfg.Port,
			"model":     cfg.GeminiModel,
		}); err != nil {
			slog.Warn("failed to publish registration", "error", err)
		}
	}

	slog.Info("echo ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown error", "error", err)
	}
	if err := runner.Shutdown(shutdownCtx); err != nil {
		slog.Warn("background tasks did not finish", "error", err)
	}
	if eventsClient != nil {
		eventsClient.Close()
	}
	cancel()
	slog.Info("echo stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
