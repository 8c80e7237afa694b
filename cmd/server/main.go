// Lilabot - WhatsApp sticker and chat bot server
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

	"github.com/GuilhermePossari/Lilabot/internal/api"
	"github.com/GuilhermePossari/Lilabot/internal/bot"
	"github.com/GuilhermePossari/Lilabot/internal/config"
	"github.com/GuilhermePossari/Lilabot/internal/counter"
	"github.com/GuilhermePossari/Lilabot/internal/generation"
	"github.com/GuilhermePossari/Lilabot/internal/intent"
	"github.com/GuilhermePossari/Lilabot/internal/middleware"
	"github.com/GuilhermePossari/Lilabot/internal/session"
	"github.com/GuilhermePossari/Lilabot/internal/sticker"
	"github.com/GuilhermePossari/Lilabot/internal/store"
	"github.com/GuilhermePossari/Lilabot/internal/whatsapp"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	slog.Info("Starting server", "port", cfg.Port, "state_backend", cfg.State.Backend)

	// Initialize state.
	ctx := context.Background()
	backend, err := store.Open(ctx, store.Options{
		Driver:      cfg.State.Backend,
		SQLitePath:  cfg.State.DBPath,
		Dir:         cfg.State.Dir,
		RedisURL:    cfg.State.RedisURL,
		RedisPrefix: cfg.State.RedisPrefix,
	})
	if err != nil {
		slog.Error("Failed to initialize state backend", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := backend.Close(); closeErr != nil {
			slog.Error("Failed to close state backend", "error", closeErr)
		}
	}()

	if err := backend.Ping(ctx); err != nil {
		slog.Error("State backend health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("State backend connected")

	sessions := session.New(backend.Table(store.TableSessions), logger)
	preloaded, err := sessions.Preload(ctx)
	if err != nil {
		slog.Error("Failed to load sessions", "error", err)
		os.Exit(1)
	}
	slog.Info("Sessions loaded", "count", preloaded)
	counters, err := counter.Open(ctx, backend.Table(store.TableCounters))
	if err != nil {
		slog.Error("Failed to load joke counters", "error", err)
		os.Exit(1)
	}

	// Initialize collaborators.
	if os.Getenv(config.TokenEnv) == "" {
		slog.Warn("WHATS_TOKEN is not set, outbound calls will be rejected until it is")
	}
	wa := whatsapp.NewClient(whatsapp.Config{
		BaseURL:       cfg.GraphURL,
		PhoneNumberID: cfg.PhoneNumberID,
		Timeout:       cfg.GraphTimeout,
		Token:         whatsapp.EnvToken(config.TokenEnv),
	}, logger)

	if cfg.Generation.APIKey == "" {
		slog.Warn("GENERATION_API_KEY is not set, jokes will come from the local pool")
	}
	gen := generation.NewClient(generation.Config{
		APIKey:      cfg.Generation.APIKey,
		BaseURL:     cfg.Generation.BaseURL,
		Model:       cfg.Generation.Model,
		MaxTokens:   cfg.Generation.MaxTokens,
		Temperature: cfg.Generation.Temperature,
		Timeout:     cfg.Generation.Timeout,
	}, logger)

	pipeline := sticker.NewPipeline(
		sticker.NewFetcher(wa),
		sticker.NewEncoder(sticker.WebPCodec{}, logger),
		sticker.NewPublisher(wa),
		logger,
	)

	replies, err := bot.LoadReplies(cfg.RepliesPath)
	if err != nil {
		slog.Error("Failed to load replies", "error", err)
		os.Exit(1)
	}

	limiterCtx, stopLimiter := context.WithCancel(ctx)
	defer stopLimiter()
	var limiter *bot.RateLimiter
	if cfg.Generation.RateLimit > 0 {
		limiter = bot.NewRateLimiter(limiterCtx, cfg.Generation.RateLimit, cfg.Generation.RateWindow)
	}

	router, err := bot.NewRouter(bot.Deps{
		Sessions:       sessions,
		Counters:       counters,
		Classifier:     intent.Default(),
		Generator:      gen,
		Stickers:       pipeline,
		Messenger:      wa,
		Replies:        replies,
		ThanksStickers: cfg.StickerIDs(),
		Limiter:        limiter,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize router", "error", err)
		os.Exit(1)
	}
	slog.Info("Router initialized", "thanks_stickers", len(cfg.StickerIDs()))

	handler := api.NewHandler(router, counters, backend, cfg.VerifyToken, logger)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.MaxBody(cfg.MaxBody))

	handler.RegisterRoutes(r)

	// Create server. Deliveries are handled synchronously, so the write
	// timeout has to cover a generation call plus a sticker conversion.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-sigCtx.Done()
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
