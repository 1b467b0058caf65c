package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/FasterSpeeding/PTF/internal/app"
	"github.com/FasterSpeeding/PTF/internal/auth"
	"github.com/FasterSpeeding/PTF/internal/link"
	"github.com/FasterSpeeding/PTF/internal/observability"
	"github.com/FasterSpeeding/PTF/internal/platform/cache"
	"github.com/FasterSpeeding/PTF/internal/platform/db"
	"github.com/FasterSpeeding/PTF/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, link cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	hasher := auth.NewArgon2Hasher(cfg.HashWorkers)
	userRepo := auth.NewUserRepository(pool)
	resolver := auth.NewResolver(logger, userRepo, hasher).WithMetrics(metrics)
	authHandler := auth.NewHandler(logger, resolver, userRepo, hasher)

	linkCache := link.NewCache(redisClient, cfg.LinkCacheTTL)
	linkRepo := link.NewRepository(pool)
	manager := link.NewManager(logger, linkRepo, linkCache)
	messageDir := link.NewMessageDirectory(pool)
	linkHandler := link.NewHandler(logger, manager, resolver, messageDir)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewAuthorityRouter(app.AuthorityRouterParams{
		Logger:      logger,
		Config:      cfg,
		AuthHandler: authHandler,
		LinkHandler: linkHandler,
		JobHandler:  jobHandler,
		Metrics:     metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting authority server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
