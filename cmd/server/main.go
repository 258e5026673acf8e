// @title Fair Engagement Reward Engine API
// @version 1.0
// @description Computes influencer rewards from engagement snapshots and settles them in batches.
// @BasePath /
// @securityDefinitions.apikey OperatorToken
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/buildersacademyai/prompto-sub000/internal/api"
	"github.com/buildersacademyai/prompto-sub000/internal/cache"
	"github.com/buildersacademyai/prompto-sub000/internal/config"
	"github.com/buildersacademyai/prompto-sub000/internal/database"
	apperrors "github.com/buildersacademyai/prompto-sub000/internal/errors"
	"github.com/buildersacademyai/prompto-sub000/internal/monitoring"
	"github.com/buildersacademyai/prompto-sub000/internal/ratelimit"
	"github.com/buildersacademyai/prompto-sub000/internal/security"
	"github.com/buildersacademyai/prompto-sub000/internal/settlement"
	"github.com/gin-gonic/gin"
)

var version = "dev"

func main() {
	appLogger := monitoring.NewLogger()
	slog.SetDefault(appLogger.Logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, appLogger); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, appLogger *monitoring.Logger) error {
	appLogger.SetLevel(monitoring.ParseLevel(cfg.LogLevel))
	slog.SetDefault(appLogger.Logger)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(cfg.DataDir)
	if err != nil {
		return err
	}
	defer apperrors.SafeClose(db, "database")

	redisClient, err := ratelimit.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		// Rate limiting degrades to the in-memory limiter
		slog.Warn("Redis unavailable", "addr", cfg.RedisAddr, "error", err)
	}
	defer apperrors.SafeClose(redisClient, "redis")

	appMetrics := monitoring.NewMetrics()

	limiterConfig := ratelimit.DefaultConfig()
	limiterConfig.IPLimitPerMin = cfg.IPLimitPerMin
	limiterConfig.OperatorLimitPerMin = cfg.OperatorLimitPerMin
	limiter := ratelimit.NewRateLimiter(redisClient, limiterConfig, appMetrics)
	defer apperrors.SafeClose(limiter, "rate limiter")

	appCache := cache.NewCache(cfg.CacheTTL)
	defer apperrors.SafeClose(appCache, "cache")

	auth, err := security.NewOperatorAuth(cfg.JWTSecret, appLogger)
	if err != nil {
		return err
	}

	repo := database.NewRepository(db)
	settler := settlement.NewSettler(
		cache.NewConfigCache(repo, appCache, appMetrics),
		repo,
		settlement.Options{
			Workers:                 cfg.SettlementWorkers,
			DurationReviewThreshold: cfg.DurationReviewThreshold,
		},
		appLogger,
		appMetrics,
	)

	securityConfig := security.DefaultSecurityConfig()
	securityConfig.MaxBodyBytes = cfg.MaxBodyBytes
	securityConfig.AllowedOrigins = cfg.AllowedOrigins
	securityConfig.RequestTimeout = cfg.RequestTimeout

	server := api.New(
		api.Options{
			Version:             version,
			EnableHSTS:          cfg.EnableHSTS,
			MaxBatchRecords:     cfg.MaxBatchRecords,
			ComputeLimitPerMin:  cfg.ComputeLimitPerMin,
			CompressionMinBytes: cfg.CompressionMinBytes,
		},
		api.Deps{
			DB:       db,
			Settler:  settler,
			Cache:    appCache,
			Redis:    redisClient,
			Limiter:  limiter,
			Auth:     auth,
			Security: security.NewSecurityMiddleware(securityConfig),
			Metrics:  appMetrics,
			Logger:   appLogger,
		},
	)

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: server.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		appLogger.SystemLogger("server_start", "listening on "+cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	slog.Info("Server exited")
	return nil
}
