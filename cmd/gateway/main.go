package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"finance-gateway/internal/logging"
	"finance-gateway/middleware/ratelimit/domain"
	"finance-gateway/middleware/ratelimit/infra"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	level := logging.ParseLevel(cfg.logLevel)
	if cfg.debug {
		level = zapcore.DebugLevel
	}
	logger := logging.New(level, nil)
	defer func() { _ = logger.Sync() }()

	var statsStore domain.StatsStore = infra.NewMemoryStatsStore(infra.WithTrackKeys(cfg.rateStatsTrackKeys))
	if cfg.rateStatsEnabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.rateStatsRedisAddr,
			Password: cfg.rateStatsRedisPassword,
			DB:       cfg.rateStatsRedisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancel()
		if err != nil {
			logger.Fatal("redis stats ping error", zap.Error(err), zap.String("addr", cfg.rateStatsRedisAddr))
		}

		statsStore = infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.rateStatsPrefix),
			infra.WithStatsTTL(cfg.rateStatsTTL),
			infra.WithStatsBucket(cfg.rateStatsBucket),
			infra.WithStatsTrackKeys(cfg.rateStatsTrackKeys),
		)
	}

	srvState, err := newServer(cfg, logger, statsStore)
	if err != nil {
		logger.Fatal("gateway setup failed", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if srvState.limits != nil {
		srvState.limits.StartJanitor(ctx)
	}

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           srvState.handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// respostas do coach (LLM) podem demorar.
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("gateway listening",
		zap.String("app", cfg.appName),
		zap.String("version", cfg.appVersion),
		zap.String("addr", cfg.listenAddr),
		zap.Stringer("upstream", cfg.upstreamURL),
	)
	logger.Info("rate limit",
		zap.Bool("enabled", cfg.rateEnabled),
		zap.Int("requests_per_minute", cfg.rateRequests),
		zap.Bool("trust_xff", cfg.trustXFF),
		zap.Duration("cleanup_every", cfg.rateCleanupEvery),
	)
	logger.Info("rate stats",
		zap.Bool("redis", cfg.rateStatsEnabled),
		zap.String("redis_addr", cfg.rateStatsRedisAddr),
		zap.String("bucket", cfg.rateStatsBucket),
		zap.Duration("ttl", cfg.rateStatsTTL),
		zap.Bool("track_keys", cfg.rateStatsTrackKeys),
	)
	logger.Info("upstream breaker", zap.Int("max_failures", cfg.breakerFailures), zap.Duration("open_timeout", cfg.breakerTimeout))
	logger.Info("concurrency", zap.Int("max", cfg.concurrencyMax), zap.Duration("acquire_timeout", cfg.concurrencyTimeout))
	if cfg.jwtSecret == "" {
		logger.Warn("JWT_SECRET_KEY not set: every client is keyed by address")
	}

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}
