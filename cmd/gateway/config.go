package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type config struct {
	listenAddr  string
	upstreamURL *url.URL
	appName     string
	appVersion  string
	debug       bool
	logLevel    string

	rateEnabled      bool
	rateRequests     int
	trustXFF         bool
	rateCleanupEvery time.Duration

	concurrencyMax     int
	concurrencyTimeout time.Duration

	breakerFailures int
	breakerTimeout  time.Duration

	rateStatsEnabled       bool
	rateStatsRedisAddr     string
	rateStatsRedisPassword string
	rateStatsRedisDB       int
	rateStatsPrefix        string
	rateStatsTTL           time.Duration
	rateStatsBucket        string
	rateStatsTrackKeys     bool

	jwtSecret    string
	jwtAlgorithm string
}

// loadConfig lê o .env (se existir) e depois o ambiente.
func loadConfig() (config, error) {
	_ = godotenv.Load()
	return readConfig()
}

func readConfig() (config, error) {
	cfg := config{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.appName = getenvDefault("APP_NAME", "AI Finance Manager")
	cfg.appVersion = getenvDefault("APP_VERSION", "1.0.0")
	cfg.debug = getenvBoolDefault("DEBUG", false)
	cfg.logLevel = getenvDefault("LOG_LEVEL", "INFO")

	cfg.rateEnabled = getenvBoolDefault("RATE_ENABLED", true)
	cfg.trustXFF = getenvBoolDefault("TRUST_XFF", true)
	cfg.rateCleanupEvery = getenvDurationDefault("RATE_CLEANUP_EVERY", 2*time.Minute)

	cfg.concurrencyTimeout = getenvDurationDefault("CONCURRENCY_TIMEOUT", 0)
	cfg.breakerTimeout = getenvDurationDefault("UPSTREAM_BREAKER_TIMEOUT", 30*time.Second)

	cfg.rateStatsEnabled = getenvBoolDefault("RATE_STATS_ENABLED", false)
	cfg.rateStatsRedisAddr = getenvDefault("RATE_STATS_REDIS_ADDR", "")
	cfg.rateStatsRedisPassword = os.Getenv("RATE_STATS_REDIS_PASSWORD")
	cfg.rateStatsPrefix = getenvDefault("RATE_STATS_PREFIX", "ratelimit:stats")
	cfg.rateStatsTTL = getenvDurationDefault("RATE_STATS_TTL", 24*time.Hour)
	cfg.rateStatsBucket = getenvDefault("RATE_STATS_BUCKET", "minute")
	cfg.rateStatsTrackKeys = getenvBoolDefault("RATE_STATS_TRACK_KEYS", false)

	cfg.jwtSecret = os.Getenv("JWT_SECRET_KEY")
	cfg.jwtAlgorithm = getenvDefault("JWT_ALGORITHM", "HS256")

	var err error
	if cfg.rateRequests, err = getenvInt("RATE_LIMIT_REQUESTS", 60); err != nil {
		return config{}, err
	}
	if cfg.concurrencyMax, err = getenvInt("CONCURRENCY_MAX", 100); err != nil {
		return config{}, err
	}
	if cfg.breakerFailures, err = getenvInt("UPSTREAM_BREAKER_FAILURES", 5); err != nil {
		return config{}, err
	}
	if cfg.rateStatsRedisDB, err = getenvInt("RATE_STATS_REDIS_DB", 0); err != nil {
		return config{}, err
	}

	raw := strings.TrimSpace(os.Getenv("UPSTREAM_URL"))
	if raw == "" {
		return config{}, errors.New("UPSTREAM_URL is required")
	}
	if cfg.upstreamURL, err = url.Parse(raw); err != nil {
		return config{}, fmt.Errorf("invalid UPSTREAM_URL: %w", err)
	}
	if cfg.upstreamURL.Scheme == "" || cfg.upstreamURL.Host == "" {
		return config{}, fmt.Errorf("invalid UPSTREAM_URL: %q needs scheme and host", raw)
	}

	if cfg.rateRequests <= 0 {
		return config{}, errors.New("RATE_LIMIT_REQUESTS must be > 0")
	}
	if cfg.concurrencyMax < 0 {
		return config{}, errors.New("CONCURRENCY_MAX must be >= 0")
	}
	if cfg.breakerFailures < 0 {
		return config{}, errors.New("UPSTREAM_BREAKER_FAILURES must be >= 0")
	}
	if cfg.rateStatsEnabled && strings.TrimSpace(cfg.rateStatsRedisAddr) == "" {
		return config{}, errors.New("RATE_STATS_REDIS_ADDR is required when RATE_STATS_ENABLED=true")
	}
	if !strings.HasPrefix(cfg.jwtAlgorithm, "HS") {
		return config{}, fmt.Errorf("JWT_ALGORITHM %q not supported, use HS256/HS384/HS512", cfg.jwtAlgorithm)
	}
	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

// getenvInt retorna erro para valor não numérico em vez de cair no padrão.
func getenvInt(k string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", k, err)
	}
	return i, nil
}

func getenvBoolDefault(k string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
