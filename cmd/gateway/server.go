package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"time"

	"finance-gateway/internal/logging"
	"finance-gateway/internal/upstream"
	"finance-gateway/middleware/auth"
	"finance-gateway/middleware/ratelimit"
	"finance-gateway/middleware/ratelimit/domain"
	"finance-gateway/middleware/ratelimit/infra"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type server struct {
	cfg     config
	log     *zap.Logger
	now     func() time.Time
	limits  *infra.SlidingLog // nil com RATE_ENABLED=false
	stats   domain.StatsStore
	conc    *ratelimit.ConcurrencyLimiter
	breaker *upstream.BreakerTransport // nil com UPSTREAM_BREAKER_FAILURES=0
	proxy   http.Handler
}

func newServer(cfg config, log *zap.Logger, stats domain.StatsStore) (*server, error) {
	s := &server{
		cfg:   cfg,
		log:   log,
		now:   time.Now,
		stats: stats,
		conc: ratelimit.NewConcurrencyLimiter(ratelimit.ConcurrencyOptions{
			Max:            cfg.concurrencyMax,
			RejectStatus:   http.StatusServiceUnavailable,
			AcquireTimeout: cfg.concurrencyTimeout,
		}),
	}

	if cfg.rateEnabled {
		limits, err := infra.NewSlidingLog(domain.PerMinute(cfg.rateRequests), infra.WithCleanupEvery(cfg.rateCleanupEvery))
		if err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
		s.limits = limits
	}

	proxy := httputil.NewSingleHostReverseProxy(cfg.upstreamURL)
	if cfg.breakerFailures > 0 {
		s.breaker = upstream.NewBreakerTransport(cfg.upstreamURL.Host, nil, upstream.BreakerConfig{
			MaxFailures: cfg.breakerFailures,
			OpenTimeout: cfg.breakerTimeout,
		}, log)
		proxy.Transport = s.breaker
	}
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		if errors.Is(err, upstream.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "External service error (upstream): circuit open")
			return
		}
		log.Error("proxy error", zap.Error(err), zap.String("path", r.URL.Path))
		writeError(w, http.StatusBadGateway, "External service error (upstream): bad gateway")
	}
	s.proxy = proxy

	return s, nil
}

// handler monta a cadeia: access log → auth → rate limit → concorrência → rotas.
func (s *server) handler() http.Handler {
	r := chi.NewRouter()
	r.Use(logging.RequestLogger(s.log))
	r.Use(auth.Middleware(auth.Options{
		Secret:    []byte(s.cfg.jwtSecret),
		Algorithm: s.cfg.jwtAlgorithm,
		Logger:    s.log,
	}))

	var rl domain.RequestLog
	if s.limits != nil {
		rl = s.limits
	}
	r.Use(ratelimit.Middleware(ratelimit.Options{
		Log:                rl,
		Stats:              s.stats,
		IdentityFn:         auth.SubjectFromRequest,
		TrustXForwardedFor: s.cfg.trustXFF,
		Now:                s.now,
		Logger:             s.log,
	}))
	r.Use(s.conc.Handler)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/docs", s.handleDocs)
	r.Get("/openapi.json", s.handleOpenAPI)
	r.Get("/internal/ratelimit/stats", s.handleStats)
	r.Handle("/api/*", s.proxy)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
	return r
}

func (s *server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Welcome to " + s.cfg.appName,
		"version": s.cfg.appVersion,
		"docs":    "/docs",
		"health":  "/health",
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"app":     s.cfg.appName,
		"version": s.cfg.appVersion,
	})
}

type limiterStats struct {
	Enabled       bool                 `json:"enabled"`
	Limit         int                  `json:"limit"`
	WindowSeconds int                  `json:"window_seconds"`
	TrackedKeys   int                  `json:"tracked_keys"`
	Concurrency   concurrencyStats     `json:"concurrency"`
	Upstream      string               `json:"upstream_circuit,omitempty"`
	Decisions     *infra.StatsSnapshot `json:"decisions,omitempty"`
}

type concurrencyStats struct {
	InUse    int `json:"in_use"`
	Capacity int `json:"capacity"`
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	out := limiterStats{Enabled: s.limits != nil}
	if s.limits != nil {
		cfg := s.limits.Config()
		out.Limit = cfg.Quota
		out.WindowSeconds = int(cfg.Window / time.Second)
		out.TrackedKeys = s.limits.Len()
	}
	out.Concurrency.InUse, out.Concurrency.Capacity = s.conc.Usage()
	if s.breaker != nil {
		out.Upstream = s.breaker.State()
	}
	if mem, ok := s.stats.(*infra.MemoryStatsStore); ok {
		snap := mem.Snapshot()
		out.Decisions = &snap
	}
	writeJSON(w, http.StatusOK, out)
}

type errorBody struct {
	Error      bool   `json:"error"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: true, Message: msg, StatusCode: status})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
