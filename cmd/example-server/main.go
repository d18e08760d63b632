package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"finance-gateway/internal/logging"
	"finance-gateway/middleware/ratelimit"
	"finance-gateway/middleware/ratelimit/domain"
	"finance-gateway/middleware/ratelimit/infra"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	logger := logging.New(zapcore.InfoLevel, nil)
	defer func() { _ = logger.Sync() }()

	// Exemplo: injetando o middleware diretamente no seu webserver (sem proxy)
	quota := 5
	if v := os.Getenv("RATE_LIMIT_REQUESTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			logger.Fatal("invalid RATE_LIMIT_REQUESTS", zap.Error(err))
		}
		quota = n
	}

	limits, err := infra.NewSlidingLog(domain.PerMinute(quota))
	if err != nil {
		logger.Fatal("rate limiter", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	limits.StartJanitor(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy"}` + "\n"))
	})

	h := http.Handler(mux)
	h = ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{Max: 50})(h)
	h = ratelimit.Middleware(ratelimit.Options{
		Log: limits,
		// sem auth: X-Api-Key identifica o cliente, senão IP.
		IdentityFn: func(r *http.Request) (string, bool) {
			k := r.Header.Get("X-Api-Key")
			return k, k != ""
		},
		TrustXForwardedFor: true,
		Logger:             logger,
	})(h)
	h = logging.RequestLogger(logger)(h)

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("example server listening", zap.String("addr", addr), zap.Int("requests_per_minute", quota))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}
