package ratelimit

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"finance-gateway/middleware/ratelimit/application"
	"finance-gateway/middleware/ratelimit/domain"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	HeaderLimit     = "X-RateLimit-Limit"
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
)

type Options struct {
	Log   domain.RequestLog
	Stats domain.StatsStore

	// KeyFn tem precedência sobre IdentityFn/TrustXForwardedFor.
	KeyFn              KeyFunc
	IdentityFn         IdentityFunc
	TrustXForwardedFor bool

	// Bypass nil usa DefaultBypassPaths.
	Bypass BypassSet

	Now    func() time.Time
	Logger *zap.Logger
}

type limitedBody struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// Middleware aplica o controle de admissão a cada requisição fora do bypass.
// Sem Options.Log o handler é devolvido sem alteração.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.Log == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.IdentityFn, opts.TrustXForwardedFor)
	}
	if opts.Bypass == nil {
		opts.Bypass = NewBypassSet(DefaultBypassPaths...)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	svc := application.Service{Log: opts.Log, Now: opts.Now}

	// rajadas de 429 não podem virar rajadas de log.
	rejectLog := &rate.Sometimes{First: 1, Interval: 10 * time.Second}
	statsLog := &rate.Sometimes{First: 1, Interval: time.Minute}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if opts.Bypass.Contains(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			key := opts.KeyFn(r)
			dec := svc.Decide(key)

			if opts.Stats != nil {
				err := opts.Stats.Record(r.Context(), domain.StatsEvent{
					Key:     key,
					Allowed: dec.Admitted,
					Method:  r.Method,
					Path:    r.URL.Path,
					At:      time.Now(),
				})
				if err != nil {
					statsLog.Do(func() {
						opts.Logger.Warn("rate limit stats record failed", zap.Error(err))
					})
				}
			}

			h := w.Header()
			h.Set(HeaderLimit, formatInt(dec.Limit))

			if !dec.Admitted {
				rejectLog.Do(func() {
					opts.Logger.Warn("rate limit exceeded",
						zap.String("key", key.String()),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.Int("limit", dec.Limit),
					)
				})
				h.Set(HeaderRemaining, "0")
				h.Set(HeaderReset, formatUnix(dec.ResetAt))
				writeLimited(w, dec.Limit)
				return
			}

			h.Set(HeaderRemaining, formatInt(dec.Remaining))
			next.ServeHTTP(w, r)
		})
	}
}

func writeLimited(w http.ResponseWriter, limit int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(limitedBody{
		Error:   true,
		Message: "Rate limit exceeded",
		Detail:  fmt.Sprintf("Maximum %d requests per minute allowed", limit),
	})
}
