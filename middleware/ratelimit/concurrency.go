package ratelimit

import (
	"net/http"
	"time"

	"finance-gateway/middleware/ratelimit/application"
	"finance-gateway/middleware/ratelimit/infra"
)

type ConcurrencyOptions struct {
	Max            int
	RejectStatus   int
	AcquireTimeout time.Duration
}

// ConcurrencyLimiter limita requisições em voo. Max <= 0 desativa o limite.
type ConcurrencyLimiter struct {
	svc          application.ConcurrencyService
	rejectStatus int
}

func NewConcurrencyLimiter(opts ConcurrencyOptions) *ConcurrencyLimiter {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}

	l := &ConcurrencyLimiter{
		svc:          application.ConcurrencyService{AcquireTimeout: opts.AcquireTimeout},
		rejectStatus: opts.RejectStatus,
	}
	if opts.Max > 0 {
		l.svc.Pool = infra.NewChanPool(opts.Max)
	}
	return l
}

// Usage retorna vagas ocupadas e capacidade (0, 0 quando desativado).
func (l *ConcurrencyLimiter) Usage() (inUse, capacity int) { return l.svc.Usage() }

func (l *ConcurrencyLimiter) Handler(next http.Handler) http.Handler {
	if l.svc.Pool == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		release, ok := l.svc.Acquire(r.Context())
		if !ok {
			http.Error(w, http.StatusText(l.rejectStatus), l.rejectStatus)
			return
		}
		defer release()

		next.ServeHTTP(w, r)
	})
}

func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	return NewConcurrencyLimiter(opts).Handler
}
