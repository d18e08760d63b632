// Package upstream contém o transporte usado pelo proxy reverso do gateway.
//
// BreakerTransport passa cada round trip por um circuit breaker (sony/gobreaker).
// Erros de rede e respostas 5xx contam como falha; com o circuito aberto a
// requisição falha na hora com ErrUnavailable, sem tocar o upstream.
package upstream

import (
	"errors"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

var ErrUnavailable = errors.New("upstream unavailable: circuit open")

// errStatus marca uma resposta 5xx como falha sem descartar a resposta.
var errStatus = errors.New("upstream 5xx")

type BreakerConfig struct {
	// MaxFailures falhas consecutivas abrem o circuito.
	MaxFailures int
	// OpenTimeout é quanto o circuito fica aberto antes do half-open.
	OpenTimeout time.Duration
	// HalfOpenRequests requisições de teste no half-open.
	HalfOpenRequests int
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{MaxFailures: 5, OpenTimeout: 30 * time.Second, HalfOpenRequests: 1}
}

type BreakerTransport struct {
	base http.RoundTripper
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerTransport envolve base (nil usa http.DefaultTransport).
func NewBreakerTransport(name string, base http.RoundTripper, cfg BreakerConfig, log *zap.Logger) *BreakerTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	if log == nil {
		log = zap.NewNop()
	}
	def := DefaultBreakerConfig()
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = def.MaxFailures
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	if cfg.HalfOpenRequests <= 0 {
		cfg.HalfOpenRequests = def.HalfOpenRequests
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: uint32(cfg.HalfOpenRequests),
		Interval:    time.Minute,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= uint32(cfg.MaxFailures)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("upstream circuit state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &BreakerTransport{base: base, cb: cb}
}

func (t *BreakerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	out, err := t.cb.Execute(func() (interface{}, error) {
		resp, err := t.base.RoundTrip(r)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, errStatus
		}
		return resp, nil
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, ErrUnavailable
	case errors.Is(err, errStatus):
		return out.(*http.Response), nil
	case err != nil:
		return nil, err
	}
	return out.(*http.Response), nil
}

// State devolve "closed", "half-open" ou "open".
func (t *BreakerTransport) State() string {
	return t.cb.State().String()
}
