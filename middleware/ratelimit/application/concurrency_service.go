package application

import (
	"context"
	"time"

	"finance-gateway/middleware/ratelimit/domain"
)

// ConcurrencyService aplica o limite de requisições em voo com timeout de aquisição,
// sem saber nada sobre HTTP.
type ConcurrencyService struct {
	Pool           domain.SlotPool
	AcquireTimeout time.Duration
}

// Acquire tenta adquirir uma vaga.
//   - AcquireTimeout <= 0: espera até o ctx encerrar.
//   - AcquireTimeout > 0: espera no máximo AcquireTimeout.
//
// Com ok=false nenhuma vaga foi adquirida e release é nil.
func (s ConcurrencyService) Acquire(ctx context.Context) (release func(), ok bool) {
	if s.Pool == nil {
		return func() {}, true
	}

	if s.AcquireTimeout <= 0 {
		return s.Pool.Acquire(ctx)
	}

	acqCtx, cancel := context.WithTimeout(ctx, s.AcquireTimeout)
	defer cancel()
	return s.Pool.Acquire(acqCtx)
}

// Usage retorna vagas ocupadas e capacidade total (0, 0 sem pool).
func (s ConcurrencyService) Usage() (inUse, capacity int) {
	if s.Pool == nil {
		return 0, 0
	}
	return s.Pool.InUse(), s.Pool.Cap()
}
