package application

import (
	"time"

	"finance-gateway/middleware/ratelimit/domain"
)

// Service concentra a regra de aplicação do controle de admissão.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
type Service struct {
	Log domain.RequestLog
	// Now permite injetar o relógio; nil usa time.Now.
	Now func() time.Time
}

// Decide poda, decide e registra numa única chamada atômica ao RequestLog.
// Sem RequestLog toda requisição é admitida.
func (s Service) Decide(key domain.ClientKey) domain.Decision {
	if s.Log == nil {
		return domain.Decision{Admitted: true}
	}
	return s.Log.Admit(key, s.now())
}

// Remaining consulta a cota restante sem registrar nada.
func (s Service) Remaining(key domain.ClientKey) int {
	if s.Log == nil {
		return 0
	}
	return s.Log.RemainingQuota(key, s.now())
}

func (s Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
