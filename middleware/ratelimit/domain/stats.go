package domain

import (
	"context"
	"time"
)

// StatsEvent representa uma decisão de admissão já tomada.
//
// Cuidado com cardinalidade: Key e Path sem controle podem explodir o número de
// chaves numa base como Redis.
type StatsEvent struct {
	Key     ClientKey
	Allowed bool

	Method string
	Path   string

	At time.Time
}

// StatsStore persiste estatísticas de decisão. O middleware trata erro como
// best-effort (não derruba a requisição).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
