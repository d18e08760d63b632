package infra

import (
	"context"
	"sync"

	"finance-gateway/middleware/ratelimit/domain"
)

type Counters struct {
	Allowed int64 `json:"allowed"`
	Denied  int64 `json:"denied"`
}

func (c Counters) add(allowed bool) Counters {
	if allowed {
		c.Allowed++
	} else {
		c.Denied++
	}
	return c
}

// StatsSnapshot é uma cópia consistente dos contadores.
type StatsSnapshot struct {
	Total   Counters            `json:"total"`
	ByRoute map[string]Counters `json:"by_route"`
	ByKey   map[string]Counters `json:"by_key,omitempty"`
}

// MemoryStatsStore guarda contadores em memória, sem expiração.
// Com trackKeys a cardinalidade cresce com o número de clientes.
type MemoryStatsStore struct {
	mu      sync.Mutex
	total   Counters
	byRoute map[string]Counters
	byKey   map[string]Counters

	trackKeys bool
}

type MemoryStatsOption func(*MemoryStatsStore)

func WithTrackKeys(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackKeys = track }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		byRoute: make(map[string]Counters),
		byKey:   make(map[string]Counters),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	route := ev.Method + " " + ev.Path

	s.mu.Lock()
	defer s.mu.Unlock()

	s.total = s.total.add(ev.Allowed)
	s.byRoute[route] = s.byRoute[route].add(ev.Allowed)
	if s.trackKeys {
		k := string(ev.Key)
		s.byKey[k] = s.byKey[k].add(ev.Allowed)
	}
	return nil
}

func (s *MemoryStatsStore) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *MemoryStatsStore) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := StatsSnapshot{
		Total:   s.total,
		ByRoute: make(map[string]Counters, len(s.byRoute)),
	}
	for k, v := range s.byRoute {
		snap.ByRoute[k] = v
	}
	if s.trackKeys {
		snap.ByKey = make(map[string]Counters, len(s.byKey))
		for k, v := range s.byKey {
			snap.ByKey[k] = v
		}
	}
	return snap
}
