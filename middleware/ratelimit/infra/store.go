package infra

import (
	"context"
	"sync"
	"time"

	"finance-gateway/middleware/ratelimit/domain"
)

const shardCount = 64

var _ domain.RequestLog = (*SlidingLog)(nil)

// SlidingLog é o controlador de admissão em memória: janela deslizante com
// o registro dos timestamps de cada chave.
//
// As chaves são distribuídas em shards pelo hash; cada shard tem seu próprio
// mutex e seu próprio mapa, então a mesma chave é sempre serializada e chaves
// em shards diferentes não disputam lock.
type SlidingLog struct {
	cfg          domain.WindowConfig
	shards       [shardCount]logShard
	cleanupEvery time.Duration
}

type logShard struct {
	mu      sync.Mutex
	entries map[domain.ClientKey][]time.Time
}

type SlidingLogOption func(*SlidingLog)

func WithCleanupEvery(d time.Duration) SlidingLogOption {
	return func(s *SlidingLog) { s.cleanupEvery = d }
}

func NewSlidingLog(cfg domain.WindowConfig, opts ...SlidingLogOption) (*SlidingLog, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &SlidingLog{
		cfg:          cfg,
		cleanupEvery: 2 * time.Minute,
	}
	for i := range s.shards {
		s.shards[i].entries = make(map[domain.ClientKey][]time.Time)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *SlidingLog) Config() domain.WindowConfig { return s.cfg }
func (s *SlidingLog) CleanupEvery() time.Duration { return s.cleanupEvery }

// CheckAndRecord implementa domain.RequestLog.
func (s *SlidingLog) CheckAndRecord(key domain.ClientKey, now time.Time) bool {
	return s.Admit(key, now).Admitted
}

// RemainingQuota implementa domain.RequestLog. Também poda o registro da chave.
func (s *SlidingLog) RemainingQuota(key domain.ClientKey, now time.Time) int {
	sh := s.shard(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	kept := s.prune(sh, key, now)
	return remaining(s.cfg.Quota, len(kept))
}

// Admit implementa domain.RequestLog: poda, decide e registra sob o mesmo lock.
func (s *SlidingLog) Admit(key domain.ClientKey, now time.Time) domain.Decision {
	sh := s.shard(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	dec := domain.Decision{Limit: s.cfg.Quota, ResetAt: now.Add(s.cfg.Window)}

	kept := s.prune(sh, key, now)
	if len(kept) >= s.cfg.Quota {
		return dec
	}

	// now é lido fora do lock; mantém a sequência não-decrescente.
	at := now
	if n := len(kept); n > 0 && at.Before(kept[n-1]) {
		at = kept[n-1]
	}
	kept = append(kept, at)
	sh.entries[key] = kept

	dec.Admitted = true
	dec.Remaining = remaining(s.cfg.Quota, len(kept))
	return dec
}

// prune mantém apenas timestamps > now-window. Deve ser chamado com sh.mu travado.
func (s *SlidingLog) prune(sh *logShard, key domain.ClientKey, now time.Time) []time.Time {
	ts, ok := sh.entries[key]
	if !ok {
		return nil
	}

	cutoff := now.Add(-s.cfg.Window)
	i := 0
	// timestamps são não-decrescentes: basta achar o primeiro ainda válido.
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return ts
	}

	kept := ts[:copy(ts, ts[i:])]
	sh.entries[key] = kept
	return kept
}

// Len retorna o número de chaves rastreadas (inclusive as que ainda não foram limpas).
func (s *SlidingLog) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		n += len(sh.entries)
		sh.mu.Unlock()
	}
	return n
}

// Cleanup remove chaves cujos timestamps expiraram todos. Retorna quantas removeu.
func (s *SlidingLog) Cleanup(now time.Time) int {
	cutoff := now.Add(-s.cfg.Window)
	removed := 0

	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for k, ts := range sh.entries {
			if len(ts) == 0 || !ts[len(ts)-1].After(cutoff) {
				delete(sh.entries, k)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// StartJanitor inicia uma goroutine que remove chaves ociosas periodicamente.
// Pare cancelando o contexto.
func (s *SlidingLog) StartJanitor(ctx context.Context) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				s.Cleanup(now)
			}
		}
	}()
}

func (s *SlidingLog) shard(key domain.ClientKey) *logShard {
	return &s.shards[fnv32a(string(key))%shardCount]
}

func remaining(quota, used int) int {
	if used >= quota {
		return 0
	}
	return quota - used
}

func fnv32a(s string) uint32 {
	const (
		offset32 = 2166136261
		prime32  = 16777619
	)
	h := uint32(offset32)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime32
	}
	return h
}
