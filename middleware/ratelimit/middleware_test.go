package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"finance-gateway/middleware/ratelimit/domain"
	"finance-gateway/middleware/ratelimit/infra"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Set(sec int) { c.now = time.Unix(int64(sec), 0) }

func newTestHandler(t *testing.T, quota int, opts Options) (http.Handler, *int) {
	t.Helper()
	log, err := infra.NewSlidingLog(domain.PerMinute(quota))
	require.NoError(t, err)
	opts.Log = log

	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})
	return Middleware(opts)(next), &calls
}

func do(h http.Handler, path, remoteAddr string, headers map[string]string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, "http://example"+path, nil)
	r.RemoteAddr = remoteAddr
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestMiddleware_QuotaThreeScenario(t *testing.T) {
	clock := &fakeClock{}
	h, calls := newTestHandler(t, 3, Options{Now: clock.Now})

	for i, want := range []string{"2", "1", "0"} {
		clock.Set(i)
		w := do(h, "/api/transactions", "1.2.3.4:5555", nil)
		require.Equal(t, http.StatusOK, w.Code, "request at t=%d", i)
		assert.Equal(t, "3", w.Header().Get(HeaderLimit))
		assert.Equal(t, want, w.Header().Get(HeaderRemaining))
		assert.Empty(t, w.Header().Get(HeaderReset))
	}

	clock.Set(3)
	w := do(h, "/api/transactions", "1.2.3.4:5555", nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "3", w.Header().Get(HeaderLimit))
	assert.Equal(t, "0", w.Header().Get(HeaderRemaining))
	assert.Equal(t, "63", w.Header().Get(HeaderReset))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, map[string]any{
		"error":   true,
		"message": "Rate limit exceeded",
		"detail":  "Maximum 3 requests per minute allowed",
	}, body)

	clock.Set(61)
	w = do(h, "/api/transactions", "1.2.3.4:5555", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get(HeaderRemaining))

	assert.Equal(t, 4, *calls)
}

func TestMiddleware_BypassPathsNeverRecord(t *testing.T) {
	clock := &fakeClock{}
	h, calls := newTestHandler(t, 1, Options{Now: clock.Now})

	for i := 0; i < 10; i++ {
		for _, p := range DefaultBypassPaths {
			w := do(h, p, "1.2.3.4:5555", nil)
			require.Equal(t, http.StatusOK, w.Code, "path %s", p)
			assert.Empty(t, w.Header().Get(HeaderLimit), "path %s", p)
		}
	}

	// a cota continua intacta para o mesmo cliente.
	w := do(h, "/api/goals", "1.2.3.4:5555", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get(HeaderRemaining))
	assert.Equal(t, 10*len(DefaultBypassPaths)+1, *calls)

	w = do(h, "/health", "1.2.3.4:5555", nil)
	assert.Equal(t, http.StatusOK, w.Code, "bypass admitted even when quota is exhausted")
}

func TestMiddleware_BypassIsExactMatch(t *testing.T) {
	h, _ := newTestHandler(t, 1, Options{})

	require.Equal(t, http.StatusOK, do(h, "/health/deep", "1.2.3.4:1", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(h, "/health/deep", "1.2.3.4:1", nil).Code)
}

func TestMiddleware_CustomBypass(t *testing.T) {
	h, _ := newTestHandler(t, 1, Options{Bypass: NewBypassSet("/status")})

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, do(h, "/status", "1.2.3.4:1", nil).Code)
	}
	require.Equal(t, http.StatusOK, do(h, "/health", "1.2.3.4:1", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(h, "/health", "1.2.3.4:1", nil).Code)
}

func TestMiddleware_ClientsAreIsolated(t *testing.T) {
	h, _ := newTestHandler(t, 1, Options{TrustXForwardedFor: true})

	require.Equal(t, http.StatusOK, do(h, "/api", "10.0.0.1:1", nil).Code)
	require.Equal(t, http.StatusTooManyRequests, do(h, "/api", "10.0.0.1:1", nil).Code)

	w := do(h, "/api", "10.0.0.2:1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get(HeaderRemaining))

	w = do(h, "/api", "10.0.0.1:1", map[string]string{"X-Forwarded-For": "8.8.8.8"})
	assert.Equal(t, http.StatusOK, w.Code, "forwarded client has its own quota")
}

func TestMiddleware_AuthenticatedIdentityWins(t *testing.T) {
	var keys []domain.ClientKey
	stats := recordFunc(func(ev domain.StatsEvent) { keys = append(keys, ev.Key) })

	identity := func(r *http.Request) (string, bool) {
		if v := r.Header.Get("X-Test-User"); v != "" {
			return v, true
		}
		return "", false
	}
	h, _ := newTestHandler(t, 1, Options{IdentityFn: identity, TrustXForwardedFor: true, Stats: stats})

	xff := map[string]string{"X-Forwarded-For": "1.2.3.4", "X-Test-User": "u1"}
	require.Equal(t, http.StatusOK, do(h, "/api", "10.0.0.1:1", xff).Code)
	assert.Equal(t, http.StatusOK, do(h, "/api", "10.0.0.1:1", map[string]string{"X-Forwarded-For": "1.2.3.4"}).Code,
		"anonymous request from the same address is a different client")
	assert.Equal(t, http.StatusTooManyRequests, do(h, "/api", "10.0.0.9:1", map[string]string{"X-Test-User": "u1"}).Code)

	assert.Equal(t, []domain.ClientKey{"user:u1", "ip:1.2.3.4", "user:u1"}, keys)
}

func TestMiddleware_RecordsStats(t *testing.T) {
	stats := infra.NewMemoryStatsStore()
	h, _ := newTestHandler(t, 1, Options{Stats: stats})

	do(h, "/api/ai/chat", "1.2.3.4:1", nil)
	do(h, "/api/ai/chat", "1.2.3.4:1", nil)
	do(h, "/health", "1.2.3.4:1", nil)

	snap := stats.Snapshot()
	assert.Equal(t, infra.Counters{Allowed: 1, Denied: 1}, snap.Total)
	assert.Equal(t, infra.Counters{Allowed: 1, Denied: 1}, snap.ByRoute["GET /api/ai/chat"])
	assert.NotContains(t, snap.ByRoute, "GET /health")
}

func TestMiddleware_StatsFailureDoesNotBreakRequest(t *testing.T) {
	stats := recordErr(errors.New("redis down"))
	h, _ := newTestHandler(t, 1, Options{Stats: stats})

	assert.Equal(t, http.StatusOK, do(h, "/api", "1.2.3.4:1", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(h, "/api", "1.2.3.4:1", nil).Code)
}

func TestMiddleware_NoLogIsPassthrough(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := Middleware(Options{})(next)

	w := do(h, "/api", "1.2.3.4:1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Header().Get(HeaderLimit))
}

type statsFunc func(domain.StatsEvent) error

func (f statsFunc) Record(_ context.Context, ev domain.StatsEvent) error { return f(ev) }

func recordFunc(fn func(domain.StatsEvent)) domain.StatsStore {
	return statsFunc(func(ev domain.StatsEvent) error { fn(ev); return nil })
}

func recordErr(err error) domain.StatsStore {
	return statsFunc(func(domain.StatsEvent) error { return err })
}
