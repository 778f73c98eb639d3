package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testLimiter(t *testing.T) *RateLimiter {
	t.Helper()
	rl := NewRateLimiter(&RateLimitConfig{
		IPRequestsPerSecond: 1,
		IPBurst:             3,
		IPBlockDuration:     time.Minute,
		WritesPerSecond:     1,
		WriteBurst:          1,
		ActionLimits: map[string]ActionLimit{
			ActionKill: {PerSecond: 1, Burst: 2},
		},
		CleanupInterval: time.Minute,
		BucketTTL:       time.Hour,
	})
	t.Cleanup(rl.Stop)
	return rl
}

// TestAllowIPBlocksAfterBurst tests per-client blocking
func TestAllowIPBlocksAfterBurst(t *testing.T) {
	rl := testLimiter(t)

	for i := 0; i < 3; i++ {
		allowed, info := rl.AllowIP("10.0.0.1")
		require.True(t, allowed)
		require.Equal(t, 3, info.Limit)
	}

	allowed, info := rl.AllowIP("10.0.0.1")
	require.False(t, allowed)
	require.Equal(t, 60, info.RetryAfter)
	require.False(t, info.Blocked)

	allowed, info = rl.AllowIP("10.0.0.1")
	require.False(t, allowed)
	require.True(t, info.Blocked)

	// other clients keep their own bucket
	allowed, _ = rl.AllowIP("10.0.0.2")
	require.True(t, allowed)
	stats := rl.GetStats()
	require.Equal(t, 2, stats.Buckets["ip"])
	require.Equal(t, 1, stats.Blocked["ip"])
}

// TestActionBudgetsAreIndependent tests that each keeper action has its own bucket
func TestActionBudgetsAreIndependent(t *testing.T) {
	rl := testLimiter(t)

	for i := 0; i < 2; i++ {
		allowed, info := rl.AllowAction("10.0.0.1", ActionKill)
		require.True(t, allowed)
		require.Equal(t, ActionKill, info.Action)
	}
	allowed, info := rl.AllowAction("10.0.0.1", ActionKill)
	require.False(t, allowed)
	require.Equal(t, ActionKill, info.Action)

	// actions without their own limit share the write budget
	allowed, info = rl.AllowAction("10.0.0.1", ActionReinvest)
	require.True(t, allowed)
	require.Equal(t, ActionWrite, info.Action)
	allowed, _ = rl.AllowAction("10.0.0.1", ActionAdvance)
	require.False(t, allowed)

	stats := rl.GetStats()
	require.Equal(t, 1, stats.Blocked[ActionKill])
	require.Equal(t, 1, stats.Blocked[ActionWrite])
}

// TestActionFor tests how POST routes map to keeper actions
func TestActionFor(t *testing.T) {
	require.Equal(t, ActionKill, ActionFor("/v1/vaults/usd/positions/3/kill"))
	require.Equal(t, ActionReinvest, ActionFor("/v1/workers/usd-atom/reinvest"))
	require.Equal(t, ActionPrice, ActionFor("/v1/prices/uatom"))
	require.Equal(t, ActionAdvance, ActionFor("/v1/advance"))
	require.Equal(t, ActionWrite, ActionFor("/v1/vaults/usd"))
}

// TestMiddlewareLimitsActions tests that a throttled action leaves reads and other actions alone
func TestMiddlewareLimitsActions(t *testing.T) {
	rl := testLimiter(t)
	h := RateLimitMiddleware(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	serve := func(method, path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set("X-Forwarded-For", "10.0.0.9, 172.16.0.1")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	require.Equal(t, http.StatusOK, serve(http.MethodPost, "/v1/advance").Code)

	rr := serve(http.MethodPost, "/v1/advance")
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	require.Equal(t, "60", rr.Header().Get("Retry-After"))
	require.Contains(t, rr.Body.String(), `"action":"write"`)

	// kills have their own budget
	require.Equal(t, http.StatusOK, serve(http.MethodPost, "/v1/vaults/usd/positions/1/kill").Code)
}

// TestClientIP tests client address extraction
func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.4:5555"
	require.Equal(t, "192.168.1.4", ClientIP(req))

	req.RemoteAddr = "[::1]:5555"
	require.Equal(t, "::1", ClientIP(req))

	req.Header.Set("X-Real-IP", "10.1.1.1")
	require.Equal(t, "10.1.1.1", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "10.2.2.2, 10.3.3.3")
	require.Equal(t, "10.2.2.2", ClientIP(req))
}
