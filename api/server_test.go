package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"cosmossdk.io/log"
	"github.com/stretchr/testify/require"

	"github.com/openalpha/levfarm/pkg/sandbox"
)

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()

	config := DefaultConfig()
	config.DisableRateLimit = true
	s, err := NewServer(config, log.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.rateLimiter.Stop() })
	return s, s.Handler()
}

func doRequest(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

// TestHealthAndStatus tests the liveness and chain status routes
func TestHealthAndStatus(t *testing.T) {
	_, h := newTestServer(t)

	rr := doRequest(t, h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	health := decode(t, rr)
	require.Equal(t, "healthy", health["status"])
	require.Empty(t, health["subscribers"])

	rr = doRequest(t, h, http.MethodGet, "/v1/status", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, decode(t, rr), "height")
}

// TestVaultRoutes tests vault listing and lookup
func TestVaultRoutes(t *testing.T) {
	_, h := newTestServer(t)

	rr := doRequest(t, h, http.MethodGet, "/v1/vaults", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, decode(t, rr)["vaults"], 2)

	rr = doRequest(t, h, http.MethodGet, "/v1/vaults/"+sandbox.StableVault, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	vault := decode(t, rr)["vault"].(map[string]interface{})
	require.Equal(t, sandbox.StableVault, vault["vault_id"])
	require.Equal(t, sandbox.Stable, vault["denom"])

	rr = doRequest(t, h, http.MethodGet, "/v1/vaults/missing", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Contains(t, decode(t, rr)["error"], "vault not found")
}

// TestPositionRoutes tests position listing and owner filtering
func TestPositionRoutes(t *testing.T) {
	_, h := newTestServer(t)

	path := fmt.Sprintf("/v1/vaults/%s/positions?owner=%s", sandbox.StableVault, sandbox.Farmer.String())
	rr := doRequest(t, h, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	positions := decode(t, rr)["positions"].([]interface{})
	require.Len(t, positions, 1)
	info := positions[0].(map[string]interface{})
	position := info["position"].(map[string]interface{})
	require.Equal(t, sandbox.Farmer.String(), position["owner"])
	require.Equal(t, sandbox.StableWorker, position["worker_id"])
	require.False(t, info["killable"].(bool))

	pid := uint64(position["id"].(float64))
	rr = doRequest(t, h, http.MethodGet, fmt.Sprintf("/v1/vaults/%s/positions/%d", sandbox.StableVault, pid), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "20000", decode(t, rr)["debt"])

	rr = doRequest(t, h, http.MethodGet, "/v1/vaults/"+sandbox.StableVault+"/positions/999", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = doRequest(t, h, http.MethodGet, "/v1/vaults/"+sandbox.StableVault+"/positions/abc", nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

// TestAtRiskAndKill tests the at-risk listing and the kill route
func TestAtRiskAndKill(t *testing.T) {
	_, h := newTestServer(t)

	rr := doRequest(t, h, http.MethodGet, "/v1/vaults/"+sandbox.StableVault+"/at-risk", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Empty(t, decode(t, rr)["positions"])

	rr = doRequest(t, h, http.MethodGet, "/v1/vaults/"+sandbox.StableVault+"/at-risk?ratio=oops", nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	// healthy positions cannot be killed
	path := fmt.Sprintf("/v1/vaults/%s/positions?owner=%s", sandbox.StableVault, sandbox.Farmer.String())
	positions := decode(t, doRequest(t, h, http.MethodGet, path, nil))["positions"].([]interface{})
	pid := uint64(positions[0].(map[string]interface{})["position"].(map[string]interface{})["id"].(float64))

	rr = doRequest(t, h, http.MethodPost, fmt.Sprintf("/v1/vaults/%s/positions/%d/kill", sandbox.StableVault, pid), nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, h, http.MethodPost, "/v1/vaults/"+sandbox.StableVault+"/positions/999/kill", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = doRequest(t, h, http.MethodGet, "/v1/vaults/"+sandbox.StableVault+"/kills", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Empty(t, decode(t, rr)["kills"])
}

// TestWorkersAndDeltaNeutral tests worker and delta-neutral vault routes
func TestWorkersAndDeltaNeutral(t *testing.T) {
	_, h := newTestServer(t)

	rr := doRequest(t, h, http.MethodGet, "/v1/workers", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, decode(t, rr)["workers"], 4)

	rr = doRequest(t, h, http.MethodGet, "/v1/deltaneutral", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, decode(t, rr)["vaults"], 1)

	rr = doRequest(t, h, http.MethodGet, "/v1/deltaneutral/"+sandbox.DNVault, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, decode(t, rr), "share_price")

	rr = doRequest(t, h, http.MethodGet, "/v1/deltaneutral/missing", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

// TestAdvanceReinvestPublishesEvents tests that chain events reach the event log
func TestAdvanceReinvestPublishesEvents(t *testing.T) {
	s, h := newTestServer(t)
	before := s.Hub().History().LastSeq()

	rr := doRequest(t, h, http.MethodPost, "/v1/advance", AdvanceRequest{Seconds: 10})
	require.Equal(t, http.StatusOK, rr.Code)
	require.Greater(t, s.Hub().History().LastSeq(), before)

	rr = doRequest(t, h, http.MethodPost, "/v1/workers/"+sandbox.StableWorker+"/reinvest", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = doRequest(t, h, http.MethodGet, fmt.Sprintf("/v1/events?since=%d&channel=worker:%s", before, sandbox.StableWorker), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	events := decode(t, rr)["events"].([]interface{})
	require.NotEmpty(t, events)

	found := false
	for _, e := range events {
		if e.(map[string]interface{})["type"] == "worker_reinvest" {
			found = true
		}
	}
	require.True(t, found)

	rr = doRequest(t, h, http.MethodPost, "/v1/workers/missing/reinvest", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

// TestSetPrice tests the oracle price route
func TestSetPrice(t *testing.T) {
	_, h := newTestServer(t)

	rr := doRequest(t, h, http.MethodPost, "/v1/prices/"+sandbox.Asset, map[string]string{"price": "12.5"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = doRequest(t, h, http.MethodPost, "/v1/prices/"+sandbox.Asset, map[string]string{"price": "abc"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

// TestRateLimitedWrites tests the write throttle
func TestRateLimitedWrites(t *testing.T) {
	config := DefaultConfig()
	s, err := NewServer(config, log.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.rateLimiter.Stop() })
	h := s.Handler()

	limited := false
	for i := 0; i < 20; i++ {
		rr := doRequest(t, h, http.MethodPost, "/v1/advance", nil)
		if rr.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	require.True(t, limited)
}
