package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"cosmossdk.io/errors"
	"cosmossdk.io/math"

	dntypes "github.com/openalpha/levfarm/x/deltaneutral/types"
	vaulttypes "github.com/openalpha/levfarm/x/vault/types"
	workertypes "github.com/openalpha/levfarm/x/worker/types"
)

// default debt/health ratio for the at-risk listing
const defaultAtRiskRatio = "0.9"

// errorStatus maps keeper errors onto HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.IsOf(err,
		vaulttypes.ErrVaultNotFound,
		vaulttypes.ErrPositionNotFound,
		workertypes.ErrWorkerNotFound,
		dntypes.ErrVaultNotFound,
	):
		return http.StatusNotFound
	case errors.IsOf(err,
		vaulttypes.ErrNotAuthorized,
		workertypes.ErrNotAuthorized,
		dntypes.ErrNotAuthorized,
	):
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

func writeKeeperError(w http.ResponseWriter, err error) {
	writeError(w, errorStatus(err), err.Error())
}

func positionID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(r.PathValue("pid"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid position id")
		return 0, false
	}
	return id, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.service.Status()
	body := map[string]interface{}{
		"status":      "healthy",
		"timestamp":   time.Now().Unix(),
		"height":      status.Height,
		"clients":     s.hub.GetClientCount(),
		"subscribers": s.hub.Subscribers(),
	}
	if !s.config.DisableRateLimit {
		body["rate_limit"] = s.rateLimiter.GetStats()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Status())
}

func (s *Server) handleVaults(w http.ResponseWriter, r *http.Request) {
	views, err := s.service.Vaults()
	if err != nil {
		writeKeeperError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"vaults": views})
}

func (s *Server) handleVault(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.Vault(r.PathValue("id"))
	if err != nil {
		writeKeeperError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handlePositions lists open positions, ?owner= narrows to one address
func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	infos, err := s.service.Positions(r.PathValue("id"), r.URL.Query().Get("owner"))
	if err != nil {
		writeKeeperError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"positions": infos})
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	id, ok := positionID(w, r)
	if !ok {
		return
	}
	info, err := s.service.Position(r.PathValue("id"), id)
	if err != nil {
		writeKeeperError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleAtRisk lists positions at or above ?ratio= of debt to health
func (s *Server) handleAtRisk(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("ratio")
	if raw == "" {
		raw = defaultAtRiskRatio
	}
	ratio, err := math.LegacyNewDecFromStr(raw)
	if err != nil || ratio.IsNegative() {
		writeError(w, http.StatusBadRequest, "invalid ratio")
		return
	}
	infos, err := s.service.AtRisk(r.PathValue("id"), ratio)
	if err != nil {
		writeKeeperError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ratio": ratio, "positions": infos})
}

func (s *Server) handleKills(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.Kills(r.PathValue("id"))
	if err != nil {
		writeKeeperError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"kills": records})
}

func (s *Server) handleWorkers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"workers": s.service.Workers()})
}

func (s *Server) handleDeltaNeutralVaults(w http.ResponseWriter, r *http.Request) {
	views, err := s.service.DeltaNeutralVaults()
	if err != nil {
		writeKeeperError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"vaults": views})
}

func (s *Server) handleDeltaNeutral(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.DeltaNeutral(r.PathValue("id"))
	if err != nil {
		writeKeeperError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleEvents replays retained events after ?since= on ?channel=
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var since uint64
	if raw := r.URL.Query().Get("since"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since")
			return
		}
		since = v
	}
	history := s.hub.History()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"last_seq": history.LastSeq(),
		"events":   history.Since(since, r.URL.Query().Get("channel")),
	})
}

func (s *Server) handleKill(w http.ResponseWriter, r *http.Request) {
	id, ok := positionID(w, r)
	if !ok {
		return
	}
	record, err := s.service.Kill(r.PathValue("id"), id)
	if err != nil {
		writeKeeperError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// ReinvestRequest is the body of POST /v1/workers/{id}/reinvest
type ReinvestRequest struct {
	MinSwapOut math.Int `json:"min_swap_out"`
}

func (s *Server) handleReinvest(w http.ResponseWriter, r *http.Request) {
	req := ReinvestRequest{MinSwapOut: math.ZeroInt()}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.MinSwapOut.IsNil() {
			req.MinSwapOut = math.ZeroInt()
		}
	}
	res, err := s.service.Reinvest(r.PathValue("id"), req.MinSwapOut)
	if err != nil {
		writeKeeperError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// SetPriceRequest is the body of POST /v1/prices/{denom}
type SetPriceRequest struct {
	Price math.LegacyDec `json:"price"`
}

func (s *Server) handleSetPrice(w http.ResponseWriter, r *http.Request) {
	var req SetPriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Price.IsNil() {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.service.SetPrice(r.PathValue("denom"), req.Price); err != nil {
		writeKeeperError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"denom": r.PathValue("denom"), "price": req.Price})
}

// AdvanceRequest is the body of POST /v1/advance
type AdvanceRequest struct {
	Seconds int64 `json:"seconds"`
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	var req AdvanceRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Seconds < 0 {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	status, err := s.service.Advance(time.Duration(req.Seconds) * time.Second)
	if err != nil {
		writeKeeperError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
