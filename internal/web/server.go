/*

HTTP JSON API for the emission engine. Participant operations (deposit,
withdraw, claim, vote, rebalance, refresh) and read views are open; the
administrative surface (pool registration, reserved-weight release, emission
start, collaborator funding) sits behind a static bearer token. Every handler
delegates to the controller, so the settle-before-mutate discipline holds no
matter what order requests arrive in.

*/

package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/solstice-fi/emissary/internal/farm"
	"github.com/solstice-fi/emissary/internal/gov"
	"github.com/solstice-fi/emissary/internal/ledger"
	"github.com/solstice-fi/emissary/internal/logger"
	"github.com/solstice-fi/emissary/internal/metrics"
	"github.com/solstice-fi/emissary/internal/state"
	"github.com/solstice-fi/emissary/internal/types"
)

var webLogger = logger.GetForComponent("web_server")

// WebServer handles HTTP requests against the emission engine.
type WebServer struct {
	router     *mux.Router
	port       string
	controller *farm.Controller
	meters     *metrics.Metrics
	recent     *farm.Collector
	bank       *ledger.Bank
	oracle     *gov.StaticOracle
	adminToken string
	auditStore bool
}

// Config holds the configuration for creating a new web server.
type Config struct {
	// Port is the TCP port to listen on; empty defaults to 8080.
	Port string

	// Controller is the engine every handler delegates to. Required.
	Controller *farm.Controller

	// AdminToken gates the /api/admin routes. Required.
	AdminToken string

	// Meters, when set, serves /metrics and counts requests.
	Meters *metrics.Metrics

	// Recent, when set, backs /api/events when no audit store is configured.
	Recent *farm.Collector

	// Bank, when set, enables the admin mint route for funding accounts.
	Bank *ledger.Bank

	// Oracle, when set, enables the admin governance-power route.
	Oracle *gov.StaticOracle

	// AuditStoreEnabled switches /api/events, /api/summary and /api/snapshots
	// to the Postgres audit store.
	AuditStoreEnabled bool
}

// NewWebServer creates a new web server instance with dependency injection.
func NewWebServer(cfg Config) (*WebServer, error) {
	if cfg.Controller == nil {
		return nil, errors.New("controller cannot be nil")
	}
	if cfg.AdminToken == "" {
		return nil, errors.New("admin token cannot be empty")
	}
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router:     mux.NewRouter(),
		port:       port,
		controller: cfg.Controller,
		meters:     cfg.Meters,
		recent:     cfg.Recent,
		bank:       cfg.Bank,
		oracle:     cfg.Oracle,
		adminToken: cfg.AdminToken,
		auditStore: cfg.AuditStoreEnabled,
	}

	server.setupRoutes()
	return server, nil
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Health endpoint (direct route)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	if ws.meters != nil {
		ws.router.Handle("/metrics", ws.meters.Handler()).Methods("GET")
	}

	// API endpoints
	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", ws.handleStatus).Methods("GET")
	api.HandleFunc("/pools", ws.handleGetPools).Methods("GET")
	api.HandleFunc("/pools/{id}", ws.handleGetPool).Methods("GET")
	api.HandleFunc("/pools/{id}/deposit", ws.handleDeposit).Methods("POST")
	api.HandleFunc("/pools/{id}/withdraw", ws.handleWithdraw).Methods("POST")
	api.HandleFunc("/pools/{id}/claim", ws.handleClaim).Methods("POST")
	api.HandleFunc("/pools/{id}/refresh", ws.handleRefreshPool).Methods("POST")
	api.HandleFunc("/claims", ws.handleClaimMany).Methods("POST")
	api.HandleFunc("/accounts/{account}/positions", ws.handleGetPositions).Methods("GET")
	api.HandleFunc("/accounts/{account}/positions/{id}", ws.handleGetPosition).Methods("GET")
	api.HandleFunc("/accounts/{account}/votes", ws.handleGetVotes).Methods("GET")
	api.HandleFunc("/votes", ws.handleVote).Methods("POST")
	api.HandleFunc("/votes/reset", ws.handleResetVotes).Methods("POST")
	api.HandleFunc("/rebalance", ws.handleRebalance).Methods("POST")
	api.HandleFunc("/refresh", ws.handleRefreshAll).Methods("POST")
	api.HandleFunc("/events", ws.handleGetEvents).Methods("GET")
	api.HandleFunc("/summary", ws.handleGetSummary).Methods("GET")
	api.HandleFunc("/snapshots", ws.handleGetSnapshots).Methods("GET")

	// Administrative endpoints, token gated
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(ws.adminAuthMiddleware)
	admin.HandleFunc("/pools", ws.handleRegisterPool).Methods("POST")
	admin.HandleFunc("/pools/{id}/release-reserved", ws.handleReleaseReserved).Methods("POST")
	admin.HandleFunc("/emissions", ws.handleStartEmissions).Methods("POST")
	admin.HandleFunc("/mint", ws.handleMint).Methods("POST")
	admin.HandleFunc("/power", ws.handleSetPower).Methods("POST")

	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Router exposes the configured routes for tests and embedding.
func (ws *WebServer) Router() http.Handler {
	return ws.router
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	handler := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{}),
	)(handlers.CompressHandler(ws.router))

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// recoveryLogger routes gorilla's panic recoveries into the component logger.
type recoveryLogger struct{}

func (recoveryLogger) Println(v ...interface{}) {
	webLogger.Error().Interface("panic", v).Msg("Recovered from handler panic")
}

// ===== REQUEST PAYLOADS =====

// Amounts travel as base-10 integer strings so they survive JSON number
// precision limits.
type stakePayload struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

type claimPayload struct {
	Account string `json:"account"`
}

type claimManyPayload struct {
	Account string   `json:"account"`
	PoolIDs []uint64 `json:"pool_ids"`
}

type votePayload struct {
	Account string   `json:"account"`
	PoolIDs []uint64 `json:"pool_ids"`
	Weights []string `json:"weights"`
}

type registerPoolPayload struct {
	StakedDenom    string `json:"staked_denom"`
	ReservedWeight string `json:"reserved_weight"`
	RefreshFirst   bool   `json:"refresh_first"`
}

type releaseReservedPayload struct {
	RefreshFirst bool `json:"refresh_first"`
}

type emissionsPayload struct {
	Funder      string `json:"funder"`
	TotalSupply string `json:"total_supply"`
}

type mintPayload struct {
	Denom   string `json:"denom"`
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

type powerPayload struct {
	Account string `json:"account"`
	Power   string `json:"power"`
}

// ===== PARTICIPANT OPERATIONS =====

// handleDeposit stakes assets into a pool, paying out any pending reward.
func (ws *WebServer) handleDeposit(w http.ResponseWriter, r *http.Request) {
	id, ok := ws.poolIDVar(w, r)
	if !ok {
		return
	}
	var payload stakePayload
	if !ws.decodeJSON(w, r, &payload) {
		return
	}
	amount, ok := ws.parseAmount(w, payload.Amount, "amount")
	if !ok {
		return
	}

	paid, err := ws.controller.Deposit(payload.Account, id, amount)
	if err != nil {
		ws.writeEngineError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"pool_id":     id,
		"account":     payload.Account,
		"deposited":   amount.String(),
		"reward_paid": paid.String(),
	})
}

// handleWithdraw unstakes assets from a pool, paying out any pending reward.
func (ws *WebServer) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	id, ok := ws.poolIDVar(w, r)
	if !ok {
		return
	}
	var payload stakePayload
	if !ws.decodeJSON(w, r, &payload) {
		return
	}
	amount, ok := ws.parseAmount(w, payload.Amount, "amount")
	if !ok {
		return
	}

	paid, err := ws.controller.Withdraw(payload.Account, id, amount)
	if err != nil {
		ws.writeEngineError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"pool_id":     id,
		"account":     payload.Account,
		"withdrawn":   amount.String(),
		"reward_paid": paid.String(),
	})
}

// handleClaim pays out the pending reward for a single position.
func (ws *WebServer) handleClaim(w http.ResponseWriter, r *http.Request) {
	id, ok := ws.poolIDVar(w, r)
	if !ok {
		return
	}
	var payload claimPayload
	if !ws.decodeJSON(w, r, &payload) {
		return
	}

	paid, err := ws.controller.Claim(payload.Account, id)
	if err != nil {
		ws.writeEngineError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"pool_id":     id,
		"account":     payload.Account,
		"reward_paid": paid.String(),
	})
}

// handleClaimMany pays out pending rewards across several pools in one
// atomic transfer.
func (ws *WebServer) handleClaimMany(w http.ResponseWriter, r *http.Request) {
	var payload claimManyPayload
	if !ws.decodeJSON(w, r, &payload) {
		return
	}

	ids := make([]types.PoolID, len(payload.PoolIDs))
	for i, raw := range payload.PoolIDs {
		ids[i] = types.PoolID(raw)
	}

	paid, err := ws.controller.ClaimMany(payload.Account, ids)
	if err != nil {
		ws.writeEngineError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"account":     payload.Account,
		"pools":       len(ids),
		"reward_paid": paid.String(),
	})
}

// handleVote replaces the caller's vote allocation and returns the resulting
// voter view.
func (ws *WebServer) handleVote(w http.ResponseWriter, r *http.Request) {
	var payload votePayload
	if !ws.decodeJSON(w, r, &payload) {
		return
	}

	ids := make([]types.PoolID, len(payload.PoolIDs))
	for i, raw := range payload.PoolIDs {
		ids[i] = types.PoolID(raw)
	}
	weights := make([]sdkmath.Int, len(payload.Weights))
	for i, raw := range payload.Weights {
		weight, ok := ws.parseAmount(w, raw, "weight")
		if !ok {
			return
		}
		weights[i] = weight
	}

	if err := ws.controller.Vote(payload.Account, ids, weights); err != nil {
		ws.writeEngineError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, ws.controller.VoterView(payload.Account))
}

func (ws *WebServer) handleResetVotes(w http.ResponseWriter, r *http.Request) {
	var payload claimPayload
	if !ws.decodeJSON(w, r, &payload) {
		return
	}

	if err := ws.controller.ResetVotes(payload.Account); err != nil {
		ws.writeEngineError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"account": payload.Account,
		"status":  "reset",
	})
}

// handleRebalance converts current vote weights into emission rates.
func (ws *WebServer) handleRebalance(w http.ResponseWriter, r *http.Request) {
	applied := ws.controller.Rebalance()
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"applied": applied,
	})
}

func (ws *WebServer) handleRefreshAll(w http.ResponseWriter, r *http.Request) {
	ws.controller.RefreshAll()
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status": "refreshed",
	})
}

func (ws *WebServer) handleRefreshPool(w http.ResponseWriter, r *http.Request) {
	id, ok := ws.poolIDVar(w, r)
	if !ok {
		return
	}
	if err := ws.controller.RefreshPool(id); err != nil {
		ws.writeEngineError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"pool_id": id,
		"status":  "refreshed",
	})
}

// ===== READ VIEWS =====

// handleStatus returns the full engine snapshot and syncs the metric gauges
// from it, so scrapes between epochs stay current.
func (ws *WebServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	snapshot := ws.controller.Snapshot()
	if ws.meters != nil {
		ws.meters.ObserveSnapshot(snapshot)
	}
	ws.writeJSONResponse(w, http.StatusOK, snapshot)
}

func (ws *WebServer) handleGetPools(w http.ResponseWriter, r *http.Request) {
	snapshot := ws.controller.Snapshot()
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"pools": snapshot.Pools,
		"count": len(snapshot.Pools),
	})
}

func (ws *WebServer) handleGetPool(w http.ResponseWriter, r *http.Request) {
	id, ok := ws.poolIDVar(w, r)
	if !ok {
		return
	}
	view, err := ws.controller.PoolView(id)
	if err != nil {
		ws.writeEngineError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, view)
}

func (ws *WebServer) handleGetPositions(w http.ResponseWriter, r *http.Request) {
	account := mux.Vars(r)["account"]
	positions := ws.controller.PositionsOf(account)
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"account":   account,
		"positions": positions,
		"count":     len(positions),
	})
}

func (ws *WebServer) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	account := mux.Vars(r)["account"]
	id, ok := ws.poolIDVar(w, r)
	if !ok {
		return
	}
	view, err := ws.controller.PositionView(account, id)
	if err != nil {
		ws.writeEngineError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, view)
}

func (ws *WebServer) handleGetVotes(w http.ResponseWriter, r *http.Request) {
	account := mux.Vars(r)["account"]
	ws.writeJSONResponse(w, http.StatusOK, ws.controller.VoterView(account))
}

// handleGetEvents returns recent engine events, newest first, from the audit
// store when configured and from the in-memory collector otherwise.
func (ws *WebServer) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	limit := ws.limitParam(r, 20)
	account := r.URL.Query().Get("account")
	poolStr := r.URL.Query().Get("pool")

	var events []types.Event
	var err error
	switch {
	case ws.auditStore && account != "":
		events, err = state.GetAccountEvents(account, limit)
	case ws.auditStore && poolStr != "":
		poolID, parseErr := strconv.ParseUint(poolStr, 10, 64)
		if parseErr != nil {
			ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid pool ID")
			return
		}
		events, err = state.GetPoolEvents(types.PoolID(poolID), limit)
	case ws.auditStore:
		events, err = state.GetRecentEvents(limit)
	default:
		events, err = ws.collectedEvents(account, poolStr, limit)
		if err != nil {
			ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get recent events")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve events")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
		"limit":  limit,
	})
}

// collectedEvents filters the in-memory collector the way the audit-store
// queries filter rows.
func (ws *WebServer) collectedEvents(account, poolStr string, limit int) ([]types.Event, error) {
	if ws.recent == nil {
		return []types.Event{}, nil
	}

	var poolID types.PoolID
	if poolStr != "" {
		raw, err := strconv.ParseUint(poolStr, 10, 64)
		if err != nil {
			return nil, errors.New("invalid pool ID")
		}
		poolID = types.PoolID(raw)
	}

	all := ws.recent.Events()
	events := make([]types.Event, 0, limit)
	for i := len(all) - 1; i >= 0 && len(events) < limit; i-- {
		if account != "" && all[i].Account != account {
			continue
		}
		if poolID != 0 && all[i].PoolID != poolID {
			continue
		}
		events = append(events, all[i])
	}
	return events, nil
}

func (ws *WebServer) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	if !ws.auditStore {
		ws.writeErrorResponse(w, http.StatusNotFound, "Audit store not configured")
		return
	}
	summary, err := state.GetEngineSummary()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get engine summary")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve engine summary")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, summary)
}

func (ws *WebServer) handleGetSnapshots(w http.ResponseWriter, r *http.Request) {
	if !ws.auditStore {
		ws.writeErrorResponse(w, http.StatusNotFound, "Audit store not configured")
		return
	}
	snapshots, err := state.GetRecentSnapshots(ws.limitParam(r, 10))
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get recent snapshots")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve snapshots")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"snapshots": snapshots,
		"count":     len(snapshots),
	})
}

// handleHealth returns server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	snapshot := ws.controller.Snapshot()

	hasErrors := false
	dbHealthy := true
	if ws.auditStore {
		if err := state.TestDBConnection(); err != nil {
			dbHealthy = false
			hasErrors = true
		}
	}

	overallStatus := "OK"
	if hasErrors {
		overallStatus = "DEGRADED"
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"sys_bytes":        memStats.Sys,
			"gc_cycles":        memStats.NumGC,
		},
		"component": map[string]interface{}{
			"name":    "emissary-emission-engine",
			"version": "1.0.0",
		},
		"engine_status": map[string]interface{}{
			"emissions_started":   snapshot.EmissionsStarted,
			"pool_count":          len(snapshot.Pools),
			"position_count":      snapshot.PositionCount,
			"voter_count":         snapshot.VoterCount,
			"total_emission_rate": snapshot.TotalEmissionRate.String(),
			"audit_store_healthy": dbHealthy,
		},
	}

	statusCode := http.StatusOK
	if hasErrors {
		statusCode = http.StatusServiceUnavailable
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// ===== ADMINISTRATIVE OPERATIONS =====

func (ws *WebServer) handleRegisterPool(w http.ResponseWriter, r *http.Request) {
	var payload registerPoolPayload
	if !ws.decodeJSON(w, r, &payload) {
		return
	}
	reserved, ok := ws.parseAmount(w, payload.ReservedWeight, "reserved_weight")
	if !ok {
		return
	}

	id, err := ws.controller.RegisterPool(payload.StakedDenom, reserved, payload.RefreshFirst)
	if err != nil {
		ws.writeEngineError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusCreated, map[string]interface{}{
		"pool_id":         id,
		"staked_denom":    payload.StakedDenom,
		"reserved_weight": reserved.String(),
	})
}

func (ws *WebServer) handleReleaseReserved(w http.ResponseWriter, r *http.Request) {
	id, ok := ws.poolIDVar(w, r)
	if !ok {
		return
	}
	var payload releaseReservedPayload
	if !ws.decodeJSON(w, r, &payload) {
		return
	}

	if err := ws.controller.ReleaseReservedWeight(id, payload.RefreshFirst); err != nil {
		ws.writeEngineError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"pool_id": id,
		"status":  "released",
	})
}

func (ws *WebServer) handleStartEmissions(w http.ResponseWriter, r *http.Request) {
	var payload emissionsPayload
	if !ws.decodeJSON(w, r, &payload) {
		return
	}
	supply, ok := ws.parseAmount(w, payload.TotalSupply, "total_supply")
	if !ok {
		return
	}

	if err := ws.controller.StartEmissions(payload.Funder, supply); err != nil {
		ws.writeEngineError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"funder":       payload.Funder,
		"total_supply": supply.String(),
		"status":       "started",
	})
}

func (ws *WebServer) handleMint(w http.ResponseWriter, r *http.Request) {
	if ws.bank == nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "Ledger funding not available")
		return
	}
	var payload mintPayload
	if !ws.decodeJSON(w, r, &payload) {
		return
	}
	amount, ok := ws.parseAmount(w, payload.Amount, "amount")
	if !ok {
		return
	}

	if err := ws.bank.Mint(payload.Denom, payload.Account, amount); err != nil {
		ws.writeEngineError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"denom":   payload.Denom,
		"account": payload.Account,
		"minted":  amount.String(),
	})
}

func (ws *WebServer) handleSetPower(w http.ResponseWriter, r *http.Request) {
	if ws.oracle == nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "Governance power source not settable")
		return
	}
	var payload powerPayload
	if !ws.decodeJSON(w, r, &payload) {
		return
	}
	power, ok := ws.parseAmount(w, payload.Power, "power")
	if !ok {
		return
	}

	if err := ws.oracle.SetPower(payload.Account, power); err != nil {
		ws.writeEngineError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"account": payload.Account,
		"power":   power.String(),
	})
}

// ===== HELPERS =====

// poolIDVar parses the {id} path variable into a pool id.
func (ws *WebServer) poolIDVar(w http.ResponseWriter, r *http.Request) (types.PoolID, bool) {
	idStr := mux.Vars(r)["id"]
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || id == 0 {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid pool ID")
		return 0, false
	}
	return types.PoolID(id), true
}

// decodeJSON parses the request body, writing a 400 response on failure.
func (ws *WebServer) decodeJSON(w http.ResponseWriter, r *http.Request, payload interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(payload); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

// parseAmount parses a decimal-string amount, writing a 400 response on
// failure. Amount semantics (positivity, bounds) stay with the engine.
func (ws *WebServer) parseAmount(w http.ResponseWriter, value, field string) (sdkmath.Int, bool) {
	amount, ok := sdkmath.NewIntFromString(value)
	if !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid "+field+": expected a base-10 integer string")
		return sdkmath.Int{}, false
	}
	return amount, true
}

// limitParam reads a bounded ?limit= query parameter.
func (ws *WebServer) limitParam(r *http.Request, def int) int {
	limit := def
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	return limit
}

// writeEngineError maps controller sentinels onto HTTP status codes.
func (ws *WebServer) writeEngineError(w http.ResponseWriter, err error) {
	var statusCode int
	switch {
	case errors.Is(err, farm.ErrPoolNotFound), errors.Is(err, farm.ErrNoPosition):
		statusCode = http.StatusNotFound
	case errors.Is(err, farm.ErrPoolExists),
		errors.Is(err, farm.ErrEmissionsStarted),
		errors.Is(err, farm.ErrReservedWeightReleased):
		statusCode = http.StatusConflict
	case errors.Is(err, farm.ErrTransferRejected),
		errors.Is(err, ledger.ErrInsufficientBalance):
		statusCode = http.StatusUnprocessableEntity
	case errors.Is(err, farm.ErrInsufficientStake),
		errors.Is(err, farm.ErrInvalidAccount),
		errors.Is(err, farm.ErrInvalidAmount),
		errors.Is(err, farm.ErrInvalidDenom),
		errors.Is(err, farm.ErrInvalidWeight),
		errors.Is(err, farm.ErrVoteLengthMismatch),
		errors.Is(err, farm.ErrZeroWeightSum),
		errors.Is(err, farm.ErrDuplicatePool),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidAccount),
		errors.Is(err, ledger.ErrInvalidDenom),
		errors.Is(err, gov.ErrInvalidAccount),
		errors.Is(err, gov.ErrInvalidPower):
		statusCode = http.StatusBadRequest
	default:
		webLogger.Error().Err(err).Msg("Unclassified engine error")
		statusCode = http.StatusInternalServerError
	}
	ws.writeErrorResponse(w, statusCode, err.Error())
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// ===== MIDDLEWARE =====

// adminAuthMiddleware gates the administrative routes behind the static
// bearer token from configuration.
func (ws *WebServer) adminAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+ws.adminToken {
			webLogger.Warn().
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Msg("Rejected unauthorized admin request")
			ws.writeErrorResponse(w, http.StatusUnauthorized, "Invalid or missing admin token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests and feeds the request counter.
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		if ws.meters != nil {
			ws.meters.CountRequest(r.Method, route, wrapper.statusCode)
		}

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
