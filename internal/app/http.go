package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"options-calendar-bot/internal/chain"
	"options-calendar-bot/internal/strategy"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

type startResponse struct {
	Status    string             `json:"status"`
	Config    strategy.Config    `json:"config"`
	TestMode  bool               `json:"testMode"`
	Scenario  string             `json:"scenario,omitempty"`
	Positions strategy.Positions `json:"positions"`
	Message   string             `json:"message"`
}

type monitorResponse struct {
	Status        string                    `json:"status"`
	Config        strategy.Config           `json:"config"`
	CurrentDeltas map[strategy.Leg]*float64 `json:"currentDeltas"`
	Adjustments   []strategy.Adjustment     `json:"adjustments"`
	Timestamp     time.Time                 `json:"timestamp"`
	TestMode      bool                      `json:"testMode"`
	Scenario      string                    `json:"scenario"`
	UsedFallback  bool                      `json:"usedFallback"`
}

func newMonitorResponse(cfg strategy.Config, mode strategy.Mode, report strategy.Report) monitorResponse {
	return monitorResponse{
		Status:        "monitoring",
		Config:        cfg,
		CurrentDeltas: report.CurrentDeltas,
		Adjustments:   report.Adjustments,
		Timestamp:     report.Timestamp,
		TestMode:      mode.TestMode,
		Scenario:      mode.Scenario,
		UsedFallback:  report.UsedFallback,
	}
}

type mockChainResponse struct {
	Scenario     string         `json:"scenario"`
	Expiry       string         `json:"expiry"`
	UsedFallback bool           `json:"usedFallback"`
	Data         chain.Snapshot `json:"data"`
}

func (a *App) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /start-strategy", a.handleStart)
	mux.HandleFunc("POST /stop-strategy", a.handleStop)
	mux.HandleFunc("GET /monitor-strategy", a.handleMonitor)
	mux.HandleFunc("GET /option-chain", a.handleOptionChain)
	mux.HandleFunc("GET /expiry-dates", a.handleExpiryDates)
	mux.HandleFunc("GET /test-scenarios", a.handleTestScenarios)
	mux.HandleFunc("GET /mock-option-chain", a.handleMockOptionChain)
	mux.HandleFunc("GET /all-mock-data", a.handleAllMockData)
	mux.HandleFunc("GET /health", a.handleHealth)
	mux.Handle("GET /ws/monitor", a.hub)
	if a.prom != nil {
		mux.Handle("GET "+a.cfg.Metrics.Path, a.prom.Handler())
	}
	return withCORS(mux)
}

func (a *App) handleStart(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid strategy configuration", Details: []string{err.Error()}})
		return
	}
	var invalid *strategy.InvalidConfigError
	cfg, err := strategy.ParseConfig(body)
	if errors.As(err, &invalid) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid strategy configuration", Details: invalid.Violations})
		return
	}
	mode := a.modeFromQuery(r)
	positions, err := a.Deploy(r.Context(), cfg, mode)
	if err != nil {
		switch {
		case errors.As(err, &invalid):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid strategy configuration", Details: invalid.Violations})
		case errors.Is(err, strategy.ErrDeployInProgress), errors.Is(err, strategy.ErrDeployCancelled):
			writeJSON(w, http.StatusConflict, errorResponse{Error: "Failed to start strategy", Details: err.Error()})
		default:
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to start strategy", Details: err.Error()})
		}
		return
	}
	msg := "Weekly-Monthly Calendar Strategy started successfully"
	if mode.TestMode {
		msg = fmt.Sprintf("Weekly-Monthly Calendar Strategy started in TEST MODE with scenario: %s", mode.Scenario)
	}
	writeJSON(w, http.StatusOK, startResponse{
		Status:    "started",
		Config:    cfg,
		TestMode:  mode.TestMode,
		Scenario:  mode.Scenario,
		Positions: positions,
		Message:   msg,
	})
}

func (a *App) handleStop(w http.ResponseWriter, r *http.Request) {
	a.Stop(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (a *App) handleMonitor(w http.ResponseWriter, r *http.Request) {
	res, err := a.monitorActive(r.Context(), monitorOverride(r))
	if err != nil {
		if errors.Is(err, strategy.ErrNoActiveStrategy) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "No active strategy positions found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to monitor strategy", Details: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, newMonitorResponse(res.Active.Config, res.Mode, res.Report))
}

func (a *App) handleOptionChain(w http.ResponseWriter, r *http.Request) {
	expiry := strings.TrimSpace(r.URL.Query().Get("expiry"))
	if expiry == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Expiry date is required"})
		return
	}
	strikes := a.cfg.Strategy.StrikesAroundATM
	if raw := r.URL.Query().Get("strikes"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "strikes must be a non-negative integer"})
			return
		}
		strikes = n
	}
	snap, err := a.source.Live(r.Context(), expiry, strikes)
	if err != nil {
		a.log.Warn("option chain request failed", zap.String("expiry", expiry), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to generate formatted option chain", Details: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (a *App) handleExpiryDates(w http.ResponseWriter, r *http.Request) {
	if a.broker == nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to fetch expiry dates", Details: strategy.ErrLiveSourceUnavailable.Error()})
		return
	}
	expiries, err := a.broker.ExpiryList(r.Context())
	if err != nil {
		a.log.Warn("expiry list request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to fetch expiry dates", Details: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": expiries})
}

func (a *App) handleTestScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.mock.Scenarios())
}

func (a *App) handleMockOptionChain(w http.ResponseWriter, r *http.Request) {
	if !a.mock.Available() {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Mock data not available"})
		return
	}
	query := r.URL.Query()
	expiry := strings.TrimSpace(query.Get("expiry"))
	if expiry == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Expiry date is required"})
		return
	}
	date, err := time.Parse(chain.ExpiryLayout, expiry)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "expiry must be formatted as YYYY-MM-DD"})
		return
	}
	scenario := strings.TrimSpace(query.Get("scenario"))
	if scenario == "" {
		scenario = a.cfg.Strategy.DefaultScenario
	}
	res, err := a.mock.Snapshot(scenario, date)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: fmt.Sprintf("Mock data not found for scenario: %s, expiry: %s", scenario, expiry)})
		return
	}
	writeJSON(w, http.StatusOK, mockChainResponse{
		Scenario:     scenario,
		Expiry:       expiry,
		UsedFallback: res.UsedFallback,
		Data:         res.Snapshot,
	})
}

func (a *App) handleAllMockData(w http.ResponseWriter, r *http.Request) {
	if !a.mock.Available() {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Mock data not available"})
		return
	}
	writeJSON(w, http.StatusOK, a.mock.Dataset())
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "healthy",
		"timestamp":   a.now().UTC().Format(time.RFC3339Nano),
		"environment": a.cfg.Server.Environment,
	})
}

// modeFromQuery reads testMode and scenario for a deployment. Test mode
// without a scenario uses the default one.
func (a *App) modeFromQuery(r *http.Request) strategy.Mode {
	query := r.URL.Query()
	if query.Get("testMode") != "true" {
		return strategy.Mode{}
	}
	scenario := strings.TrimSpace(query.Get("scenario"))
	if scenario == "" {
		scenario = a.cfg.Strategy.DefaultScenario
	}
	return strategy.Mode{TestMode: true, Scenario: scenario}
}

// monitorOverride reads testMode and scenario for a monitor pass. The scenario
// is left empty when absent so the deployed one applies.
func monitorOverride(r *http.Request) *strategy.Mode {
	query := r.URL.Query()
	if query.Get("testMode") != "true" {
		return nil
	}
	return &strategy.Mode{TestMode: true, Scenario: strings.TrimSpace(query.Get("scenario"))}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
