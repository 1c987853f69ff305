package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"grid-backtest-go/internal/database"
	"grid-backtest-go/internal/report"

	"go.uber.org/zap"
)

const defaultRunLimit = 50

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log  *zap.Logger
	repo *database.Repository
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, repo *database.Repository) *APIHandler {
	return &APIHandler{log: log, repo: repo}
}

// RunsHandler returns the most recent runs.
func (h *APIHandler) RunsHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := h.repo.ListRuns(r.Context(), limit)
	if err != nil {
		h.log.Error("Failed to get runs from database", zap.Error(err))
		http.Error(w, "Failed to get runs", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, runs)
}

// FillsHandler returns the order notifications of one run.
func (h *APIHandler) FillsHandler(w http.ResponseWriter, r *http.Request) {
	runID, ok := requireRun(w, r)
	if !ok {
		return
	}
	fills, err := h.repo.ListFills(r.Context(), runID)
	if err != nil {
		h.log.Error("Failed to get fills from database", zap.String("run", runID), zap.Error(err))
		http.Error(w, "Failed to get fills", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, fills)
}

// TradesHandler returns the closed trades of one run, most recent first.
func (h *APIHandler) TradesHandler(w http.ResponseWriter, r *http.Request) {
	runID, ok := requireRun(w, r)
	if !ok {
		return
	}
	trades, err := h.repo.ListClosedTrades(r.Context(), runID)
	if err != nil {
		h.log.Error("Failed to get trades from database", zap.String("run", runID), zap.Error(err))
		http.Error(w, "Failed to get trades", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, trades)
}

// StatisticsHandler calculates and returns trading statistics for one run. The 24 hour window
// ends at the run's last closed trade, since backtest timestamps are bar times.
func (h *APIHandler) StatisticsHandler(w http.ResponseWriter, r *http.Request) {
	runID, ok := requireRun(w, r)
	if !ok {
		return
	}
	trades, err := h.repo.ListClosedTrades(r.Context(), runID)
	if err != nil {
		h.log.Error("Failed to get trades for statistics", zap.String("run", runID), zap.Error(err))
		http.Error(w, "Failed to calculate statistics", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	if len(trades) > 0 {
		now = time.UnixMilli(trades[0].Timestamp)
	}
	h.writeJSON(w, report.ComputeStatistics(trades, now))
}

func requireRun(w http.ResponseWriter, r *http.Request) (string, bool) {
	runID := r.URL.Query().Get("run")
	if runID == "" {
		http.Error(w, "run query parameter is required", http.StatusBadRequest)
		return "", false
	}
	return runID, true
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to write response", zap.Error(err))
	}
}
