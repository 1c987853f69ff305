package trader

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"grid-backtest-go/internal/metrics"

	"go.uber.org/zap"
)

// snapshotter is implemented by strategies that can report their internal state.
type snapshotter interface {
	Snapshot() GridSnapshot
}

// APIServer provides an HTTP interface for the backtest engine.
type APIServer struct {
	server *http.Server
	engine *Engine
	logger *zap.Logger
}

// NewAPIServer creates a new APIServer.
func NewAPIServer(engine *Engine, port int, logger *zap.Logger) *APIServer {
	s := &APIServer{
		engine: engine,
		logger: logger.Named("api-server"),
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *APIServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.statusHandler)
	mux.HandleFunc("/health", s.healthHandler)
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

// Start runs the HTTP server in a new goroutine.
func (s *APIServer) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *APIServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}

func (s *APIServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := struct {
		UUID      string        `json:"uuid"`
		Name      string        `json:"name"`
		Symbol    string        `json:"symbol"`
		Strategy  string        `json:"strategy"`
		StartTime string        `json:"start_time"`
		Uptime    string        `json:"uptime"`
		Progress  Progress      `json:"progress"`
		Grid      *GridSnapshot `json:"grid,omitempty"`
	}{
		UUID:      s.engine.UUID,
		Name:      s.engine.Name,
		Symbol:    s.engine.cfg.Symbol,
		Strategy:  s.engine.Strategy().Name(),
		StartTime: s.engine.StartTime.Format(time.RFC3339),
		Uptime:    time.Since(s.engine.StartTime).String(),
		Progress:  s.engine.Progress(),
	}
	if snap, ok := s.engine.Strategy().(snapshotter); ok {
		g := snap.Snapshot()
		status.Grid = &g
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Error("Failed to write status response", zap.Error(err))
		http.Error(w, "Failed to encode status", http.StatusInternalServerError)
	}
}

func (s *APIServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}
