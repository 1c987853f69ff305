package main

import (
	"fmt"
	"net/http"
	"os"

	"grid-backtest-go/internal/config"
	"grid-backtest-go/internal/database"
	"grid-backtest-go/internal/logger"
	"grid-backtest-go/internal/metrics"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Connect to the database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	apiHandler := NewAPIHandler(log, database.NewRepository(db))

	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	addr := fmt.Sprintf(":%d", port)
	log.Info("Starting web server", zap.String("address", addr))

	if err := http.ListenAndServe(addr, newMux(apiHandler)); err != nil {
		log.Fatal("Web server failed", zap.Error(err))
	}
}

func newMux(h *APIHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/runs", h.RunsHandler)
	mux.HandleFunc("/api/fills", h.FillsHandler)
	mux.HandleFunc("/api/trades", h.TradesHandler)
	mux.HandleFunc("/api/statistics", h.StatisticsHandler)
	mux.Handle("/metrics", metrics.Handler())
	return mux
}
