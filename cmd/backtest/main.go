package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"grid-backtest-go/internal/broker"
	"grid-backtest-go/internal/config"
	"grid-backtest-go/internal/database"
	"grid-backtest-go/internal/logger"
	"grid-backtest-go/internal/trader"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// A missing .env is fine, the environment may already be set.
	_ = godotenv.Load()

	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	gridCfg, err := cfg.GridConfig()
	if err != nil {
		log.Fatal("Invalid grid configuration", zap.Error(err))
	}
	from, to, err := cfg.Backtest.Range()
	if err != nil {
		log.Fatal("Invalid backtest window", zap.Error(err))
	}

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	repo := database.NewRepository(db)
	log.Info("Database connection successful and schema migrated.")

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, stopping the replay...")
		cancel()
	}()

	src, closeFeed, err := openFeed(ctx, &cfg, gridCfg.Location, from, to, repo, log)
	if err != nil {
		log.Fatal("Failed to open bar feed", zap.Error(err))
	}
	defer closeFeed()

	strategy, err := trader.NewGridStrategy(gridCfg, trader.GridOptions{
		TrendPeriod:    cfg.Strategy.TrendPeriod,
		MaxPosition:    cfg.Strategy.MaxPosition,
		OrderPercent:   cfg.Strategy.OrderPercent,
		CommissionRate: cfg.Backtest.CommissionRate,
	})
	if err != nil {
		log.Fatal("Failed to create strategy", zap.Error(err))
	}

	paper := broker.NewPaper(broker.PaperConfig{
		Symbol:         cfg.Backtest.Symbol,
		Cash:           cfg.Backtest.Cash,
		CommissionRate: cfg.Backtest.CommissionRate,
		ExpireBars:     cfg.Backtest.ExpireBars,
	})

	engine := trader.NewEngine(log, trader.EngineConfig{
		Symbol:   cfg.Backtest.Symbol,
		Interval: cfg.Backtest.Interval,
		Grid:     gridCfg,
	}, src, paper, strategy, repo)

	if cfg.Server.Port > 0 {
		api := trader.NewAPIServer(engine, cfg.Server.Port, log)
		api.Start()
		defer func() {
			shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			if err := api.Stop(shutdownCtx); err != nil {
				log.Error("Failed to stop API server", zap.Error(err))
			}
		}()
	}

	summary, err := engine.Run(ctx)
	if err != nil {
		log.Error("Backtest did not complete", zap.Error(err))
	}
	if summary == nil {
		return
	}

	log.Info("Backtest summary",
		zap.String("run", summary.RunID),
		zap.Time("start", summary.Start),
		zap.Time("end", summary.End),
		zap.Int("bars", summary.Bars),
		zap.Int("fills", summary.Fills),
		zap.Int("closed_trades", summary.Closed),
		zap.Float64("win_rate_pct", summary.WinRatePct),
		zap.Float64("net_pnl", summary.NetPnL),
		zap.Float64("return_pct", summary.ReturnPct),
	)

	if cfg.Backtest.ReportPath != "" {
		if err := summary.SaveYAML(cfg.Backtest.ReportPath); err != nil {
			log.Error("Failed to write report", zap.Error(err))
		} else {
			log.Info("Report written", zap.String("path", cfg.Backtest.ReportPath))
		}
	}
}
