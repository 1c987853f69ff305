package trader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"grid-backtest-go/internal/broker"
	"grid-backtest-go/internal/database"
	"grid-backtest-go/internal/feed"
	"grid-backtest-go/internal/grid"
	"grid-backtest-go/internal/metrics"
	"grid-backtest-go/internal/models"
	"grid-backtest-go/internal/report"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Recorder persists a run as it progresses. *database.Repository satisfies it.
type Recorder interface {
	CreateRun(ctx context.Context, run *models.Run) error
	FinishRun(ctx context.Context, run *models.Run) error
	SaveFill(ctx context.Context, fill *models.Fill) error
	SaveClosedTrade(ctx context.Context, trade *models.ClosedTrade) error
}

var _ Recorder = (*database.Repository)(nil)

// EngineConfig names what the engine is replaying.
type EngineConfig struct {
	Name     string
	Symbol   string
	Interval string
	Grid     grid.Config
}

// Progress is what the engine has done so far.
type Progress struct {
	Running bool      `json:"running"`
	Bars    int       `json:"bars"`
	LastBar time.Time `json:"last_bar"`
	Value   float64   `json:"value"`
	Cash    float64   `json:"cash"`
	Held    float64   `json:"held"`
}

// Engine replays a feed through a broker and a strategy, one bar at a time.
type Engine struct {
	UUID      string
	Name      string
	StartTime time.Time

	cfg      EngineConfig
	logger   *zap.Logger
	feed     feed.Feed
	account  broker.Account
	strategy Strategy
	recorder Recorder

	mu       sync.RWMutex
	progress Progress
}

// NewEngine creates a new backtest engine. recorder may be nil.
func NewEngine(logger *zap.Logger, cfg EngineConfig, src feed.Feed, account broker.Account, strategy Strategy, recorder Recorder) *Engine {
	name := cfg.Name
	if name == "" {
		name = "gridbt"
	}
	id := uuid.NewString()
	return &Engine{
		UUID:      id,
		Name:      name,
		StartTime: time.Now(),
		cfg:       cfg,
		logger:    logger.With(zap.String("run", id), zap.String("symbol", cfg.Symbol)),
		feed:      src,
		account:   account,
		strategy:  strategy,
		recorder:  recorder,
	}
}

// Run drains the feed. For every bar the broker resolves the orders queued so far, the strategy is
// notified of the outcome and only then sees the bar itself.
func (e *Engine) Run(ctx context.Context) (*report.Summary, error) {
	e.logger.Info("Initializing backtest engine...", zap.String("strategy", e.strategy.Name()))

	err := e.strategy.Initialize(StrategyContext{
		Logger:    e.logger,
		Symbol:    e.cfg.Symbol,
		Broker:    e.account,
		Portfolio: e.account,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize strategy %s: %w", e.strategy.Name(), err)
	}

	summary := report.NewSummary(e.UUID, e.cfg.Symbol, e.strategy.Name(), e.account.Value())
	run := e.newRun(summary)
	if e.recorder != nil {
		if err := e.recorder.CreateRun(ctx, run); err != nil {
			e.logger.Error("Failed to record run", zap.Error(err))
		}
	}

	e.setRunning(true)
	defer e.setRunning(false)

	runErr := e.loop(ctx, summary)

	summary.Finish(e.account.Value())
	e.finishRun(run, summary, runErr)

	if runErr != nil {
		e.logger.Error("Backtest stopped", zap.Int("bars", summary.Bars), zap.Error(runErr))
		return summary, runErr
	}
	e.logger.Info("Backtest complete",
		zap.Int("bars", summary.Bars),
		zap.Int("orders", summary.Orders),
		zap.Int("closed_trades", summary.Closed),
		zap.Float64("net_pnl", summary.NetPnL),
		zap.Float64("final_value", summary.FinalValue),
	)
	return summary, nil
}

func (e *Engine) loop(ctx context.Context, summary *report.Summary) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		bar, err := e.feed.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("feed failed after %d bars: %w", summary.Bars, err)
		}

		if err := e.step(ctx, bar, summary); err != nil {
			return err
		}
	}
}

func (e *Engine) step(ctx context.Context, bar grid.Bar, summary *report.Summary) error {
	orders, trades := e.account.Process(bar)

	for _, ev := range orders {
		summary.ObserveOrder(ev)
		metrics.OrderEventsTotal.WithLabelValues(e.cfg.Symbol, string(ev.Status)).Inc()
		e.recordFill(ctx, ev)
		e.strategy.NotifyOrder(ctx, ev)
	}
	for _, ev := range trades {
		summary.ObserveTrade(ev)
		metrics.ClosedTradesTotal.WithLabelValues(e.cfg.Symbol).Inc()
		e.recordTrade(ctx, ev)
		e.strategy.NotifyTrade(ctx, ev)
	}

	if err := e.strategy.OnBar(ctx, bar); err != nil {
		return fmt.Errorf("strategy %s failed: %w", e.strategy.Name(), err)
	}

	summary.ObserveBar(bar.Time)
	metrics.BarsTotal.WithLabelValues(e.cfg.Symbol).Inc()
	value, held := e.account.Value(), e.account.Position()
	metrics.Position.WithLabelValues(e.cfg.Symbol).Set(held)
	metrics.PortfolioValue.WithLabelValues(e.cfg.Symbol).Set(value)

	e.mu.Lock()
	e.progress.Bars = summary.Bars
	e.progress.LastBar = bar.Time
	e.progress.Value = value
	e.progress.Cash = e.account.Cash()
	e.progress.Held = held
	e.mu.Unlock()
	return nil
}

func (e *Engine) recordFill(ctx context.Context, ev broker.OrderEvent) {
	if e.recorder == nil {
		return
	}
	fill := &models.Fill{
		RunID:      e.UUID,
		Ref:        ev.Ref,
		Symbol:     ev.Order.Symbol,
		Side:       string(ev.Order.Side),
		Type:       string(ev.Order.Type),
		Status:     string(ev.Status),
		Level:      ev.Order.Level,
		Price:      ev.Price,
		Size:       ev.Size,
		Commission: ev.Commission,
		Timestamp:  ev.Time.UnixMilli(),
	}
	if err := e.recorder.SaveFill(ctx, fill); err != nil {
		e.logger.Error("Failed to save fill record to database", zap.String("ref", ev.Ref), zap.Error(err))
	}
}

func (e *Engine) recordTrade(ctx context.Context, ev broker.TradeEvent) {
	if e.recorder == nil {
		return
	}
	trade := &models.ClosedTrade{
		RunID:      e.UUID,
		Symbol:     ev.Symbol,
		Size:       ev.Size,
		EntryPrice: ev.EntryPrice,
		ExitPrice:  ev.ExitPrice,
		Gross:      ev.Gross,
		Net:        ev.Net,
		Commission: ev.Commission,
		Timestamp:  ev.Time.UnixMilli(),
	}
	if err := e.recorder.SaveClosedTrade(ctx, trade); err != nil {
		e.logger.Error("Failed to save closed trade to database", zap.Error(err))
	}
}

func (e *Engine) newRun(summary *report.Summary) *models.Run {
	return &models.Run{
		RunID:      e.UUID,
		Symbol:     e.cfg.Symbol,
		Interval:   e.cfg.Interval,
		Spacing:    string(e.cfg.Grid.Spacing),
		Reset:      string(e.cfg.Grid.Reset),
		Magnitude:  e.cfg.Grid.Magnitude,
		Levels:     e.cfg.Grid.Levels,
		StartValue: summary.StartValue,
		FinalValue: summary.StartValue,
		Status:     database.RunRunning,
	}
}

// finishRun stores the final figures. It uses a fresh context so that a canceled run is still closed.
func (e *Engine) finishRun(run *models.Run, summary *report.Summary, runErr error) {
	if e.recorder == nil {
		return
	}
	run.FinalValue = summary.FinalValue
	run.Bars = summary.Bars
	run.Orders = summary.Orders
	run.ClosedTrades = summary.Closed
	run.NetPnL = summary.NetPnL
	run.Status = database.RunFinished
	if runErr != nil {
		run.Status = database.RunFailed
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.recorder.FinishRun(ctx, run); err != nil {
		e.logger.Error("Failed to finish run record", zap.Error(err))
	}
}

func (e *Engine) setRunning(running bool) {
	e.mu.Lock()
	e.progress.Running = running
	e.mu.Unlock()
}

// Progress returns a copy of the engine's progress.
func (e *Engine) Progress() Progress {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.progress
}

// Strategy returns the strategy the engine drives.
func (e *Engine) Strategy() Strategy {
	return e.strategy
}
