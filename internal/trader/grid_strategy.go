package trader

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"grid-backtest-go/internal/broker"
	"grid-backtest-go/internal/grid"
	"grid-backtest-go/internal/metrics"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GridOptions are the optional rules layered on top of the grid decision.
type GridOptions struct {
	// TrendPeriod suppresses buys while the close is below its simple moving average. Zero disables it.
	TrendPeriod int
	// MaxPosition caps the quantity held after a buy. Zero disables it.
	MaxPosition float64
	// OrderPercent sizes buys as a fraction of portfolio value instead of the fixed level size.
	// The budget is capped at free cash and leaves room for CommissionRate. Market orders fill at the
	// next open, so a gap above the level can still come back as Margin.
	OrderPercent float64
	// CommissionRate is the broker's fee rate, reserved out of percent-sized buys.
	CommissionRate float64
}

// GridSnapshot is a point-in-time view of the strategy, safe to read from other goroutines.
type GridSnapshot struct {
	Phase       string    `json:"phase"`
	BasePrice   float64   `json:"base_price"`
	Levels      []float64 `json:"levels"`
	Triggered   []float64 `json:"triggered"`
	Position    float64   `json:"position"`
	LastClose   float64   `json:"last_close"`
	Outstanding bool      `json:"outstanding"`
	Submitted   int       `json:"submitted"`
}

// GridStrategy runs the level tracker and the signal decider on every bar and hands the resulting
// intents to the broker.
type GridStrategy struct {
	cfg  grid.Config
	opts GridOptions

	ctx     StrategyContext
	logger  *zap.Logger
	state   grid.State
	decider *grid.Decider
	trend   grid.Volatility

	position       decimal.Decimal
	outstandingRef string
	submitted      int

	mu       sync.RWMutex
	snapshot GridSnapshot
}

// ensure GridStrategy implements the interface
var _ Strategy = (*GridStrategy)(nil)

// NewGridStrategy validates cfg and opts.
func NewGridStrategy(cfg grid.Config, opts GridOptions) (*GridStrategy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.TrendPeriod < 0 || opts.TrendPeriod > grid.MaxWindow {
		return nil, fmt.Errorf("trend period must be between 0 and %d", grid.MaxWindow)
	}
	if opts.MaxPosition < 0 {
		return nil, errors.New("max position must not be negative")
	}
	if opts.OrderPercent < 0 || opts.OrderPercent > 1 {
		return nil, errors.New("order percent must be between 0 and 1")
	}
	if opts.CommissionRate < 0 {
		return nil, errors.New("commission rate must not be negative")
	}
	return &GridStrategy{
		cfg:     cfg,
		opts:    opts,
		state:   grid.NewState(cfg),
		decider: grid.NewDecider(cfg),
		trend:   grid.NewVolatility(opts.TrendPeriod),
	}, nil
}

func (s *GridStrategy) Name() string {
	return "Grid"
}

func (s *GridStrategy) Initialize(ctx StrategyContext) error {
	if ctx.Broker == nil {
		return errors.New("grid strategy needs a broker")
	}
	if s.opts.OrderPercent > 0 && ctx.Portfolio == nil {
		return errors.New("order percent sizing needs a portfolio")
	}
	s.ctx = ctx
	s.logger = ctx.Logger.With(zap.String("strategy", s.Name()), zap.String("symbol", ctx.Symbol))
	s.logger.Info("Grid strategy initialized",
		zap.String("spacing", string(s.cfg.Spacing)),
		zap.Float64("magnitude", s.cfg.Magnitude),
		zap.Int("levels", s.cfg.Levels),
		zap.String("reset", string(s.cfg.Reset)),
		zap.Float64("size", s.cfg.Size),
	)
	s.publish()
	return nil
}

func (s *GridStrategy) OnBar(ctx context.Context, bar grid.Bar) error {
	defer s.publish()

	if s.opts.TrendPeriod > 0 {
		s.trend = s.trend.Add(bar)
	}

	prevBase, prevPhase := s.state.BasePrice, s.state.Phase
	crossing, next, err := grid.OnBar(bar, s.state, s.cfg)
	if err != nil {
		return fmt.Errorf("grid update failed at %s: %w", bar.Time, err)
	}
	s.state = next

	if s.state.Phase == grid.Active && (prevPhase != grid.Active || s.state.BasePrice != prevBase) && s.cfg.Reset != grid.ResetContinuous {
		s.logger.Info("Grid rebuilt",
			zap.Time("bar", bar.Time),
			zap.Float64("base", s.state.BasePrice),
			zap.Float64s("levels", s.state.Levels),
		)
	}

	if crossing == nil {
		return nil
	}

	l := s.logger.With(zap.Time("bar", bar.Time), zap.Float64("grid_level", crossing.Level), zap.Float64("close", bar.Close))

	intent, decision := s.decider.Decide(crossing.Level, crossing.Base, s.state.Position)
	metrics.CrossingsTotal.WithLabelValues(s.ctx.Symbol, decision.String()).Inc()
	if decision != grid.Emit {
		l.Debug("Level crossed without intent", zap.Stringer("decision", decision))
		return nil
	}

	intent, reason := s.admit(intent, bar.Close)
	if reason != "" {
		l.Info("Intent filtered", zap.String("side", string(intent.Side)), zap.String("reason", reason))
		return nil
	}

	order := broker.Order{
		Symbol: s.ctx.Symbol,
		Side:   intent.Side,
		Type:   intent.Type,
		Price:  intent.Price,
		Size:   intent.Size,
		Level:  intent.Level,
	}
	ref, err := s.ctx.Broker.Submit(order)
	if err != nil {
		l.Error("Failed to submit order", zap.Error(err))
		return nil
	}

	s.decider.Submitted()
	s.outstandingRef = ref
	s.submitted++
	metrics.IntentsTotal.WithLabelValues(s.ctx.Symbol, string(intent.Side)).Inc()
	l.Info("Order submitted",
		zap.String("ref", ref),
		zap.String("side", string(intent.Side)),
		zap.String("type", string(intent.Type)),
		zap.Float64("size", intent.Size),
	)
	return nil
}

// admit applies the optional trend, sizing and cap rules. They only ever restrict buys.
func (s *GridStrategy) admit(intent grid.Intent, lastClose float64) (grid.Intent, string) {
	if intent.Side != grid.Buy {
		return intent, ""
	}
	if s.opts.TrendPeriod > 0 {
		sma, ok := s.trend.SMA(s.opts.TrendPeriod)
		if !ok {
			return intent, "trend filter warming up"
		}
		if lastClose < sma {
			return intent, "close below trend"
		}
	}
	if s.opts.OrderPercent > 0 && intent.Price > 0 {
		budget := min(s.ctx.Portfolio.Value()*s.opts.OrderPercent, s.ctx.Portfolio.Cash()) / (1 + s.opts.CommissionRate)
		intent.Size = budget / intent.Price
	}
	if s.opts.MaxPosition > 0 && s.state.Position+intent.Size > s.opts.MaxPosition {
		return intent, "max position reached"
	}
	return intent, ""
}

func (s *GridStrategy) NotifyOrder(ctx context.Context, ev broker.OrderEvent) {
	defer s.publish()

	l := s.logger.With(zap.String("ref", ev.Ref), zap.String("status", string(ev.Status)), zap.String("side", string(ev.Order.Side)))

	if ev.Status == broker.Completed {
		size := decimal.NewFromFloat(ev.Size)
		if ev.Order.Side == grid.Buy {
			s.position = s.position.Add(size)
		} else {
			s.position = s.position.Sub(size)
		}
		s.state.Position = s.position.InexactFloat64()
		l.Info("Order completed",
			zap.Float64("price", ev.Price),
			zap.Float64("size", ev.Size),
			zap.Float64("commission", ev.Commission),
			zap.Float64("position", s.state.Position),
		)
	} else {
		l.Warn("Order not executed", zap.String("reason", ev.Reason))
	}

	if ev.Ref == s.outstandingRef {
		s.outstandingRef = ""
		s.decider.Resolve()
	}
}

func (s *GridStrategy) NotifyTrade(ctx context.Context, ev broker.TradeEvent) {
	s.logger.Info("Trade closed",
		zap.Float64("size", ev.Size),
		zap.Float64("entry", ev.EntryPrice),
		zap.Float64("exit", ev.ExitPrice),
		zap.Float64("gross", ev.Gross),
		zap.Float64("net", ev.Net),
	)
}

// Snapshot returns the latest published view of the strategy.
func (s *GridStrategy) Snapshot() GridSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.snapshot
	snap.Levels = append([]float64(nil), s.snapshot.Levels...)
	snap.Triggered = append([]float64(nil), s.snapshot.Triggered...)
	return snap
}

// State returns a copy of the grid state.
func (s *GridStrategy) State() grid.State {
	return s.state
}

func (s *GridStrategy) publish() {
	snap := GridSnapshot{
		Phase:       s.state.Phase.String(),
		BasePrice:   s.state.BasePrice,
		Levels:      append([]float64(nil), s.state.Levels...),
		Triggered:   s.state.Triggered(),
		Position:    s.state.Position,
		LastClose:   s.state.LastClose,
		Outstanding: s.decider.Outstanding(),
		Submitted:   s.submitted,
	}
	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()
}
