package trader

import (
	"context"

	"grid-backtest-go/internal/broker"
	"grid-backtest-go/internal/grid"

	"go.uber.org/zap"
)

// StrategyContext provides the strategy with access to the core components.
type StrategyContext struct {
	Logger    *zap.Logger
	Symbol    string
	Broker    broker.Broker
	Portfolio broker.Portfolio
}

// Strategy defines the interface for a bar-driven trading strategy.
type Strategy interface {
	// Name returns the unique name of the strategy.
	Name() string

	// Initialize gives the strategy a chance to perform setup tasks.
	Initialize(ctx StrategyContext) error

	// OnBar is called once per bar, after the notifications produced by that bar were delivered.
	OnBar(ctx context.Context, bar grid.Bar) error

	// NotifyOrder reports a terminal order notification.
	NotifyOrder(ctx context.Context, ev broker.OrderEvent)

	// NotifyTrade reports a closed round trip. It is informational only.
	NotifyTrade(ctx context.Context, ev broker.TradeEvent)
}
