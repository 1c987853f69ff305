package broker

import (
	"errors"
	"time"

	"grid-backtest-go/internal/grid"
)

// ErrInvalidOrder is returned by Submit for orders that can never be processed.
var ErrInvalidOrder = errors.New("invalid order")

// Status is the terminal state reported for an order.
type Status string

const (
	Completed Status = "Completed"
	Canceled  Status = "Canceled"
	Margin    Status = "Margin"
	Rejected  Status = "Rejected"
)

// Order is what the strategy hands to the broker. Price is the limit price for limit orders and the
// reference level for market orders.
type Order struct {
	Symbol string
	Side   grid.Side
	Type   grid.OrderType
	Price  float64
	Size   float64
	Level  float64
}

// OrderEvent reports how an order ended. Only Completed events carry execution figures.
type OrderEvent struct {
	Ref        string
	Order      Order
	Status     Status
	Price      float64
	Size       float64
	Commission float64
	Time       time.Time
	Reason     string
}

// TradeEvent is emitted when a round trip takes the position back to flat.
type TradeEvent struct {
	Ref        string
	Symbol     string
	Size       float64
	EntryPrice float64
	ExitPrice  float64
	Gross      float64
	Net        float64
	Commission float64
	Time       time.Time
}

// Broker accepts orders and resolves them against subsequent bars.
type Broker interface {
	// Submit queues an order and returns its reference. The outcome arrives through Process.
	Submit(order Order) (string, error)
	// Process matches queued orders against bar and returns the notifications it produced.
	Process(bar grid.Bar) ([]OrderEvent, []TradeEvent)
}

// Portfolio is a read-only view of the simulated account.
type Portfolio interface {
	Cash() float64
	Value() float64
	Position() float64
}

// Account is a broker that also exposes its portfolio.
type Account interface {
	Broker
	Portfolio
}
