package broker

import (
	"fmt"
	"math"
	"sync"

	"grid-backtest-go/internal/grid"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaperConfig describes the simulated account.
type PaperConfig struct {
	Symbol         string
	Cash           float64
	CommissionRate float64
	// ExpireBars cancels unfilled limit orders after that many bars. Zero keeps them forever.
	ExpireBars int
}

type pendingOrder struct {
	ref   string
	order Order
	age   int
}

// roundTrip accumulates the figures of the position since it was last flat.
type roundTrip struct {
	gross      decimal.Decimal
	commission decimal.Decimal
	soldSize   decimal.Decimal
	soldValue  decimal.Decimal
	entryPrice decimal.Decimal
}

// Paper is a long-only simulated broker. Orders submitted while bar t is handled are matched
// against bar t+1: market orders at its open, limit orders when its range reaches the limit.
type Paper struct {
	mu sync.Mutex

	symbol     string
	commission decimal.Decimal
	expireBars int

	cash      decimal.Decimal
	position  decimal.Decimal
	avgCost   decimal.Decimal
	lastPrice decimal.Decimal
	trip      roundTrip

	pending []*pendingOrder
	newRef  func() string
}

// ensure Paper implements the interface
var _ Account = (*Paper)(nil)

func NewPaper(cfg PaperConfig) *Paper {
	return &Paper{
		symbol:     cfg.Symbol,
		commission: decimal.NewFromFloat(cfg.CommissionRate),
		expireBars: cfg.ExpireBars,
		cash:       decimal.NewFromFloat(cfg.Cash),
		newRef:     uuid.NewString,
	}
}

// Submit queues order for the next bar. Size is checked when the order is processed so that a
// non-positive size is reported as Rejected like any other refusal.
func (p *Paper) Submit(order Order) (string, error) {
	switch order.Side {
	case grid.Buy, grid.Sell:
	default:
		return "", fmt.Errorf("%w: unknown side %q", ErrInvalidOrder, order.Side)
	}
	switch order.Type {
	case "":
		order.Type = grid.OrderMarket
	case grid.OrderMarket, grid.OrderLimit:
	default:
		return "", fmt.Errorf("%w: unknown type %q", ErrInvalidOrder, order.Type)
	}
	if order.Symbol == "" {
		order.Symbol = p.symbol
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ref := p.newRef()
	p.pending = append(p.pending, &pendingOrder{ref: ref, order: order})
	return ref, nil
}

// Process matches every queued order against bar, in submission order, then marks the account to
// the bar's close.
func (p *Paper) Process(bar grid.Bar) ([]OrderEvent, []TradeEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var orders []OrderEvent
	var trades []TradeEvent
	var keep []*pendingOrder

	for _, po := range p.pending {
		po.age++
		ev := OrderEvent{Ref: po.ref, Order: po.order, Time: bar.Time}

		if po.order.Size <= 0 || math.IsNaN(po.order.Size) {
			ev.Status, ev.Reason = Rejected, "size must be positive"
			orders = append(orders, ev)
			continue
		}

		price, ok := matchPrice(po.order, bar)
		if !ok {
			if p.expireBars > 0 && po.age >= p.expireBars {
				ev.Status, ev.Reason = Canceled, fmt.Sprintf("expired after %d bars", po.age)
				orders = append(orders, ev)
				continue
			}
			keep = append(keep, po)
			continue
		}

		var trade *TradeEvent
		if po.order.Side == grid.Buy {
			ev = p.buy(ev, price)
		} else {
			ev, trade = p.sell(ev, price)
		}
		orders = append(orders, ev)
		if trade != nil {
			trades = append(trades, *trade)
		}
	}

	p.pending = keep
	p.lastPrice = decimal.NewFromFloat(bar.Close)
	return orders, trades
}

// matchPrice returns the execution price of order on bar, if it executes.
func matchPrice(order Order, bar grid.Bar) (float64, bool) {
	if order.Type == grid.OrderMarket {
		return bar.Open, true
	}
	switch order.Side {
	case grid.Buy:
		if bar.Low <= order.Price {
			return min(bar.Open, order.Price), true
		}
	case grid.Sell:
		if bar.High >= order.Price {
			return max(bar.Open, order.Price), true
		}
	}
	return 0, false
}

func (p *Paper) buy(ev OrderEvent, price float64) OrderEvent {
	px := decimal.NewFromFloat(price)
	size := decimal.NewFromFloat(ev.Order.Size)
	notional := px.Mul(size)
	fee := notional.Mul(p.commission)

	if notional.Add(fee).GreaterThan(p.cash) {
		ev.Status = Margin
		ev.Reason = fmt.Sprintf("cost %s exceeds cash %s", notional.Add(fee).StringFixed(8), p.cash.StringFixed(8))
		return ev
	}

	newPos := p.position.Add(size)
	p.avgCost = p.avgCost.Mul(p.position).Add(notional).Div(newPos)
	p.position = newPos
	p.cash = p.cash.Sub(notional).Sub(fee)
	p.trip.commission = p.trip.commission.Add(fee)

	return completed(ev, px, size, fee)
}

func (p *Paper) sell(ev OrderEvent, price float64) (OrderEvent, *TradeEvent) {
	px := decimal.NewFromFloat(price)
	size := decimal.NewFromFloat(ev.Order.Size)

	if size.GreaterThan(p.position) {
		ev.Status = Rejected
		ev.Reason = fmt.Sprintf("size %s exceeds position %s", size.String(), p.position.String())
		return ev, nil
	}

	notional := px.Mul(size)
	fee := notional.Mul(p.commission)

	if p.trip.soldSize.IsZero() {
		p.trip.entryPrice = p.avgCost
	}
	p.trip.gross = p.trip.gross.Add(px.Sub(p.avgCost).Mul(size))
	p.trip.commission = p.trip.commission.Add(fee)
	p.trip.soldSize = p.trip.soldSize.Add(size)
	p.trip.soldValue = p.trip.soldValue.Add(notional)

	p.cash = p.cash.Add(notional).Sub(fee)
	p.position = p.position.Sub(size)

	ev = completed(ev, px, size, fee)
	if !p.position.IsZero() {
		return ev, nil
	}

	trade := &TradeEvent{
		Ref:        ev.Ref,
		Symbol:     ev.Order.Symbol,
		Size:       p.trip.soldSize.InexactFloat64(),
		EntryPrice: p.trip.entryPrice.InexactFloat64(),
		ExitPrice:  p.trip.soldValue.Div(p.trip.soldSize).InexactFloat64(),
		Gross:      p.trip.gross.InexactFloat64(),
		Net:        p.trip.gross.Sub(p.trip.commission).InexactFloat64(),
		Commission: p.trip.commission.InexactFloat64(),
		Time:       ev.Time,
	}
	p.trip = roundTrip{}
	p.avgCost = decimal.Zero
	return ev, trade
}

func completed(ev OrderEvent, px, size, fee decimal.Decimal) OrderEvent {
	ev.Status = Completed
	ev.Price = px.InexactFloat64()
	ev.Size = size.InexactFloat64()
	ev.Commission = fee.InexactFloat64()
	return ev
}

// Cash is the free cash balance.
func (p *Paper) Cash() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cash.InexactFloat64()
}

// Value is cash plus the position marked at the last processed close.
func (p *Paper) Value() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cash.Add(p.position.Mul(p.lastPrice)).InexactFloat64()
}

// Position is the quantity currently held.
func (p *Paper) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position.InexactFloat64()
}

// Pending is the number of orders waiting for a matching bar.
func (p *Paper) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}
