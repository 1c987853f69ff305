package broker

import (
	"fmt"
	"testing"
	"time"

	"grid-backtest-go/internal/grid"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func newTestPaper(cash, commission float64, expire int) *Paper {
	p := NewPaper(PaperConfig{Symbol: "BTCUSDT", Cash: cash, CommissionRate: commission, ExpireBars: expire})
	n := 0
	p.newRef = func() string {
		n++
		return fmt.Sprintf("ref-%d", n)
	}
	return p
}

func ohlc(i int, o, h, l, c float64) grid.Bar {
	return grid.Bar{Time: start.Add(time.Duration(i) * time.Minute), Open: o, High: h, Low: l, Close: c}
}

func TestPaper_MarketBuyFillsAtNextOpen(t *testing.T) {
	p := newTestPaper(1000, 0.001, 0)

	ref, err := p.Submit(Order{Side: grid.Buy, Type: grid.OrderMarket, Price: 99, Size: 2, Level: 99})
	require.NoError(t, err)
	assert.Equal(t, "ref-1", ref)
	assert.Equal(t, 1, p.Pending())

	orders, trades := p.Process(ohlc(1, 100, 101, 98, 100.5))
	require.Len(t, orders, 1)
	assert.Empty(t, trades)

	ev := orders[0]
	assert.Equal(t, Completed, ev.Status)
	assert.Equal(t, "ref-1", ev.Ref)
	assert.Equal(t, "BTCUSDT", ev.Order.Symbol)
	assert.Equal(t, 100.0, ev.Price)
	assert.Equal(t, 2.0, ev.Size)
	assert.InDelta(t, 0.2, ev.Commission, 1e-12)

	assert.Equal(t, 0, p.Pending())
	assert.Equal(t, 2.0, p.Position())
	assert.InDelta(t, 1000-200-0.2, p.Cash(), 1e-9)
	assert.InDelta(t, 1000-200-0.2+2*100.5, p.Value(), 1e-9)
}

func TestPaper_LimitOrders(t *testing.T) {
	testCases := []struct {
		name     string
		side     grid.Side
		limit    float64
		bar      grid.Bar
		filled   bool
		expected float64
	}{
		{"Buy touched inside the bar", grid.Buy, 99, ohlc(1, 100, 101, 98.5, 100), true, 99},
		{"Buy gapped below the limit", grid.Buy, 99, ohlc(1, 97, 98, 96, 97.5), true, 97},
		{"Buy not reached", grid.Buy, 99, ohlc(1, 100, 101, 99.5, 100), false, 0},
		{"Sell touched inside the bar", grid.Sell, 101, ohlc(1, 100, 101.5, 99, 100), true, 101},
		{"Sell gapped above the limit", grid.Sell, 101, ohlc(1, 103, 104, 102, 103), true, 103},
		{"Sell not reached", grid.Sell, 101, ohlc(1, 100, 100.5, 99, 100), false, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := newTestPaper(10000, 0, 0)
			if tc.side == grid.Sell {
				_, err := p.Submit(Order{Side: grid.Buy, Type: grid.OrderMarket, Size: 1})
				require.NoError(t, err)
				p.Process(ohlc(0, 100, 100, 100, 100))
			}

			_, err := p.Submit(Order{Side: tc.side, Type: grid.OrderLimit, Price: tc.limit, Size: 1})
			require.NoError(t, err)
			orders, _ := p.Process(tc.bar)

			if !tc.filled {
				assert.Empty(t, orders)
				assert.Equal(t, 1, p.Pending())
				return
			}
			require.Len(t, orders, 1)
			assert.Equal(t, Completed, orders[0].Status)
			assert.Equal(t, tc.expected, orders[0].Price)
		})
	}
}

func TestPaper_Refusals(t *testing.T) {
	t.Run("Margin", func(t *testing.T) {
		p := newTestPaper(100, 0.001, 0)
		_, err := p.Submit(Order{Side: grid.Buy, Type: grid.OrderMarket, Size: 1})
		require.NoError(t, err)

		orders, _ := p.Process(ohlc(1, 100, 100, 100, 100))
		require.Len(t, orders, 1)
		assert.Equal(t, Margin, orders[0].Status)
		assert.Zero(t, orders[0].Price)
		assert.Equal(t, 100.0, p.Cash())
		assert.Zero(t, p.Position())
	})

	t.Run("Oversell", func(t *testing.T) {
		p := newTestPaper(1000, 0, 0)
		_, err := p.Submit(Order{Side: grid.Sell, Type: grid.OrderMarket, Size: 1})
		require.NoError(t, err)

		orders, _ := p.Process(ohlc(1, 100, 100, 100, 100))
		require.Len(t, orders, 1)
		assert.Equal(t, Rejected, orders[0].Status)
		assert.Contains(t, orders[0].Reason, "exceeds position")
	})

	t.Run("Non-positive size", func(t *testing.T) {
		p := newTestPaper(1000, 0, 0)
		_, err := p.Submit(Order{Side: grid.Buy, Type: grid.OrderLimit, Price: 1, Size: 0})
		require.NoError(t, err)

		orders, _ := p.Process(ohlc(1, 100, 100, 100, 100))
		require.Len(t, orders, 1)
		assert.Equal(t, Rejected, orders[0].Status)
	})

	t.Run("Invalid side or type", func(t *testing.T) {
		p := newTestPaper(1000, 0, 0)
		_, err := p.Submit(Order{Side: "HOLD", Size: 1})
		assert.ErrorIs(t, err, ErrInvalidOrder)
		_, err = p.Submit(Order{Side: grid.Buy, Type: "stop", Size: 1})
		assert.ErrorIs(t, err, ErrInvalidOrder)
		assert.Equal(t, 0, p.Pending())
	})
}

func TestPaper_LimitOrderExpires(t *testing.T) {
	p := newTestPaper(1000, 0, 2)
	_, err := p.Submit(Order{Side: grid.Buy, Type: grid.OrderLimit, Price: 90, Size: 1})
	require.NoError(t, err)

	orders, _ := p.Process(ohlc(1, 100, 101, 99, 100))
	assert.Empty(t, orders)

	orders, _ = p.Process(ohlc(2, 100, 101, 99, 100))
	require.Len(t, orders, 1)
	assert.Equal(t, Canceled, orders[0].Status)
	assert.Equal(t, 0, p.Pending())
}

func TestPaper_RoundTripEmitsTrade(t *testing.T) {
	p := newTestPaper(1000, 0.001, 0)

	_, err := p.Submit(Order{Side: grid.Buy, Type: grid.OrderMarket, Size: 1})
	require.NoError(t, err)
	p.Process(ohlc(1, 100, 100, 100, 100))

	_, err = p.Submit(Order{Side: grid.Buy, Type: grid.OrderMarket, Size: 1})
	require.NoError(t, err)
	p.Process(ohlc(2, 98, 98, 98, 98))

	// Half the position: no trade yet.
	_, err = p.Submit(Order{Side: grid.Sell, Type: grid.OrderMarket, Size: 1})
	require.NoError(t, err)
	_, trades := p.Process(ohlc(3, 101, 101, 101, 101))
	assert.Empty(t, trades)
	assert.Equal(t, 1.0, p.Position())

	sellRef, err := p.Submit(Order{Side: grid.Sell, Type: grid.OrderMarket, Size: 1})
	require.NoError(t, err)
	orders, trades := p.Process(ohlc(4, 103, 103, 103, 103))
	require.Len(t, orders, 1)
	require.Len(t, trades, 1)

	tr := trades[0]
	assert.Equal(t, sellRef, tr.Ref)
	assert.Equal(t, 2.0, tr.Size)
	assert.InDelta(t, 99.0, tr.EntryPrice, 1e-9)
	assert.InDelta(t, 102.0, tr.ExitPrice, 1e-9)
	assert.InDelta(t, 6.0, tr.Gross, 1e-9)
	// 0.1 + 0.098 + 0.101 + 0.103
	assert.InDelta(t, 0.402, tr.Commission, 1e-9)
	assert.InDelta(t, 6.0-0.402, tr.Net, 1e-9)

	assert.Zero(t, p.Position())
	assert.InDelta(t, 1000+6-0.402, p.Cash(), 1e-9)
	assert.InDelta(t, p.Cash(), p.Value(), 1e-12)
}

func TestPaper_ProcessesInSubmissionOrder(t *testing.T) {
	p := newTestPaper(150, 0, 0)

	first, err := p.Submit(Order{Side: grid.Buy, Type: grid.OrderMarket, Size: 1})
	require.NoError(t, err)
	second, err := p.Submit(Order{Side: grid.Buy, Type: grid.OrderMarket, Size: 1})
	require.NoError(t, err)

	orders, _ := p.Process(ohlc(1, 100, 100, 100, 100))
	require.Len(t, orders, 2)
	assert.Equal(t, first, orders[0].Ref)
	assert.Equal(t, Completed, orders[0].Status)
	assert.Equal(t, second, orders[1].Ref)
	assert.Equal(t, Margin, orders[1].Status)
}
