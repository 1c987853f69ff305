package report

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"grid-backtest-go/internal/broker"
	"grid-backtest-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 7, 28, 9, 30, 0, 0, time.UTC)

func sampleSummary() *Summary {
	s := NewSummary("run-1", "BTCUSDT", "grid", 1000)
	s.ObserveBar(t0)
	s.ObserveBar(t0.Add(time.Minute))
	s.ObserveOrder(broker.OrderEvent{Status: broker.Completed, Commission: 0.1})
	s.ObserveOrder(broker.OrderEvent{Status: broker.Completed, Commission: 0.2})
	s.ObserveOrder(broker.OrderEvent{Status: broker.Margin})
	s.ObserveOrder(broker.OrderEvent{Status: broker.Rejected})
	s.ObserveOrder(broker.OrderEvent{Status: broker.Canceled})
	s.ObserveTrade(broker.TradeEvent{Gross: 5, Net: 4.7})
	s.ObserveTrade(broker.TradeEvent{Gross: 0.1, Net: -0.2})
	s.Finish(1004.5)
	return s
}

func TestSummary(t *testing.T) {
	s := sampleSummary()

	assert.Equal(t, 2, s.Bars)
	assert.Equal(t, t0, s.Start)
	assert.Equal(t, t0.Add(time.Minute), s.End)
	assert.Equal(t, 5, s.Orders)
	assert.Equal(t, 2, s.Fills)
	assert.Equal(t, 1, s.Margin)
	assert.Equal(t, 1, s.Rejected)
	assert.Equal(t, 1, s.Canceled)
	assert.InDelta(t, 0.3, s.Commission, 1e-12)

	assert.Equal(t, 2, s.Closed)
	assert.Equal(t, 1, s.Won)
	assert.Equal(t, 1, s.Lost)
	assert.InDelta(t, 4.5, s.NetPnL, 1e-12)
	assert.InDelta(t, 5.1, s.GrossPnL, 1e-12)
	assert.Equal(t, 0.5, s.WinRate())
	assert.Equal(t, 50.0, s.WinRatePct)
	assert.InDelta(t, 0.45, s.ReturnPct, 1e-9)
}

func TestSummary_NoTrades(t *testing.T) {
	s := NewSummary("run-2", "BTCUSDT", "grid", 0)
	s.Finish(0)
	assert.Zero(t, s.WinRate())
	assert.Zero(t, s.ReturnPct)
}

func TestSummary_YAML(t *testing.T) {
	s := sampleSummary()

	var buf bytes.Buffer
	require.NoError(t, s.WriteYAML(&buf))
	assert.Contains(t, buf.String(), "run_id: run-1")
	assert.Contains(t, buf.String(), "closed_trades: 2")

	path := filepath.Join(t.TempDir(), "summary.yml")
	require.NoError(t, s.SaveYAML(path))
	loaded, err := LoadYAML(path)
	require.NoError(t, err)
	assert.Equal(t, s.RunID, loaded.RunID)
	assert.Equal(t, s.Closed, loaded.Closed)
	assert.InDelta(t, s.NetPnL, loaded.NetPnL, 1e-12)
	assert.True(t, s.Start.Equal(loaded.Start))

	_, err = LoadYAML(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestComputeStatistics(t *testing.T) {
	now := t0.Add(48 * time.Hour)
	trades := []models.ClosedTrade{
		{Net: 2, Timestamp: now.Add(-time.Hour).UnixMilli()},
		{Net: -1, Timestamp: now.Add(-2 * time.Hour).UnixMilli()},
		{Net: 3, Timestamp: now.Add(-30 * time.Hour).UnixMilli()},
	}

	stats := ComputeStatistics(trades, now)

	assert.Equal(t, StatsDetail{TotalTrades: 3, ProfitableTrades: 2, WinRate: 2.0 / 3.0, TotalProfit: 4}, stats.AllTime)
	assert.Equal(t, StatsDetail{TotalTrades: 2, ProfitableTrades: 1, WinRate: 0.5, TotalProfit: 1}, stats.Since24h)

	assert.Equal(t, Statistics{}, ComputeStatistics(nil, now))
}
