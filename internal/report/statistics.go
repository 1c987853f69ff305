package report

import (
	"time"

	"grid-backtest-go/internal/models"
)

// StatsDetail holds calculated statistics for a given period.
type StatsDetail struct {
	TotalTrades      int64   `json:"total_trades"`
	ProfitableTrades int64   `json:"profitable_trades"`
	WinRate          float64 `json:"win_rate"`
	TotalProfit      float64 `json:"total_profit"`
}

// Statistics splits closed-trade results into the last 24 hours before now and all time.
type Statistics struct {
	Since24h StatsDetail `json:"since_24h"`
	AllTime  StatsDetail `json:"all_time"`
}

// ComputeStatistics aggregates net results. Trade timestamps are unix milliseconds of bar time.
func ComputeStatistics(trades []models.ClosedTrade, now time.Time) Statistics {
	since24h := now.Add(-24 * time.Hour)

	var stats Statistics
	for _, trade := range trades {
		stats.AllTime.add(trade.Net)
		if time.UnixMilli(trade.Timestamp).After(since24h) {
			stats.Since24h.add(trade.Net)
		}
	}
	stats.AllTime.finish()
	stats.Since24h.finish()
	return stats
}

func (d *StatsDetail) add(net float64) {
	d.TotalTrades++
	if net > 0 {
		d.ProfitableTrades++
	}
	d.TotalProfit += net
}

func (d *StatsDetail) finish() {
	if d.TotalTrades > 0 {
		d.WinRate = float64(d.ProfitableTrades) / float64(d.TotalTrades)
	}
}
