package models

import (
	"time"

	"grid-backtest-go/internal/grid"
)

// Bar is a cached OHLCV candle. Times are stored in UTC.
type Bar struct {
	ID       uint      `gorm:"primarykey"`
	Symbol   string    `gorm:"uniqueIndex:idx_bar_key;not null" json:"symbol"`
	Interval string    `gorm:"uniqueIndex:idx_bar_key;not null" json:"interval"`
	OpenTime time.Time `gorm:"uniqueIndex:idx_bar_key;not null" json:"open_time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// ToGrid converts the row into the engine's bar type.
func (b Bar) ToGrid() grid.Bar {
	return grid.Bar{
		Time:   b.OpenTime.UTC(),
		Open:   b.Open,
		High:   b.High,
		Low:    b.Low,
		Close:  b.Close,
		Volume: b.Volume,
	}
}

// BarFromGrid builds a cache row for symbol and interval.
func BarFromGrid(symbol, interval string, b grid.Bar) Bar {
	return Bar{
		Symbol:   symbol,
		Interval: interval,
		OpenTime: b.Time.UTC(),
		Open:     b.Open,
		High:     b.High,
		Low:      b.Low,
		Close:    b.Close,
		Volume:   b.Volume,
	}
}
