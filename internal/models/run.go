package models

import (
	"time"

	"gorm.io/gorm"
)

// Run is one backtest execution and its final figures.
type Run struct {
	gorm.Model
	RunID        string     `gorm:"uniqueIndex;not null" json:"run_id"`
	Symbol       string     `json:"symbol"`
	Interval     string     `json:"interval"`
	Spacing      string     `json:"spacing"`
	Reset        string     `json:"reset"`
	Magnitude    float64    `json:"magnitude"`
	Levels       int        `json:"levels"`
	StartValue   float64    `json:"start_value"`
	FinalValue   float64    `json:"final_value"`
	Bars         int        `json:"bars"`
	Orders       int        `json:"orders"`
	ClosedTrades int        `json:"closed_trades"`
	NetPnL       float64    `json:"net_pnl"`
	Status       string     `json:"status"` // "running", "finished" or "failed"
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}
