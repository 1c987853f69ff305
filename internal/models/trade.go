package models

import "gorm.io/gorm"

// ClosedTrade is a round trip that took the position back to flat.
type ClosedTrade struct {
	gorm.Model
	RunID      string  `gorm:"index;not null" json:"run_id"`
	Symbol     string  `json:"symbol"`
	Size       float64 `json:"size"`
	EntryPrice float64 `json:"entry_price"`
	ExitPrice  float64 `json:"exit_price"`
	Gross      float64 `json:"gross"`
	Net        float64 `json:"net"`
	Commission float64 `json:"commission"`
	Timestamp  int64   `json:"timestamp"`
}
