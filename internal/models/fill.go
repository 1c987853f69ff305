package models

import "gorm.io/gorm"

// Fill is an order notification persisted for a run. Only completed orders carry a price.
type Fill struct {
	gorm.Model
	RunID      string  `gorm:"index;not null" json:"run_id"`
	Ref        string  `gorm:"index" json:"ref"`
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"` // "BUY" or "SELL"
	Type       string  `json:"type"`
	Status     string  `json:"status"`
	Level      float64 `json:"level"`
	Price      float64 `json:"price"`
	Size       float64 `json:"size"`
	Commission float64 `json:"commission"`
	Timestamp  int64   `json:"timestamp"`
}
