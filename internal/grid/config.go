package grid

import (
	"math"
	"time"
)

// SpacingMode selects how the distance between two neighbouring levels is derived.
type SpacingMode string

const (
	SpacingAbsolute   SpacingMode = "absolute"
	SpacingPercentage SpacingMode = "percentage"
	SpacingATR        SpacingMode = "atr"
)

// ResetMode selects when the base price and the level set are recomputed.
type ResetMode string

const (
	ResetOnce       ResetMode = "once"
	ResetDaily      ResetMode = "daily"
	ResetContinuous ResetMode = "continuous"
)

// Side is the direction of an intent.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// OrderType is the execution style requested for an intent.
type OrderType string

const (
	OrderMarket OrderType = "market"
	OrderLimit  OrderType = "limit"
)

const (
	defaultATRPeriod = 14
	toleranceFactor  = 0.1
)

// Config describes one grid. Magnitude is the fixed step for absolute spacing, the fractional step
// for percentage spacing and the ATR multiplier for atr spacing.
type Config struct {
	Spacing   SpacingMode
	Magnitude float64
	Levels    int
	Size      float64
	Reset     ResetMode
	ATRPeriod int
	OrderType OrderType
	Location  *time.Location
}

// Validate reports the first field that makes the configuration unusable.
func (c Config) Validate() error {
	switch c.Spacing {
	case SpacingAbsolute, SpacingPercentage, SpacingATR:
	default:
		return &ConfigurationError{Field: "spacing", Reason: "unknown spacing mode " + quote(string(c.Spacing))}
	}
	if math.IsNaN(c.Magnitude) || c.Magnitude <= 0 {
		return &ConfigurationError{Field: "magnitude", Reason: "must be greater than zero"}
	}
	if c.Levels < 1 {
		return &ConfigurationError{Field: "levels", Reason: "must be at least 1"}
	}
	if math.IsNaN(c.Size) || c.Size <= 0 {
		return &ConfigurationError{Field: "size", Reason: "must be greater than zero"}
	}
	switch c.Reset {
	case ResetOnce, ResetDaily:
		if c.Spacing == SpacingATR {
			return &ConfigurationError{Field: "reset", Reason: "atr spacing rebuilds every bar and needs the continuous reset"}
		}
	case ResetContinuous:
		if c.Spacing != SpacingATR {
			return &ConfigurationError{Field: "reset", Reason: "continuous reset is only defined for atr spacing"}
		}
	default:
		return &ConfigurationError{Field: "reset", Reason: "unknown reset mode " + quote(string(c.Reset))}
	}
	if c.ATRPeriod < 0 {
		return &ConfigurationError{Field: "atr_period", Reason: "must not be negative"}
	}
	switch c.OrderType {
	case "", OrderMarket, OrderLimit:
	default:
		return &ConfigurationError{Field: "order_type", Reason: "unknown order type " + quote(string(c.OrderType))}
	}
	return nil
}

func (c Config) atrPeriod() int {
	if c.ATRPeriod == 0 {
		return defaultATRPeriod
	}
	return c.ATRPeriod
}

func (c Config) orderType() OrderType {
	if c.OrderType == "" {
		return OrderMarket
	}
	return c.OrderType
}

func (c Config) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

func quote(s string) string {
	return "\"" + s + "\""
}
