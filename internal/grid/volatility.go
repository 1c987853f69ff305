package grid

import (
	"github.com/markcheno/go-talib"
)

// MaxWindow bounds the OHLC history kept for indicator calculations.
const MaxWindow = 500

// Volatility is a bounded OHLC window from which ATR and SMA values are derived.
// Add returns a new value so a Volatility can be embedded in a State without aliasing.
type Volatility struct {
	period int
	highs  []float64
	lows   []float64
	closes []float64
}

// NewVolatility returns an empty window whose ATR uses the given period.
func NewVolatility(period int) Volatility {
	return Volatility{period: period}
}

// Add returns a copy of v with bar appended.
func (v Volatility) Add(bar Bar) Volatility {
	return Volatility{
		period: v.period,
		highs:  appendBounded(v.highs, bar.High),
		lows:   appendBounded(v.lows, bar.Low),
		closes: appendBounded(v.closes, bar.Close),
	}
}

// Len is the number of bars in the window.
func (v Volatility) Len() int {
	return len(v.closes)
}

// ATR is the Wilder average true range over the window. It is unavailable until period+1 bars were seen.
func (v Volatility) ATR() (float64, bool) {
	if v.period < 1 || len(v.closes) <= v.period {
		return 0, false
	}
	out := talib.Atr(v.highs, v.lows, v.closes, v.period)
	return out[len(out)-1], true
}

// SMA is the simple moving average of the last period closes.
func (v Volatility) SMA(period int) (float64, bool) {
	if period < 1 || len(v.closes) < period {
		return 0, false
	}
	out := talib.Sma(v.closes, period)
	return out[len(out)-1], true
}

func appendBounded(s []float64, x float64) []float64 {
	start := 0
	if len(s) >= MaxWindow {
		start = len(s) - MaxWindow + 1
	}
	out := make([]float64, 0, len(s)-start+1)
	out = append(out, s[start:]...)
	return append(out, x)
}
