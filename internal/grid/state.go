package grid

import (
	"fmt"
	"time"
)

// Bar is one OHLCV observation.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Phase is the reset state machine position.
type Phase int

const (
	Uninitialized Phase = iota
	Active
)

func (p Phase) String() string {
	switch p {
	case Uninitialized:
		return "UNINITIALIZED"
	case Active:
		return "ACTIVE"
	default:
		return fmt.Sprintf("Unknown Phase [%d]", int(p))
	}
}

type civilDay struct {
	year  int
	month time.Month
	day   int
}

func dayOf(t time.Time, loc *time.Location) civilDay {
	y, m, d := t.In(loc).Date()
	return civilDay{year: y, month: m, day: d}
}

// State is everything the tracker knows about the current grid. OnBar takes a State and returns the
// next one; the caller keeps the returned value. Position is the only field owned by the caller and
// must only change on confirmed fills.
type State struct {
	Phase     Phase
	BasePrice float64
	Levels    []float64
	// Spacing is the effective distance between levels of the current grid.
	Spacing   float64
	Position  float64
	LastClose float64

	hasLast   bool
	triggered []bool
	day       civilDay
	vol       Volatility
}

// NewState returns the Uninitialized state for cfg.
func NewState(cfg Config) State {
	return State{vol: NewVolatility(cfg.atrPeriod())}
}

// Triggered returns the prices of the levels already acted upon since the last reset.
func (s State) Triggered() []float64 {
	out := make([]float64, 0, len(s.triggered))
	for i, hit := range s.triggered {
		if hit {
			out = append(out, s.Levels[i])
		}
	}
	return out
}

// IsTriggered reports whether the level at index i has fired since the last reset.
func (s State) IsTriggered(i int) bool {
	return i >= 0 && i < len(s.triggered) && s.triggered[i]
}

// ATR is the current volatility estimate (atr spacing only).
func (s State) ATR() (float64, bool) {
	return s.vol.ATR()
}

func (s State) clone() State {
	next := s
	next.Levels = append([]float64(nil), s.Levels...)
	next.triggered = append([]bool(nil), s.triggered...)
	return next
}

// rebuild installs a fresh level set anchored at base. LastClose keeps the previous bar's close;
// only a state that has never seen a close starts its path at the anchor.
func (s *State) rebuild(base, spacing float64, levels []float64) {
	s.Phase = Active
	s.BasePrice = base
	s.Spacing = spacing
	s.Levels = levels
	s.triggered = make([]bool, len(levels))
	if !s.hasLast {
		s.LastClose = base
		s.hasLast = true
	}
}
