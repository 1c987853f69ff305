package grid

import "math"

// Crossing is the single level that fired on a bar.
type Crossing struct {
	Level float64
	Index int
	Base  float64
}

// OnBar advances st by one bar. It must be called exactly once per bar: it consumes the crossing and
// moves LastClose forward. A nil Crossing means no level fired.
func OnBar(bar Bar, st State, cfg Config) (*Crossing, State, error) {
	if err := cfg.Validate(); err != nil {
		return nil, st, err
	}
	next := st.clone()

	if cfg.Spacing == SpacingATR {
		return onBarContinuous(bar, next, cfg)
	}

	if base, ok := NeedsReset(next, bar, cfg); ok {
		levels, err := Build(base, cfg)
		if err != nil {
			return nil, st, err
		}
		spacing := cfg.Magnitude
		if cfg.Spacing == SpacingPercentage {
			spacing = math.Abs(base) * cfg.Magnitude
		}
		next.rebuild(base, spacing, levels)
	}
	next.day = dayOf(bar.Time, cfg.location())

	c := next.cross(bar.Close, Tolerance(next, cfg))
	next.LastClose = bar.Close
	next.hasLast = true
	return c, next, nil
}

// onBarContinuous evaluates the close against the pair built on the previous bar, then rebuilds the
// pair around this close once the ATR is warm.
func onBarContinuous(bar Bar, next State, cfg Config) (*Crossing, State, error) {
	var c *Crossing
	if next.Phase == Active {
		c = next.cross(bar.Close, Tolerance(next, cfg))
	}

	next.vol = next.vol.Add(bar)
	if atr, ok := next.vol.ATR(); ok {
		levels, err := BuildATR(bar.Close, atr, cfg)
		if err != nil {
			return nil, next, err
		}
		next.rebuild(bar.Close, atr*cfg.Magnitude, levels)
	}
	next.day = dayOf(bar.Time, cfg.location())
	next.LastClose = bar.Close
	next.hasLast = true
	return c, next, nil
}

// cross selects and marks the untriggered level closest to price among those price landed on
// (within tol) or that the path from LastClose passed through. Equal distances keep the lower level.
func (s *State) cross(price, tol float64) *Crossing {
	best := -1
	bestDist := 0.0
	for i, level := range s.Levels {
		if s.triggered[i] {
			continue
		}
		dist := math.Abs(price - level)
		landed := dist <= tol
		passed := s.hasLast &&
			((s.LastClose < level && level <= price) || (s.LastClose > level && level >= price))
		if !landed && !passed {
			continue
		}
		if best < 0 || dist < bestDist {
			best, bestDist = i, dist
		}
	}
	if best < 0 {
		return nil
	}
	s.triggered[best] = true
	return &Crossing{Level: s.Levels[best], Index: best, Base: s.BasePrice}
}
