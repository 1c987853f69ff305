package grid

import (
	"math"
	"sort"
)

// Build returns the 2*Levels+1 ladder around base in ascending order.
// Degenerate spacing can yield equal prices; they are kept as separate levels.
func Build(base float64, cfg Config) ([]float64, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	levels := make([]float64, 0, 2*cfg.Levels+1)
	for i := -cfg.Levels; i <= cfg.Levels; i++ {
		switch cfg.Spacing {
		case SpacingAbsolute:
			levels = append(levels, base+float64(i)*cfg.Magnitude)
		case SpacingPercentage:
			levels = append(levels, base*(1+float64(i)*cfg.Magnitude))
		default:
			return nil, &ConfigurationError{Field: "spacing", Reason: "atr spacing has no fixed ladder, use BuildATR"}
		}
	}
	sort.Float64s(levels)
	return levels, nil
}

// BuildATR returns the single buy/sell pair base ± atr*Magnitude used by the continuous variant.
func BuildATR(base, atr float64, cfg Config) ([]float64, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Spacing != SpacingATR {
		return nil, &ConfigurationError{Field: "spacing", Reason: "BuildATR needs atr spacing"}
	}
	if math.IsNaN(atr) || atr < 0 {
		return nil, &ConfigurationError{Field: "atr", Reason: "volatility estimate must not be negative"}
	}
	step := atr * cfg.Magnitude
	return []float64{base - step, base + step}, nil
}

// Tolerance is the distance within which a close counts as landing on a level.
func Tolerance(st State, cfg Config) float64 {
	switch cfg.Spacing {
	case SpacingPercentage:
		return math.Abs(st.BasePrice) * cfg.Magnitude * toleranceFactor
	case SpacingATR:
		return st.Spacing * toleranceFactor
	default:
		return cfg.Magnitude * toleranceFactor
	}
}
