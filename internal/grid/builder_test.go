package grid

import (
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func absoluteConfig(step float64, n int) Config {
	return Config{Spacing: SpacingAbsolute, Magnitude: step, Levels: n, Size: 1, Reset: ResetOnce}
}

func TestBuild(t *testing.T) {
	testCases := []struct {
		name     string
		base     float64
		cfg      Config
		expected []float64
	}{
		{
			name:     "Absolute",
			base:     100,
			cfg:      absoluteConfig(1, 2),
			expected: []float64{98, 99, 100, 101, 102},
		},
		{
			name:     "Percentage",
			base:     200,
			cfg:      Config{Spacing: SpacingPercentage, Magnitude: 0.01, Levels: 1, Size: 1, Reset: ResetDaily},
			expected: []float64{198, 200, 202},
		},
		{
			name:     "Percentage with negative base stays ascending",
			base:     -100,
			cfg:      Config{Spacing: SpacingPercentage, Magnitude: 0.1, Levels: 1, Size: 1, Reset: ResetOnce},
			expected: []float64{-110, -100, -90},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			levels, err := Build(tc.base, tc.cfg)
			require.NoError(t, err)
			assert.InDeltaSlice(t, tc.expected, levels, 1e-9)
		})
	}
}

func TestBuild_LadderShape(t *testing.T) {
	for n := 1; n <= 6; n++ {
		for _, spacing := range []SpacingMode{SpacingAbsolute, SpacingPercentage} {
			cfg := Config{Spacing: spacing, Magnitude: 0.02, Levels: n, Size: 1, Reset: ResetOnce}
			base := 50.0

			levels, err := Build(base, cfg)
			require.NoError(t, err)

			assert.Len(t, levels, 2*n+1)
			assert.True(t, sort.Float64sAreSorted(levels))
			assert.InDelta(t, base, levels[n], 1e-9, "base must be the middle level")
			for i := 1; i <= n; i++ {
				assert.InDelta(t, base-levels[n-i], levels[n+i]-base, 1e-9, "levels must mirror around base")
			}
		}
	}
}

func TestBuild_InvalidConfig(t *testing.T) {
	testCases := []struct {
		name  string
		cfg   Config
		field string
	}{
		{"Unknown spacing", Config{Spacing: "fibonacci", Magnitude: 1, Levels: 1, Size: 1, Reset: ResetOnce}, "spacing"},
		{"Zero magnitude", Config{Spacing: SpacingAbsolute, Magnitude: 0, Levels: 1, Size: 1, Reset: ResetOnce}, "magnitude"},
		{"Negative magnitude", Config{Spacing: SpacingPercentage, Magnitude: -0.1, Levels: 1, Size: 1, Reset: ResetOnce}, "magnitude"},
		{"No levels", Config{Spacing: SpacingAbsolute, Magnitude: 1, Levels: 0, Size: 1, Reset: ResetOnce}, "levels"},
		{"No size", Config{Spacing: SpacingAbsolute, Magnitude: 1, Levels: 1, Size: 0, Reset: ResetOnce}, "size"},
		{"Unknown reset", Config{Spacing: SpacingAbsolute, Magnitude: 1, Levels: 1, Size: 1, Reset: "weekly"}, "reset"},
		{"ATR with daily reset", Config{Spacing: SpacingATR, Magnitude: 1, Levels: 1, Size: 1, Reset: ResetDaily}, "reset"},
		{"Continuous without ATR", Config{Spacing: SpacingAbsolute, Magnitude: 1, Levels: 1, Size: 1, Reset: ResetContinuous}, "reset"},
		{"ATR has no ladder", Config{Spacing: SpacingATR, Magnitude: 1, Levels: 1, Size: 1, Reset: ResetContinuous}, "spacing"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			levels, err := Build(100, tc.cfg)
			assert.Nil(t, levels)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))

			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tc.field, cfgErr.Field)
		})
	}
}

func TestBuildATR(t *testing.T) {
	cfg := Config{Spacing: SpacingATR, Magnitude: 1.5, Levels: 1, Size: 10, Reset: ResetContinuous}

	levels, err := BuildATR(100, 2, cfg)
	require.NoError(t, err)
	assert.Equal(t, []float64{97, 103}, levels)

	// A flat market yields a zero ATR and two identical levels; they are not merged.
	levels, err = BuildATR(100, 0, cfg)
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 100}, levels)

	_, err = BuildATR(100, -1, cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = BuildATR(100, 2, absoluteConfig(1, 1))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestTolerance(t *testing.T) {
	st := State{BasePrice: -200, Spacing: 4}

	assert.InDelta(t, 0.1, Tolerance(st, absoluteConfig(1, 1)), 1e-12)
	assert.InDelta(t, 0.2, Tolerance(st, Config{Spacing: SpacingPercentage, Magnitude: 0.01}), 1e-12)
	assert.InDelta(t, 0.4, Tolerance(st, Config{Spacing: SpacingATR, Magnitude: 2}), 1e-12)
}
