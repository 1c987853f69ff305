package grid

// NeedsReset reports whether bar starts a new grid session and, if so, the base price to anchor it at.
//
//   - once:  the first bar, anchored at its close.
//   - daily: the first bar of every calendar day in cfg.Location, anchored at its open.
//
// The continuous variant never resets a ladder; its pair is rebuilt on every bar by OnBar.
func NeedsReset(st State, bar Bar, cfg Config) (float64, bool) {
	switch cfg.Reset {
	case ResetOnce:
		if st.Phase == Uninitialized {
			return bar.Close, true
		}
	case ResetDaily:
		if st.Phase == Uninitialized || dayOf(bar.Time, cfg.location()) != st.day {
			return bar.Open, true
		}
	}
	return 0, false
}
