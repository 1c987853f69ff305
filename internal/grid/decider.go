package grid

// Intent is a proposed order. It is handed to the broker once and then discarded.
type Intent struct {
	Side  Side
	Price float64
	Size  float64
	Level float64
	Type  OrderType
}

// Decision explains why Decide did or did not produce an intent.
type Decision int

const (
	Emit Decision = iota
	SkipOutstanding
	SkipFlat
	SkipAnchor
)

func (d Decision) String() string {
	switch d {
	case Emit:
		return "emit"
	case SkipOutstanding:
		return "intent outstanding"
	case SkipFlat:
		return "sell level while flat"
	case SkipAnchor:
		return "anchor level"
	default:
		return "unknown"
	}
}

// Decider turns crossed levels into intents. It owns the outstanding-intent gate: while a submitted
// intent has not been resolved by the broker, nothing new is emitted.
type Decider struct {
	cfg         Config
	outstanding bool
}

func NewDecider(cfg Config) *Decider {
	return &Decider{cfg: cfg}
}

// Decide maps a crossed level to an intent. Levels above base sell only when position is non-flat,
// levels below base always buy, the base level itself is inert.
func (d *Decider) Decide(level, base, position float64) (Intent, Decision) {
	if d.outstanding {
		return Intent{}, SkipOutstanding
	}
	switch {
	case level > base:
		if position == 0 {
			return Intent{}, SkipFlat
		}
		return d.intent(Sell, level), Emit
	case level < base:
		return d.intent(Buy, level), Emit
	default:
		return Intent{}, SkipAnchor
	}
}

func (d *Decider) intent(side Side, level float64) Intent {
	return Intent{
		Side:  side,
		Price: level,
		Size:  d.cfg.Size,
		Level: level,
		Type:  d.cfg.orderType(),
	}
}

// Submitted closes the gate after an intent was handed to the broker.
func (d *Decider) Submitted() {
	d.outstanding = true
}

// Resolve reopens the gate on any terminal order notification.
func (d *Decider) Resolve() {
	d.outstanding = false
}

// Outstanding reports whether an intent is waiting for a terminal notification.
func (d *Decider) Outstanding() bool {
	return d.outstanding
}
