package beacon

import "github.com/banshee-data/beacon-dock/internal/timeutil"

// minDropBaseline is the smallest previous total for which a relative drop
// is evaluated.
const minDropBaseline = 1.0

// GuardConfig holds the guard thresholds.
type GuardConfig struct {
	// SaturationRawThreshold triggers the guard when any raw sample reaches it.
	SaturationRawThreshold uint32
	// SignalDropGuardRatio triggers the guard when the total signal falls by
	// at least this fraction of the previous tick's total. Zero disables the
	// drop check.
	SignalDropGuardRatio float64
	// HoldMs is how long heading updates stay frozen after a trigger.
	HoldMs uint32
}

// Guard maintains the heading freeze deadline. The deadline only moves
// forward within an episode.
type Guard struct {
	cfg      GuardConfig
	deadline uint32
	armed    bool
}

// NewGuard returns an idle guard.
func NewGuard(cfg GuardConfig) *Guard {
	if cfg.SignalDropGuardRatio < 0 || cfg.SignalDropGuardRatio > 1 {
		panic("beacon: signal drop guard ratio must be within [0, 1]")
	}
	return &Guard{cfg: cfg}
}

// Triggered reports whether the samples describe a saturated sensor or a
// collapsing signal.
func (g *Guard) Triggered(raw [NumChannels]uint32, prevTotal, curTotal float64) bool {
	for _, v := range raw {
		if v >= g.cfg.SaturationRawThreshold {
			return true
		}
	}
	ratio := g.cfg.SignalDropGuardRatio
	if ratio > 0 && prevTotal > minDropBaseline && curTotal < prevTotal {
		if (prevTotal-curTotal)/prevTotal >= ratio {
			return true
		}
	}
	return false
}

// Extend moves the deadline to now+hold when that is later than the current
// deadline.
func (g *Guard) Extend(now uint32) {
	candidate := now + g.cfg.HoldMs
	if !g.armed || timeutil.Before(g.deadline, candidate) {
		g.deadline = candidate
		g.armed = true
	}
}

// Evaluate extends the deadline on a trigger and reports whether the guard is
// active at now. A deadline that has passed is cleared here, so a stale one
// can never reactivate after the counter wraps.
func (g *Guard) Evaluate(raw [NumChannels]uint32, prevTotal, curTotal float64, now uint32) bool {
	if g.Triggered(raw, prevTotal, curTotal) {
		g.Extend(now)
	}
	if g.armed && !timeutil.Before(now, g.deadline) {
		g.armed = false
	}
	return g.Active(now)
}

// Active reports whether a deadline is set and now precedes it. It does not
// change the guard.
func (g *Guard) Active(now uint32) bool {
	return g.armed && timeutil.Before(now, g.deadline)
}

// Deadline returns the current freeze deadline and whether one is set.
func (g *Guard) Deadline() (uint32, bool) { return g.deadline, g.armed }

// Reset clears the deadline.
func (g *Guard) Reset() {
	g.deadline = 0
	g.armed = false
}
