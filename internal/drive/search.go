package drive

// Search is the stateless search law. It flips the sweep direction once
// flipPeriod has elapsed since lastFlip and returns the duties for the
// resulting direction together with the updated timer state.
func (m *Mapper) Search(now, lastFlip, flipPeriod uint32, clockwise bool) (left, right uint16, cw bool, flippedAt uint32) {
	cw, flippedAt = clockwise, lastFlip
	if now-lastFlip >= flipPeriod {
		cw = !clockwise
		flippedAt = now
	}
	left, right = m.SearchDuties(cw)
	return left, right, cw, flippedAt
}

// SearchSweep carries the search timer between ticks.
type SearchSweep struct {
	mapper    *Mapper
	period    uint32
	lastFlip  uint32
	clockwise bool
}

// NewSearchSweep returns a sweep that starts clockwise at time zero.
func NewSearchSweep(m *Mapper) *SearchSweep {
	return &SearchSweep{mapper: m, period: m.cfg.SearchFlipPeriodMs, clockwise: true}
}

// Reset restarts the sweep clockwise with the flip timer at now.
func (s *SearchSweep) Reset(now uint32) {
	s.lastFlip = now
	s.clockwise = true
}

// Step returns the sweep duties at now.
func (s *SearchSweep) Step(now uint32) (left, right uint16) {
	left, right, s.clockwise, s.lastFlip = s.mapper.Search(now, s.lastFlip, s.period, s.clockwise)
	return left, right
}

// Clockwise reports the current sweep direction.
func (s *SearchSweep) Clockwise() bool { return s.clockwise }
