package navigation

import "github.com/banshee-data/beacon-dock/internal/timeutil"

// Scheduler paces a fixed-period loop on a wrapping millisecond counter.
// Each due tick advances the target by exactly one period; when the loop has
// fallen more than a period behind, the target resynchronises to now+period
// instead of accumulating a backlog.
type Scheduler struct {
	period uint32
	next   uint32
}

// NewScheduler returns a scheduler with the given period. It panics on a
// zero period.
func NewScheduler(periodMs uint32) *Scheduler {
	if periodMs == 0 {
		panic("navigation: scheduler period must be positive")
	}
	return &Scheduler{period: periodMs}
}

// Reset makes the next tick due at now.
func (s *Scheduler) Reset(now uint32) { s.next = now }

// Due reports whether a tick should run at now, and if so advances the
// schedule.
func (s *Scheduler) Due(now uint32) bool {
	if timeutil.Before(now, s.next) {
		return false
	}
	s.next += s.period
	if int32(now-s.next) > int32(s.period) {
		s.next = now + s.period
	}
	return true
}

// Next returns the timestamp at which the next tick is due.
func (s *Scheduler) Next() uint32 { return s.next }

// Period returns the scheduler period in milliseconds.
func (s *Scheduler) Period() uint32 { return s.period }
