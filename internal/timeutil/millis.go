package timeutil

import "time"

// Before reports whether now precedes deadline on a wrapping 32-bit
// millisecond counter. The signed difference keeps the comparison correct
// across the 2^32 boundary as long as the two values are less than 2^31 ms
// apart.
func Before(now, deadline uint32) bool {
	return int32(now-deadline) < 0
}

// Elapsed returns the milliseconds between since and now on a wrapping
// counter.
func Elapsed(now, since uint32) uint32 {
	return now - since
}

// Millis converts a duration to a 32-bit millisecond count, saturating at
// the counter width.
func Millis(d time.Duration) uint32 {
	ms := d.Milliseconds()
	if ms <= 0 {
		return 0
	}
	if ms > int64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(ms)
}

// MillisSource exposes a Clock as a free-running 32-bit millisecond counter,
// the only time source the guidance core consumes. The counter wraps at its
// native width exactly like a microcontroller millis() tick.
type MillisSource struct {
	clock  Clock
	epoch  time.Time
	offset uint32
}

// NewMillisSource starts a counter at offset, measured from the clock's
// current time. A non-zero offset lets tests start just below the wrap point.
func NewMillisSource(clock Clock, offset uint32) *MillisSource {
	return &MillisSource{clock: clock, epoch: clock.Now(), offset: offset}
}

// NowMs returns the current counter value.
func (m *MillisSource) NowMs() uint32 {
	return m.offset + uint32(m.clock.Since(m.epoch).Milliseconds())
}
