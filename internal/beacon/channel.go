package beacon

import "fmt"

// Channel identifies one of the four fixed sensor directions.
type Channel int

const (
	Front Channel = iota
	Back
	Left
	Right

	// NumChannels is the number of sensor channels.
	NumChannels = 4
)

// Channels lists every channel in sample order.
var Channels = [NumChannels]Channel{Front, Back, Left, Right}

func (c Channel) String() string {
	switch c {
	case Front:
		return "front"
	case Back:
		return "back"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("channel(%d)", int(c))
	}
}

const historyLen = 3

// ChannelHistory is a fixed ring of the last three raw samples of one channel.
type ChannelHistory struct {
	samples [historyLen]uint32
	count   int
	next    int
}

// Push stores v, overwriting the oldest sample once the ring is full.
func (h *ChannelHistory) Push(v uint32) {
	h.samples[h.next] = v
	h.next = (h.next + 1) % historyLen
	if h.count < historyLen {
		h.count++
	}
}

// Len returns the number of stored samples, at most three.
func (h *ChannelHistory) Len() int { return h.count }

// Full reports whether three samples have been pushed.
func (h *ChannelHistory) Full() bool { return h.count == historyLen }

// Median returns the median of the stored samples. Only meaningful when Full.
func (h *ChannelHistory) Median() uint32 {
	return Median3(h.samples[0], h.samples[1], h.samples[2])
}

// Reset empties the ring.
func (h *ChannelHistory) Reset() { *h = ChannelHistory{} }

// Median3 returns the median of three values. A repeated value is the median
// regardless of order.
func Median3(a, b, c uint32) uint32 {
	if a > b {
		a, b = b, a
	}
	if b > c {
		b = c
	}
	if a > b {
		return a
	}
	return b
}

// Calibration is a linear correction from raw sensor units to a comparable
// intensity scale.
type Calibration struct {
	Gain   float64
	Offset float64
}

// IdentityCalibration leaves samples unchanged.
var IdentityCalibration = Calibration{Gain: 1, Offset: 0}

// Apply returns max(0, (v - Offset) * Gain).
func (c Calibration) Apply(v float64) float64 {
	out := (v - c.Offset) * c.Gain
	if out < 0 {
		return 0
	}
	return out
}

// ChannelFilter despikes one channel with a median-of-3 and calibrates it.
type ChannelFilter struct {
	history ChannelHistory
	cal     Calibration
}

// NewChannelFilter returns a filter using cal. It panics if the gain is not
// positive.
func NewChannelFilter(cal Calibration) *ChannelFilter {
	if !(cal.Gain > 0) {
		panic(fmt.Sprintf("beacon: calibration gain must be positive, got %v", cal.Gain))
	}
	return &ChannelFilter{cal: cal}
}

// Push records raw and returns the median of the last three samples, or raw
// itself until three samples have been seen.
func (f *ChannelFilter) Push(raw uint32) uint32 {
	f.history.Push(raw)
	if !f.history.Full() {
		return raw
	}
	return f.history.Median()
}

// Calibrate applies the channel calibration to a filtered sample.
func (f *ChannelFilter) Calibrate(filtered uint32) float64 {
	return f.cal.Apply(float64(filtered))
}

// Calibration returns the filter's calibration.
func (f *ChannelFilter) Calibration() Calibration { return f.cal }

// Reset clears the sample history.
func (f *ChannelFilter) Reset() { f.history.Reset() }
