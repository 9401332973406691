package beacon

import "fmt"

// DropoutConfig configures the optional raw-input dropout hold.
type DropoutConfig struct {
	// MaxCount is the longest run of low samples that is ignored.
	MaxCount int
	// MinRaw is the level below which a sample counts as a dropout.
	MinRaw uint32
	// Average is the number of accepted samples in the moving average. One
	// passes accepted samples straight through.
	Average int
}

// DropoutFilter ignores short runs of low samples, as produced by brief IR
// occlusions, and optionally averages the accepted ones. A run longer than
// MaxCount is taken as a real loss of signal and passes through.
type DropoutFilter struct {
	cfg    DropoutConfig
	run    int
	value  uint32
	window []uint32
	next   int
	count  int
	sum    uint64
}

// NewDropoutFilter returns a filter for cfg. It panics on a negative
// MaxCount or an Average outside [1, 255].
func NewDropoutFilter(cfg DropoutConfig) *DropoutFilter {
	if cfg.MaxCount < 0 {
		panic(fmt.Sprintf("beacon: dropout max count must be non-negative, got %d", cfg.MaxCount))
	}
	if cfg.Average < 1 || cfg.Average > 255 {
		panic(fmt.Sprintf("beacon: dropout average must be in [1, 255], got %d", cfg.Average))
	}
	return &DropoutFilter{cfg: cfg, window: make([]uint32, cfg.Average)}
}

// Update returns the held value for a tolerated dropout sample, otherwise the
// moving average including v.
func (d *DropoutFilter) Update(v uint32) uint32 {
	if v < d.cfg.MinRaw && d.run < d.cfg.MaxCount {
		d.run++
		return d.value
	}
	d.run = 0

	if d.count == len(d.window) {
		d.sum -= uint64(d.window[d.next])
	} else {
		d.count++
	}
	d.window[d.next] = v
	d.sum += uint64(v)
	d.next = (d.next + 1) % len(d.window)

	d.value = uint32(d.sum / uint64(d.count))
	return d.value
}

// Value returns the last output.
func (d *DropoutFilter) Value() uint32 { return d.value }

// Reset forgets all history.
func (d *DropoutFilter) Reset() {
	clear(d.window)
	d.run, d.value, d.next, d.count, d.sum = 0, 0, 0, 0, 0
}
