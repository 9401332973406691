// Package drive maps a filtered beacon heading to quantized differential
// duties for a two-wheeled agent, and sweeps in place while no beacon is
// visible.
package drive

import (
	"fmt"
	"math"

	"github.com/banshee-data/beacon-dock/internal/config"
)

// MapperConfig holds the control gains and the device duty range.
type MapperConfig struct {
	KpTheta float64 // turn gain per radian of heading error
	WMax    float64 // turn command limit
	UMax    float64 // forward command limit

	Deadzone     uint16 // lowest duty that moves a wheel
	Max          uint16 // hardware ceiling
	Search       uint16 // single-wheel duty while sweeping
	QuantizeStep uint16

	SearchFlipPeriodMs uint32
}

// DefaultMapperConfig returns the agent's default gains and duty range.
func DefaultMapperConfig() MapperConfig {
	return MapperConfigFromTuning(config.EmptyTuningConfig())
}

// MapperConfigFromTuning builds a MapperConfig from a tuning file.
func MapperConfigFromTuning(tc *config.TuningConfig) MapperConfig {
	return MapperConfig{
		KpTheta:            tc.GetKpTheta(),
		WMax:               tc.GetWMax(),
		UMax:               tc.GetUMax(),
		Deadzone:           tc.GetDutyDeadzone(),
		Max:                tc.GetDutyMax(),
		Search:             tc.GetDutySearch(),
		QuantizeStep:       tc.GetDutyQuantizeStep(),
		SearchFlipPeriodMs: tc.GetSearchFlipPeriodMs(),
	}
}

// Mapper converts heading estimates into duty pairs.
type Mapper struct {
	cfg MapperConfig
}

// NewMapper returns a Mapper for cfg. It panics on a zero quantization step
// or a deadzone above the ceiling.
func NewMapper(cfg MapperConfig) *Mapper {
	if cfg.QuantizeStep == 0 {
		panic("drive: duty quantize step must be positive")
	}
	if cfg.Deadzone > cfg.Max {
		panic(fmt.Sprintf("drive: duty deadzone %d exceeds max %d", cfg.Deadzone, cfg.Max))
	}
	if cfg.WMax < 0 || cfg.UMax < 0 {
		panic("drive: command limits must be non-negative")
	}
	return &Mapper{cfg: cfg}
}

// Config returns the mapper configuration.
func (m *Mapper) Config() MapperConfig { return m.cfg }

// Quantize rounds a duty to the nearest step and clamps it into
// [Deadzone, Max]. Zero stays zero.
func (m *Mapper) Quantize(duty uint16) uint16 {
	if duty == 0 {
		return 0
	}
	d := uint32(min(duty, m.cfg.Max))
	step := uint32(m.cfg.QuantizeStep)
	q := (d + step/2) / step * step
	q = max(q, uint32(m.cfg.Deadzone))
	q = min(q, uint32(m.cfg.Max))
	return uint16(q)
}

// MapNormalized maps a command in [0, 1] onto the device duty range. Commands
// at or below zero stop the wheel.
func (m *Mapper) MapNormalized(n float64) uint16 {
	if !(n > 0) {
		return 0
	}
	n = math.Min(n, 1)
	span := float64(m.cfg.Max - m.cfg.Deadzone)
	duty := float64(m.cfg.Deadzone) + n*span
	return m.Quantize(uint16(duty))
}

// Track applies the proportional tracking law to a heading in radians.
// Forward drive falls off with cos(theta) and is zero once the beacon is
// behind the agent.
func (m *Mapper) Track(theta float64) (left, right uint16) {
	w := clamp(m.cfg.KpTheta*theta, -m.cfg.WMax, m.cfg.WMax)
	u := m.cfg.UMax * math.Max(0, math.Cos(theta))
	if math.Abs(theta) > math.Pi/2 {
		u = 0
	}
	return m.MapNormalized(clamp(u+w, 0, 1)), m.MapNormalized(clamp(u-w, 0, 1))
}

// MapToDuties returns the tracking duties for a detected beacon and a stopped
// pair otherwise.
func (m *Mapper) MapToDuties(theta float64, detected bool) (left, right uint16) {
	if !detected {
		return 0, 0
	}
	return m.Track(theta)
}

// SearchDuties drives a single wheel at the search duty. Clockwise turns on
// the right wheel, counter-clockwise on the left.
func (m *Mapper) SearchDuties(clockwise bool) (left, right uint16) {
	if clockwise {
		return 0, m.cfg.Search
	}
	return m.cfg.Search, 0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
