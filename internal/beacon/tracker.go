package beacon

import (
	"fmt"

	"github.com/banshee-data/beacon-dock/internal/config"
)

// TrackerConfig is immutable for the lifetime of a Tracker.
type TrackerConfig struct {
	Calibration [NumChannels]Calibration

	SignalMin              float64
	AngleAlpha             float64
	MaxAngleStepRad        float64
	SignalDropGuardRatio   float64
	SaturationRawThreshold uint32
	GuardHoldMs            uint32
}

// DefaultTrackerConfig returns the docking agent's tracker defaults.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfigFromTuning(config.EmptyTuningConfig())
}

// TrackerConfigFromTuning builds a TrackerConfig from a tuning file.
func TrackerConfigFromTuning(tc *config.TuningConfig) TrackerConfig {
	cfg := TrackerConfig{
		SignalMin:              tc.GetSignalMin(),
		AngleAlpha:             tc.GetAngleAlpha(),
		MaxAngleStepRad:        tc.GetMaxAngleStepRad(),
		SignalDropGuardRatio:   tc.GetSignalDropGuardRatio(),
		SaturationRawThreshold: tc.GetSaturationRawThreshold(),
		GuardHoldMs:            tc.GetGuardHoldMs(),
	}
	for _, ch := range Channels {
		gain, offset := tc.GetCalibration(ch.String())
		cfg.Calibration[ch] = Calibration{Gain: gain, Offset: offset}
	}
	return cfg
}

// DropoutConfigFromTuning returns the dropout pre-filter settings and whether
// the filter is enabled.
func DropoutConfigFromTuning(tc *config.TuningConfig) (DropoutConfig, bool) {
	return DropoutConfig{
		MaxCount: tc.GetDropoutMaxCount(),
		MinRaw:   tc.GetDropoutMinRaw(),
		Average:  tc.GetDropoutAverage(),
	}, tc.GetDropoutEnabled()
}

// State is the estimate published after each update. Everything except
// FilteredTheta and Initialized is recomputed every tick.
type State struct {
	TimestampMs   uint32
	Raw           [NumChannels]uint32
	Calibrated    [NumChannels]float64
	VX            float64
	VY            float64
	Theta         float64
	FilteredTheta float64
	TotalSignal   float64
	Detected      bool
	Initialized   bool
	GuardActive   bool
}

// FrontDominant reports whether the calibrated front channel is at least as
// strong as each of the others.
func (s State) FrontDominant() bool {
	f := s.Calibrated[Front]
	return f >= s.Calibrated[Back] && f >= s.Calibrated[Left] && f >= s.Calibrated[Right]
}

// Tracker runs the per-tick estimation pipeline: median filter, calibration,
// bearing estimate, guard and heading filter.
type Tracker struct {
	cfg        TrackerConfig
	filters    [NumChannels]*ChannelFilter
	guard      *Guard
	heading    *HeadingFilter
	prevSignal float64
	state      State
}

// NewTracker returns a Tracker for cfg. Invalid configuration is a
// programming error and panics.
func NewTracker(cfg TrackerConfig) *Tracker {
	if cfg.SignalMin < 0 {
		panic(fmt.Sprintf("beacon: signal min must be non-negative, got %v", cfg.SignalMin))
	}
	t := &Tracker{
		cfg: cfg,
		guard: NewGuard(GuardConfig{
			SaturationRawThreshold: cfg.SaturationRawThreshold,
			SignalDropGuardRatio:   cfg.SignalDropGuardRatio,
			HoldMs:                 cfg.GuardHoldMs,
		}),
		heading: NewHeadingFilter(cfg.AngleAlpha, cfg.MaxAngleStepRad),
	}
	for _, ch := range Channels {
		t.filters[ch] = NewChannelFilter(cfg.Calibration[ch])
	}
	return t
}

// Config returns the tracker configuration.
func (t *Tracker) Config() TrackerConfig { return t.cfg }

// Update processes one set of raw samples, indexed by Channel, taken at now.
func (t *Tracker) Update(raw [NumChannels]uint32, now uint32) State {
	var cal [NumChannels]float64
	for _, ch := range Channels {
		cal[ch] = t.filters[ch].Calibrate(t.filters[ch].Push(raw[ch]))
	}

	est := EstimateSignal(cal, t.cfg.SignalMin)
	frozen := t.guard.Evaluate(raw, t.prevSignal, est.TotalSignal, now)
	filtered := t.heading.Update(est.Theta, est.Detected, frozen)
	t.prevSignal = est.TotalSignal

	t.state = State{
		TimestampMs:   now,
		Raw:           raw,
		Calibrated:    cal,
		VX:            est.VX,
		VY:            est.VY,
		Theta:         est.Theta,
		FilteredTheta: filtered,
		TotalSignal:   est.TotalSignal,
		Detected:      est.Detected,
		Initialized:   t.heading.Initialized(),
		GuardActive:   frozen,
	}
	return t.state
}

// State returns the last published estimate.
func (t *Tracker) State() State { return t.state }

// Reset clears all filter, guard and heading memory.
func (t *Tracker) Reset() {
	for _, f := range t.filters {
		f.Reset()
	}
	t.guard.Reset()
	t.heading.Reset()
	t.prevSignal = 0
	t.state = State{}
}
