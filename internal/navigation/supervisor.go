// Package navigation runs the docking guidance loop: it samples the four
// beacon sensors on a fixed period, switches between searching and tracking,
// drives the wheels, and reports arrival at the beacon.
package navigation

import (
	"github.com/banshee-data/beacon-dock/internal/beacon"
	"github.com/banshee-data/beacon-dock/internal/drive"
	"github.com/banshee-data/beacon-dock/internal/monitoring"
	"github.com/banshee-data/beacon-dock/internal/telemetry"
)

// Sensor returns the latest raw reading of one beacon channel. It must not
// block.
type Sensor interface {
	ReadIntensity(ch beacon.Channel) uint32
}

// Actuator receives quantized wheel duties.
type Actuator = drive.Actuator

// TimeSource is a free-running millisecond counter that wraps at 2^32.
type TimeSource interface {
	NowMs() uint32
}

// Indicator shows that navigation is running, typically by blinking an LED.
type Indicator interface {
	SetNavigating(on bool)
}

// Option configures optional Supervisor collaborators.
type Option func(*Supervisor)

// WithTelemetry sends a frame to sink every log period.
func WithTelemetry(sink telemetry.Sink) Option {
	return func(s *Supervisor) { s.sink = sink }
}

// WithIndicator blinks ind while navigating.
func WithIndicator(ind Indicator) Option {
	return func(s *Supervisor) { s.indicator = ind }
}

// Supervisor owns one docking attempt's guidance state. It is not safe for
// concurrent use; Run serialises all calls when driven from a goroutine.
type Supervisor struct {
	cfg       Config
	sensor    Sensor
	tracker   *beacon.Tracker
	dropout   [beacon.NumChannels]*beacon.DropoutFilter
	mapper    *drive.Mapper
	sweep     *drive.SearchSweep
	applier   *drive.DutyApplier
	scheduler *Scheduler
	sink      telemetry.Sink
	indicator Indicator

	mode          Mode
	ledOn         bool
	lastLedToggle uint32
	lastLog       uint32
}

// NewSupervisor wires a supervisor to its sensor and actuator. Invalid
// configuration panics.
func NewSupervisor(cfg Config, sensor Sensor, act Actuator, opts ...Option) *Supervisor {
	mapper := drive.NewMapper(cfg.Mapper)
	s := &Supervisor{
		cfg:       cfg,
		sensor:    sensor,
		tracker:   beacon.NewTracker(cfg.Tracker),
		mapper:    mapper,
		sweep:     drive.NewSearchSweep(mapper),
		applier:   drive.NewDutyApplier(act, mapper),
		scheduler: NewScheduler(cfg.ControlPeriodMs),
	}
	if cfg.Dropout != nil {
		for _, ch := range beacon.Channels {
			s.dropout[ch] = beacon.NewDropoutFilter(*cfg.Dropout)
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Begin starts a fresh docking attempt at now. Any state left from an
// earlier attempt is discarded first, so calling Begin twice is harmless.
func (s *Supervisor) Begin(now uint32) {
	s.Reset()
	s.mode = Searching
	s.scheduler.Reset(now)
	s.sweep.Reset(now)
	s.lastLedToggle = now
	s.lastLog = now
	s.setLed(true)
	monitoring.Logf("navigation: begin at %d ms", now)
}

// Tick runs one control step if one is due at now and reports whether the
// agent has arrived. On arrival the wheels are stopped and the supervisor
// returns to Idle.
func (s *Supervisor) Tick(now uint32) bool {
	if s.mode == Idle {
		return false
	}

	s.toggleLed(now)
	if !s.scheduler.Due(now) {
		return false
	}

	st := s.tracker.Update(s.readSamples(), now)

	var left, right uint16
	if st.Detected {
		s.setMode(Tracking, now)
		left, right = s.mapper.Track(st.FilteredTheta)
	} else {
		s.setMode(Searching, now)
		left, right = s.sweep.Step(now)
	}
	s.applier.Apply(left, right)

	if now-s.lastLog >= s.cfg.LogPeriodMs {
		s.emit(st)
		s.lastLog = now
	}

	if ReachedArrival(st, s.cfg.SignalArrive) {
		monitoring.Logf("navigation: arrived at %d ms, signal %.1f", now, st.TotalSignal)
		s.Reset()
		return true
	}
	return false
}

// Reset stops the wheels if they may be moving and clears all filter, guard
// and timer state. The supervisor is Idle afterwards.
func (s *Supervisor) Reset() {
	if s.mode != Idle || s.applier.Moving() {
		s.applier.Stop()
	} else {
		s.applier.Forget()
	}
	s.tracker.Reset()
	for _, d := range s.dropout {
		if d != nil {
			d.Reset()
		}
	}
	if s.ledOn {
		s.setLed(false)
	}
	s.mode = Idle
	s.scheduler.Reset(0)
	s.sweep.Reset(0)
	s.lastLedToggle = 0
	s.lastLog = 0
}

// Mode returns the current navigation mode.
func (s *Supervisor) Mode() Mode { return s.mode }

// Active reports whether a docking attempt is in progress.
func (s *Supervisor) Active() bool { return s.mode != Idle }

// State returns the tracker's latest estimate.
func (s *Supervisor) State() beacon.State { return s.tracker.State() }

// LastDuties returns the duties most recently sent to the actuator.
func (s *Supervisor) LastDuties() (left, right uint16) { return s.applier.Last() }

// Period returns the control period in milliseconds.
func (s *Supervisor) Period() uint32 { return s.scheduler.Period() }

// ReachedArrival reports whether the beacon is detected, at least threshold
// strong, and straight ahead.
func ReachedArrival(st beacon.State, threshold float64) bool {
	return st.Detected && st.TotalSignal >= threshold && st.FrontDominant()
}

func (s *Supervisor) readSamples() [beacon.NumChannels]uint32 {
	var raw [beacon.NumChannels]uint32
	for _, ch := range beacon.Channels {
		v := s.sensor.ReadIntensity(ch)
		if d := s.dropout[ch]; d != nil {
			v = d.Update(v)
		}
		raw[ch] = v
	}
	return raw
}

func (s *Supervisor) setMode(m Mode, now uint32) {
	if s.mode == m {
		return
	}
	monitoring.Logf("navigation: %s -> %s at %d ms", s.mode, m, now)
	s.mode = m
}

func (s *Supervisor) toggleLed(now uint32) {
	if now-s.lastLedToggle < s.cfg.LedTogglePeriodMs {
		return
	}
	s.setLed(!s.ledOn)
	s.lastLedToggle = now
}

func (s *Supervisor) setLed(on bool) {
	s.ledOn = on
	if s.indicator != nil {
		s.indicator.SetNavigating(on)
	}
}

func (s *Supervisor) emit(st beacon.State) {
	if s.sink == nil {
		return
	}
	left, right := s.applier.Last()
	if err := s.sink.Emit(telemetry.NewFrame(st, s.mode.String(), left, right)); err != nil {
		monitoring.Logf("navigation: telemetry: %v", err)
	}
}
