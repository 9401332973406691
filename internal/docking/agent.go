package docking

import (
	"context"
	"fmt"
	"time"

	"github.com/banshee-data/beacon-dock/internal/monitoring"
	"github.com/banshee-data/beacon-dock/internal/timeutil"
)

// Navigator is the guidance loop that drives the agent to the beacon,
// satisfied by *navigation.Supervisor.
type Navigator interface {
	Begin(now uint32)
	Tick(now uint32) bool
	Reset()
	Active() bool
}

// Coordinator is the charging station as seen from one agent.
type Coordinator interface {
	RequestCharge() error
	RequestStopCharge() error
	ChargeGranted() bool
	ChargeFinished() bool
}

// Indicator shows the agent's phase on its status light.
type Indicator interface {
	SetColor(c Color)
}

// TimeSource is the guidance millisecond counter.
type TimeSource interface {
	NowMs() uint32
}

type phaseHandler func(a *Agent, now time.Time) (Phase, error)

// handlers holds one handler per phase. A handler returns the phase to be in
// after this step.
var handlers = [numPhases]phaseHandler{
	Work:       (*Agent).stepWork,
	ToCharge:   (*Agent).stepToCharge,
	WaitCharge: (*Agent).stepWaitCharge,
	IntoCharge: (*Agent).stepIntoCharge,
	Charge:     (*Agent).stepCharge,
	ExitCharge: (*Agent).stepExitCharge,
}

// Agent runs one agent's charge cycle. It is not safe for concurrent use.
type Agent struct {
	cfg   Config
	nav   Navigator
	coord Coordinator
	ind   Indicator
	clock timeutil.Clock
	ms    TimeSource

	phase         Phase
	enteredAt     time.Time
	entered       bool
	requested     bool
	requestedStop bool
	cycles        int
}

// NewAgent returns an agent starting in the Work phase.
func NewAgent(cfg Config, nav Navigator, coord Coordinator, ind Indicator, clock timeutil.Clock, ms TimeSource) *Agent {
	return &Agent{
		cfg:       cfg,
		nav:       nav,
		coord:     coord,
		ind:       ind,
		clock:     clock,
		ms:        ms,
		phase:     Work,
		enteredAt: clock.Now(),
	}
}

// Phase returns the current phase.
func (a *Agent) Phase() Phase { return a.phase }

// Cycles returns how many full charge cycles have completed.
func (a *Agent) Cycles() int { return a.cycles }

// Step runs the current phase's handler once and applies any transition.
func (a *Agent) Step() error {
	now := a.clock.Now()
	next, err := handlers[a.phase](a, now)
	if err != nil {
		return fmt.Errorf("docking: %s: %w", a.phase, err)
	}
	if next != a.phase {
		monitoring.Logf("docking: %s -> %s", a.phase, next)
		if a.phase == ExitCharge && next == Work {
			a.cycles++
		}
		a.phase = next
		a.enteredAt = now
		a.entered = false
	}
	return nil
}

// Run steps the agent every interval until ctx is done.
func (a *Agent) Run(ctx context.Context, interval time.Duration) error {
	ticker := a.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := a.Step(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			a.nav.Reset()
			return ctx.Err()
		case <-ticker.C():
		}
	}
}

// enter reports whether this is the first step in the current phase and
// marks it entered.
func (a *Agent) enter(c Color) bool {
	if a.entered {
		return false
	}
	a.entered = true
	a.ind.SetColor(c)
	return true
}

func (a *Agent) dwelled(now time.Time, d time.Duration) bool {
	return now.Sub(a.enteredAt) >= d
}

func (a *Agent) stepWork(now time.Time) (Phase, error) {
	a.nav.Reset()
	a.enter(Red)
	if !a.requested {
		if err := a.coord.RequestCharge(); err != nil {
			return Work, err
		}
		a.requested = true
	}
	if !a.dwelled(now, a.cfg.Work) {
		return Work, nil
	}
	return ToCharge, nil
}

func (a *Agent) stepToCharge(now time.Time) (Phase, error) {
	if !a.nav.Active() {
		a.nav.Begin(a.ms.NowMs())
	}
	if !a.nav.Tick(a.ms.NowMs()) {
		return ToCharge, nil
	}
	a.ind.SetColor(Off)
	return WaitCharge, nil
}

func (a *Agent) stepWaitCharge(now time.Time) (Phase, error) {
	a.nav.Reset()
	a.enter(Yellow)
	if !a.dwelled(now, a.cfg.WaitCharge) || !a.coord.ChargeGranted() {
		return WaitCharge, nil
	}
	return IntoCharge, nil
}

func (a *Agent) stepIntoCharge(now time.Time) (Phase, error) {
	a.nav.Reset()
	a.enter(Green)
	if !a.dwelled(now, a.cfg.IntoCharge) {
		return IntoCharge, nil
	}
	a.ind.SetColor(Off)
	a.requestedStop = false
	return Charge, nil
}

func (a *Agent) stepCharge(now time.Time) (Phase, error) {
	a.nav.Reset()
	a.enter(Green)
	if !a.dwelled(now, a.cfg.Charge) {
		return Charge, nil
	}
	if !a.requestedStop {
		if err := a.coord.RequestStopCharge(); err != nil {
			return Charge, err
		}
		a.requestedStop = true
	}
	if !a.coord.ChargeFinished() {
		return Charge, nil
	}
	return ExitCharge, nil
}

func (a *Agent) stepExitCharge(now time.Time) (Phase, error) {
	a.nav.Reset()
	a.enter(Red)
	if !a.dwelled(now, a.cfg.ExitCharge) {
		return ExitCharge, nil
	}
	a.ind.SetColor(Off)
	a.requested = false
	return Work, nil
}
