package sim

import (
	"time"

	"github.com/banshee-data/beacon-dock/internal/timeutil"
)

// Guidance is the part of the navigation supervisor an episode drives.
type Guidance interface {
	Begin(now uint32)
	Tick(now uint32) bool
}

// Result summarises one episode.
type Result struct {
	Arrived  bool
	Elapsed  time.Duration
	Steps    int
	Final    Pose
	Distance float64
}

// Episode advances a world and its guidance in lock-step on a mock clock.
type Episode struct {
	World *World
	Clock *timeutil.MockClock
	Ms    *timeutil.MillisSource

	// Step is the simulated time between ticks.
	Step time.Duration
	// OnStep, when set, is called after every step.
	OnStep func(elapsed time.Duration)
}

// NewEpisode returns an episode stepping world every step, with the guidance
// millis counter starting at offset.
func NewEpisode(world *World, step time.Duration, offset uint32) *Episode {
	clock := timeutil.NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	return &Episode{
		World: world,
		Clock: clock,
		Ms:    timeutil.NewMillisSource(clock, offset),
		Step:  step,
	}
}

// NowMs returns the episode's millis counter.
func (e *Episode) NowMs() uint32 { return e.Ms.NowMs() }

// Run begins g and steps until it reports arrival or limit elapses.
func (e *Episode) Run(g Guidance, limit time.Duration) Result {
	g.Begin(e.Ms.NowMs())

	var res Result
	for res.Elapsed < limit {
		if g.Tick(e.Ms.NowMs()) {
			res.Arrived = true
			break
		}
		e.World.Step(e.Step)
		e.Clock.Advance(e.Step)
		res.Elapsed += e.Step
		res.Steps++
		if e.OnStep != nil {
			e.OnStep(res.Elapsed)
		}
	}
	res.Final = e.World.Pose()
	res.Distance = e.World.Distance()
	return res
}
