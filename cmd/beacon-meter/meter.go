package main

import (
	"fmt"
	"io"
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/beacon-dock/internal/beacon"
	"github.com/banshee-data/beacon-dock/internal/config"
	"github.com/banshee-data/beacon-dock/internal/navigation"
	"github.com/banshee-data/beacon-dock/internal/sim"
	"github.com/banshee-data/beacon-dock/internal/telemetry"
	"github.com/banshee-data/beacon-dock/internal/timeutil"
	"github.com/banshee-data/beacon-dock/internal/units"
)

// simStep is the simulation resolution; samples are taken on the control
// period.
const simStep = time.Millisecond

type meterOptions struct {
	TuningPath string
	Distance   float64
	BearingDeg float64
	SpinDegSec float64
	Duration   time.Duration
	Seed       uint64
}

// runMeter samples a stationary (or spinning) meter in the simulated world
// and writes one CSV row per control period. It returns the rows written.
func runMeter(o meterOptions, out io.Writer) (int, error) {
	tc, err := config.LoadTuningConfig(o.TuningPath)
	if err != nil {
		return 0, err
	}

	simCfg := sim.DefaultConfig()
	simCfg.Seed = o.Seed
	// The beacon sits at the origin; the meter on the +X axis looks back
	// towards it when its heading is π.
	bearing := units.ToRadians(o.BearingDeg)
	world := sim.NewWorld(simCfg, sim.Pose{
		Pos:     r2.Vec{X: o.Distance},
		Heading: beacon.WrapAngle(math.Pi - bearing),
	})

	tracker := beacon.NewTracker(beacon.TrackerConfigFromTuning(tc))
	var dropout [beacon.NumChannels]*beacon.DropoutFilter
	if dc, enabled := beacon.DropoutConfigFromTuning(tc); enabled {
		for _, ch := range beacon.Channels {
			dropout[ch] = beacon.NewDropoutFilter(dc)
		}
	}

	clock := timeutil.NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	ms := timeutil.NewMillisSource(clock, 0)
	sched := navigation.NewScheduler(tc.GetControlPeriodMs())
	sched.Reset(ms.NowMs())

	if _, err := io.WriteString(out, telemetry.MeterHeader+"\n"); err != nil {
		return 0, err
	}

	spin := units.ToRadians(o.SpinDegSec)
	rows := 0
	for elapsed := time.Duration(0); elapsed < o.Duration; elapsed += simStep {
		now := ms.NowMs()
		if sched.Due(now) {
			var raw [beacon.NumChannels]uint32
			for _, ch := range beacon.Channels {
				v := world.ReadIntensity(ch)
				if dropout[ch] != nil {
					v = dropout[ch].Update(v)
				}
				raw[ch] = v
			}
			st := tracker.Update(raw, now)
			if _, err := fmt.Fprintln(out, telemetry.FormatMeter(st)); err != nil {
				return rows, err
			}
			rows++
		}

		if spin != 0 {
			p := world.Pose()
			p.Heading = beacon.WrapAngle(p.Heading + spin*simStep.Seconds())
			world.SetPose(p)
		}
		clock.Advance(simStep)
	}
	return rows, nil
}
