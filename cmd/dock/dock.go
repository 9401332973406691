package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/banshee-data/beacon-dock/internal/config"
	"github.com/banshee-data/beacon-dock/internal/docking"
	"github.com/banshee-data/beacon-dock/internal/monitoring"
	"github.com/banshee-data/beacon-dock/internal/navigation"
	"github.com/banshee-data/beacon-dock/internal/serialmux"
	"github.com/banshee-data/beacon-dock/internal/sim"
	"github.com/banshee-data/beacon-dock/internal/telemetry"
	"github.com/banshee-data/beacon-dock/internal/timeutil"
)

type dockOptions struct {
	TuningPath    string
	Distance      float64
	Limit         time.Duration
	Step          time.Duration
	Realtime      bool
	Cycles        int
	Seed          uint64
	CounterOffset uint32
	TelemetryPort string
	TelemetrySer  string
	PlotDir       string
	RelayNode     uint32
}

type dockResult struct {
	Arrived  bool
	Cycles   int
	Elapsed  time.Duration
	Distance float64
}

// logIndicator prints status light changes.
type logIndicator struct{}

func (logIndicator) SetColor(c docking.Color) { log.Printf("status light %s", c) }

func runDock(ctx context.Context, o dockOptions, out io.Writer) (dockResult, error) {
	tc := config.EmptyTuningConfig()
	if o.TuningPath != "" {
		var err error
		if tc, err = config.LoadTuningConfig(o.TuningPath); err != nil {
			return dockResult{}, err
		}
	}

	simCfg := sim.DefaultConfig()
	simCfg.Seed = o.Seed
	world := sim.NewWorld(simCfg, sim.StartFacingAway(o.Distance))

	sinks := telemetry.MultiSink{telemetry.NewWriterSink(out)}
	if o.TelemetryPort != "" {
		opts, err := serialmux.ParsePortOptions(o.TelemetrySer)
		if err != nil {
			return dockResult{}, err
		}
		port, err := serialmux.OpenRealPort(o.TelemetryPort, opts)
		if err != nil {
			return dockResult{}, fmt.Errorf("open telemetry port: %w", err)
		}
		defer port.Close()
		if _, err := io.WriteString(port, telemetry.NavHeader+"\n"); err != nil {
			return dockResult{}, fmt.Errorf("write telemetry header: %w", err)
		}
		sinks = append(sinks, telemetry.NewWriterSink(port))
	}
	var plotter *monitoring.RunPlotter
	if o.PlotDir != "" {
		plotter = monitoring.NewRunPlotter()
		sinks = append(sinks, plotter)
	}
	if o.Cycles > 0 && o.RelayNode != 0 {
		sinks = append(sinks, telemetry.NewMeshLogSink(docking.NewRelay(out, o.RelayNode), 0))
	}
	if _, err := io.WriteString(out, telemetry.NavHeader+"\n"); err != nil {
		return dockResult{}, err
	}

	sup := navigation.NewSupervisor(navigation.ConfigFromTuning(tc), world, world, navigation.WithTelemetry(sinks))
	ep := sim.NewEpisode(world, o.Step, o.CounterOffset)
	pace := newPacer(ctx, o.Realtime, o.Step)
	defer pace.stop()

	var res dockResult
	if o.Cycles > 0 {
		res = runCycles(ctx, o, ep, sup, tc, pace)
	} else {
		ep.OnStep = func(time.Duration) { pace.wait() }
		r := ep.Run(sup, o.Limit)
		res = dockResult{Arrived: r.Arrived, Elapsed: r.Elapsed, Distance: r.Distance}
	}

	if plotter != nil {
		n, err := plotter.GeneratePlots(o.PlotDir)
		if err != nil {
			return res, fmt.Errorf("generate plots: %w", err)
		}
		log.Printf("wrote %d plots to %s", n, o.PlotDir)
	}
	return res, nil
}

// runCycles steps a docking agent against a single-slot station until it
// has completed o.Cycles charge cycles, the limit passes, or ctx is done.
func runCycles(ctx context.Context, o dockOptions, ep *sim.Episode, sup *navigation.Supervisor, tc *config.TuningConfig, pace *pacer) dockResult {
	station := docking.NewStation()
	agent := docking.NewAgent(docking.ConfigFromTuning(tc), sup, station.Client("sim-1"), logIndicator{}, ep.Clock, ep.Ms)

	var res dockResult
	for agent.Cycles() < o.Cycles && res.Elapsed < o.Limit && ctx.Err() == nil {
		if err := agent.Step(); err != nil {
			log.Printf("agent step: %v", err)
		}
		ep.World.Step(ep.Step)
		ep.Clock.Advance(ep.Step)
		res.Elapsed += ep.Step
		pace.wait()
	}
	sup.Reset()
	res.Cycles = agent.Cycles()
	res.Distance = ep.World.Distance()
	return res
}

// pacer blocks each simulation step until the matching wall-clock tick when
// running in real time.
type pacer struct {
	ctx    context.Context
	ticker timeutil.Ticker
}

func newPacer(ctx context.Context, realtime bool, step time.Duration) *pacer {
	p := &pacer{ctx: ctx}
	if realtime {
		p.ticker = timeutil.RealClock{}.NewTicker(step)
	}
	return p
}

func (p *pacer) wait() {
	if p.ticker == nil {
		return
	}
	select {
	case <-p.ctx.Done():
	case <-p.ticker.C():
	}
}

func (p *pacer) stop() {
	if p.ticker != nil {
		p.ticker.Stop()
	}
}
