package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/beacon-dock/internal/version"
)

var (
	tuningPath    = flag.String("config", "", "Tuning config JSON (defaults compiled in)")
	distance      = flag.Float64("distance", 1.5, "Start distance from the beacon in metres; the agent starts facing away")
	limit         = flag.Duration("limit", 60*time.Second, "Simulated time limit")
	step          = flag.Duration("step", 5*time.Millisecond, "Simulation step")
	realtime      = flag.Bool("realtime", false, "Pace the simulation to wall-clock time")
	cycles        = flag.Int("cycles", 0, "Run this many charge cycles instead of a single docking run")
	seed          = flag.Uint64("seed", 1, "Sensor noise seed")
	counterOffset = flag.Uint("counter-offset", 0, "Initial value of the millisecond counter")
	telemetryPort = flag.String("telemetry-port", "", "Also write telemetry lines to this serial port")
	telemetrySer  = flag.String("telemetry-serial", "115200,8N1", "Line settings for -telemetry-port as <baud>[,<framing>]")
	plotDir       = flag.String("plot-dir", "", "Write heading and signal plots to this directory")
	relayNode     = flag.Uint("relay-node", 0, "In -cycles mode, also relay telemetry through the station as wireless_log lines from this node id")
	showVersion   = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		version.Print(os.Stdout, "dock")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := runDock(ctx, dockOptions{
		TuningPath:    *tuningPath,
		Distance:      *distance,
		Limit:         *limit,
		Step:          *step,
		Realtime:      *realtime,
		Cycles:        *cycles,
		Seed:          *seed,
		CounterOffset: uint32(*counterOffset),
		TelemetryPort: *telemetryPort,
		TelemetrySer:  *telemetrySer,
		PlotDir:       *plotDir,
		RelayNode:     uint32(*relayNode),
	}, os.Stdout)
	if err != nil {
		log.Fatalf("dock: %v", err)
	}

	if *cycles > 0 {
		log.Printf("completed %d/%d charge cycles in %v", res.Cycles, *cycles, res.Elapsed)
		if res.Cycles < *cycles {
			os.Exit(1)
		}
		return
	}
	if !res.Arrived {
		log.Printf("did not arrive within %v, %.2f m from the beacon", *limit, res.Distance)
		os.Exit(1)
	}
	log.Printf("arrived after %v, %.2f m from the beacon", res.Elapsed, res.Distance)
}
