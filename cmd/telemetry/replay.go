package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/banshee-data/beacon-dock/internal/navigation"
	"github.com/banshee-data/beacon-dock/internal/serialmux"
	"github.com/banshee-data/beacon-dock/internal/sim"
	"github.com/banshee-data/beacon-dock/internal/telemetry"
	"github.com/banshee-data/beacon-dock/internal/timeutil"
)

// devNode is the node id the dev feed pretends its frames were relayed from.
const devNode = 7

// replayFile feeds every line of a captured serial log through
// serialmux.HandleEvent and returns the number of frames recorded.
// Malformed lines are logged and skipped.
func replayFile(path string, rec serialmux.FrameRecorder, clock timeutil.Clock) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	counter := &countingRecorder{next: rec}
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if err := serialmux.HandleEvent(counter, line, clock.Now()); err != nil {
			log.Printf("%s:%d: %v", path, lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return counter.n, fmt.Errorf("read %s: %w", path, err)
	}
	return counter.n, nil
}

type countingRecorder struct {
	next serialmux.FrameRecorder
	n    int
}

func (c *countingRecorder) RecordFrame(f telemetry.ParsedFrame) error {
	if err := c.next.RecordFrame(f); err != nil {
		return err
	}
	c.n++
	return nil
}

// devLines runs one simulated docking and returns its telemetry as the
// coordinator would relay it, header first.
func devLines() ([]string, error) {
	lines := []string{telemetry.WirelessHeader}
	sink := telemetry.SinkFunc(func(f telemetry.Frame) error {
		lines = append(lines, telemetry.FormatWireless(devNode, f.Format()))
		return nil
	})

	world := sim.NewWorld(sim.DefaultConfig(), sim.StartFacingAway(1.5))
	sup := navigation.NewSupervisor(navigation.DefaultConfig(), world, world, navigation.WithTelemetry(sink))
	res := sim.NewEpisode(world, 5*time.Millisecond, 0).Run(sup, time.Minute)
	if !res.Arrived {
		return nil, fmt.Errorf("simulated run did not arrive (%.2f m left)", res.Distance)
	}
	return lines, nil
}
