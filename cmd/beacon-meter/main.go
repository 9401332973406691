package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/banshee-data/beacon-dock/internal/version"
)

var (
	tuningPath  = flag.String("config", "config/tuning.meter.json", "Tuning config JSON")
	distance    = flag.Float64("distance", 0.8, "Distance from the beacon in metres")
	bearingDeg  = flag.Float64("bearing", 0, "Beacon bearing relative to the front sensor, degrees counter-clockwise")
	spinDegSec  = flag.Float64("spin", 0, "Rotate the meter at this rate, degrees per second")
	duration    = flag.Duration("duration", 10*time.Second, "Simulated measurement time")
	seed        = flag.Uint64("seed", 1, "Sensor noise seed")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		version.Print(os.Stdout, "beacon-meter")
		return
	}

	rows, err := runMeter(meterOptions{
		TuningPath: *tuningPath,
		Distance:   *distance,
		BearingDeg: *bearingDeg,
		SpinDegSec: *spinDegSec,
		Duration:   *duration,
		Seed:       *seed,
	}, os.Stdout)
	if err != nil {
		log.Fatalf("beacon-meter: %v", err)
	}
	log.Printf("wrote %d rows", rows)
}
