package docking

import (
	"time"

	"github.com/banshee-data/beacon-dock/internal/config"
)

// Config holds the dwell time of each timed phase.
type Config struct {
	Work       time.Duration
	WaitCharge time.Duration
	IntoCharge time.Duration
	Charge     time.Duration
	ExitCharge time.Duration
}

// intoChargeDuration covers three one-second green blinks.
const intoChargeDuration = 3 * time.Second

// DefaultConfig returns the default dwell times.
func DefaultConfig() Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// ConfigFromTuning builds a Config from a tuning file.
func ConfigFromTuning(tc *config.TuningConfig) Config {
	return Config{
		Work:       tc.GetWorkDuration(),
		WaitCharge: tc.GetWaitChargeDuration(),
		IntoCharge: intoChargeDuration,
		Charge:     tc.GetChargeDuration(),
		ExitCharge: tc.GetExitChargeDuration(),
	}
}
