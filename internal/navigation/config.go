package navigation

import (
	"github.com/banshee-data/beacon-dock/internal/beacon"
	"github.com/banshee-data/beacon-dock/internal/config"
	"github.com/banshee-data/beacon-dock/internal/drive"
)

// Config gathers everything a Supervisor needs.
type Config struct {
	Tracker beacon.TrackerConfig
	Mapper  drive.MapperConfig

	// Dropout enables the raw-input dropout hold on every channel.
	Dropout *beacon.DropoutConfig

	ControlPeriodMs   uint32
	LedTogglePeriodMs uint32
	LogPeriodMs       uint32
	SignalArrive      float64
}

// DefaultConfig returns the docking agent defaults.
func DefaultConfig() Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// ConfigFromTuning builds a Config from a tuning file.
func ConfigFromTuning(tc *config.TuningConfig) Config {
	cfg := Config{
		Tracker:           beacon.TrackerConfigFromTuning(tc),
		Mapper:            drive.MapperConfigFromTuning(tc),
		ControlPeriodMs:   tc.GetControlPeriodMs(),
		LedTogglePeriodMs: tc.GetLedTogglePeriodMs(),
		LogPeriodMs:       tc.GetLogPeriodMs(),
		SignalArrive:      tc.GetSignalArrive(),
	}
	if dc, enabled := beacon.DropoutConfigFromTuning(tc); enabled {
		cfg.Dropout = &dc
	}
	return cfg
}
