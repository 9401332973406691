package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// The compiled-in Get* defaults match this file; it exists so that field
// robots can be re-tuned without a rebuild.
const DefaultConfigPath = "config/tuning.defaults.json"

// ChannelCalibration is the linear correction for one light sensor.
type ChannelCalibration struct {
	Gain   *float64 `json:"gain,omitempty"`
	Offset *float64 `json:"offset,omitempty"`
}

// CalibrationSet groups the four sensor calibrations.
type CalibrationSet struct {
	Front *ChannelCalibration `json:"front,omitempty"`
	Back  *ChannelCalibration `json:"back,omitempty"`
	Left  *ChannelCalibration `json:"left,omitempty"`
	Right *ChannelCalibration `json:"right,omitempty"`
}

// TuningConfig represents the root configuration for tuning parameters of
// the beacon tracker, the duty mapper, the navigation loop and the charge
// cycle. Fields omitted from the JSON keep their defaults.
type TuningConfig struct {
	// Tracker params
	Calibration            *CalibrationSet `json:"calibration,omitempty"`
	SignalMin              *float64        `json:"signal_min,omitempty"`
	AngleAlpha             *float64        `json:"angle_alpha,omitempty"`
	MaxAngleStepRad        *float64        `json:"max_angle_step_rad,omitempty"`
	SignalDropGuardRatio   *float64        `json:"signal_drop_guard_ratio,omitempty"`
	SaturationRawThreshold *uint32         `json:"saturation_raw_threshold,omitempty"`
	GuardHoldMs            *uint32         `json:"guard_hold_ms,omitempty"`

	// Input dropout hold (optional pre-filter)
	DropoutEnabled  *bool   `json:"dropout_enabled,omitempty"`
	DropoutMaxCount *int    `json:"dropout_max_count,omitempty"`
	DropoutMinRaw   *uint32 `json:"dropout_min_raw,omitempty"`
	DropoutAverage  *int    `json:"dropout_average,omitempty"`

	// Drive params
	KpTheta          *float64 `json:"kp_theta,omitempty"`
	WMax             *float64 `json:"w_max,omitempty"`
	UMax             *float64 `json:"u_max,omitempty"`
	DutyDeadzone     *uint16  `json:"duty_deadzone,omitempty"`
	DutyMax          *uint16  `json:"duty_max,omitempty"`
	DutySearch       *uint16  `json:"duty_search,omitempty"`
	DutyQuantizeStep *uint16  `json:"duty_quantize_step,omitempty"`

	// Navigation params
	ControlPeriodMs    *uint32  `json:"control_period_ms,omitempty"`
	LedTogglePeriodMs  *uint32  `json:"led_toggle_period_ms,omitempty"`
	SearchFlipPeriodMs *uint32  `json:"search_flip_period_ms,omitempty"`
	LogPeriodMs        *uint32  `json:"log_period_ms,omitempty"`
	SignalArrive       *float64 `json:"signal_arrive,omitempty"`

	// Charge cycle params (duration strings like "3s")
	WorkDuration       *string `json:"work_duration,omitempty"`
	WaitChargeDuration *string `json:"wait_charge_duration,omitempty"`
	ChargeDuration     *string `json:"charge_duration,omitempty"`
	ExitChargeDuration *string `json:"exit_charge_duration,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrUint32(v uint32) *uint32    { return &v }
func ptrString(v string) *string    { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil, so
// every Get* accessor yields its compiled default.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from cmd/tools/plot-run/
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.Calibration != nil {
		for name, cal := range map[string]*ChannelCalibration{
			"front": c.Calibration.Front,
			"back":  c.Calibration.Back,
			"left":  c.Calibration.Left,
			"right": c.Calibration.Right,
		} {
			if cal != nil && cal.Gain != nil && *cal.Gain <= 0 {
				return fmt.Errorf("calibration.%s.gain must be positive, got %f", name, *cal.Gain)
			}
		}
	}

	if c.AngleAlpha != nil && (*c.AngleAlpha <= 0 || *c.AngleAlpha > 1) {
		return fmt.Errorf("angle_alpha must be in (0, 1], got %f", *c.AngleAlpha)
	}
	if c.MaxAngleStepRad != nil && *c.MaxAngleStepRad <= 0 {
		return fmt.Errorf("max_angle_step_rad must be positive, got %f", *c.MaxAngleStepRad)
	}
	if c.SignalDropGuardRatio != nil && (*c.SignalDropGuardRatio < 0 || *c.SignalDropGuardRatio > 1) {
		return fmt.Errorf("signal_drop_guard_ratio must be between 0 and 1, got %f", *c.SignalDropGuardRatio)
	}
	if c.SignalMin != nil && *c.SignalMin < 0 {
		return fmt.Errorf("signal_min must be non-negative, got %f", *c.SignalMin)
	}
	if c.DropoutAverage != nil && (*c.DropoutAverage < 1 || *c.DropoutAverage > 255) {
		return fmt.Errorf("dropout_average must be between 1 and 255, got %d", *c.DropoutAverage)
	}
	if c.DropoutMaxCount != nil && *c.DropoutMaxCount < 0 {
		return fmt.Errorf("dropout_max_count must be non-negative, got %d", *c.DropoutMaxCount)
	}

	if c.GetDutyQuantizeStep() == 0 {
		return fmt.Errorf("duty_quantize_step must be positive")
	}
	if c.GetDutyDeadzone() > c.GetDutyMax() {
		return fmt.Errorf("duty_deadzone (%d) must not exceed duty_max (%d)", c.GetDutyDeadzone(), c.GetDutyMax())
	}
	if c.GetControlPeriodMs() == 0 {
		return fmt.Errorf("control_period_ms must be positive")
	}

	for name, value := range map[string]*string{
		"work_duration":        c.WorkDuration,
		"wait_charge_duration": c.WaitChargeDuration,
		"charge_duration":      c.ChargeDuration,
		"exit_charge_duration": c.ExitChargeDuration,
	} {
		if value != nil && *value != "" {
			if _, err := time.ParseDuration(*value); err != nil {
				return fmt.Errorf("invalid %s '%s': %w", name, *value, err)
			}
		}
	}

	return nil
}

// GetCalibration returns the gain and offset for the named channel
// ("front", "back", "left" or "right"), defaulting to the identity.
func (c *TuningConfig) GetCalibration(channel string) (gain, offset float64) {
	gain, offset = 1.0, 0.0
	if c.Calibration == nil {
		return gain, offset
	}
	var cal *ChannelCalibration
	switch channel {
	case "front":
		cal = c.Calibration.Front
	case "back":
		cal = c.Calibration.Back
	case "left":
		cal = c.Calibration.Left
	case "right":
		cal = c.Calibration.Right
	}
	if cal == nil {
		return gain, offset
	}
	if cal.Gain != nil {
		gain = *cal.Gain
	}
	if cal.Offset != nil {
		offset = *cal.Offset
	}
	return gain, offset
}

// GetSignalMin returns the signal_min value or the default.
func (c *TuningConfig) GetSignalMin() float64 {
	if c.SignalMin == nil {
		return 900.0
	}
	return *c.SignalMin
}

// GetAngleAlpha returns the angle_alpha value or the default.
func (c *TuningConfig) GetAngleAlpha() float64 {
	if c.AngleAlpha == nil {
		return 0.18
	}
	return *c.AngleAlpha
}

// GetMaxAngleStepRad returns the max_angle_step_rad value or the default.
func (c *TuningConfig) GetMaxAngleStepRad() float64 {
	if c.MaxAngleStepRad == nil {
		return 0.35
	}
	return *c.MaxAngleStepRad
}

// GetSignalDropGuardRatio returns the signal_drop_guard_ratio value or the default.
func (c *TuningConfig) GetSignalDropGuardRatio() float64 {
	if c.SignalDropGuardRatio == nil {
		return 0.22
	}
	return *c.SignalDropGuardRatio
}

// GetSaturationRawThreshold returns the saturation_raw_threshold value or the default.
func (c *TuningConfig) GetSaturationRawThreshold() uint32 {
	if c.SaturationRawThreshold == nil {
		return 4080
	}
	return *c.SaturationRawThreshold
}

// GetGuardHoldMs returns the guard_hold_ms value or the default.
func (c *TuningConfig) GetGuardHoldMs() uint32 {
	if c.GuardHoldMs == nil {
		return 120
	}
	return *c.GuardHoldMs
}

// GetDropoutEnabled returns the dropout_enabled value or the default.
func (c *TuningConfig) GetDropoutEnabled() bool {
	if c.DropoutEnabled == nil {
		return false
	}
	return *c.DropoutEnabled
}

// GetDropoutMaxCount returns the dropout_max_count value or the default.
func (c *TuningConfig) GetDropoutMaxCount() int {
	if c.DropoutMaxCount == nil {
		return 5
	}
	return *c.DropoutMaxCount
}

// GetDropoutMinRaw returns the dropout_min_raw value or the default.
func (c *TuningConfig) GetDropoutMinRaw() uint32 {
	if c.DropoutMinRaw == nil {
		return 20
	}
	return *c.DropoutMinRaw
}

// GetDropoutAverage returns the dropout_average value or the default.
func (c *TuningConfig) GetDropoutAverage() int {
	if c.DropoutAverage == nil {
		return 1
	}
	return *c.DropoutAverage
}

// GetKpTheta returns the kp_theta value or the default.
func (c *TuningConfig) GetKpTheta() float64 {
	if c.KpTheta == nil {
		return 0.70
	}
	return *c.KpTheta
}

// GetWMax returns the w_max value or the default.
func (c *TuningConfig) GetWMax() float64 {
	if c.WMax == nil {
		return 0.65
	}
	return *c.WMax
}

// GetUMax returns the u_max value or the default.
func (c *TuningConfig) GetUMax() float64 {
	if c.UMax == nil {
		return 0.75
	}
	return *c.UMax
}

// GetDutyDeadzone returns the duty_deadzone value or the default.
func (c *TuningConfig) GetDutyDeadzone() uint16 {
	if c.DutyDeadzone == nil {
		return 3300
	}
	return *c.DutyDeadzone
}

// GetDutyMax returns the duty_max value or the default.
func (c *TuningConfig) GetDutyMax() uint16 {
	if c.DutyMax == nil {
		return 4600
	}
	return *c.DutyMax
}

// GetDutySearch returns the duty_search value or the default.
func (c *TuningConfig) GetDutySearch() uint16 {
	if c.DutySearch == nil {
		return 3560
	}
	return *c.DutySearch
}

// GetDutyQuantizeStep returns the duty_quantize_step value or the default.
func (c *TuningConfig) GetDutyQuantizeStep() uint16 {
	if c.DutyQuantizeStep == nil {
		return 40
	}
	return *c.DutyQuantizeStep
}

// GetControlPeriodMs returns the control_period_ms value or the default.
func (c *TuningConfig) GetControlPeriodMs() uint32 {
	if c.ControlPeriodMs == nil {
		return 20
	}
	return *c.ControlPeriodMs
}

// GetLedTogglePeriodMs returns the led_toggle_period_ms value or the default.
func (c *TuningConfig) GetLedTogglePeriodMs() uint32 {
	if c.LedTogglePeriodMs == nil {
		return 500
	}
	return *c.LedTogglePeriodMs
}

// GetSearchFlipPeriodMs returns the search_flip_period_ms value or the default.
func (c *TuningConfig) GetSearchFlipPeriodMs() uint32 {
	if c.SearchFlipPeriodMs == nil {
		return 1500
	}
	return *c.SearchFlipPeriodMs
}

// GetLogPeriodMs returns the log_period_ms value or the default.
func (c *TuningConfig) GetLogPeriodMs() uint32 {
	if c.LogPeriodMs == nil {
		return 200
	}
	return *c.LogPeriodMs
}

// GetSignalArrive returns the signal_arrive value or the default.
func (c *TuningConfig) GetSignalArrive() float64 {
	if c.SignalArrive == nil {
		return 6000.0
	}
	return *c.SignalArrive
}

// GetWorkDuration parses and returns the WorkDuration as a time.Duration.
func (c *TuningConfig) GetWorkDuration() time.Duration {
	return parseDurationOr(c.WorkDuration, 3*time.Second)
}

// GetWaitChargeDuration parses and returns the WaitChargeDuration as a time.Duration.
func (c *TuningConfig) GetWaitChargeDuration() time.Duration {
	return parseDurationOr(c.WaitChargeDuration, 3*time.Second)
}

// GetChargeDuration parses and returns the ChargeDuration as a time.Duration.
func (c *TuningConfig) GetChargeDuration() time.Duration {
	return parseDurationOr(c.ChargeDuration, 15*time.Second)
}

// GetExitChargeDuration parses and returns the ExitChargeDuration as a time.Duration.
func (c *TuningConfig) GetExitChargeDuration() time.Duration {
	return parseDurationOr(c.ExitChargeDuration, 3*time.Second)
}

func parseDurationOr(value *string, fallback time.Duration) time.Duration {
	if value == nil || *value == "" {
		return fallback
	}
	d, err := time.ParseDuration(*value)
	if err != nil {
		return fallback // default on parse error
	}
	return d
}
