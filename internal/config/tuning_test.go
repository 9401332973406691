package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyTuningConfigDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	assert.Equal(t, 900.0, cfg.GetSignalMin())
	assert.Equal(t, 0.18, cfg.GetAngleAlpha())
	assert.Equal(t, 0.35, cfg.GetMaxAngleStepRad())
	assert.Equal(t, 0.22, cfg.GetSignalDropGuardRatio())
	assert.Equal(t, uint32(4080), cfg.GetSaturationRawThreshold())
	assert.Equal(t, uint32(120), cfg.GetGuardHoldMs())
	assert.False(t, cfg.GetDropoutEnabled())
	assert.Equal(t, 5, cfg.GetDropoutMaxCount())
	assert.Equal(t, uint32(20), cfg.GetDropoutMinRaw())
	assert.Equal(t, 1, cfg.GetDropoutAverage())

	assert.Equal(t, 0.70, cfg.GetKpTheta())
	assert.Equal(t, 0.65, cfg.GetWMax())
	assert.Equal(t, 0.75, cfg.GetUMax())
	assert.Equal(t, uint16(3300), cfg.GetDutyDeadzone())
	assert.Equal(t, uint16(4600), cfg.GetDutyMax())
	assert.Equal(t, uint16(3560), cfg.GetDutySearch())
	assert.Equal(t, uint16(40), cfg.GetDutyQuantizeStep())

	assert.Equal(t, uint32(20), cfg.GetControlPeriodMs())
	assert.Equal(t, uint32(500), cfg.GetLedTogglePeriodMs())
	assert.Equal(t, uint32(1500), cfg.GetSearchFlipPeriodMs())
	assert.Equal(t, uint32(200), cfg.GetLogPeriodMs())
	assert.Equal(t, 6000.0, cfg.GetSignalArrive())

	assert.Equal(t, 3*time.Second, cfg.GetWorkDuration())
	assert.Equal(t, 3*time.Second, cfg.GetWaitChargeDuration())
	assert.Equal(t, 15*time.Second, cfg.GetChargeDuration())
	assert.Equal(t, 3*time.Second, cfg.GetExitChargeDuration())

	gain, offset := cfg.GetCalibration("front")
	assert.Equal(t, 1.0, gain)
	assert.Equal(t, 0.0, offset)
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "calibration": {
    "left": { "gain": 1.25, "offset": 40 }
  },
  "signal_min": 800,
  "angle_alpha": 0.3,
  "guard_hold_ms": 200,
  "duty_search": 3600,
  "charge_duration": "30s"
}`
	require.NoError(t, os.WriteFile(configPath, []byte(testJSON), 0644))

	cfg, err := LoadTuningConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, 800.0, cfg.GetSignalMin())
	assert.Equal(t, 0.3, cfg.GetAngleAlpha())
	assert.Equal(t, uint32(200), cfg.GetGuardHoldMs())
	assert.Equal(t, uint16(3600), cfg.GetDutySearch())
	assert.Equal(t, 30*time.Second, cfg.GetChargeDuration())

	gain, offset := cfg.GetCalibration("left")
	assert.Equal(t, 1.25, gain)
	assert.Equal(t, 40.0, offset)

	// Channels not named keep the identity calibration.
	gain, offset = cfg.GetCalibration("right")
	assert.Equal(t, 1.0, gain)
	assert.Equal(t, 0.0, offset)

	// Untouched fields keep their defaults.
	assert.Equal(t, 0.35, cfg.GetMaxAngleStepRad())
	assert.Equal(t, uint32(20), cfg.GetControlPeriodMs())
}

func TestLoadTuningConfigMissing(t *testing.T) {
	_, err := LoadTuningConfig("/nonexistent/path/to/config.json")
	assert.Error(t, err)
}

func TestLoadTuningConfigInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid_config.json")

	invalidJSON := `{
  "signal_min": "invalid"
`
	require.NoError(t, os.WriteFile(configPath, []byte(invalidJSON), 0644))

	_, err := LoadTuningConfig(configPath)
	assert.Error(t, err)
}

func TestLoadTuningConfigRejectsNonJSON(t *testing.T) {
	_, err := LoadTuningConfig("/some/path/config.yaml")
	assert.Error(t, err)
}

func TestLoadTuningConfigRejectsLargeFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "large.json")

	largeData := make([]byte, 2*1024*1024)
	require.NoError(t, os.WriteFile(configPath, largeData, 0644))

	_, err := LoadTuningConfig(configPath)
	assert.Error(t, err)
}

func TestLoadTuningConfigRejectsInvalidValues(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "bad_values.json")

	require.NoError(t, os.WriteFile(configPath, []byte(`{"angle_alpha": 0}`), 0644))

	_, err := LoadTuningConfig(configPath)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	zero16 := uint16(0)
	zero32 := uint32(0)
	bigDeadzone := uint16(5000)

	tests := []struct {
		name    string
		cfg     *TuningConfig
		wantErr bool
	}{
		{name: "empty config is valid", cfg: &TuningConfig{}},
		{
			name: "explicit valid values",
			cfg: &TuningConfig{
				AngleAlpha:           ptrFloat64(1.0),
				SignalDropGuardRatio: ptrFloat64(0),
				GuardHoldMs:          ptrUint32(0),
			},
		},
		{
			name:    "alpha zero",
			cfg:     &TuningConfig{AngleAlpha: ptrFloat64(0)},
			wantErr: true,
		},
		{
			name:    "alpha above one",
			cfg:     &TuningConfig{AngleAlpha: ptrFloat64(1.5)},
			wantErr: true,
		},
		{
			name:    "non-positive max angle step",
			cfg:     &TuningConfig{MaxAngleStepRad: ptrFloat64(-0.1)},
			wantErr: true,
		},
		{
			name:    "drop ratio above one",
			cfg:     &TuningConfig{SignalDropGuardRatio: ptrFloat64(1.2)},
			wantErr: true,
		},
		{
			name:    "negative signal min",
			cfg:     &TuningConfig{SignalMin: ptrFloat64(-1)},
			wantErr: true,
		},
		{
			name: "non-positive calibration gain",
			cfg: &TuningConfig{Calibration: &CalibrationSet{
				Back: &ChannelCalibration{Gain: ptrFloat64(0)},
			}},
			wantErr: true,
		},
		{
			name:    "zero quantize step",
			cfg:     &TuningConfig{DutyQuantizeStep: &zero16},
			wantErr: true,
		},
		{
			name:    "deadzone above max",
			cfg:     &TuningConfig{DutyDeadzone: &bigDeadzone},
			wantErr: true,
		},
		{
			name:    "zero control period",
			cfg:     &TuningConfig{ControlPeriodMs: &zero32},
			wantErr: true,
		},
		{
			name:    "invalid charge duration",
			cfg:     &TuningConfig{ChargeDuration: ptrString("soon")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGetWorkDuration(t *testing.T) {
	tests := []struct {
		name string
		cfg  *TuningConfig
		want time.Duration
	}{
		{name: "5 seconds", cfg: &TuningConfig{WorkDuration: ptrString("5s")}, want: 5 * time.Second},
		{name: "nil pointer returns default", cfg: &TuningConfig{}, want: 3 * time.Second},
		{name: "empty string returns default", cfg: &TuningConfig{WorkDuration: ptrString("")}, want: 3 * time.Second},
		{name: "invalid duration returns default", cfg: &TuningConfig{WorkDuration: ptrString("invalid")}, want: 3 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.GetWorkDuration())
		})
	}
}

func TestLoadDefaultConfigFile(t *testing.T) {
	cfg, err := LoadTuningConfig("../../config/tuning.defaults.json")
	require.NoError(t, err)

	// The defaults file must agree with the compiled-in defaults.
	empty := EmptyTuningConfig()
	assert.Equal(t, empty.GetSignalMin(), cfg.GetSignalMin())
	assert.Equal(t, empty.GetAngleAlpha(), cfg.GetAngleAlpha())
	assert.Equal(t, empty.GetMaxAngleStepRad(), cfg.GetMaxAngleStepRad())
	assert.Equal(t, empty.GetSignalDropGuardRatio(), cfg.GetSignalDropGuardRatio())
	assert.Equal(t, empty.GetSaturationRawThreshold(), cfg.GetSaturationRawThreshold())
	assert.Equal(t, empty.GetGuardHoldMs(), cfg.GetGuardHoldMs())
	assert.Equal(t, empty.GetDutyDeadzone(), cfg.GetDutyDeadzone())
	assert.Equal(t, empty.GetDutyMax(), cfg.GetDutyMax())
	assert.Equal(t, empty.GetDutySearch(), cfg.GetDutySearch())
	assert.Equal(t, empty.GetDutyQuantizeStep(), cfg.GetDutyQuantizeStep())
	assert.Equal(t, empty.GetControlPeriodMs(), cfg.GetControlPeriodMs())
	assert.Equal(t, empty.GetSearchFlipPeriodMs(), cfg.GetSearchFlipPeriodMs())
	assert.Equal(t, empty.GetSignalArrive(), cfg.GetSignalArrive())
	assert.Equal(t, empty.GetChargeDuration(), cfg.GetChargeDuration())
}

func TestLoadMeterConfigFile(t *testing.T) {
	cfg, err := LoadTuningConfig("../../config/tuning.meter.json")
	require.NoError(t, err)

	assert.Equal(t, 800.0, cfg.GetSignalMin())
	assert.True(t, cfg.GetDropoutEnabled())
	assert.Equal(t, 4, cfg.GetDropoutAverage())
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	assert.Equal(t, uint16(3300), cfg.GetDutyDeadzone())
}
