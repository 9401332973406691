package sim

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/beacon-dock/internal/beacon"
	"github.com/banshee-data/beacon-dock/internal/drive"
)

func quietConfig() Config {
	cfg := DefaultConfig()
	cfg.NoiseStdDev = 0
	return cfg
}

// poseAt returns a pose dist metres from the origin that sees the beacon at
// relative bearing (counter-clockwise from forward).
func poseAt(dist, bearing float64) Pose {
	return Pose{Pos: r2.Vec{X: dist}, Heading: beacon.WrapAngle(math.Pi - bearing)}
}

func TestIntensityFacingBeacon(t *testing.T) {
	w := NewWorld(quietConfig(), poseAt(1.0, 0))

	front := w.Intensity(beacon.Front)
	back := w.Intensity(beacon.Back)
	left := w.Intensity(beacon.Left)
	right := w.Intensity(beacon.Right)

	assert.InDelta(t, 0, w.Bearing(), 1e-9)
	assert.Greater(t, front, left)
	assert.InDelta(t, left, right, 1e-9)
	assert.InDelta(t, 15, back, 1e-9, "back channel sees only ambient")

	// On-axis intensity follows the softened inverse square.
	want := 12000/(1+math.Pow(1.0/0.4, 2)) + 15
	assert.InDelta(t, want, front, 1e-9)
}

func TestReadIntensityClamps(t *testing.T) {
	w := NewWorld(quietConfig(), poseAt(0.06, 0))
	assert.Equal(t, uint32(MaxRaw), w.ReadIntensity(beacon.Front))

	w.SetBeacon(r2.Vec{}, false)
	assert.Equal(t, uint32(15), w.ReadIntensity(beacon.Front), "beacon off leaves ambient")
}

func TestNoiseIsReproducible(t *testing.T) {
	a := NewWorld(DefaultConfig(), poseAt(1.0, 0.3))
	b := NewWorld(DefaultConfig(), poseAt(1.0, 0.3))

	var differs bool
	for i := 0; i < 50; i++ {
		va, vb := a.ReadIntensity(beacon.Left), b.ReadIntensity(beacon.Left)
		require.Equal(t, va, vb)
		if va != uint32(math.Round(a.Intensity(beacon.Left))) {
			differs = true
		}
	}
	assert.True(t, differs, "noise should perturb some readings")
}

func TestEstimatedHeadingMirrorsBearing(t *testing.T) {
	for _, bearing := range []float64{-2.5, -1, -0.3, 0.3, 1, 2.5} {
		w := NewWorld(quietConfig(), poseAt(1.2, bearing))
		var cal [beacon.NumChannels]float64
		for _, ch := range beacon.Channels {
			cal[ch] = w.Intensity(ch)
		}
		est := beacon.EstimateSignal(cal, 900)
		assert.True(t, est.Detected)
		assert.InDelta(t, -bearing, est.Theta, 1e-9, "bearing %.2f", bearing)
	}
}

func TestTrackingTurnsTowardBeacon(t *testing.T) {
	m := drive.NewMapper(drive.DefaultMapperConfig())
	for _, bearing := range []float64{-1.2, -0.4, 0.4, 1.2} {
		w := NewWorld(quietConfig(), poseAt(1.2, bearing))
		var cal [beacon.NumChannels]float64
		for _, ch := range beacon.Channels {
			cal[ch] = w.Intensity(ch)
		}
		est := beacon.EstimateSignal(cal, 900)
		w.SetDifferentialSpeed(m.Track(est.Theta))
		w.Step(100 * time.Millisecond)
		assert.Less(t, math.Abs(w.Bearing()), math.Abs(bearing), "bearing %.2f", bearing)
	}
}

func TestKinematics(t *testing.T) {
	cfg := quietConfig()

	t.Run("equal duties drive straight", func(t *testing.T) {
		w := NewWorld(cfg, Pose{Pos: r2.Vec{X: 5}})
		w.SetDifferentialSpeed(4600, 4600)
		w.Step(time.Second)
		p := w.Pose()
		assert.InDelta(t, 5.25, p.Pos.X, 1e-9)
		assert.InDelta(t, 0, p.Pos.Y, 1e-9)
		assert.InDelta(t, 0, p.Heading, 1e-9)
	})

	t.Run("right wheel alone turns counter-clockwise", func(t *testing.T) {
		w := NewWorld(cfg, Pose{Pos: r2.Vec{X: 5}})
		w.SetDifferentialSpeed(0, 3560)
		w.Step(100 * time.Millisecond)
		assert.Greater(t, w.Pose().Heading, 0.0)
	})

	t.Run("below deadzone does not move", func(t *testing.T) {
		w := NewWorld(cfg, Pose{Pos: r2.Vec{X: 5}})
		w.SetDifferentialSpeed(3000, 3000)
		w.Step(time.Second)
		assert.Equal(t, Pose{Pos: r2.Vec{X: 5}}, w.Pose())
	})

	t.Run("stop zeroes duties", func(t *testing.T) {
		w := NewWorld(cfg, Pose{Pos: r2.Vec{X: 5}})
		w.SetDifferentialSpeed(4000, 4000)
		w.Stop()
		l, r := w.Duties()
		assert.Zero(t, l)
		assert.Zero(t, r)
	})

	t.Run("contact stops the agent", func(t *testing.T) {
		w := NewWorld(cfg, Pose{Pos: r2.Vec{X: 0.06}, Heading: math.Pi})
		w.SetDifferentialSpeed(4600, 4600)
		w.Step(time.Second)
		assert.InDelta(t, 0.06, w.Distance(), 1e-9)
	})
}

func TestWheelSpeed(t *testing.T) {
	w := NewWorld(quietConfig(), Pose{})
	assert.Zero(t, w.WheelSpeed(0))
	assert.Zero(t, w.WheelSpeed(3299))
	assert.InDelta(t, 0.03, w.WheelSpeed(3300), 1e-9)
	assert.InDelta(t, 0.25, w.WheelSpeed(4600), 1e-9)
	assert.InDelta(t, 0.25, w.WheelSpeed(6000), 1e-9, "above max saturates")
}

func TestNewWorldPanics(t *testing.T) {
	cfg := quietConfig()
	cfg.WheelBase = 0
	assert.Panics(t, func() { NewWorld(cfg, Pose{}) })

	cfg = quietConfig()
	cfg.DutyDeadzone = cfg.DutyMax
	assert.Panics(t, func() { NewWorld(cfg, Pose{}) })
}
