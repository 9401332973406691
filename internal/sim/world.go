// Package sim is a planar beacon world for exercising the guidance loop
// without hardware: a point beacon, a differential-drive agent, and a model
// of the four directional intensity sensors.
package sim

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/banshee-data/beacon-dock/internal/beacon"
)

// MaxRaw is the full-scale reading of the 12-bit sensor ADC.
const MaxRaw = 4095

// Config describes the beacon, the sensors and the drive train.
type Config struct {
	// PeakIntensity is the on-axis reading at zero distance, before clamping.
	PeakIntensity float64
	// RefDistance is the distance in metres at which on-axis intensity halves.
	RefDistance float64
	// Ambient is added to every channel regardless of the beacon.
	Ambient float64
	// NoiseStdDev is the standard deviation of per-read Gaussian noise.
	NoiseStdDev float64
	// ChannelAngles are the sensor axes in radians, counter-clockwise from
	// the agent's forward axis. The guidance speeds up the left wheel for a
	// beacon on the left channel, so that channel faces -π/2.
	ChannelAngles [beacon.NumChannels]float64

	// WheelBase is the distance between the wheels in metres.
	WheelBase float64
	// MinWheelSpeed and MaxWheelSpeed are the wheel speeds in m/s at the
	// deadzone duty and at the maximum duty.
	MinWheelSpeed float64
	MaxWheelSpeed float64
	DutyDeadzone  uint16
	DutyMax       uint16

	// ContactDistance is how close the agent's centre may get to the beacon.
	ContactDistance float64

	// Seed makes sensor noise reproducible.
	Seed uint64
}

// DefaultConfig returns a world matched to the default tuning: the beacon is
// visible from a couple of metres and the arrival threshold is reached at
// roughly 0.7 m.
func DefaultConfig() Config {
	return Config{
		PeakIntensity: 12000,
		RefDistance:   0.4,
		Ambient:       15,
		NoiseStdDev:   6,
		ChannelAngles: [beacon.NumChannels]float64{
			beacon.Front: 0,
			beacon.Back:  math.Pi,
			beacon.Left:  -math.Pi / 2,
			beacon.Right: math.Pi / 2,
		},
		WheelBase:       0.12,
		MinWheelSpeed:   0.03,
		MaxWheelSpeed:   0.25,
		DutyDeadzone:    3300,
		DutyMax:         4600,
		ContactDistance: 0.05,
		Seed:            1,
	}
}

// Pose is the agent's position in metres and heading in radians,
// counter-clockwise from the world x axis.
type Pose struct {
	Pos     r2.Vec
	Heading float64
}

// World holds the beacon and the agent. It implements the guidance sensor
// and actuator interfaces and is safe for concurrent use.
type World struct {
	cfg Config

	mu       sync.Mutex
	beacon   r2.Vec
	beaconOn bool
	pose     Pose
	left     uint16
	right    uint16
	noise    distuv.Normal
}

// NewWorld places the beacon at the origin and the agent at start.
func NewWorld(cfg Config, start Pose) *World {
	if cfg.RefDistance <= 0 || cfg.WheelBase <= 0 {
		panic("sim: reference distance and wheel base must be positive")
	}
	if cfg.DutyDeadzone >= cfg.DutyMax {
		panic("sim: duty deadzone must be below duty max")
	}
	return &World{
		cfg:      cfg,
		beaconOn: true,
		pose:     start,
		noise: distuv.Normal{
			Mu:    0,
			Sigma: cfg.NoiseStdDev,
			Src:   rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15),
		},
	}
}

// StartFacingAway returns a pose dist metres from the origin on the x axis,
// facing directly away from it.
func StartFacingAway(dist float64) Pose {
	return Pose{Pos: r2.Vec{X: dist}, Heading: 0}
}

// SetBeacon moves the beacon and switches it on or off.
func (w *World) SetBeacon(pos r2.Vec, on bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.beacon = pos
	w.beaconOn = on
}

// Pose returns the agent's current pose.
func (w *World) Pose() Pose {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pose
}

// SetPose teleports the agent.
func (w *World) SetPose(p Pose) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pose = p
}

// Distance returns the distance from the agent to the beacon.
func (w *World) Distance() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return r2.Norm(r2.Sub(w.beacon, w.pose.Pos))
}

// Bearing returns the beacon direction relative to the agent's forward axis,
// counter-clockwise positive, in (-π, π].
func (w *World) Bearing() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bearingLocked()
}

func (w *World) bearingLocked() float64 {
	rel := r2.Sub(w.beacon, w.pose.Pos)
	return beacon.WrapAngle(math.Atan2(rel.Y, rel.X) - w.pose.Heading)
}

// Duties returns the last commanded duty pair.
func (w *World) Duties() (left, right uint16) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.left, w.right
}

// ReadIntensity returns a noisy, clamped reading of one channel.
func (w *World) ReadIntensity(ch beacon.Channel) uint32 {
	w.mu.Lock()
	defer w.mu.Unlock()
	v := w.intensityLocked(ch) + w.noise.Rand()
	return uint32(math.Round(math.Max(0, math.Min(MaxRaw, v))))
}

// Intensity returns the noise-free, unclamped intensity of one channel.
func (w *World) Intensity(ch beacon.Channel) float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.intensityLocked(ch)
}

// intensityLocked uses a cardioid lobe around the channel axis and an
// inverse-square falloff softened at RefDistance.
func (w *World) intensityLocked(ch beacon.Channel) float64 {
	if !w.beaconOn {
		return w.cfg.Ambient
	}
	d := r2.Norm(r2.Sub(w.beacon, w.pose.Pos))
	lobe := 0.5 * (1 + math.Cos(w.bearingLocked()-w.cfg.ChannelAngles[ch]))
	ratio := d / w.cfg.RefDistance
	return w.cfg.PeakIntensity*lobe/(1+ratio*ratio) + w.cfg.Ambient
}

// SetDifferentialSpeed latches a duty pair until the next call.
func (w *World) SetDifferentialSpeed(left, right uint16) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.left, w.right = left, right
}

// Stop zeroes both duties.
func (w *World) Stop() {
	w.SetDifferentialSpeed(0, 0)
}

// WheelSpeed converts a duty to a wheel speed in m/s. Duties below the
// deadzone do not move the wheel.
func (w *World) WheelSpeed(duty uint16) float64 {
	if duty < w.cfg.DutyDeadzone {
		return 0
	}
	duty = min(duty, w.cfg.DutyMax)
	frac := float64(duty-w.cfg.DutyDeadzone) / float64(w.cfg.DutyMax-w.cfg.DutyDeadzone)
	return w.cfg.MinWheelSpeed + frac*(w.cfg.MaxWheelSpeed-w.cfg.MinWheelSpeed)
}

// Step integrates the drive kinematics over dt using the latched duties.
// The agent stops at ContactDistance rather than pass through the beacon.
func (w *World) Step(dt time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	sec := dt.Seconds()
	vl, vr := w.WheelSpeed(w.left), w.WheelSpeed(w.right)
	v := (vl + vr) / 2
	omega := (vr - vl) / w.cfg.WheelBase

	mid := w.pose.Heading + omega*sec/2
	next := r2.Add(w.pose.Pos, r2.Scale(v*sec, r2.Vec{X: math.Cos(mid), Y: math.Sin(mid)}))
	if segmentDistance(w.beacon, w.pose.Pos, next) >= w.cfg.ContactDistance {
		w.pose.Pos = next
	}
	w.pose.Heading = beacon.WrapAngle(w.pose.Heading + omega*sec)
}

// segmentDistance returns the distance from p to the segment a-b.
func segmentDistance(p, a, b r2.Vec) float64 {
	ab := r2.Sub(b, a)
	l2 := r2.Dot(ab, ab)
	if l2 == 0 {
		return r2.Norm(r2.Sub(p, a))
	}
	t := math.Max(0, math.Min(1, r2.Dot(r2.Sub(p, a), ab)/l2))
	return r2.Norm(r2.Sub(p, r2.Add(a, r2.Scale(t, ab))))
}
