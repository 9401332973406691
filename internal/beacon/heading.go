package beacon

import (
	"fmt"
	"math"
)

// WrapAngle normalises a into (-π, π]. Non-finite input maps to 0.
func WrapAngle(a float64) float64 {
	if math.IsNaN(a) || math.IsInf(a, 0) {
		return 0
	}
	w := math.Remainder(a, 2*math.Pi)
	if w <= -math.Pi {
		w += 2 * math.Pi
	}
	return w
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// HeadingFilter smooths the bearing with an exponential filter applied in
// angle-delta space, limiting each step to MaxStep before scaling by Alpha.
type HeadingFilter struct {
	alpha       float64
	maxStep     float64
	theta       float64
	initialized bool
}

// NewHeadingFilter returns an uninitialised filter. It panics unless alpha is
// in (0, 1] and maxStep is positive.
func NewHeadingFilter(alpha, maxStep float64) *HeadingFilter {
	if !(alpha > 0 && alpha <= 1) {
		panic(fmt.Sprintf("beacon: angle alpha must be in (0, 1], got %v", alpha))
	}
	if !(maxStep > 0) {
		panic(fmt.Sprintf("beacon: max angle step must be positive, got %v", maxStep))
	}
	return &HeadingFilter{alpha: alpha, maxStep: maxStep}
}

// Update folds one instantaneous bearing into the estimate and returns the
// filtered heading.
//
// The first detected bearing seeds the filter directly, frozen or not. After
// that the heading holds while frozen or while the signal is lost. Before any
// detection the heading is zero.
func (h *HeadingFilter) Update(rawTheta float64, detected, frozen bool) float64 {
	switch {
	case !detected && !h.initialized:
		h.theta = 0
	case !detected:
		// hold
	case !h.initialized:
		h.theta = WrapAngle(rawTheta)
		h.initialized = true
	case frozen:
		// hold
	default:
		delta := WrapAngle(rawTheta - h.theta)
		delta = clamp(delta, -h.maxStep, h.maxStep)
		h.theta = WrapAngle(h.theta + h.alpha*delta)
	}
	return h.theta
}

// Theta returns the filtered heading.
func (h *HeadingFilter) Theta() float64 { return h.theta }

// Initialized reports whether a detected bearing has seeded the filter.
func (h *HeadingFilter) Initialized() bool { return h.initialized }

// Reset forgets the heading.
func (h *HeadingFilter) Reset() {
	h.theta = 0
	h.initialized = false
}
