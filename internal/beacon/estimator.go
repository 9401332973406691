package beacon

import "math"

// Estimate is the instantaneous, unsmoothed bearing estimate of one tick.
type Estimate struct {
	VX          float64
	VY          float64
	Theta       float64
	TotalSignal float64
	Detected    bool
}

// EstimateSignal combines four calibrated intensities, indexed by Channel.
// Imbalance between opposed sensors encodes the bearing; their sum encodes
// strength.
func EstimateSignal(cal [NumChannels]float64, signalMin float64) Estimate {
	vx := cal[Front] - cal[Back]
	vy := cal[Left] - cal[Right]
	total := cal[Front] + cal[Back] + cal[Left] + cal[Right]
	return Estimate{
		VX:          vx,
		VY:          vy,
		Theta:       math.Atan2(vy, vx),
		TotalSignal: total,
		Detected:    total >= signalMin,
	}
}
