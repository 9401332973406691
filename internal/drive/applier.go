package drive

// Actuator drives the two wheels. Duties are already quantized into the
// device range.
type Actuator interface {
	SetDifferentialSpeed(left, right uint16)
	Stop()
}

// DutyApplier forwards duty pairs to an Actuator only when they change.
type DutyApplier struct {
	act    Actuator
	mapper *Mapper
	left   uint16
	right  uint16
}

// NewDutyApplier wraps act.
func NewDutyApplier(act Actuator, m *Mapper) *DutyApplier {
	return &DutyApplier{act: act, mapper: m}
}

// Apply quantizes the pair and sends it if either side differs from the
// last applied value. It reports whether the actuator was written.
func (a *DutyApplier) Apply(left, right uint16) bool {
	left = a.mapper.Quantize(left)
	right = a.mapper.Quantize(right)
	if left == a.left && right == a.right {
		return false
	}
	a.act.SetDifferentialSpeed(left, right)
	a.left, a.right = left, right
	return true
}

// Last returns the last applied pair.
func (a *DutyApplier) Last() (left, right uint16) { return a.left, a.right }

// Moving reports whether the last applied pair drives either wheel.
func (a *DutyApplier) Moving() bool { return a.left != 0 || a.right != 0 }

// Stop halts the actuator and forgets the applied pair.
func (a *DutyApplier) Stop() {
	a.act.Stop()
	a.left, a.right = 0, 0
}

// Forget clears the applied pair without touching the actuator.
func (a *DutyApplier) Forget() { a.left, a.right = 0, 0 }
