// Package docking sequences an agent's charge cycle: work, drive to the
// station, wait for a slot, charge, and leave again.
package docking

import "fmt"

// Phase is one step of the charge cycle.
type Phase int

const (
	Work Phase = iota
	ToCharge
	WaitCharge
	IntoCharge
	Charge
	ExitCharge

	numPhases
)

func (p Phase) String() string {
	switch p {
	case Work:
		return "work"
	case ToCharge:
		return "to_charge"
	case WaitCharge:
		return "wait_charge"
	case IntoCharge:
		return "into_charge"
	case Charge:
		return "charge"
	case ExitCharge:
		return "exit_charge"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Color is a status light colour.
type Color int

const (
	Off Color = iota
	Red
	Yellow
	Green
)

func (c Color) String() string {
	switch c {
	case Off:
		return "off"
	case Red:
		return "red"
	case Yellow:
		return "yellow"
	case Green:
		return "green"
	default:
		return fmt.Sprintf("color(%d)", int(c))
	}
}
