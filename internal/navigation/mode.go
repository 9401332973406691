package navigation

import (
	"fmt"

	"github.com/banshee-data/beacon-dock/internal/telemetry"
)

// Mode is the supervisor's navigation state.
type Mode int

const (
	Idle Mode = iota
	Searching
	Tracking
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case Searching:
		return telemetry.ModeSearch
	case Tracking:
		return telemetry.ModeTrack
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}
