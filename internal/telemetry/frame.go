// Package telemetry defines the line protocol the docking agent and the
// beacon meter print, and the receiving side that parses, buffers and fans
// out those lines.
package telemetry

import (
	"fmt"

	"github.com/banshee-data/beacon-dock/internal/beacon"
	"github.com/banshee-data/beacon-dock/internal/units"
)

// Line prefixes.
const (
	NavPrefix      = "beacon_nav"
	WirelessPrefix = "wireless_log"
	MeshLogPrefix  = "log:"
)

// Column headers printed once at start-up.
const (
	NavHeader      = "beacon_nav,t_ms,mode,raw_f,raw_b,raw_l,raw_r,A_F,A_B,A_L,A_R,theta_deg,S,detected,duty_l,duty_r"
	WirelessHeader = "wireless_log,from,t_ms,mode,raw_f,raw_b,raw_l,raw_r,A_F,A_B,A_L,A_R,theta_deg,S,detected,duty_l,duty_r"
	MeterHeader    = "t_ms,raw_f,raw_b,raw_l,raw_r,A_F,A_B,A_L,A_R,vx,vy,theta_rad,theta_deg,S,detected"
)

// Navigation modes as they appear on the wire.
const (
	ModeSearch = "search"
	ModeTrack  = "track"
)

// Frame is one logged navigation tick.
type Frame struct {
	TimestampMs uint32
	Mode        string
	Raw         [beacon.NumChannels]uint32
	Calibrated  [beacon.NumChannels]float64
	Theta       float64 // filtered heading, radians
	TotalSignal float64
	Detected    bool
	DutyLeft    uint16
	DutyRight   uint16
}

// NewFrame builds a frame from a tracker state and the last applied duties.
func NewFrame(st beacon.State, mode string, left, right uint16) Frame {
	return Frame{
		TimestampMs: st.TimestampMs,
		Mode:        mode,
		Raw:         st.Raw,
		Calibrated:  st.Calibrated,
		Theta:       st.FilteredTheta,
		TotalSignal: st.TotalSignal,
		Detected:    st.Detected,
		DutyLeft:    left,
		DutyRight:   right,
	}
}

// Format renders the frame as a beacon_nav line without a trailing newline.
// Field order is fixed; downstream parsers index columns by position.
func (f Frame) Format() string {
	return fmt.Sprintf("%s,%d,%s,%d,%d,%d,%d,%.1f,%.1f,%.1f,%.1f,%.2f,%.1f,%d,%d,%d",
		NavPrefix,
		f.TimestampMs,
		f.Mode,
		f.Raw[beacon.Front], f.Raw[beacon.Back], f.Raw[beacon.Left], f.Raw[beacon.Right],
		f.Calibrated[beacon.Front], f.Calibrated[beacon.Back], f.Calibrated[beacon.Left], f.Calibrated[beacon.Right],
		units.ToDegrees(f.Theta),
		f.TotalSignal,
		boolDigit(f.Detected),
		f.DutyLeft,
		f.DutyRight,
	)
}

// FormatWireless renders a beacon_nav payload as the coordinator relays it
// after receiving it from node from.
func FormatWireless(from uint32, payload string) string {
	return fmt.Sprintf("%s,%d,%s", WirelessPrefix, from, payload)
}

// FormatMeter renders a tracker state as a beacon meter CSV row.
func FormatMeter(st beacon.State) string {
	return fmt.Sprintf("%d,%d,%d,%d,%d,%.1f,%.1f,%.1f,%.1f,%.1f,%.1f,%.4f,%.2f,%.1f,%d",
		st.TimestampMs,
		st.Raw[beacon.Front], st.Raw[beacon.Back], st.Raw[beacon.Left], st.Raw[beacon.Right],
		st.Calibrated[beacon.Front], st.Calibrated[beacon.Back], st.Calibrated[beacon.Left], st.Calibrated[beacon.Right],
		st.VX, st.VY,
		st.FilteredTheta,
		units.ToDegrees(st.FilteredTheta),
		st.TotalSignal,
		boolDigit(st.Detected),
	)
}

func boolDigit(b bool) int {
	if b {
		return 1
	}
	return 0
}
