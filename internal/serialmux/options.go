package serialmux

import (
	"fmt"
	"strconv"
	"strings"

	"go.bug.st/serial"
)

// DefaultBaudRate is the rate the docking agent and coordinator print at.
const DefaultBaudRate = 115200

// DefaultFraming is the framing both firmwares use.
const DefaultFraming = "8N1"

var parities = map[string]serial.Parity{
	"N": serial.NoParity,
	"E": serial.EvenParity,
	"O": serial.OddParity,
}

// PortOptions are the line settings for a real serial port. Zero fields take
// the firmware defaults.
type PortOptions struct {
	BaudRate int    `json:"baud_rate"`
	DataBits int    `json:"data_bits"`
	StopBits int    `json:"stop_bits"`
	Parity   string `json:"parity"`
}

// ParsePortOptions parses a "<baud>[,<framing>]" spec such as "115200" or
// "9600,7E2", as accepted by the -serial flags.
func ParsePortOptions(spec string) (PortOptions, error) {
	baud, framing, hasFraming := strings.Cut(strings.TrimSpace(spec), ",")
	var o PortOptions
	if baud != "" {
		n, err := strconv.Atoi(baud)
		if err != nil || n <= 0 {
			return o, fmt.Errorf("invalid baud rate %q", baud)
		}
		o.BaudRate = n
	}
	if hasFraming {
		f := strings.ToUpper(strings.TrimSpace(framing))
		if len(f) != 3 || f[0] < '5' || f[0] > '8' || (f[2] != '1' && f[2] != '2') {
			return o, fmt.Errorf("invalid framing %q, expected e.g. 8N1", framing)
		}
		o.DataBits = int(f[0] - '0')
		o.Parity = f[1:2]
		o.StopBits = int(f[2] - '0')
	}
	return o.Normalize()
}

// Normalize fills in defaults and validates the options. Parity accepts
// N/E/O or the words none/even/odd in any case.
func (o PortOptions) Normalize() (PortOptions, error) {
	if o.BaudRate <= 0 {
		o.BaudRate = DefaultBaudRate
	}
	if o.DataBits == 0 {
		o.DataBits = 8
	}
	if o.DataBits < 5 || o.DataBits > 8 {
		return o, fmt.Errorf("invalid data bits %d: must be between 5 and 8", o.DataBits)
	}
	if o.StopBits == 0 {
		o.StopBits = 1
	}
	if o.StopBits != 1 && o.StopBits != 2 {
		return o, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", o.StopBits)
	}

	p := strings.ToUpper(strings.TrimSpace(o.Parity))
	if p == "" {
		p = "N"
	}
	if len(p) > 1 {
		switch p {
		case "NONE", "EVEN", "ODD":
			p = p[:1]
		}
	}
	if _, ok := parities[p]; !ok {
		return o, fmt.Errorf("unsupported parity %q: expected N, E, or O", o.Parity)
	}
	o.Parity = p
	return o, nil
}

// String renders normalized options as "<baud> <framing>", e.g. "115200 8N1".
func (o PortOptions) String() string {
	n, err := o.Normalize()
	if err != nil {
		return fmt.Sprintf("invalid(%d %d%s%d)", o.BaudRate, o.DataBits, o.Parity, o.StopBits)
	}
	return fmt.Sprintf("%d %d%s%d", n.BaudRate, n.DataBits, n.Parity, n.StopBits)
}

// Equal reports whether both options describe the same line settings.
func (o PortOptions) Equal(other PortOptions) bool {
	a, errA := o.Normalize()
	b, errB := other.Normalize()
	return errA == nil && errB == nil && a == b
}

// SerialMode converts the options into the go.bug.st/serial mode.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	n, err := o.Normalize()
	if err != nil {
		return nil, err
	}
	mode := &serial.Mode{
		BaudRate: n.BaudRate,
		DataBits: n.DataBits,
		Parity:   parities[n.Parity],
		StopBits: serial.OneStopBit,
	}
	if n.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}
	return mode, nil
}
