package serialmux

import "io"

// SerialPorter defines the minimal interface needed for a serial port.
// This abstraction enables unit testing without real serial hardware.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}

// Opener opens the serial port at path.
type Opener func(path string, opts PortOptions) (SerialPorter, error)

// PortLister enumerates the serial ports present on the host.
type PortLister func() ([]string, error)
