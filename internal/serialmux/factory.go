package serialmux

import (
	"errors"
	"regexp"

	"go.bug.st/serial"
)

// ErrNoPort is returned when no serial port is configured or discovered.
var ErrNoPort = errors.New("no serial port found")

// preferredPort matches the device names USB serial adapters usually get.
var preferredPort = regexp.MustCompile(`(?i)(tty\.usb|ttyACM|ttyUSB|cu\.usb|COM\d+)`)

// OpenRealPort opens a go.bug.st/serial port. It is the Opener used outside
// tests.
func OpenRealPort(path string, opts PortOptions) (SerialPorter, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	return serial.Open(path, mode)
}

// ListRealPorts lists the host's serial ports.
func ListRealPorts() ([]string, error) {
	return serial.GetPortsList()
}

// DiscoverPort picks the first port that looks like a USB serial adapter,
// falling back to the first port listed.
func DiscoverPort(list PortLister) (string, error) {
	ports, err := list()
	if err != nil {
		return "", err
	}
	for _, p := range ports {
		if preferredPort.MatchString(p) {
			return p, nil
		}
	}
	if len(ports) > 0 {
		return ports[0], nil
	}
	return "", ErrNoPort
}
