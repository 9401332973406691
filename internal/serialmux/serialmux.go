// Package serialmux shares one serial port between many readers. Every line
// the device prints is fanned out to all subscribers, and commands from any
// of them are written back to the device one at a time.
package serialmux

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
)

var ErrWriteFailed = errors.New("short write to serial port")

// SerialMuxInterface is what the receiver and the HTTP server need from a
// port, whether real, replayed or absent.
type SerialMuxInterface interface {
	// Subscribe returns an id and a channel of received lines. The channel
	// is closed by Unsubscribe or Close.
	Subscribe() (string, chan string)
	Unsubscribe(string)
	// SendCommand writes one newline-terminated command.
	SendCommand(string) error
	// Monitor reads the port until it fails or ctx is done.
	Monitor(context.Context) error
	Close() error
	// AttachAdminRoutes serves the command console under /debug/.
	AttachAdminRoutes(*http.ServeMux)
}

// SerialMux multiplexes a single port of type T.
type SerialMux[T SerialPorter] struct {
	port    T
	subs    *fanout
	writeMu sync.Mutex
}

func NewSerialMux[T SerialPorter](port T) *SerialMux[T] {
	return &SerialMux[T]{port: port, subs: newFanout(subscriberBuffer)}
}

func (s *SerialMux[T]) Subscribe() (string, chan string) { return s.subs.subscribe() }
func (s *SerialMux[T]) Unsubscribe(id string)            { s.subs.unsubscribe(id) }

func (s *SerialMux[T]) SendCommand(command string) error {
	if !strings.HasSuffix(command, "\n") {
		command += "\n"
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	n, err := s.port.Write([]byte(command))
	if err != nil {
		return err
	}
	if n != len(command) {
		return ErrWriteFailed
	}
	return nil
}

// Monitor scans the port line by line, strips CRLF endings and publishes
// each line. It returns nil at EOF or after Close, the scan error if the
// read fails, and ctx.Err() on cancellation.
func (s *SerialMux[T]) Monitor(ctx context.Context) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)

	// Scan blocks in Read, so it runs apart from the select below.
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(s.port)
		for sc.Scan() {
			select {
			case lines <- strings.TrimRight(sc.Text(), "\r"):
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if s.subs.isShut() {
				return nil
			}
			s.subs.publish(line)
		}
	}
}

// Close closes every subscriber and then the port.
func (s *SerialMux[T]) Close() error {
	s.subs.shutdown()
	return s.port.Close()
}

func (s *SerialMux[T]) AttachAdminRoutes(mux *http.ServeMux) {
	attachAdminRoutes(mux, s)
}
