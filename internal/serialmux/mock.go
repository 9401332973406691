package serialmux

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"
	"time"
)

// MockSerialPort implements SerialPorter for development without hardware.
// Reads come from a pipe fed by a replay goroutine; writes are kept so
// commands can be inspected.
type MockSerialPort struct {
	io.Reader
	mu      sync.Mutex
	written bytes.Buffer
	closed  bool
	closeFn func() error
}

func (m *MockSerialPort) Write(p []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, errors.New("serial port closed")
	}
	return m.written.Write(p)
}

// Written returns everything written to the port so far.
func (m *MockSerialPort) Written() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.written.String()
}

func (m *MockSerialPort) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()
	return m.closeFn()
}

// NewMockSerialMux creates a SerialMux whose port replays lines in a loop,
// one line every interval, until the mux is closed.
func NewMockSerialMux(lines []string, interval time.Duration) *SerialMux[*MockSerialPort] {
	r, w := io.Pipe()
	done := make(chan struct{})
	var once sync.Once
	mockPort := &MockSerialPort{
		Reader: r,
		closeFn: func() error {
			once.Do(func() { close(done) })
			return r.Close()
		},
	}

	go func() {
		defer w.Close()
		if len(lines) == 0 {
			<-done
			return
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for i := 0; ; i = (i + 1) % len(lines) {
			select {
			case <-done:
				return
			case <-ticker.C:
			}
			if _, err := io.WriteString(w, strings.TrimRight(lines[i], "\r\n")+"\n"); err != nil {
				return
			}
		}
	}()

	return NewSerialMux(mockPort)
}
