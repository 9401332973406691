package telemetry

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// Sink receives navigation frames.
type Sink interface {
	Emit(Frame) error
}

// WriterSink writes each frame as a beacon_nav line, for example to stdout
// or a serial port.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink returns a sink writing to w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Emit writes one line.
func (s *WriterSink) Emit(f Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := io.WriteString(s.w, f.Format()+"\n"); err != nil {
		return fmt.Errorf("write telemetry line: %w", err)
	}
	return nil
}

// Messenger sends a text message to a mesh node.
type Messenger interface {
	Unicast(to uint32, msg string) error
}

// MeshLogSink forwards frames to the coordinator node with the log: prefix,
// which the coordinator prints as a wireless_log line.
type MeshLogSink struct {
	mesh Messenger
	to   uint32
}

// NewMeshLogSink returns a sink sending to node to.
func NewMeshLogSink(mesh Messenger, to uint32) *MeshLogSink {
	return &MeshLogSink{mesh: mesh, to: to}
}

// Emit sends one message.
func (s *MeshLogSink) Emit(f Frame) error {
	if err := s.mesh.Unicast(s.to, MeshLogPrefix+f.Format()); err != nil {
		return fmt.Errorf("unicast telemetry to %d: %w", s.to, err)
	}
	return nil
}

// MultiSink emits to every sink and joins their errors.
type MultiSink []Sink

// Emit forwards f to all sinks, even when one fails.
func (m MultiSink) Emit(f Frame) error {
	var errs []error
	for _, s := range m {
		if err := s.Emit(f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Frame) error

// Emit calls fn.
func (fn SinkFunc) Emit(f Frame) error { return fn(f) }
