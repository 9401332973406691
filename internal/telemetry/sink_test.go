package telemetry

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMesh struct {
	to   []uint32
	msgs []string
	err  error
}

func (m *fakeMesh) Unicast(to uint32, msg string) error {
	m.to = append(m.to, to)
	m.msgs = append(m.msgs, msg)
	return m.err
}

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewWriterSink(&buf)
	f := Frame{TimestampMs: 7, Mode: ModeSearch}
	require.NoError(t, s.Emit(f))
	require.NoError(t, s.Emit(f))
	assert.Equal(t, f.Format()+"\n"+f.Format()+"\n", buf.String())
}

func TestMeshLogSink(t *testing.T) {
	mesh := &fakeMesh{}
	s := NewMeshLogSink(mesh, 4200495964)
	f := Frame{TimestampMs: 7, Mode: ModeTrack}
	require.NoError(t, s.Emit(f))
	assert.Equal(t, []uint32{4200495964}, mesh.to)
	assert.Equal(t, "log:"+f.Format(), mesh.msgs[0])

	// What the coordinator relays parses back as a wireless frame.
	_, ok := ParseLine(mesh.msgs[0], mesh0Time)
	assert.True(t, ok)
}

func TestMultiSink_EmitsToAllAndJoinsErrors(t *testing.T) {
	failing := &fakeMesh{err: errors.New("radio down")}
	var buf bytes.Buffer
	ms := MultiSink{NewMeshLogSink(failing, 1), NewWriterSink(&buf)}

	err := ms.Emit(Frame{Mode: ModeSearch})
	require.Error(t, err)
	assert.ErrorContains(t, err, "radio down")
	assert.NotEmpty(t, buf.String())
}

func TestSinkFunc(t *testing.T) {
	var got Frame
	s := SinkFunc(func(f Frame) error { got = f; return nil })
	require.NoError(t, s.Emit(Frame{TimestampMs: 3}))
	assert.Equal(t, uint32(3), got.TimestampMs)
}
