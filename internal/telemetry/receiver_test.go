package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/beacon-dock/internal/timeutil"
)

var mesh0Time = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type chanSource struct {
	ch           chan string
	unsubscribed bool
}

func (c *chanSource) Subscribe() (string, chan string) { return "one", c.ch }
func (c *chanSource) Unsubscribe(string)               { c.unsubscribed = true }

func TestReceiver_HandleLine(t *testing.T) {
	clock := timeutil.NewMockClock(mesh0Time)
	r := NewReceiver(clock, "", 115200)

	var handled []ParsedFrame
	r.OnFrame(func(f ParsedFrame) { handled = append(handled, f) })

	_, ok := r.HandleLine("   ")
	assert.False(t, ok)
	_, ok = r.HandleLine("Setup complete")
	assert.False(t, ok)
	f, ok := r.HandleLine(sampleNav)
	require.True(t, ok)
	assert.Equal(t, uint32(1234), f.TMs)

	st := r.Status()
	assert.Equal(t, uint64(2), st.RawLinesReceived)
	assert.Equal(t, uint64(1), st.FramesReceived)
	require.NotNil(t, st.LastLineAtMs)
	assert.Equal(t, mesh0Time.UnixMilli(), *st.LastLineAtMs)
	assert.Nil(t, st.ConfiguredPath)
	assert.Equal(t, 115200, st.BaudRate)

	assert.Len(t, handled, 1)
	assert.Len(t, r.RecentFrames(10), 1)
	raw := r.RecentRaw(10)
	require.Len(t, raw, 2)
	assert.False(t, raw[0].Parsed)
	assert.True(t, raw[1].Parsed)
}

func TestReceiver_SubscribersGetEvents(t *testing.T) {
	r := NewReceiver(timeutil.NewMockClock(mesh0Time), "/dev/ttyACM0", 115200)
	id, events := r.Subscribe()

	r.HandleLine(sampleNav)
	r.SetConnected("/dev/ttyACM0")

	var kinds []string
	for i := 0; i < 3; i++ {
		ev := <-events
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []string{EventRaw, EventTelemetry, EventStatus}, kinds)

	r.Unsubscribe(id)
	_, open := <-events
	assert.False(t, open)
}

func TestReceiver_ConnectionStatus(t *testing.T) {
	r := NewReceiver(timeutil.NewMockClock(mesh0Time), "/dev/ttyUSB0", 9600)
	r.SetConnected("/dev/ttyUSB0")
	st := r.Status()
	assert.True(t, st.Connected)
	require.NotNil(t, st.PortPath)
	assert.Equal(t, "/dev/ttyUSB0", *st.PortPath)

	r.SetDisconnected(errors.New("device unplugged"))
	st = r.Status()
	assert.False(t, st.Connected)
	assert.Nil(t, st.PortPath)
	require.NotNil(t, st.LastError)
	assert.Equal(t, "device unplugged", *st.LastError)

	r.SetConnected("/dev/ttyUSB0")
	assert.Nil(t, r.Status().LastError)
}

func TestReceiver_Consume(t *testing.T) {
	r := NewReceiver(timeutil.NewMockClock(mesh0Time), "", 115200)
	src := &chanSource{ch: make(chan string, 2)}
	src.ch <- sampleNav
	src.ch <- "log:" + sampleNav
	close(src.ch)

	require.NoError(t, r.Consume(context.Background(), src))
	assert.True(t, src.unsubscribed)
	assert.Equal(t, uint64(2), r.Status().FramesReceived)
}

func TestReceiver_ConsumeStopsOnCancel(t *testing.T) {
	r := NewReceiver(timeutil.NewMockClock(mesh0Time), "", 115200)
	src := &chanSource{ch: make(chan string)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, r.Consume(ctx, src), context.Canceled)
}
