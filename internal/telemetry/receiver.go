package telemetry

import (
	"context"
	"strings"
	"sync"

	"github.com/banshee-data/beacon-dock/internal/timeutil"
	"github.com/google/uuid"
)

// MaxRawBuffer is how many recent raw lines the receiver keeps.
const MaxRawBuffer = 500

// Event kinds delivered to subscribers.
const (
	EventStatus    = "status"
	EventTelemetry = "telemetry"
	EventRaw       = "raw"
)

// RawLine is a received line, whether or not it parsed as a frame.
type RawLine struct {
	ReceivedAtMs int64  `json:"receivedAtMs"`
	Line         string `json:"line"`
	Parsed       bool   `json:"parsed"`
}

// Status describes the receiver's serial link.
type Status struct {
	ConfiguredPath   *string `json:"configuredPath"`
	PortPath         *string `json:"portPath"`
	BaudRate         int     `json:"baudRate"`
	Connected        bool    `json:"connected"`
	LastError        *string `json:"lastError"`
	LastLineAtMs     *int64  `json:"lastLineAtMs"`
	FramesReceived   uint64  `json:"framesReceived"`
	RawLinesReceived uint64  `json:"rawLinesReceived"`
}

// Event is one update pushed to subscribers. Data is a Status, ParsedFrame
// or RawLine according to Kind.
type Event struct {
	Kind string
	Data any
}

// LineSource is anything that fans out received lines, such as a serial mux.
type LineSource interface {
	Subscribe() (string, chan string)
	Unsubscribe(string)
}

// Receiver parses incoming lines, keeps the recent frames and raw lines, and
// pushes updates to subscribers.
type Receiver struct {
	clock  timeutil.Clock
	frames *Buffer[ParsedFrame]
	raw    *Buffer[RawLine]

	mu       sync.Mutex
	status   Status
	subs     map[string]chan Event
	handlers []func(ParsedFrame)
}

// NewReceiver returns a receiver for a link configured with path (empty when
// the port is discovered) and baud rate.
func NewReceiver(clock timeutil.Clock, configuredPath string, baudRate int) *Receiver {
	r := &Receiver{
		clock:  clock,
		frames: NewBuffer[ParsedFrame](MaxFrameBuffer),
		raw:    NewBuffer[RawLine](MaxRawBuffer),
		subs:   make(map[string]chan Event),
	}
	r.status.BaudRate = baudRate
	if configuredPath != "" {
		r.status.ConfiguredPath = &configuredPath
	}
	return r
}

// OnFrame registers fn to be called synchronously for every parsed frame.
func (r *Receiver) OnFrame(fn func(ParsedFrame)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, fn)
}

// HandleLine processes one received line. Blank lines are ignored.
func (r *Receiver) HandleLine(line string) (ParsedFrame, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return ParsedFrame{}, false
	}

	now := r.clock.Now()
	frame, ok := ParseLine(line, now)
	raw := RawLine{ReceivedAtMs: now.UnixMilli(), Line: line, Parsed: ok}
	r.raw.Add(raw)

	r.mu.Lock()
	atMs := now.UnixMilli()
	r.status.LastLineAtMs = &atMs
	r.status.RawLinesReceived++
	if ok {
		r.status.FramesReceived++
	}
	handlers := append([]func(ParsedFrame){}, r.handlers...)
	r.mu.Unlock()

	r.publish(Event{Kind: EventRaw, Data: raw})
	if !ok {
		return ParsedFrame{}, false
	}

	r.frames.Add(frame)
	for _, h := range handlers {
		h(frame)
	}
	r.publish(Event{Kind: EventTelemetry, Data: frame})
	return frame, true
}

// Consume feeds every line from src into HandleLine until ctx is done or src
// closes the subscription.
func (r *Receiver) Consume(ctx context.Context, src LineSource) error {
	id, lines := src.Subscribe()
	defer src.Unsubscribe(id)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			r.HandleLine(line)
		}
	}
}

// SetConnected records an open link on path.
func (r *Receiver) SetConnected(path string) {
	r.mu.Lock()
	r.status.Connected = true
	r.status.PortPath = &path
	r.status.LastError = nil
	st := r.status
	r.mu.Unlock()
	r.publish(Event{Kind: EventStatus, Data: st})
}

// SetDisconnected records a closed link and, when err is non-nil, the error.
func (r *Receiver) SetDisconnected(err error) {
	r.mu.Lock()
	r.status.Connected = false
	r.status.PortPath = nil
	if err != nil {
		msg := err.Error()
		r.status.LastError = &msg
	}
	st := r.status
	r.mu.Unlock()
	r.publish(Event{Kind: EventStatus, Data: st})
}

// Status returns a snapshot of the link status.
func (r *Receiver) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// RecentFrames returns up to limit of the newest frames, oldest first.
func (r *Receiver) RecentFrames(limit int) []ParsedFrame { return r.frames.Recent(limit) }

// RecentRaw returns up to limit of the newest raw lines, oldest first.
func (r *Receiver) RecentRaw(limit int) []RawLine { return r.raw.Recent(limit) }

// Subscribe returns a channel of events. Slow subscribers miss events rather
// than block the receiver.
func (r *Receiver) Subscribe() (string, <-chan Event) {
	id := uuid.NewString()
	ch := make(chan Event, 64)

	r.mu.Lock()
	r.subs[id] = ch
	r.mu.Unlock()
	return id, ch
}

// Unsubscribe closes and removes a subscription.
func (r *Receiver) Unsubscribe(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, ok := r.subs[id]; ok {
		close(ch)
		delete(r.subs, id)
	}
}

func (r *Receiver) publish(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
