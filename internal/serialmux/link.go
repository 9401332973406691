package serialmux

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"
)

// DefaultReconnectDelay is how long a Link waits before reopening a port
// that failed or went away.
const DefaultReconnectDelay = 2 * time.Second

// ErrNotConnected is returned by SendCommand while no port is open.
var ErrNotConnected = errors.New("serial port not connected")

// LinkObserver is told when the link opens and closes.
type LinkObserver interface {
	SetConnected(path string)
	SetDisconnected(err error)
}

// LinkConfig configures a Link. An empty Path means discover a port on every
// attempt.
type LinkConfig struct {
	Path           string
	Options        PortOptions
	ReconnectDelay time.Duration
}

// Link keeps a serial port open, reopening it after failures. Its
// subscribers survive reconnects.
type Link struct {
	cfg      LinkConfig
	open     Opener
	list     PortLister
	observer LinkObserver

	subs *fanout

	mu      sync.Mutex
	current *SerialMux[SerialPorter]
}

// NewLink returns a link using open and list to reach ports. observer may be
// nil.
func NewLink(cfg LinkConfig, open Opener, list PortLister, observer LinkObserver) *Link {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	return &Link{
		cfg:      cfg,
		open:     open,
		list:     list,
		observer: observer,
		subs:     newFanout(subscriberBuffer),
	}
}

// NewRealLink returns a link over go.bug.st/serial ports.
func NewRealLink(cfg LinkConfig, observer LinkObserver) *Link {
	return NewLink(cfg, OpenRealPort, ListRealPorts, observer)
}

func (l *Link) Subscribe() (string, chan string) { return l.subs.subscribe() }
func (l *Link) Unsubscribe(id string)            { l.subs.unsubscribe(id) }

// SendCommand writes to the currently open port.
func (l *Link) SendCommand(command string) error {
	l.mu.Lock()
	mux := l.current
	l.mu.Unlock()
	if mux == nil {
		return ErrNotConnected
	}
	return mux.SendCommand(command)
}

// Monitor opens the port and forwards its lines until ctx is done,
// reconnecting after ReconnectDelay whenever the port fails.
func (l *Link) Monitor(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		err := l.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if l.subs.isShut() {
			return nil
		}
		log.Printf("serial link: %v; retrying in %s", err, l.cfg.ReconnectDelay)
		if l.observer != nil {
			l.observer.SetDisconnected(err)
		}
		timer.Reset(l.cfg.ReconnectDelay)
	}
}

// session runs one open-read-close cycle. It always returns a non-nil error
// describing why the port is no longer usable.
func (l *Link) session(ctx context.Context) error {
	path := l.cfg.Path
	if path == "" {
		discovered, err := DiscoverPort(l.list)
		if err != nil {
			return fmt.Errorf("discover port: %w", err)
		}
		path = discovered
	}

	port, err := l.open(path, l.cfg.Options)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	mux := NewSerialMux(port)
	id, lines := mux.Subscribe()

	l.mu.Lock()
	if l.subs.isShut() {
		l.mu.Unlock()
		mux.Close()
		return errors.New("link closed")
	}
	l.current = mux
	l.mu.Unlock()
	if l.observer != nil {
		l.observer.SetConnected(path)
	}
	log.Printf("serial link: opened %s", path)

	monitorCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- mux.Monitor(monitorCtx) }()

	var result error
loop:
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				// Closed by Close; wait for the read to fail.
				lines = nil
				continue
			}
			l.subs.publish(line)
		case err := <-done:
			l.drain(lines)
			result = err
			break loop
		}
	}
	cancel()

	l.mu.Lock()
	l.current = nil
	l.mu.Unlock()
	mux.Unsubscribe(id)
	if err := mux.Close(); err != nil && result == nil {
		result = err
	}
	if result == nil || errors.Is(result, context.Canceled) {
		result = fmt.Errorf("port %s closed", path)
	}
	return result
}

// drain forwards lines scanned before the port went away.
func (l *Link) drain(lines chan string) {
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return
			}
			l.subs.publish(line)
		default:
			return
		}
	}
}

// Close closes every subscriber and the open port, if any. A running Monitor
// returns once the port read fails.
func (l *Link) Close() error {
	l.mu.Lock()
	l.subs.shutdown()
	mux := l.current
	l.mu.Unlock()
	if mux != nil {
		return mux.Close()
	}
	return nil
}

// AttachAdminRoutes serves the console for whichever port is currently open.
func (l *Link) AttachAdminRoutes(mux *http.ServeMux) {
	attachAdminRoutes(mux, l)
}
