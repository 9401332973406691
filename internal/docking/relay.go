package docking

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/banshee-data/beacon-dock/internal/telemetry"
)

// Relay plays the station's side of the mesh: log messages unicast to it are
// printed to w as wireless_log lines tagged with the sending node.
type Relay struct {
	mu   sync.Mutex
	w    io.Writer
	from uint32
}

// NewRelay returns a relay that attributes every message to node from.
func NewRelay(w io.Writer, from uint32) *Relay {
	return &Relay{w: w, from: from}
}

// Unicast implements telemetry.Messenger. Messages without the log prefix
// are not telemetry and are dropped.
func (r *Relay) Unicast(to uint32, msg string) error {
	payload, ok := strings.CutPrefix(msg, telemetry.MeshLogPrefix)
	if !ok {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := io.WriteString(r.w, telemetry.FormatWireless(r.from, payload)+"\n"); err != nil {
		return fmt.Errorf("relay to %d: %w", to, err)
	}
	return nil
}
