package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/banshee-data/beacon-dock/internal/httputil"
	"github.com/banshee-data/beacon-dock/internal/telemetry"
)

// DefaultHeartbeat is the interval between keep-alive comments on an idle
// event stream.
const DefaultHeartbeat = 15 * time.Second

// Backlog replayed to a new event stream client before live events.
const (
	initialFrames   = 80
	initialRawLines = 120
)

// streamEvents serves server-sent events: the link status, a backlog of
// recent frames and raw lines, then live updates until the client leaves.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.InternalServerError(w, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// Subscribe before the backlog so nothing received while it is written
	// is lost; a frame may then appear in both.
	id, events := s.source.Subscribe()
	defer s.source.Unsubscribe(id)

	heartbeat := s.clock.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	if err := writeEvent(w, telemetry.EventStatus, s.source.Status()); err != nil {
		return
	}
	for _, f := range s.source.RecentFrames(initialFrames) {
		if err := writeEvent(w, telemetry.EventTelemetry, f); err != nil {
			return
		}
	}
	for _, raw := range s.source.RecentRaw(initialRawLines) {
		if err := writeEvent(w, telemetry.EventRaw, raw); err != nil {
			return
		}
	}
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writeEvent(w, ev.Kind, ev.Data); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C():
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w io.Writer, kind string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", kind, err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", kind, payload)
	return err
}
