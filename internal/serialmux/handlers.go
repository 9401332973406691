package serialmux

import (
	"fmt"
	"log"
	"time"

	"github.com/banshee-data/beacon-dock/internal/telemetry"
)

// FrameRecorder stores parsed navigation frames.
type FrameRecorder interface {
	RecordFrame(telemetry.ParsedFrame) error
}

// HandleEvent classifies one line and records it when it carries a
// navigation frame. Headers and unknown lines are only logged; a frame line
// that fails to parse is an error.
func HandleEvent(rec FrameRecorder, payload string, receivedAt time.Time) error {
	switch kind := ClassifyPayload(payload); kind {
	case EventTypeNav, EventTypeWireless, EventTypeMeshLog:
		frame, ok := telemetry.ParseLine(payload, receivedAt)
		if !ok {
			if kind == EventTypeMeshLog {
				// log: also carries free-form agent messages.
				log.Printf("mesh log: %s", payload)
				return nil
			}
			return fmt.Errorf("malformed %s line: %q", kind, payload)
		}
		if err := rec.RecordFrame(frame); err != nil {
			return fmt.Errorf("failed to record frame: %w", err)
		}
	case EventTypeHeader:
		log.Printf("header line: %s", payload)
	default:
		log.Printf("unknown event type: %s", payload)
	}
	return nil
}
