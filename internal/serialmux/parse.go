package serialmux

import (
	"strings"

	"github.com/banshee-data/beacon-dock/internal/telemetry"
)

const (
	EventTypeNav      = "nav"
	EventTypeWireless = "wireless"
	EventTypeMeshLog  = "mesh_log"
	EventTypeHeader   = "header"
	EventTypeUnknown  = "unknown"
)

// ClassifyPayload inspects a line and returns a simple event type token.
// Column headers are told apart from data by their t_ms / from column name.
func ClassifyPayload(payload string) string {
	payload = strings.TrimSpace(payload)
	switch {
	case payload == telemetry.NavHeader, payload == telemetry.WirelessHeader, payload == telemetry.MeterHeader:
		return EventTypeHeader
	case strings.HasPrefix(payload, telemetry.NavPrefix+","):
		return EventTypeNav
	case strings.HasPrefix(payload, telemetry.WirelessPrefix+","):
		return EventTypeWireless
	case strings.HasPrefix(payload, telemetry.MeshLogPrefix):
		return EventTypeMeshLog
	}
	return EventTypeUnknown
}
