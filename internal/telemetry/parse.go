package telemetry

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Source tells where a parsed frame came from.
type Source string

const (
	SourceLocal    Source = "local"
	SourceWireless Source = "wireless"
)

// navColumns is the column count of a beacon_nav payload.
const navColumns = 16

// ParsedFrame is a beacon_nav line as seen by the receiver. JSON names match
// the dashboard's frame schema.
type ParsedFrame struct {
	Source       Source    `json:"source"`
	FromNode     *uint32   `json:"fromNode"`
	ReceivedAt   time.Time `json:"-"`
	ReceivedAtMs int64     `json:"receivedAtMs"`
	RawLine      string    `json:"rawLine"`
	TMs          uint32    `json:"tMs"`
	Mode         string    `json:"mode"`
	RawF         uint32    `json:"rawF"`
	RawB         uint32    `json:"rawB"`
	RawL         uint32    `json:"rawL"`
	RawR         uint32    `json:"rawR"`
	AmpF         float64   `json:"ampF"`
	AmpB         float64   `json:"ampB"`
	AmpL         float64   `json:"ampL"`
	AmpR         float64   `json:"ampR"`
	ThetaDeg     float64   `json:"thetaDeg"`
	Signal       float64   `json:"signal"`
	Detected     bool      `json:"detected"`
	DutyL        uint16    `json:"dutyL"`
	DutyR        uint16    `json:"dutyR"`
}

// NodeKey returns a stable key for grouping frames by sender: the node id for
// relayed frames with a known sender, otherwise the source name.
func (p ParsedFrame) NodeKey() string {
	if p.FromNode != nil {
		return strconv.FormatUint(uint64(*p.FromNode), 10)
	}
	return string(p.Source)
}

// ParseLine parses one received line in any of its three forms:
//
//	beacon_nav,...             printed by an agent on its own serial port
//	wireless_log,<from>,...    relayed by the coordinator with the sender id
//	log:beacon_nav,...         relayed without a sender id
//
// Blank lines, banners and malformed payloads return false.
func ParseLine(line string, receivedAt time.Time) (ParsedFrame, bool) {
	line = strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(line, NavPrefix+","):
		return parsePayload(line, SourceLocal, nil, receivedAt)

	case strings.HasPrefix(line, WirelessPrefix+","):
		rest := line[len(WirelessPrefix)+1:]
		from, payload, ok := strings.Cut(rest, ",")
		if !ok || from == "" {
			return ParsedFrame{}, false
		}
		node, err := strconv.ParseUint(from, 10, 32)
		if err != nil {
			return ParsedFrame{}, false
		}
		n := uint32(node)
		return parsePayload(payload, SourceWireless, &n, receivedAt)

	case strings.HasPrefix(line, MeshLogPrefix+NavPrefix+","):
		return parsePayload(line[len(MeshLogPrefix):], SourceWireless, nil, receivedAt)
	}
	return ParsedFrame{}, false
}

func parsePayload(payload string, source Source, from *uint32, receivedAt time.Time) (ParsedFrame, bool) {
	cols := strings.Split(payload, ",")
	if len(cols) < navColumns || cols[0] != NavPrefix {
		return ParsedFrame{}, false
	}

	p := columnParser{cols: cols}
	f := ParsedFrame{
		Source:       source,
		FromNode:     from,
		ReceivedAt:   receivedAt,
		ReceivedAtMs: receivedAt.UnixMilli(),
		RawLine:      payload,
		TMs:          p.u32(1),
		Mode:         cols[2],
		RawF:         p.u32(3),
		RawB:         p.u32(4),
		RawL:         p.u32(5),
		RawR:         p.u32(6),
		AmpF:         p.f64(7),
		AmpB:         p.f64(8),
		AmpL:         p.f64(9),
		AmpR:         p.f64(10),
		ThetaDeg:     p.f64(11),
		Signal:       p.f64(12),
		Detected:     p.i64(13) == 1,
		DutyL:        p.u16(14),
		DutyR:        p.u16(15),
	}
	if p.failed {
		return ParsedFrame{}, false
	}
	return f, true
}

// columnParser parses numeric columns and remembers whether any failed.
type columnParser struct {
	cols   []string
	failed bool
}

func (c *columnParser) u32(i int) uint32 {
	v, err := strconv.ParseUint(strings.TrimSpace(c.cols[i]), 10, 32)
	if err != nil {
		c.failed = true
	}
	return uint32(v)
}

func (c *columnParser) u16(i int) uint16 {
	v, err := strconv.ParseUint(strings.TrimSpace(c.cols[i]), 10, 16)
	if err != nil {
		c.failed = true
	}
	return uint16(v)
}

func (c *columnParser) i64(i int) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(c.cols[i]), 10, 64)
	if err != nil {
		c.failed = true
	}
	return v
}

func (c *columnParser) f64(i int) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(c.cols[i]), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		c.failed = true
	}
	return v
}
