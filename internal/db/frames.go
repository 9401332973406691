package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/banshee-data/beacon-dock/internal/telemetry"
)

// FrameRow is a stored telemetry frame.
type FrameRow struct {
	FrameID   int64  `json:"frameId"`
	SessionID string `json:"sessionId"`
	telemetry.ParsedFrame
}

const frameColumns = `frame_id, session_id, source, from_node, received_at, t_ms, mode,
	raw_f, raw_b, raw_l, raw_r, amp_f, amp_b, amp_l, amp_r,
	theta_deg, signal, detected, duty_l, duty_r, raw_line`

// InsertFrame stores f under sessionID and returns its row id.
func (db *DB) InsertFrame(sessionID string, f telemetry.ParsedFrame) (int64, error) {
	var fromNode sql.NullInt64
	if f.FromNode != nil {
		fromNode = sql.NullInt64{Int64: int64(*f.FromNode), Valid: true}
	}
	res, err := db.Exec(`INSERT INTO telemetry_frames (
			session_id, source, from_node, received_at, t_ms, mode,
			raw_f, raw_b, raw_l, raw_r, amp_f, amp_b, amp_l, amp_r,
			theta_deg, signal, detected, duty_l, duty_r, raw_line
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, string(f.Source), fromNode, f.ReceivedAtMs, f.TMs, f.Mode,
		f.RawF, f.RawB, f.RawL, f.RawR, f.AmpF, f.AmpB, f.AmpL, f.AmpR,
		f.ThetaDeg, f.Signal, boolInt(f.Detected), f.DutyL, f.DutyR, f.RawLine,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert frame: %w", err)
	}
	return res.LastInsertId()
}

// FrameFilter narrows a frame query. Zero values mean no restriction, except
// Limit which defaults to telemetry.MaxFrameBuffer; a negative Limit returns
// every match.
type FrameFilter struct {
	SessionID string
	Node      string
	Since     time.Time
	Limit     int
}

// RecentFrames returns the newest frames matching filter, oldest first.
func (db *DB) RecentFrames(filter FrameFilter) ([]FrameRow, error) {
	var (
		where []string
		args  []any
	)
	if filter.SessionID != "" {
		where = append(where, "f.session_id = ?")
		args = append(args, filter.SessionID)
	}
	if filter.Node != "" {
		where = append(where, "s.node = ?")
		args = append(args, filter.Node)
	}
	if !filter.Since.IsZero() {
		where = append(where, "f.received_at >= ?")
		args = append(args, filter.Since.UnixMilli())
	}
	limit := filter.Limit
	if limit == 0 {
		limit = telemetry.MaxFrameBuffer
	} else if limit < 0 {
		limit = -1
	}

	query := `SELECT ` + prefixColumns("f.", frameColumns) + `
		FROM telemetry_frames f JOIN nav_sessions s ON s.session_id = f.session_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY f.frame_id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query frames: %w", err)
	}
	defer rows.Close()

	var frames []FrameRow
	for rows.Next() {
		fr, err := scanFrame(rows)
		if err != nil {
			return nil, err
		}
		frames = append(frames, fr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// reverse into chronological order
	for i, j := 0, len(frames)-1; i < j; i, j = i+1, j-1 {
		frames[i], frames[j] = frames[j], frames[i]
	}
	return frames, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFrame(rows rowScanner) (FrameRow, error) {
	var (
		fr       FrameRow
		source   string
		fromNode sql.NullInt64
		detected int
	)
	err := rows.Scan(
		&fr.FrameID, &fr.SessionID, &source, &fromNode, &fr.ReceivedAtMs, &fr.TMs, &fr.Mode,
		&fr.RawF, &fr.RawB, &fr.RawL, &fr.RawR, &fr.AmpF, &fr.AmpB, &fr.AmpL, &fr.AmpR,
		&fr.ThetaDeg, &fr.Signal, &detected, &fr.DutyL, &fr.DutyR, &fr.RawLine,
	)
	if err != nil {
		return FrameRow{}, fmt.Errorf("failed to scan frame: %w", err)
	}
	fr.Source = telemetry.Source(source)
	if fromNode.Valid {
		n := uint32(fromNode.Int64)
		fr.FromNode = &n
	}
	fr.Detected = detected != 0
	fr.ReceivedAt = time.UnixMilli(fr.ReceivedAtMs)
	return fr, nil
}

func prefixColumns(prefix, cols string) string {
	parts := strings.Split(cols, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
