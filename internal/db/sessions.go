package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Session is one contiguous run of frames from a single node.
type Session struct {
	SessionID  string     `json:"sessionId"`
	Node       string     `json:"node"`
	StartedAt  time.Time  `json:"startedAt"`
	EndedAt    *time.Time `json:"endedAt,omitempty"`
	FirstTMs   uint32     `json:"firstTMs"`
	LastTMs    uint32     `json:"lastTMs"`
	FrameCount int        `json:"frameCount"`
	Arrived    bool       `json:"arrived"`
}

// ErrSessionNotFound is returned when a session id does not exist.
var ErrSessionNotFound = errors.New("session not found")

func (db *DB) createSession(id, node string, startedAt time.Time, tMs uint32) error {
	_, err := db.Exec(`INSERT INTO nav_sessions (session_id, node, started_at, first_t_ms, last_t_ms)
		VALUES (?, ?, ?, ?, ?)`, id, node, startedAt.UnixMilli(), tMs, tMs)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (db *DB) touchSession(id string, tMs uint32) error {
	_, err := db.Exec(`UPDATE nav_sessions SET last_t_ms = ?, frame_count = frame_count + 1
		WHERE session_id = ?`, tMs, id)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

func (db *DB) endSession(id string, endedAt time.Time, arrived bool) error {
	_, err := db.Exec(`UPDATE nav_sessions SET ended_at = ?, arrived = ?
		WHERE session_id = ? AND ended_at IS NULL`, endedAt.UnixMilli(), boolInt(arrived), id)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	return nil
}

const sessionColumns = `session_id, node, started_at, ended_at, first_t_ms, last_t_ms, frame_count, arrived`

// Sessions returns the most recent sessions, newest first.
func (db *DB) Sessions(limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`SELECT `+sessionColumns+` FROM nav_sessions
		ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// GetSession returns a single session by id.
func (db *DB) GetSession(id string) (Session, error) {
	row := db.QueryRow(`SELECT `+sessionColumns+` FROM nav_sessions WHERE session_id = ?`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	return s, err
}

// DeleteSessionsBefore removes sessions started before cutoff together with
// their frames, returning how many sessions were removed.
func (db *DB) DeleteSessionsBefore(cutoff time.Time) (int64, error) {
	res, err := db.Exec(`DELETE FROM nav_sessions WHERE started_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune sessions: %w", err)
	}
	return res.RowsAffected()
}

func scanSession(row rowScanner) (Session, error) {
	var (
		s         Session
		startedAt int64
		endedAt   sql.NullInt64
		arrived   int
	)
	err := row.Scan(&s.SessionID, &s.Node, &startedAt, &endedAt, &s.FirstTMs, &s.LastTMs, &s.FrameCount, &arrived)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, err
		}
		return Session{}, fmt.Errorf("failed to scan session: %w", err)
	}
	s.StartedAt = time.UnixMilli(startedAt)
	if endedAt.Valid {
		t := time.UnixMilli(endedAt.Int64)
		s.EndedAt = &t
	}
	s.Arrived = arrived != 0
	return s, nil
}
