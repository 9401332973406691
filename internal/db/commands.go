package db

import (
	"database/sql"
	"fmt"
	"time"
)

// CommandRecord is a command line sent to the serial link.
type CommandRecord struct {
	ID      int64     `json:"id"`
	Command string    `json:"command"`
	SentAt  time.Time `json:"sentAt"`
	Error   *string   `json:"error,omitempty"`
}

// RecordCommand logs a command and the error, if any, from sending it.
func (db *DB) RecordCommand(command string, sentAt time.Time, sendErr error) (int64, error) {
	var errText sql.NullString
	if sendErr != nil {
		errText = sql.NullString{String: sendErr.Error(), Valid: true}
	}
	result, err := db.Exec(`INSERT INTO commands (command, sent_at, error) VALUES (?, ?, ?)`,
		command, sentAt.UnixMilli(), errText)
	if err != nil {
		return 0, fmt.Errorf("failed to record command: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	return id, nil
}

// Commands returns the most recent commands, newest first.
func (db *DB) Commands(limit int) ([]CommandRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(`SELECT command_id, command, sent_at, error FROM commands
		ORDER BY command_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query commands: %w", err)
	}
	defer rows.Close()

	var cmds []CommandRecord
	for rows.Next() {
		var (
			c       CommandRecord
			sentAt  int64
			errText sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Command, &sentAt, &errText); err != nil {
			return nil, fmt.Errorf("failed to scan command: %w", err)
		}
		c.SentAt = time.UnixMilli(sentAt)
		if errText.Valid {
			c.Error = &errText.String
		}
		cmds = append(cmds, c)
	}
	return cmds, rows.Err()
}
