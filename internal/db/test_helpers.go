package db

import (
	"fmt"
	"testing"
	"time"

	"github.com/banshee-data/beacon-dock/internal/telemetry"
)

// newTestDB opens a migrated database in a per-test directory.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// testFrame builds a parsed local frame received at receivedAt.
func testFrame(tMs uint32, receivedAt time.Time, signal float64, detected bool) telemetry.ParsedFrame {
	mode := telemetry.ModeSearch
	det := 0
	if detected {
		mode = telemetry.ModeTrack
		det = 1
	}
	line := fmt.Sprintf("beacon_nav,%d,%s,100,100,100,100,%.1f,0.0,0.0,0.0,0.00,%.1f,%d,3560,0",
		tMs, mode, signal, signal, det)
	f, ok := telemetry.ParseLine(line, receivedAt)
	if !ok {
		panic("testFrame: unparseable line " + line)
	}
	return f
}
