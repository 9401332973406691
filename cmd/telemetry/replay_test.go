package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/beacon-dock/internal/db"
	"github.com/banshee-data/beacon-dock/internal/monitoring"
	"github.com/banshee-data/beacon-dock/internal/telemetry"
	"github.com/banshee-data/beacon-dock/internal/timeutil"
)

func quietLogs(t *testing.T) {
	t.Helper()
	saved := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(saved) })
}

const capture = `beacon_nav,t_ms,mode,raw_f,raw_b,raw_l,raw_r,A_F,A_B,A_L,A_R,theta_deg,S,detected,duty_l,duty_r
beacon_nav,1000,search,10,12,9,11,10.0,12.0,9.0,11.0,0.00,42.0,0,3560,0
beacon_nav,1200,track,900,40,300,120,900.0,40.0,300.0,120.0,11.50,1360.0,1,3900,3620

garbage line
beacon_nav,1400,track,1200,40,280,150,1200.0,40.0,280.0,150.0,7.20,1670.0,1,3880,3700
beacon_nav,1600,track,broken
`

func TestReplayFile(t *testing.T) {
	quietLogs(t)
	dir := t.TempDir()
	logPath := filepath.Join(dir, "capture.log")
	require.NoError(t, os.WriteFile(logPath, []byte(capture), 0644))

	d, err := db.NewDB(filepath.Join(dir, "telemetry.db"))
	require.NoError(t, err)
	defer d.Close()

	clock := timeutil.NewMockClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	rec := db.NewRecorder(d, db.RecorderConfig{})

	n, err := replayFile(logPath, rec, clock)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	sessions, err := d.Sessions(0)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, 3, sessions[0].FrameCount)
	assert.Equal(t, "local", sessions[0].Node)
}

func TestReplayFileMissing(t *testing.T) {
	_, err := replayFile(filepath.Join(t.TempDir(), "nope.log"), nil, timeutil.RealClock{})
	assert.Error(t, err)
}

func TestDevLines(t *testing.T) {
	quietLogs(t)
	lines, err := devLines()
	require.NoError(t, err)
	require.Greater(t, len(lines), 1)
	assert.Equal(t, telemetry.WirelessHeader, lines[0])

	now := time.Now()
	for _, line := range lines[1:] {
		require.True(t, strings.HasPrefix(line, telemetry.WirelessPrefix+","), line)
		f, ok := telemetry.ParseLine(line, now)
		require.True(t, ok, line)
		require.NotNil(t, f.FromNode)
		assert.Equal(t, uint32(devNode), *f.FromNode)
	}
}
