package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/beacon-dock/internal/httputil"
	"github.com/banshee-data/beacon-dock/internal/monitoring"
)

const capture = `beacon_nav,t_ms,mode,raw_f,raw_b,raw_l,raw_r,A_F,A_B,A_L,A_R,theta_deg,S,detected,duty_l,duty_r
beacon_nav,1000,search,10,12,9,11,10.0,12.0,9.0,11.0,0.00,42.0,0,3560,0
wireless_log,7,beacon_nav,1200,track,900,40,300,120,900.0,40.0,300.0,120.0,11.50,1360.0,1,3900,3620
Setup complete
beacon_nav,1400,track,1200,40,280,150,1200.0,40.0,280.0,150.0,7.20,1670.0,1,3880,3700
`

const framesJSON = `[
 {"source":"wireless","fromNode":7,"tMs":1000,"mode":"track","thetaDeg":10.5,"signal":1200,"detected":true,"dutyL":3900,"dutyR":3600,"theta":10.5,"units":"deg"},
 {"source":"wireless","fromNode":7,"tMs":1200,"mode":"track","thetaDeg":6.1,"signal":1500,"detected":true,"dutyL":3880,"dutyR":3700,"theta":6.1,"units":"deg"}
]`

func TestLoadLog(t *testing.T) {
	rp := monitoring.NewRunPlotter()
	n, err := loadLog(strings.NewReader(capture), rp)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"7", "local"}, rp.Nodes())
}

func TestRunFromLog(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "run.log")
	require.NoError(t, os.WriteFile(logPath, []byte(capture), 0644))
	out := filepath.Join(dir, "plots")

	n, err := run(options{LogPath: logPath, OutDir: out}, nil)
	require.NoError(t, err)
	assert.Equal(t, 6, n, "three plots per node")

	_, err = os.Stat(filepath.Join(out, "local_heading.png"))
	assert.NoError(t, err)
}

func TestRunFromServer(t *testing.T) {
	client := httputil.NewMockHTTPClient().AddResponse(200, framesJSON)
	out := filepath.Join(t.TempDir(), "plots")

	n, err := run(options{ServerURL: "http://dock.local:8080/", SessionID: "abc", OutDir: out}, client)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.Equal(t, 1, client.RequestCount())
	req := client.GetRequest(0)
	assert.Equal(t, "/api/frames", req.URL.Path)
	assert.Equal(t, "abc", req.URL.Query().Get("session"))
	assert.Equal(t, "500", req.URL.Query().Get("limit"))
}

func TestFetchFramesErrors(t *testing.T) {
	client := httputil.NewMockHTTPClient().
		AddResponse(404, "no telemetry database configured").
		AddErrorResponse(errors.New("connection refused")).
		AddResponse(200, "not json")

	_, err := fetchFrames(client, "http://x", "s")
	assert.ErrorContains(t, err, "no telemetry database configured")

	_, err = fetchFrames(client, "http://x", "")
	assert.ErrorContains(t, err, "connection refused")

	_, err = fetchFrames(client, "http://x", "")
	assert.ErrorContains(t, err, "decode frames")
}

func TestRunOptionValidation(t *testing.T) {
	_, err := run(options{OutDir: t.TempDir()}, nil)
	assert.Error(t, err)

	_, err = run(options{LogPath: "a", ServerURL: "b", OutDir: t.TempDir()}, nil)
	assert.Error(t, err)

	_, err = run(options{LogPath: "a", OutDir: "/etc/plots"}, nil)
	assert.ErrorContains(t, err, "invalid output directory")
}

func TestRunEmptyLog(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "empty.log")
	require.NoError(t, os.WriteFile(logPath, []byte("Setup complete\n"), 0644))

	_, err := run(options{LogPath: logPath, OutDir: filepath.Join(dir, "plots")}, nil)
	assert.ErrorContains(t, err, "no navigation frames")
}
