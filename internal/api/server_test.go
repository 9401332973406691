package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/banshee-data/beacon-dock/internal/db"
	"github.com/banshee-data/beacon-dock/internal/monitoring"
	"github.com/banshee-data/beacon-dock/internal/telemetry"
	"github.com/banshee-data/beacon-dock/internal/testutil"
	"github.com/banshee-data/beacon-dock/internal/timeutil"
	"github.com/banshee-data/beacon-dock/internal/units"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeCommander struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (c *fakeCommander) SendCommand(command string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, command)
	return c.err
}

func navLine(tMs uint32, thetaDeg, signal float64, detected bool) string {
	mode, det := telemetry.ModeSearch, 0
	if detected {
		mode, det = telemetry.ModeTrack, 1
	}
	return fmt.Sprintf("beacon_nav,%d,%s,900,120,300,80,%.1f,100.0,200.0,50.0,%.2f,%.1f,%d,4280,4280",
		tMs, mode, signal, thetaDeg, signal, det)
}

func newTestServer(t *testing.T, opts ...Option) (*Server, *telemetry.Receiver, *fakeCommander, *timeutil.MockClock) {
	t.Helper()
	saved := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(saved) })

	clock := timeutil.NewMockClock(testStart)
	recv := telemetry.NewReceiver(clock, "/dev/ttyACM0", 115200)
	cmd := &fakeCommander{}
	opts = append([]Option{WithClock(clock)}, opts...)
	return NewServer(recv, cmd, units.Degrees, opts...), recv, cmd, clock
}

func serve(s *Server, req *http.Request) *httpRecorder {
	rec := testutil.Serve(s.ServeMux(), req)
	return &httpRecorder{rec.Code, rec.Body.String(), rec.Header()}
}

type httpRecorder struct {
	code   int
	body   string
	header http.Header
}

func TestStatusEndpoint(t *testing.T) {
	s, recv, _, _ := newTestServer(t)
	recv.SetConnected("/dev/ttyACM0")
	recv.HandleLine(navLine(100, 0, 1500, true))

	res := serve(s, testutil.Request(http.MethodGet, "/api/status"))
	testutil.ExpectStatus(t, res.code, http.StatusOK)

	var st telemetry.Status
	testutil.DecodeJSON(t, res.body, &st)
	if !st.Connected || st.PortPath == nil || *st.PortPath != "/dev/ttyACM0" {
		t.Errorf("unexpected status %+v", st)
	}
	if st.FramesReceived != 1 || st.BaudRate != 115200 {
		t.Errorf("counters not reported: %+v", st)
	}
}

func TestFramesEndpoint(t *testing.T) {
	s, recv, _, _ := newTestServer(t)
	for i := 0; i < 5; i++ {
		recv.HandleLine(navLine(uint32(i*20), 90, 1500, true))
	}
	recv.HandleLine("wireless_log,7," + navLine(200, -45, 800, true))

	tests := []struct {
		name      string
		path      string
		wantCode  int
		wantCount int
		wantTheta float64
	}{
		{name: "default", path: "/api/frames", wantCode: http.StatusOK, wantCount: 6, wantTheta: 90},
		{name: "limit", path: "/api/frames?limit=2", wantCode: http.StatusOK, wantCount: 2, wantTheta: 90},
		{name: "radians", path: "/api/frames?units=rad", wantCode: http.StatusOK, wantCount: 6, wantTheta: math.Pi / 2},
		{name: "node filter", path: "/api/frames?node=7", wantCode: http.StatusOK, wantCount: 1, wantTheta: -45},
		{name: "bad units", path: "/api/frames?units=grad", wantCode: http.StatusBadRequest},
		{name: "bad limit", path: "/api/frames?limit=-3", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := serve(s, testutil.Request(http.MethodGet, tt.path))
			testutil.ExpectStatus(t, res.code, tt.wantCode)
			if tt.wantCode != http.StatusOK {
				return
			}
			var frames []FrameAPI
			testutil.DecodeJSON(t, res.body, &frames)
			if len(frames) != tt.wantCount {
				t.Fatalf("got %d frames, want %d", len(frames), tt.wantCount)
			}
			if math.Abs(frames[0].Theta-tt.wantTheta) > 1e-9 {
				t.Errorf("theta = %v, want %v", frames[0].Theta, tt.wantTheta)
			}
		})
	}
}

func TestFramesEndpointMethodNotAllowed(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	res := serve(s, testutil.Request(http.MethodPost, "/api/frames"))
	testutil.ExpectStatus(t, res.code, http.StatusMethodNotAllowed)
}

func TestRawEndpoint(t *testing.T) {
	s, recv, _, _ := newTestServer(t)
	recv.HandleLine("=== beacon agent ===")
	recv.HandleLine(navLine(0, 0, 1000, false))

	res := serve(s, testutil.Request(http.MethodGet, "/api/raw"))
	testutil.ExpectStatus(t, res.code, http.StatusOK)
	var raw []telemetry.RawLine
	testutil.DecodeJSON(t, res.body, &raw)
	if len(raw) != 2 || raw[0].Parsed || !raw[1].Parsed {
		t.Errorf("unexpected raw lines %+v", raw)
	}
}

func TestStatsEndpoint(t *testing.T) {
	s, recv, _, _ := newTestServer(t)
	recv.HandleLine(navLine(0, 0, 1000, false))
	recv.HandleLine(navLine(20, 10, 2000, true))
	recv.HandleLine(navLine(40, 30, 3000, true))

	res := serve(s, testutil.Request(http.MethodGet, "/api/stats"))
	testutil.ExpectStatus(t, res.code, http.StatusOK)
	var st StatsAPI
	testutil.DecodeJSON(t, res.body, &st)
	if st.Count != 3 || st.SignalMean != 2000 || st.ThetaMean != 20 || st.Units != units.Degrees {
		t.Errorf("unexpected stats %+v", st)
	}

	res = serve(s, testutil.Request(http.MethodGet, "/api/stats?units=rad"))
	testutil.DecodeJSON(t, res.body, &st)
	if math.Abs(st.ThetaMean-units.ToRadians(20)) > 1e-9 {
		t.Errorf("ThetaMean in rad = %v", st.ThetaMean)
	}
}

func TestDatabaseEndpointsWithoutDB(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	for _, path := range []string{"/api/sessions", "/api/session_stats?id=x", "/api/commands", "/api/frames?session=x"} {
		res := serve(s, testutil.Request(http.MethodGet, path))
		testutil.ExpectStatus(t, res.code, http.StatusNotFound)
	}
}

func newTestDB(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.NewDB(t.TempDir() + "/api.db")
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestSessionEndpoints(t *testing.T) {
	d := newTestDB(t)
	s, recv, _, _ := newTestServer(t, WithDB(d))
	rec := db.NewRecorder(d, db.RecorderConfig{})
	recv.OnFrame(func(f telemetry.ParsedFrame) {
		if err := rec.RecordFrame(f); err != nil {
			t.Errorf("RecordFrame failed: %v", err)
		}
	})
	recv.HandleLine(navLine(0, 10, 1000, true))
	recv.HandleLine(navLine(20, 20, 2000, true))

	res := serve(s, testutil.Request(http.MethodGet, "/api/sessions"))
	testutil.ExpectStatus(t, res.code, http.StatusOK)
	var sessions []db.Session
	testutil.DecodeJSON(t, res.body, &sessions)
	if len(sessions) != 1 || sessions[0].FrameCount != 2 {
		t.Fatalf("unexpected sessions %+v", sessions)
	}
	id := sessions[0].SessionID

	res = serve(s, testutil.Request(http.MethodGet, "/api/session_stats?id="+id))
	testutil.ExpectStatus(t, res.code, http.StatusOK)
	var st StatsAPI
	testutil.DecodeJSON(t, res.body, &st)
	if st.Count != 2 || st.ThetaMean != 15 {
		t.Errorf("unexpected session stats %+v", st)
	}

	res = serve(s, testutil.Request(http.MethodGet, "/api/frames?session="+id))
	testutil.ExpectStatus(t, res.code, http.StatusOK)
	var frames []FrameAPI
	testutil.DecodeJSON(t, res.body, &frames)
	if len(frames) != 2 || frames[1].TMs != 20 {
		t.Errorf("unexpected session frames %+v", frames)
	}

	res = serve(s, testutil.Request(http.MethodGet, "/api/session_stats?id=missing"))
	testutil.ExpectStatus(t, res.code, http.StatusNotFound)
	res = serve(s, testutil.Request(http.MethodGet, "/api/session_stats"))
	testutil.ExpectStatus(t, res.code, http.StatusBadRequest)
}

func TestSendCommand(t *testing.T) {
	d := newTestDB(t)
	s, _, cmd, _ := newTestServer(t, WithDB(d))

	tests := []struct {
		name        string
		contentType string
		body        string
		wantCode    int
		wantSent    string
	}{
		{name: "form", contentType: "application/x-www-form-urlencoded", body: "command=GO", wantCode: http.StatusOK, wantSent: "GO"},
		{name: "json", contentType: "application/json", body: `{"command":" STOP "}`, wantCode: http.StatusOK, wantSent: "STOP"},
		{name: "empty", contentType: "application/x-www-form-urlencoded", body: "command=", wantCode: http.StatusBadRequest},
		{name: "bad json", contentType: "application/json", body: `{"command":`, wantCode: http.StatusBadRequest},
		{name: "multi line", contentType: "application/json", body: `{"command":"GO\nSTOP"}`, wantCode: http.StatusBadRequest},
		{name: "too long", contentType: "application/json", body: `{"command":"` + strings.Repeat("x", 300) + `"}`, wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(cmd.sent)
			res := serve(s, testutil.RequestWithBody(http.MethodPost, "/command", tt.contentType, tt.body))
			testutil.ExpectStatus(t, res.code, tt.wantCode)
			if tt.wantSent == "" {
				if len(cmd.sent) != before {
					t.Errorf("rejected command was sent: %v", cmd.sent)
				}
				return
			}
			if got := cmd.sent[len(cmd.sent)-1]; got != tt.wantSent {
				t.Errorf("sent %q, want %q", got, tt.wantSent)
			}
		})
	}

	cmds, err := d.Commands(10)
	require.NoError(t, err)
	if len(cmds) != 2 || cmds[0].Command != "STOP" || !cmds[0].SentAt.Equal(testStart) {
		t.Errorf("commands not recorded: %+v", cmds)
	}

	res := serve(s, testutil.Request(http.MethodGet, "/command"))
	testutil.ExpectStatus(t, res.code, http.StatusMethodNotAllowed)

	res = serve(s, testutil.Request(http.MethodGet, "/api/commands"))
	testutil.ExpectStatus(t, res.code, http.StatusOK)
}

func TestSendCommandLinkDown(t *testing.T) {
	d := newTestDB(t)
	s, _, cmd, _ := newTestServer(t, WithDB(d))
	cmd.err = errors.New("serial link not connected")

	res := serve(s, testutil.RequestWithBody(http.MethodPost, "/command", "application/x-www-form-urlencoded", "command=GO"))
	testutil.ExpectStatus(t, res.code, http.StatusServiceUnavailable)

	cmds, _ := d.Commands(1)
	if len(cmds) != 1 || cmds[0].Error == nil {
		t.Errorf("failed send not recorded with its error: %+v", cmds)
	}
}

func TestConfigEndpoint(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	res := serve(s, testutil.Request(http.MethodGet, "/api/config"))
	testutil.ExpectStatus(t, res.code, http.StatusOK)
	var cfg map[string]interface{}
	testutil.DecodeJSON(t, res.body, &cfg)
	if cfg["units"] != units.Degrees || cfg["database"] != false {
		t.Errorf("unexpected config %v", cfg)
	}
}

func TestHeadingChart(t *testing.T) {
	s, recv, _, _ := newTestServer(t)
	recv.HandleLine(navLine(0, 10, 1000, true))
	recv.HandleLine("wireless_log,7," + navLine(0, 20, 1000, true))

	res := serve(s, testutil.Request(http.MethodGet, "/charts/heading"))
	testutil.ExpectStatus(t, res.code, http.StatusOK)
	if ct := res.header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	for _, want := range []string{"Heading", "Total signal", "frames=2 nodes=2"} {
		if !strings.Contains(res.body, want) {
			t.Errorf("chart page missing %q", want)
		}
	}

	res = serve(s, testutil.Request(http.MethodGet, "/charts/heading?units=grad"))
	testutil.ExpectStatus(t, res.code, http.StatusBadRequest)
}

func TestStatusCodeColor(t *testing.T) {
	for code, want := range map[int]string{200: colorBoldGreen, 302: colorYellow, 404: colorBoldRed, 500: colorBoldRed} {
		if got := statusCodeColor(code); !strings.HasPrefix(got, want) {
			t.Errorf("statusCodeColor(%d) = %q", code, got)
		}
	}
}
