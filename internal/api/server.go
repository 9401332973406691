// Package api serves received navigation telemetry over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/beacon-dock/internal/db"
	"github.com/banshee-data/beacon-dock/internal/httputil"
	"github.com/banshee-data/beacon-dock/internal/telemetry"
	"github.com/banshee-data/beacon-dock/internal/timeutil"
	"github.com/banshee-data/beacon-dock/internal/units"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// maxCommandLength bounds a command line sent to the serial link.
const maxCommandLength = 256

// FrameSource is the live view of the serial link, satisfied by
// *telemetry.Receiver.
type FrameSource interface {
	Status() telemetry.Status
	RecentFrames(limit int) []telemetry.ParsedFrame
	RecentRaw(limit int) []telemetry.RawLine
	Subscribe() (string, <-chan telemetry.Event)
	Unsubscribe(id string)
}

// Commander sends a command line to the connected device.
type Commander interface {
	SendCommand(command string) error
}

type Server struct {
	source    FrameSource
	commander Commander
	db        *db.DB
	units     string
	clock     timeutil.Clock
	heartbeat time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithDB enables the stored session and command endpoints.
func WithDB(d *db.DB) Option {
	return func(s *Server) { s.db = d }
}

// WithClock replaces the wall clock used for heartbeats and command
// timestamps.
func WithClock(c timeutil.Clock) Option {
	return func(s *Server) { s.clock = c }
}

// WithHeartbeat sets the interval between event stream keep-alive comments.
func WithHeartbeat(d time.Duration) Option {
	return func(s *Server) { s.heartbeat = d }
}

// NewServer returns a server reading from source, forwarding commands to
// commander, and reporting headings in units unless a request overrides it.
func NewServer(source FrameSource, commander Commander, units string, opts ...Option) *Server {
	s := &Server{
		source:    source,
		commander: commander,
		units:     units,
		clock:     timeutil.RealClock{},
		heartbeat: DefaultHeartbeat,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", s.streamEvents)
	mux.HandleFunc("/command", s.sendCommandHandler)
	mux.HandleFunc("/charts/heading", s.headingChart)
	mux.HandleFunc("/api/status", s.showStatus)
	mux.HandleFunc("/api/frames", s.listFrames)
	mux.HandleFunc("/api/raw", s.listRaw)
	mux.HandleFunc("/api/stats", s.showStats)
	mux.HandleFunc("/api/sessions", s.listSessions)
	mux.HandleFunc("/api/session_stats", s.showSessionStats)
	mux.HandleFunc("/api/commands", s.listCommands)
	mux.HandleFunc("/api/config", s.showConfig)
	return mux
}

// FrameAPI is a frame as served, with the heading in the requested units.
type FrameAPI struct {
	telemetry.ParsedFrame
	Theta float64 `json:"theta"`
	Units string  `json:"units"`
}

func toFrameAPI(f telemetry.ParsedFrame, u string) FrameAPI {
	return FrameAPI{ParsedFrame: f, Theta: units.ConvertAngle(f.ThetaDeg, u), Units: u}
}

// requestUnits returns the units query parameter, the server default when
// absent, or an error for an unknown unit.
func (s *Server) requestUnits(r *http.Request) (string, error) {
	u := r.URL.Query().Get("units")
	if u == "" {
		return s.units, nil
	}
	if !units.IsValid(u) {
		return "", errors.New("invalid 'units' parameter, expected one of: " + units.GetValidUnitsString())
	}
	return u, nil
}

// queryLimit parses a positive limit parameter capped at max.
func queryLimit(r *http.Request, def, max int) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, errors.New("invalid 'limit' parameter")
	}
	if n > max {
		n = max
	}
	return n, nil
}

func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.source.Status())
}

func (s *Server) listFrames(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	u, err := s.requestUnits(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	limit, err := queryLimit(r, telemetry.MaxFrameBuffer, telemetry.MaxFrameBuffer)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	var frames []telemetry.ParsedFrame
	if session := r.URL.Query().Get("session"); session != "" {
		if s.db == nil {
			httputil.NotFound(w, "no telemetry database configured")
			return
		}
		rows, err := s.db.RecentFrames(db.FrameFilter{SessionID: session, Limit: limit})
		if err != nil {
			httputil.InternalServerError(w, "failed to retrieve frames: "+err.Error())
			return
		}
		for _, row := range rows {
			frames = append(frames, row.ParsedFrame)
		}
	} else {
		frames = s.source.RecentFrames(limit)
		if node := r.URL.Query().Get("node"); node != "" {
			frames = filterNode(frames, node)
		}
	}

	out := make([]FrameAPI, len(frames))
	for i, f := range frames {
		out[i] = toFrameAPI(f, u)
	}
	httputil.WriteJSONOK(w, out)
}

func filterNode(frames []telemetry.ParsedFrame, node string) []telemetry.ParsedFrame {
	out := frames[:0:0]
	for _, f := range frames {
		if f.NodeKey() == node {
			out = append(out, f)
		}
	}
	return out
}

func (s *Server) listRaw(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	limit, err := queryLimit(r, telemetry.MaxRawBuffer, telemetry.MaxRawBuffer)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, s.source.RecentRaw(limit))
}

// StatsAPI is the stats response: the summary plus the units of the
// heading fields.
type StatsAPI struct {
	db.FrameStats
	ThetaMean   float64 `json:"thetaMean"`
	ThetaStdDev float64 `json:"thetaStdDev"`
	Units       string  `json:"units"`
}

func toStatsAPI(st db.FrameStats, u string) StatsAPI {
	return StatsAPI{
		FrameStats:  st,
		ThetaMean:   units.ConvertAngle(st.ThetaMeanDeg, u),
		ThetaStdDev: units.ConvertAngle(st.ThetaStdDevDeg, u),
		Units:       u,
	}
}

func (s *Server) showStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	u, err := s.requestUnits(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	limit, err := queryLimit(r, telemetry.MaxFrameBuffer, telemetry.MaxFrameBuffer)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	frames := s.source.RecentFrames(limit)
	if node := r.URL.Query().Get("node"); node != "" {
		frames = filterNode(frames, node)
	}
	httputil.WriteJSONOK(w, toStatsAPI(db.ComputeFrameStats(frames), u))
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.db == nil {
		httputil.NotFound(w, "no telemetry database configured")
		return
	}
	limit, err := queryLimit(r, 50, 1000)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	sessions, err := s.db.Sessions(limit)
	if err != nil {
		httputil.InternalServerError(w, "failed to retrieve sessions: "+err.Error())
		return
	}
	if sessions == nil {
		sessions = []db.Session{}
	}
	httputil.WriteJSONOK(w, sessions)
}

func (s *Server) showSessionStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.db == nil {
		httputil.NotFound(w, "no telemetry database configured")
		return
	}
	u, err := s.requestUnits(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		httputil.BadRequest(w, "missing 'id' parameter")
		return
	}
	st, err := s.db.SessionStats(id)
	if errors.Is(err, db.ErrSessionNotFound) {
		httputil.NotFound(w, "session not found")
		return
	}
	if err != nil {
		httputil.InternalServerError(w, "failed to compute session stats: "+err.Error())
		return
	}
	httputil.WriteJSONOK(w, toStatsAPI(st, u))
}

func (s *Server) listCommands(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.db == nil {
		httputil.NotFound(w, "no telemetry database configured")
		return
	}
	limit, err := queryLimit(r, 100, 1000)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	cmds, err := s.db.Commands(limit)
	if err != nil {
		httputil.InternalServerError(w, "failed to retrieve commands: "+err.Error())
		return
	}
	if cmds == nil {
		cmds = []db.CommandRecord{}
	}
	httputil.WriteJSONOK(w, cmds)
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"units":          s.units,
		"maxFrameBuffer": telemetry.MaxFrameBuffer,
		"database":       s.db != nil,
	})
}

// sendCommandHandler forwards a command line to the device. The command is
// taken from a JSON body {"command": "..."} or a "command" form value.
func (s *Server) sendCommandHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	var command string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			Command string `json:"command"`
		}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&body); err != nil {
			httputil.BadRequest(w, "invalid JSON body")
			return
		}
		command = body.Command
	} else {
		command = r.FormValue("command")
	}
	command = strings.TrimSpace(command)
	if command == "" {
		httputil.BadRequest(w, "missing command")
		return
	}
	if len(command) > maxCommandLength || strings.ContainsAny(command, "\r\n") {
		httputil.BadRequest(w, "command must be a single line of at most 256 bytes")
		return
	}

	sendErr := s.commander.SendCommand(command)
	if s.db != nil {
		if _, err := s.db.RecordCommand(command, s.clock.Now(), sendErr); err != nil {
			log.Printf("failed to record command %q: %v", command, err)
		}
	}
	if sendErr != nil {
		httputil.ServiceUnavailable(w, "failed to send command: "+sendErr.Error())
		return
	}
	httputil.WriteJSONOK(w, map[string]string{"status": "sent", "command": command})
}
