package db

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/beacon-dock/internal/monitoring"
	"github.com/banshee-data/beacon-dock/internal/telemetry"
	"github.com/banshee-data/beacon-dock/internal/timeutil"
)

// DefaultSessionGap is how long a node may go quiet before its next frame
// starts a new session.
const DefaultSessionGap = 5 * time.Second

// RecorderConfig tunes how frames are grouped into sessions.
type RecorderConfig struct {
	// SessionGap closes a node's session when no frame arrives for this long.
	SessionGap time.Duration
	// ArriveSignal is the total signal at which a tracking frame ends the
	// session as arrived. Zero disables arrival marking.
	ArriveSignal float64
}

type openSession struct {
	id         string
	lastTMs    uint32
	lastSeenAt time.Time
}

// Recorder groups parsed frames into per-node sessions and stores them.
type Recorder struct {
	db  *DB
	cfg RecorderConfig

	mu   sync.Mutex
	open map[string]*openSession
}

// NewRecorder returns a recorder writing to db.
func NewRecorder(db *DB, cfg RecorderConfig) *Recorder {
	if cfg.SessionGap <= 0 {
		cfg.SessionGap = DefaultSessionGap
	}
	return &Recorder{db: db, cfg: cfg, open: make(map[string]*openSession)}
}

// RecordFrame stores f, starting a new session for its node when none is
// open, when the node has been quiet longer than the session gap, or when
// the node's millis counter shows it rebooted. A counter wrap keeps the
// session.
func (r *Recorder) RecordFrame(f telemetry.ParsedFrame) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	node := f.NodeKey()
	receivedAt := f.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.UnixMilli(f.ReceivedAtMs)
	}

	sess := r.open[node]
	if sess != nil && r.expired(sess, f.TMs, receivedAt) {
		if err := r.db.endSession(sess.id, sess.lastSeenAt, false); err != nil {
			return err
		}
		delete(r.open, node)
		sess = nil
	}
	if sess == nil {
		sess = &openSession{id: uuid.NewString()}
		if err := r.db.createSession(sess.id, node, receivedAt, f.TMs); err != nil {
			return err
		}
		r.open[node] = sess
		monitoring.Logf("db: session %s started for node %s", sess.id, node)
	}

	if _, err := r.db.InsertFrame(sess.id, f); err != nil {
		return err
	}
	if err := r.db.touchSession(sess.id, f.TMs); err != nil {
		return err
	}
	sess.lastTMs = f.TMs
	sess.lastSeenAt = receivedAt

	if r.arrived(f) {
		if err := r.db.endSession(sess.id, receivedAt, true); err != nil {
			return err
		}
		delete(r.open, node)
		monitoring.Logf("db: session %s for node %s arrived", sess.id, node)
	}
	return nil
}

// expired reports whether a frame at tMs, received at receivedAt, starts a
// new session. The agent's counter wraps every ~49.7 days, so it is compared
// wrap-aware: a counter that stepped back, or leapt further ahead than the
// wall clock allows, means the agent rebooted.
func (r *Recorder) expired(sess *openSession, tMs uint32, receivedAt time.Time) bool {
	elapsed := receivedAt.Sub(sess.lastSeenAt)
	if elapsed > r.cfg.SessionGap {
		return true
	}
	if timeutil.Before(tMs, sess.lastTMs) {
		return true
	}
	return tMs-sess.lastTMs > timeutil.Millis(elapsed+r.cfg.SessionGap)
}

// arrived mirrors the agent's own arrival test: a detected frame whose total
// signal reaches the threshold with the front channel strongest.
func (r *Recorder) arrived(f telemetry.ParsedFrame) bool {
	if r.cfg.ArriveSignal <= 0 || !f.Detected || f.Signal < r.cfg.ArriveSignal {
		return false
	}
	return f.AmpF >= math.Max(f.AmpB, math.Max(f.AmpL, f.AmpR))
}

// CurrentSession returns the open session id for node, if any.
func (r *Recorder) CurrentSession(node string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.open[node]; ok {
		return s.id, true
	}
	return "", false
}

// Close ends every open session at now.
func (r *Recorder) Close(now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var firstErr error
	for node, s := range r.open {
		if err := r.db.endSession(s.id, now, false); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("node %s: %w", node, err)
		}
		delete(r.open, node)
	}
	return firstErr
}
