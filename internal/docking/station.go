package docking

import (
	"errors"
	"fmt"
	"sync"

	"github.com/banshee-data/beacon-dock/internal/monitoring"
)

// ErrNotQueued is returned when an agent asks to stop charging without
// having requested a slot.
var ErrNotQueued = errors.New("agent not queued for charge")

// Station is a single-slot charging station that serves agents in request
// order. The agent at the head of the queue holds the slot until it asks to
// stop.
type Station struct {
	mu       sync.Mutex
	queue    []string
	finished map[string]bool

	// OnStart and OnEnd, if set, are called with the agent id when the
	// slot is granted and released. They run with the station lock held
	// and must not call back into the station.
	OnStart func(id string)
	OnEnd   func(id string)
}

// NewStation returns an empty station.
func NewStation() *Station {
	return &Station{finished: make(map[string]bool)}
}

// Client returns the Coordinator view of the station for one agent.
func (s *Station) Client(id string) Coordinator {
	return &stationClient{s: s, id: id}
}

// Queue returns the waiting agents, slot holder first.
func (s *Station) Queue() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queue...)
}

// Holder returns the agent currently holding the slot.
func (s *Station) Holder() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return "", false
	}
	return s.queue[0], true
}

func (s *Station) enqueue(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.finished, id)
	if s.indexLocked(id) >= 0 {
		return
	}
	s.queue = append(s.queue, id)
	monitoring.Logf("station: %s queued at position %d", id, len(s.queue))
	if len(s.queue) == 1 {
		s.grantLocked()
	}
}

func (s *Station) release(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("station: %s: %w", id, ErrNotQueued)
	}
	s.queue = append(s.queue[:i], s.queue[i+1:]...)
	s.finished[id] = true
	if i == 0 {
		if s.OnEnd != nil {
			s.OnEnd(id)
		}
		monitoring.Logf("station: %s released slot", id)
		s.grantLocked()
	}
	return nil
}

func (s *Station) granted(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue) > 0 && s.queue[0] == id
}

func (s *Station) done(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished[id]
}

func (s *Station) grantLocked() {
	if len(s.queue) == 0 {
		return
	}
	id := s.queue[0]
	if s.OnStart != nil {
		s.OnStart(id)
	}
	monitoring.Logf("station: %s granted slot", id)
}

func (s *Station) indexLocked(id string) int {
	for i, q := range s.queue {
		if q == id {
			return i
		}
	}
	return -1
}

type stationClient struct {
	s  *Station
	id string
}

func (c *stationClient) RequestCharge() error {
	c.s.enqueue(c.id)
	return nil
}

func (c *stationClient) RequestStopCharge() error { return c.s.release(c.id) }
func (c *stationClient) ChargeGranted() bool      { return c.s.granted(c.id) }
func (c *stationClient) ChargeFinished() bool     { return c.s.done(c.id) }
