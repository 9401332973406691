package navigation

import (
	"context"
	"time"

	"github.com/banshee-data/beacon-dock/internal/timeutil"
)

// Run drives Tick from clock until the agent arrives or ctx is done. The
// ticker runs at half the control period so the scheduler, not the ticker,
// sets the cadence. A supervisor that is Idle is begun first.
func (s *Supervisor) Run(ctx context.Context, clock timeutil.Clock, src TimeSource) (bool, error) {
	if !s.Active() {
		s.Begin(src.NowMs())
	}

	interval := time.Duration(s.Period()) * time.Millisecond / 2
	if interval < time.Millisecond {
		interval = time.Millisecond
	}
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		if s.Tick(src.NowMs()) {
			return true, nil
		}
		select {
		case <-ctx.Done():
			s.Reset()
			return false, ctx.Err()
		case <-ticker.C():
		}
	}
}
