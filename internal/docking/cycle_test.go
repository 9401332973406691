package docking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/beacon-dock/internal/navigation"
	"github.com/banshee-data/beacon-dock/internal/sim"
)

func TestChargeCycleInSimulatedWorld(t *testing.T) {
	quietLogs(t)

	world := sim.NewWorld(sim.DefaultConfig(), sim.StartFacingAway(1.5))
	sup := navigation.NewSupervisor(navigation.DefaultConfig(), world, world)
	ep := sim.NewEpisode(world, 5*time.Millisecond, 0)
	station := NewStation()
	ind := &colorLog{}
	agent := NewAgent(DefaultConfig(), sup, station.Client("bot-1"), ind, ep.Clock, ep.Ms)

	phases := []Phase{agent.Phase()}
	var elapsed time.Duration
	for agent.Cycles() == 0 && elapsed < 2*time.Minute {
		require.NoError(t, agent.Step())
		if p := agent.Phase(); p != phases[len(phases)-1] {
			phases = append(phases, p)
		}
		world.Step(ep.Step)
		ep.Clock.Advance(ep.Step)
		elapsed += ep.Step
	}

	require.Equal(t, 1, agent.Cycles(), "cycle incomplete after %v, phases %v", elapsed, phases)
	assert.Equal(t, []Phase{Work, ToCharge, WaitCharge, IntoCharge, Charge, ExitCharge, Work}, phases)
	assert.Less(t, world.Distance(), 1.0)
	assert.Equal(t, navigation.Idle, sup.Mode())
	assert.Empty(t, station.Queue())

	l, r := world.Duties()
	assert.Zero(t, l)
	assert.Zero(t, r)
}
