package energysupply

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dwelling_simulator/internal/simtime"
)

func newSupply(t *testing.T) (*EnergySupply, *simtime.SimulationTime) {
	t.Helper()
	st, err := simtime.New(0, 3, 1)
	require.NoError(t, err)
	return New("mains_electricity", st), st
}

func TestEnergySupply_FuelType(t *testing.T) {
	s, _ := newSupply(t)
	assert.Equal(t, "mains_electricity", s.FuelType())
}

func TestEnergySupply_DuplicateConnectionName(t *testing.T) {
	s, _ := newSupply(t)

	_, err := s.Connection("heat_pump")
	require.NoError(t, err)

	_, err = s.Connection("heat_pump")
	assert.Error(t, err)
}

func TestEnergySupply_AccumulatesPerTimestep(t *testing.T) {
	s, st := newSupply(t)

	hp, err := s.Connection("heat_pump")
	require.NoError(t, err)
	aux, err := s.Connection("auxiliary")
	require.NoError(t, err)

	hp.DemandEnergy(1.5)
	hp.DemandEnergy(0.5) // same timestep, same end user
	aux.DemandEnergy(0.1)

	require.True(t, st.Next())
	hp.DemandEnergy(2.0)

	total := s.ResultsTotal()
	require.Len(t, total, 3)
	assert.InDelta(t, 2.1, total[0], 1e-12)
	assert.InDelta(t, 2.0, total[1], 1e-12)
	assert.Zero(t, total[2])

	byUser := s.ResultsByEndUser()
	assert.InDelta(t, 2.0, byUser["heat_pump"][0], 1e-12)
	assert.InDelta(t, 2.0, byUser["heat_pump"][1], 1e-12)
	assert.InDelta(t, 0.1, byUser["auxiliary"][0], 1e-12)
	assert.Zero(t, byUser["auxiliary"][1])
}

func TestConnection_Name(t *testing.T) {
	s, _ := newSupply(t)
	conn, err := s.Connection("heat_pump")
	require.NoError(t, err)
	assert.Equal(t, "heat_pump", conn.Name())
}
