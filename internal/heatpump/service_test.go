package heatpump

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// offControl is a Control that is always off.
type offControl struct{}

func (offControl) IsOn() bool { return false }

// switchControl is a Control toggled by the test.
type switchControl struct{ on bool }

func (c *switchControl) IsOn() bool { return c.on }

func TestServiceWater_ControlGatesDemand(t *testing.T) {
	r := newRig(t, baseConfig(), 2)
	ctrl := &switchControl{on: false}
	svc, err := r.hp.CreateServiceHotWater("dhw", 55, 60, 10, ctrl)
	require.NoError(t, err)

	delivered, err := svc.DemandEnergy(2.0)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, delivered, 1e-9)

	r.hp.TimestepEnd()
	require.True(t, r.simTime.Next())

	ctrl.on = true
	delivered, err = svc.DemandEnergy(2.0)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, delivered, 1e-9)
}

func TestServiceSpace_ControlGatesDemand(t *testing.T) {
	r := newRig(t, baseConfig(), 2)
	svc, err := r.hp.CreateServiceSpaceHeating("space", 60, 5, offControl{})
	require.NoError(t, err)

	delivered, err := svc.DemandEnergy(2.0, 45, 40)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, delivered, 1e-9)
}

func TestServiceSpace_DeliversDemand(t *testing.T) {
	r := newRig(t, baseConfig(), 2)
	svc, err := r.hp.CreateServiceSpaceHeating("space", 60, 5, nil)
	require.NoError(t, err)

	delivered, err := svc.DemandEnergy(2.0, 45, 40)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, delivered, 1e-9)

	r.hp.TimestepEnd()
	assert.Greater(t, r.supply.ResultsByEndUser()["space"][0], 0.0)
}

func TestServiceSpace_EnergyOutputMaxClampedAtLimit(t *testing.T) {
	r := newRig(t, baseConfig(), 2)
	svc, err := r.hp.CreateServiceSpaceHeating("space", 50, 5, nil)
	require.NoError(t, err)

	// Flow temperatures above the upper limit cannot raise the budget.
	atLimit, err := svc.EnergyOutputMax(50)
	require.NoError(t, err)
	aboveLimit, err := svc.EnergyOutputMax(70)
	require.NoError(t, err)
	assert.InDelta(t, atLimit, aboveLimit, 1e-9)
}

func TestServiceWater_EnergyOutputMax(t *testing.T) {
	r := newRig(t, baseConfig(), 2)
	svc, err := r.hp.CreateServiceHotWater("dhw", 55, 60, 10, nil)
	require.NoError(t, err)

	outputMax, err := svc.EnergyOutputMax()
	require.NoError(t, err)
	assert.Greater(t, outputMax, 0.0)

	// The budget equals one full timestep at operating capacity, so serving
	// exactly that much is possible and nothing beyond it.
	delivered, err := svc.DemandEnergy(outputMax + 5.0)
	require.NoError(t, err)
	assert.InDelta(t, outputMax, delivered, 1e-9)
}
