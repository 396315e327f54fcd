package heatpump

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dwelling_simulator/internal/conditions"
	"dwelling_simulator/internal/energysupply"
	"dwelling_simulator/internal/simtime"
	"dwelling_simulator/internal/weather"
)

func baseConfig() *Config {
	return &Config{
		SourceType:                 "OutsideAir",
		SinkType:                   "Water",
		BackupCtrlType:             "TopUp",
		ModulatingControl:          true,
		MinModulationRate35:        0.35,
		MinModulationRate55:        0.4,
		TimeConstantOnOffOperation: 140,
		TempReturnFeedMax:          70,
		TempLowerOperatingLimit:    -5,
		PowerHeatingCircPump:       0.015,
		PowerSourceCircPump:        0.01,
		PowerStandby:               0.015,
		PowerCrankcaseHeater:       0.01,
		PowerMaxBackup:             3.0,
		FractionAuxiliary:          0.25,
		TestData:                   fixtureRecords(),
	}
}

// rig bundles a heat pump with the collaborators every scenario needs.
type rig struct {
	hp      *HeatPump
	supply  *energysupply.EnergySupply
	simTime *simtime.SimulationTime
}

// newRig builds a two-timestep simulation with a constant external air
// temperature.
func newRig(t *testing.T, cfg *Config, extTemp float64) *rig {
	t.Helper()

	simTime, err := simtime.New(0, 2, 1)
	require.NoError(t, err)

	series := weather.NewSeries([]weather.Record{
		{Hour: 0, AirTemp: extTemp},
		{Hour: 1, AirTemp: extTemp},
	})
	external, err := conditions.New(simTime, series)
	require.NoError(t, err)

	supply := energysupply.New("mains_electricity", simTime)
	hp, err := New(cfg, supply, simTime, external, "heat_pump_auxiliary")
	require.NoError(t, err)

	return &rig{hp: hp, supply: supply, simTime: simTime}
}

func TestNew_RejectsUnknownEnums(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(*Config)
	}{
		{"source", func(c *Config) { c.SourceType = "Moon" }},
		{"sink", func(c *Config) { c.SinkType = "Steam" }},
		{"backup", func(c *Config) { c.BackupCtrlType = "Sometimes" }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := baseConfig()
			tc.mutate(cfg)

			simTime, err := simtime.New(0, 1, 1)
			require.NoError(t, err)
			series := weather.NewSeries([]weather.Record{{Hour: 0, AirTemp: 5}})
			external, err := conditions.New(simTime, series)
			require.NoError(t, err)
			supply := energysupply.New("mains_electricity", simTime)

			_, err = New(cfg, supply, simTime, external, "aux")
			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestCreateService_DuplicateName(t *testing.T) {
	r := newRig(t, baseConfig(), 5)

	_, err := r.hp.CreateServiceHotWater("dhw", 55, 60, 10, nil)
	require.NoError(t, err)

	_, err = r.hp.CreateServiceHotWater("dhw", 55, 60, 10, nil)
	var dupErr *DuplicateServiceError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "dhw", dupErr.ServiceName)
}

func TestTempSource_Ground(t *testing.T) {
	cases := []struct {
		extTemp float64
		wantC   float64
	}{
		{2, 0.25806*2 + 2.8387},
		{30, 8.0},  // clamped at the warm end
		{-25, 0.0}, // clamped at the cold end
	}
	for _, tc := range cases {
		cfg := baseConfig()
		cfg.SourceType = "Ground"
		r := newRig(t, cfg, tc.extTemp)

		got, err := r.hp.tempSource()
		require.NoError(t, err)
		assert.InDelta(t, tc.wantC+273.15, got, 1e-9, "external temp %v", tc.extTemp)
	}
}

func TestTempSource_OutsideAir(t *testing.T) {
	r := newRig(t, baseConfig(), -3.5)
	got, err := r.hp.tempSource()
	require.NoError(t, err)
	assert.InDelta(t, 269.65, got, 1e-9)
}

func TestDemandEnergy_UnsupportedSourceType(t *testing.T) {
	cfg := baseConfig()
	cfg.SourceType = "HeatNetwork"
	r := newRig(t, cfg, 5)

	svc, err := r.hp.CreateServiceHotWater("dhw", 55, 60, 10, nil)
	require.NoError(t, err)

	_, err = svc.DemandEnergy(1.0)
	var srcErr *UnsupportedSourceTypeError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, SourceHeatNetwork, srcErr.Source)
}

func TestDemandEnergy_MeetsSmallDemand(t *testing.T) {
	r := newRig(t, baseConfig(), 2)
	svc, err := r.hp.CreateServiceHotWater("dhw", 55, 60, 10, nil)
	require.NoError(t, err)

	delivered, err := svc.DemandEnergy(1.0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, delivered, 1e-9)

	// Electricity was drawn against the service's connection.
	r.hp.TimestepEnd()
	perUser := r.supply.ResultsByEndUser()
	assert.Greater(t, perUser["dhw"][0], 0.0)
	assert.Less(t, perUser["dhw"][0], 1.0) // COP above 1 means input below output
}

func TestDemandEnergy_SharedTimeBudget(t *testing.T) {
	r := newRig(t, baseConfig(), 2)
	water, err := r.hp.CreateServiceHotWater("dhw", 55, 60, 10, nil)
	require.NoError(t, err)
	space, err := r.hp.CreateServiceSpaceHeating("space", 60, 5, nil)
	require.NoError(t, err)

	outputMax, err := water.EnergyOutputMax()
	require.NoError(t, err)
	require.Greater(t, outputMax, 0.0)

	// First service swallows the whole timestep.
	delivered, err := water.DemandEnergy(100.0)
	require.NoError(t, err)
	assert.InDelta(t, outputMax, delivered, 1e-9)

	// Nothing left for the second service.
	spaceMax, err := space.EnergyOutputMax(45)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, spaceMax, 1e-9)

	delivered, err = space.DemandEnergy(5.0, 45, 40)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, delivered, 1e-9)
}

func TestDemandEnergy_BackupSubstitute(t *testing.T) {
	cfg := baseConfig()
	cfg.BackupCtrlType = "Substitute"
	r := newRig(t, cfg, 2)
	svc, err := r.hp.CreateServiceHotWater("dhw", 55, 60, 10, nil)
	require.NoError(t, err)

	// Demand beyond the compressor's capacity trips the substitute backup,
	// which replaces the compressor entirely and is capped by its own power.
	delivered, err := svc.DemandEnergy(20.0)
	require.NoError(t, err)
	assert.InDelta(t, cfg.PowerMaxBackup*1.0, delivered, 1e-9)

	// Backup is direct electric, so input equals output.
	r.hp.TimestepEnd()
	assert.InDelta(t, cfg.PowerMaxBackup*1.0, r.supply.ResultsByEndUser()["dhw"][0], 1e-9)
}

func TestDemandEnergy_BackupBelowOperatingLimit(t *testing.T) {
	r := newRig(t, baseConfig(), -10) // source below the -5 operating limit
	svc, err := r.hp.CreateServiceHotWater("dhw", 55, 60, 10, nil)
	require.NoError(t, err)

	delivered, err := svc.DemandEnergy(2.0)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, delivered, 1e-9)

	// The compressor did not run, so the whole delivery is direct electric.
	r.hp.TimestepEnd()
	assert.InDelta(t, 2.0, r.supply.ResultsByEndUser()["dhw"][0], 1e-9)
}

func TestDemandEnergy_OutputLimitedByUpperTemp(t *testing.T) {
	r := newRig(t, baseConfig(), 2)
	svc, err := r.hp.CreateServiceHotWater("dhw", 80, 60, 10, nil)
	require.NoError(t, err)

	// Requested 80C against a 60C limit with a 10C return: only the
	// achievable fraction of the temperature rise can be served.
	delivered, err := svc.DemandEnergy(1.4)
	require.NoError(t, err)
	assert.InDelta(t, 1.4*(60.0-10.0)/(80.0-10.0), delivered, 1e-9)
}

func TestDemandEnergy_MinFlowReturnDiff(t *testing.T) {
	cfg := baseConfig()
	cfg.MinTempDiffFlowReturnForHPToOperate = 1.0
	r := newRig(t, cfg, 2)

	// Return feed within one Kelvin of the upper limit leaves no usable
	// temperature rise at all.
	svc, err := r.hp.CreateServiceHotWater("dhw", 80, 60, 59.5, nil)
	require.NoError(t, err)

	delivered, err := svc.DemandEnergy(1.0)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, delivered, 1e-9)
}

func TestTimestepEnd_StandbyOnlyWhenServiceOn(t *testing.T) {
	cfg := baseConfig()
	r := newRig(t, cfg, 2)
	svc, err := r.hp.CreateServiceHotWater("dhw", 55, 60, 10, nil)
	require.NoError(t, err)

	// Service on with zero demand: compressor never runs, but standby and
	// crankcase heater draw for the whole timestep.
	_, err = svc.DemandEnergy(0.0)
	require.NoError(t, err)
	r.hp.TimestepEnd()

	wantStandby := cfg.PowerStandby + cfg.PowerCrankcaseHeater
	assert.InDelta(t, wantStandby, r.supply.ResultsByEndUser()["heat_pump_auxiliary"][0], 1e-9)
}

func TestTimestepEnd_NoAuxWhenAllServicesOff(t *testing.T) {
	r := newRig(t, baseConfig(), 2)
	svc, err := r.hp.CreateServiceHotWater("dhw", 55, 60, 10, offControl{})
	require.NoError(t, err)

	delivered, err := svc.DemandEnergy(3.0)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, delivered, 1e-9)

	r.hp.TimestepEnd()
	assert.InDelta(t, 0.0, r.supply.ResultsTotal()[0], 1e-9)
}

func TestTimestepEnd_ResetsRunningTimeBudget(t *testing.T) {
	r := newRig(t, baseConfig(), 2)
	svc, err := r.hp.CreateServiceHotWater("dhw", 55, 60, 10, nil)
	require.NoError(t, err)

	fullBudget, err := svc.EnergyOutputMax()
	require.NoError(t, err)

	_, err = svc.DemandEnergy(100.0)
	require.NoError(t, err)

	r.hp.TimestepEnd()
	require.True(t, r.simTime.Next())

	nextBudget, err := svc.EnergyOutputMax()
	require.NoError(t, err)
	assert.InDelta(t, fullBudget, nextBudget, 1e-9)
}

func TestDemandEnergy_NeverOverOrUnderDelivers(t *testing.T) {
	for _, backupCtrl := range []string{"None", "TopUp", "Substitute"} {
		for _, demand := range []float64{0, 0.5, 2, 8, 50} {
			cfg := baseConfig()
			cfg.BackupCtrlType = backupCtrl
			r := newRig(t, cfg, 2)
			svc, err := r.hp.CreateServiceHotWater("dhw", 55, 60, 10, nil)
			require.NoError(t, err)

			delivered, err := svc.DemandEnergy(demand)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, delivered, 0.0,
				"backup %s, demand %v", backupCtrl, demand)
			assert.LessOrEqual(t, delivered, demand+1e-9,
				"backup %s, demand %v", backupCtrl, demand)
		}
	}
}

func TestTimestepEnd_SecondCallAddsNothing(t *testing.T) {
	r := newRig(t, baseConfig(), 2)
	svc, err := r.hp.CreateServiceHotWater("dhw", 55, 60, 10, nil)
	require.NoError(t, err)

	_, err = svc.DemandEnergy(1.0)
	require.NoError(t, err)

	r.hp.TimestepEnd()
	totalAfterFirst := r.supply.ResultsTotal()[0]

	// The scratch state is cleared, so a repeated call has nothing to post.
	r.hp.TimestepEnd()
	assert.InDelta(t, totalAfterFirst, r.supply.ResultsTotal()[0], 1e-12)
}

func TestCopDegCoeffOpCond_DegradationBands(t *testing.T) {
	// Air sink serving space heating sits in the low degradation band; a
	// water sink is clamped into [0.9, 1.0].
	cfg := baseConfig()
	cfg.SinkType = "Air"
	r := newRig(t, cfg, 2)

	tempSource, err := r.hp.tempSource()
	require.NoError(t, err)

	_, degSpace, err := r.hp.copDegCoeffOpCond(ServiceTypeSpace, celsiusToKelvin(45), tempSource, 1.0)
	require.NoError(t, err)
	assert.LessOrEqual(t, degSpace, 0.25)

	_, degWater, err := r.hp.copDegCoeffOpCond(ServiceTypeWater, celsiusToKelvin(45), tempSource, 1.0)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, degWater, 0.9)
	assert.LessOrEqual(t, degWater, 1.0)
}

func TestCopDegCoeffOpCond_COPFlooredAtOne(t *testing.T) {
	r := newRig(t, baseConfig(), 2)
	tempSource, err := r.hp.tempSource()
	require.NoError(t, err)

	// An absurdly punitive spread correction cannot push COP below 1.
	cop, _, err := r.hp.copDegCoeffOpCond(ServiceTypeWater, celsiusToKelvin(55), tempSource, 1e-6)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, cop, 1e-9)
}

func TestLoadRatioContinuousMin(t *testing.T) {
	r := newRig(t, baseConfig(), 2)

	assert.InDelta(t, 0.35, r.hp.loadRatioContinuousMin(celsiusToKelvin(35)), 1e-9)
	assert.InDelta(t, 0.4, r.hp.loadRatioContinuousMin(celsiusToKelvin(55)), 1e-9)
	assert.InDelta(t, 0.375, r.hp.loadRatioContinuousMin(celsiusToKelvin(45)), 1e-9)

	// Clamped to the tested band outside it.
	assert.InDelta(t, 0.35, r.hp.loadRatioContinuousMin(celsiusToKelvin(20)), 1e-9)
	assert.InDelta(t, 0.4, r.hp.loadRatioContinuousMin(celsiusToKelvin(70)), 1e-9)

	cfg := baseConfig()
	cfg.ModulatingControl = false
	fixed := newRig(t, cfg, 2)
	assert.InDelta(t, 1.0, fixed.hp.loadRatioContinuousMin(celsiusToKelvin(45)), 1e-9)
}

func TestTempSpreadCorrection(t *testing.T) {
	r := newRig(t, baseConfig(), 2)

	// Unknown emitter spread leaves the COP untouched.
	assert.InDelta(t, 1.0, r.hp.tempSpreadCorrection(275.15, celsiusToKelvin(45), 0), 1e-9)

	// An emitter spread matching the test spread needs no correction either.
	spreadTest := r.hp.testData.TempSpreadTestConditions(celsiusToKelvin(45))
	assert.InDelta(t, 1.0, r.hp.tempSpreadCorrection(275.15, celsiusToKelvin(45), spreadTest), 1e-9)

	// A tighter emitter spread than tested penalises the COP.
	correction := r.hp.tempSpreadCorrection(275.15, celsiusToKelvin(45), spreadTest-3)
	assert.Less(t, correction, 1.0)
	assert.Greater(t, correction, 0.0)
}
