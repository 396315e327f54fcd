// Package heatpump models an electric heat pump for the dwelling compliance
// calculation. Manufacturer test-bench data is normalized into a continuous
// performance surface (capacity, COP, cycling degradation), which a
// per-timestep energy-balance engine uses to decide how much of a requested
// heat demand the compressor can satisfy, when the backup heater takes over,
// and how ancillary and auxiliary electricity is apportioned across the
// services sharing the unit.
package heatpump

import (
	"math"

	"dwelling_simulator/internal/conditions"
	"dwelling_simulator/internal/energysupply"
	"dwelling_simulator/internal/simtime"
)

const (
	// Minimum source/output temperature difference used when computing the
	// Carnot COP, preventing singular values when the temperatures are
	// close.
	tempDiffCarnotMin = 6.0

	// Average temperature difference between the heat transfer medium and
	// the refrigerant in the condenser and evaporator.
	tempDiffCondenser  = 5.0
	tempDiffEvaporator = -15.0

	// Fixed service time constants for the on/off inertia correction, in
	// seconds.
	timeConstantWater = 1560.0
	timeConstantSpace = 1370.0
)

// serviceResult captures one service call within the current timestep. The
// list of results is the timestep scratch state consumed and cleared by
// TimestepEnd.
type serviceResult struct {
	serviceName        string
	serviceType        ServiceType
	serviceOn          bool
	timeRunning        float64 // hours of compressor operation
	loadRatio          float64
	loadRatioMin       float64 // minimum continuous modulation ratio
	capacity           float64 // kW at operating conditions
	cop                float64
	degCoeff           float64
	onOffOperation     bool
	backupOnly         bool
	energyInputDivisor float64
}

// HeatPump is the demand/energy-balance engine for one physical unit.
type HeatPump struct {
	testData *TestData

	sourceType SourceType
	sinkType   SinkType
	backupCtrl BackupCtrl

	modulatingCtrl      bool
	minModulationRate35 float64
	minModulationRate55 float64
	timeConstantOnOff   float64 // seconds
	varTempCtrlTest     bool

	tempReturnFeedMax float64 // Kelvin
	tempLowerOpLimit  float64 // Kelvin

	tempMinDiffFlowReturn float64 // K

	powerHeatingCircPump float64 // kW
	powerSourceCircPump  float64 // kW
	powerStandby         float64 // kW
	powerCrankcaseHeater float64 // kW
	powerMaxBackup       float64 // kW
	fractionAux          float64

	simTime      *simtime.SimulationTime
	external     *conditions.ExternalConditions
	energySupply *energysupply.EnergySupply

	connections map[string]*energysupply.Connection
	connAux     *energysupply.Connection

	// Per-timestep scratch state, reset only by TimestepEnd.
	totalTimeRunning float64 // hours consumed by earlier calls this timestep
	serviceResults   []serviceResult
}

// New validates the configuration, normalizes the test data and registers
// the auxiliary energy connection nameAux on the supply.
func New(
	cfg *Config,
	supply *energysupply.EnergySupply,
	simTime *simtime.SimulationTime,
	external *conditions.ExternalConditions,
	nameAux string,
) (*HeatPump, error) {
	sourceType, err := ParseSourceType(cfg.SourceType)
	if err != nil {
		return nil, err
	}
	sinkType, err := ParseSinkType(cfg.SinkType)
	if err != nil {
		return nil, err
	}
	backupCtrl, err := ParseBackupCtrl(cfg.BackupCtrlType)
	if err != nil {
		return nil, err
	}
	testData, err := NewTestData(cfg.TestData)
	if err != nil {
		return nil, err
	}

	connAux, err := supply.Connection(nameAux)
	if err != nil {
		return nil, &DuplicateServiceError{ServiceName: nameAux}
	}

	return &HeatPump{
		connAux:               connAux,
		testData:              testData,
		sourceType:            sourceType,
		sinkType:              sinkType,
		backupCtrl:            backupCtrl,
		modulatingCtrl:        cfg.ModulatingControl,
		minModulationRate35:   cfg.MinModulationRate35,
		minModulationRate55:   cfg.MinModulationRate55,
		timeConstantOnOff:     cfg.TimeConstantOnOffOperation,
		varTempCtrlTest:       cfg.VarFlowTempCtrlDuringTest,
		tempReturnFeedMax:     celsiusToKelvin(cfg.TempReturnFeedMax),
		tempLowerOpLimit:      celsiusToKelvin(cfg.TempLowerOperatingLimit),
		tempMinDiffFlowReturn: cfg.MinTempDiffFlowReturnForHPToOperate,
		powerHeatingCircPump:  cfg.PowerHeatingCircPump,
		powerSourceCircPump:   cfg.PowerSourceCircPump,
		powerStandby:          cfg.PowerStandby,
		powerCrankcaseHeater:  cfg.PowerCrankcaseHeater,
		powerMaxBackup:        cfg.PowerMaxBackup,
		fractionAux:           cfg.FractionAuxiliary,
		simTime:               simTime,
		external:              external,
		energySupply:          supply,
		connections:           make(map[string]*energysupply.Connection),
	}, nil
}

// TestData exposes the normalized test data set.
func (hp *HeatPump) TestData() *TestData { return hp.testData }

// registerService reserves a unique service name and its energy connection.
func (hp *HeatPump) registerService(serviceName string) (*energysupply.Connection, error) {
	if _, exists := hp.connections[serviceName]; exists {
		return nil, &DuplicateServiceError{ServiceName: serviceName}
	}
	conn, err := hp.energySupply.Connection(serviceName)
	if err != nil {
		return nil, &DuplicateServiceError{ServiceName: serviceName}
	}
	hp.connections[serviceName] = conn
	return conn, nil
}

// tempSource derives the source temperature (Kelvin) from the current
// external air temperature.
func (hp *HeatPump) tempSource() (float64, error) {
	extAir := hp.external.AirTemp()
	switch hp.sourceType {
	case SourceGround:
		// UK ground temperature model: linear in external air temperature,
		// clamped to [0, 8] Celsius.
		ground := 0.25806*extAir + 2.8387
		if ground < 0.0 {
			ground = 0.0
		} else if ground > 8.0 {
			ground = 8.0
		}
		return celsiusToKelvin(ground), nil
	case SourceOutsideAir:
		return celsiusToKelvin(extAir), nil
	default:
		return 0, &UnsupportedSourceTypeError{Source: hp.sourceType}
	}
}

// useExergyModel reports whether performance must be extrapolated on the
// exergy surface. Air-source units and units tested under variable flow
// temperature control saw a varying source temperature during testing, so
// their test records cannot be read back directly.
func (hp *HeatPump) useExergyModel() bool {
	return hp.sourceType == SourceOutsideAir || hp.varTempCtrlTest
}

func carnotCOP(tempSource, tempOutput float64) float64 {
	return tempOutput / math.Max(tempOutput-tempSource, tempDiffCarnotMin)
}

// thermalCapacityOpCond returns the thermal capacity (kW) at the operating
// conditions. Temperatures in Kelvin.
func (hp *HeatPump) thermalCapacityOpCond(tempOutput, tempSource float64) float64 {
	if !hp.useExergyModel() {
		return hp.testData.CapacityOpCondIfNotAirSource(tempOutput, tempSource, hp.modulatingCtrl)
	}
	// Exergy surface: extrapolate from the coldest record with the cubic
	// relation, as for a modulating non-air unit.
	return hp.testData.CapacityOpCondIfNotAirSource(tempOutput, tempSource, true)
}

// copDegCoeffOpCond returns COP and degradation coefficient at the operating
// conditions. Temperatures in Kelvin.
func (hp *HeatPump) copDegCoeffOpCond(
	serviceType ServiceType,
	tempOutput, tempSource, tempSpreadCorrection float64,
) (cop, degCoeff float64, err error) {
	if !hp.useExergyModel() {
		// Source temperature was effectively constant during testing, so the
		// test data applies directly.
		tempExt := celsiusToKelvin(hp.external.AirTemp())
		cop = hp.testData.COPOpCondIfNotAirSource(tempDiffCarnotMin, tempExt, tempSource, tempOutput)
		degCoeff = hp.testData.AverageDegradationCoeff(tempOutput)
		return cop, degCoeff, nil
	}

	carnotOpCond := carnotCOP(tempSource, tempOutput)
	lrOpCond := hp.testData.LoadRatioAtOperatingConditions(tempOutput, tempSource, carnotOpCond)
	lrBelow, lrAbove, effBelow, effAbove, degBelow, degAbove :=
		hp.testData.LoadRatioEffDegCoeffEitherSideOfOpCond(tempOutput, lrOpCond)

	effOpCond := effBelow
	degCoeff = degBelow
	if lrAbove != lrBelow {
		frac := (lrOpCond - lrBelow) / (lrAbove - lrBelow)
		effOpCond = effBelow + frac*(effAbove-effBelow)
		degCoeff = degBelow + frac*(degAbove-degBelow)
	}

	cop = math.Max(1.0, effOpCond*carnotOpCond*tempSpreadCorrection)

	// An air sink serving anything but hot water cycles against a much
	// smaller thermal mass; its degradation band differs from every other
	// combination.
	if hp.sinkType == SinkAir && serviceType != ServiceTypeWater {
		degCoeff = clamp(degCoeff, 0.0, 0.25)
	} else {
		degCoeff = clamp(degCoeff, 0.9, 1.0)
	}
	return cop, degCoeff, nil
}

// tempSpreadCorrection compares the emitter temperature spread at operating
// conditions with the spread at test conditions. A unit emitter spread of
// zero (unknown) leaves the COP uncorrected.
func (hp *HeatPump) tempSpreadCorrection(tempSource, tempOutput, tempSpreadEmitter float64) float64 {
	if tempSpreadEmitter <= 0 {
		return 1.0
	}
	spreadTest := hp.testData.TempSpreadTestConditions(tempOutput)
	return 1.0 - ((spreadTest-tempSpreadEmitter)/2.0)/
		(tempOutput-spreadTest/2.0+tempDiffCondenser-tempSource-tempDiffEvaporator)
}

// energyOutputLimited scales the requested energy down when the requested
// output temperature exceeds the upper operating limit. Temperatures in
// Kelvin.
func (hp *HeatPump) energyOutputLimited(
	energyOutputRequired, tempOutput, tempReturn, tempLimitUpper float64,
) float64 {
	if tempOutput <= tempLimitUpper {
		return energyOutputRequired
	}
	if tempOutput == tempReturn {
		return energyOutputRequired
	}
	if tempLimitUpper-tempReturn < hp.tempMinDiffFlowReturn {
		// Unit cannot run at all within its limits.
		return 0.0
	}
	return energyOutputRequired * (tempLimitUpper - tempReturn) / (tempOutput - tempReturn)
}

// loadRatioContinuousMin returns the minimum continuous modulation ratio at
// the output temperature (Kelvin). Output temperature is clamped to the
// 35-55 Celsius test band for this interpolation only.
func (hp *HeatPump) loadRatioContinuousMin(tempOutput float64) float64 {
	if !hp.modulatingCtrl {
		return 1.0
	}
	tempOutputC := clamp(kelvinToCelsius(tempOutput), 35.0, 55.0)
	frac := (tempOutputC - 35.0) / 20.0
	return hp.minModulationRate35 + frac*(hp.minModulationRate55-hp.minModulationRate35)
}

// demandEnergy runs the per-call energy balance for one service. Calls
// within a timestep share a running-time budget in call order. Returns the
// energy delivered (kWh), compressor and backup combined.
//
// Called via a service adapter, not directly.
func (hp *HeatPump) demandEnergy(
	serviceName string,
	serviceType ServiceType,
	energyOutputRequired float64,
	tempOutput float64, // Kelvin
	tempReturnFeed float64, // Kelvin
	tempLimitUpper float64, // Kelvin
	timeConstantForService float64, // seconds
	serviceOn bool,
	tempSpreadCorrection float64,
) (float64, error) {
	timestep := hp.simTime.Timestep()

	energyOutputLimited := hp.energyOutputLimited(
		energyOutputRequired, tempOutput, tempReturnFeed, tempLimitUpper)
	if !serviceOn {
		energyOutputLimited = 0.0
	}

	tempSource, err := hp.tempSource()
	if err != nil {
		return 0, err
	}
	if tempOutput > tempLimitUpper {
		tempOutput = tempLimitUpper
	}

	capacity := hp.thermalCapacityOpCond(tempOutput, tempSource)
	cop, degCoeff, err := hp.copDegCoeffOpCond(serviceType, tempOutput, tempSource, tempSpreadCorrection)
	if err != nil {
		return 0, err
	}

	// Services are served in call order; each later call only gets the
	// remaining time in the timestep.
	timeAvailable := timestep - hp.totalTimeRunning
	timeRunning := math.Min(energyOutputLimited/capacity, timeAvailable)
	if timeRunning < 0 {
		timeRunning = 0
	}

	loadRatio := timeRunning / timestep
	loadRatioMin := hp.loadRatioContinuousMin(tempOutput)
	onOffOperation := loadRatio > 0.0 && loadRatio < loadRatioMin

	// Backup trigger, evaluated on this call's values regardless of the
	// on/off state.
	outsideOperatingLimits := tempSource <= hp.tempLowerOpLimit ||
		tempReturnFeed > hp.tempReturnFeedMax
	insufficientCapacity := energyOutputRequired > capacity*timestep &&
		hp.backupCtrl == BackupSubstitute
	backupRequired := hp.backupCtrl != BackupNone &&
		(outsideOperatingLimits || insufficientCapacity)

	backupOnly := backupRequired
	if backupOnly {
		// Compressor contribution is forced to zero for this call.
		timeRunning = 0.0
		loadRatio = 0.0
		onOffOperation = false
	}

	energyDeliveredHP := capacity * timeRunning

	var energyDeliveredBackup float64
	if backupRequired && serviceOn {
		switch hp.backupCtrl {
		case BackupTopUp:
			energyDeliveredBackup = math.Max(0.0, energyOutputLimited-energyDeliveredHP)
		case BackupSubstitute:
			energyDeliveredBackup = energyOutputLimited
		}
		if hp.powerMaxBackup > 0 {
			energyDeliveredBackup = math.Min(energyDeliveredBackup, hp.powerMaxBackup*timestep)
		}
	}

	// On/off cycling wastes energy starting and stopping the compressor;
	// the divisor corrects the electrical input for the water/air-sink
	// combination only. The branch is empirical and kept as a literal
	// special case.
	energyInputDivisor := 1.0
	if onOffOperation && serviceType == ServiceTypeWater && hp.sinkType == SinkAir {
		energyInputDivisor = 1.0 - degCoeff*(1.0-loadRatio/loadRatioMin)
	}

	var energyInputHP float64
	switch {
	case timeRunning <= 0.0:
		energyInputHP = 0.0
	case onOffOperation:
		compressorPowerFullLoad := capacity / cop
		powerInertia := capacity * hp.timeConstantOnOff *
			loadRatio * (1.0 - loadRatio) / timeConstantForService
		energyInputHP = (compressorPowerFullLoad*(1.0+hp.fractionAux) + powerInertia) *
			timeRunning / energyInputDivisor
	default:
		energyInputHP = energyDeliveredHP / cop
	}

	// Backup is direct electric.
	energyInputBackup := energyDeliveredBackup

	hp.serviceResults = append(hp.serviceResults, serviceResult{
		serviceName:        serviceName,
		serviceType:        serviceType,
		serviceOn:          serviceOn,
		timeRunning:        timeRunning,
		loadRatio:          loadRatio,
		loadRatioMin:       loadRatioMin,
		capacity:           capacity,
		cop:                cop,
		degCoeff:           degCoeff,
		onOffOperation:     onOffOperation,
		backupOnly:         backupOnly,
		energyInputDivisor: energyInputDivisor,
	})
	hp.totalTimeRunning += timeRunning

	hp.connections[serviceName].DemandEnergy(energyInputHP + energyInputBackup)

	return energyDeliveredHP + energyDeliveredBackup, nil
}

// energyOutputMax returns the maximum energy (kWh) deliverable at the output
// temperature (Kelvin) in the remainder of this timestep, accounting for
// time already spent on higher-priority services.
func (hp *HeatPump) energyOutputMax(tempOutput float64) (float64, error) {
	tempSource, err := hp.tempSource()
	if err != nil {
		return 0, err
	}
	timeAvailable := hp.simTime.Timestep() - hp.totalTimeRunning
	if timeAvailable < 0 {
		timeAvailable = 0
	}
	return hp.thermalCapacityOpCond(tempOutput, tempSource) * timeAvailable, nil
}

// TimestepEnd reconciles ancillary and auxiliary energy for the timestep and
// clears the scratch state. The simulation driver must call it exactly once
// per timestep, after all services.
func (hp *HeatPump) TimestepEnd() {
	timestep := hp.simTime.Timestep()
	timeRemaining := timestep - hp.totalTimeRunning
	if timeRemaining < 0 {
		timeRemaining = 0
	}

	hp.calcAncillaryEnergy(timestep, timeRemaining)
	hp.calcAuxiliaryEnergy(timeRemaining)

	hp.serviceResults = hp.serviceResults[:0]
	hp.totalTimeRunning = 0.0
}

// calcAncillaryEnergy posts the energy each service's share of the unit
// keeps drawing while nominally off. Only the last service that actually ran
// carries the remainder of the timestep.
func (hp *HeatPump) calcAncillaryEnergy(timestep, timeRemaining float64) {
	for i, sr := range hp.serviceResults {
		if sr.timeRunning <= 0.0 || sr.backupOnly {
			continue
		}
		laterServiceRan := false
		for _, later := range hp.serviceResults[i+1:] {
			if later.timeRunning > 0.0 {
				laterServiceRan = true
				break
			}
		}
		if laterServiceRan {
			continue
		}

		gap := sr.loadRatioMin - sr.loadRatio
		if gap <= 0.0 {
			continue
		}
		timeEquivalent := math.Min(gap*timestep, timeRemaining)
		energyAncillary := (1.0 - sr.degCoeff) * (sr.capacity / sr.cop) *
			timeEquivalent / sr.energyInputDivisor
		hp.connections[sr.serviceName].DemandEnergy(energyAncillary)
	}
}

// calcAuxiliaryEnergy posts circulation-pump energy for the time the unit
// ran and standby/crankcase-heater energy for the time it did not, gated on
// whether any service was switched on at all during the timestep.
func (hp *HeatPump) calcAuxiliaryEnergy(timeRemaining float64) {
	anyServiceOn := false
	for _, sr := range hp.serviceResults {
		if sr.serviceOn {
			anyServiceOn = true
			break
		}
	}

	energyAux := hp.totalTimeRunning * (hp.powerHeatingCircPump + hp.powerSourceCircPump)
	if anyServiceOn {
		energyAux += timeRemaining * (hp.powerStandby + hp.powerCrankcaseHeater)
	}
	hp.connAux.DemandEnergy(energyAux)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
