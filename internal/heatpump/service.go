package heatpump

// Control gates a service on or off, typically from a time schedule.
type Control interface {
	IsOn() bool
}

// ServiceWater is a hot water service provided by a heat pump. It fixes the
// water-service time constant and target temperatures and forwards demand to
// the engine.
type ServiceWater struct {
	hp   *HeatPump
	name string

	tempHotWater   float64 // Kelvin
	tempColdFeed   float64 // Kelvin
	tempLimitUpper float64 // Kelvin
	control        Control
}

// CreateServiceHotWater registers a hot water service on the heat pump.
// Temperatures in Celsius.
func (hp *HeatPump) CreateServiceHotWater(
	name string,
	tempHotWater, tempLimitUpper, tempColdFeed float64,
	control Control,
) (*ServiceWater, error) {
	if _, err := hp.registerService(name); err != nil {
		return nil, err
	}
	return &ServiceWater{
		hp:             hp,
		name:           name,
		tempHotWater:   celsiusToKelvin(tempHotWater),
		tempColdFeed:   celsiusToKelvin(tempColdFeed),
		tempLimitUpper: celsiusToKelvin(tempLimitUpper),
		control:        control,
	}, nil
}

func (s *ServiceWater) isOn() bool {
	return s.control == nil || s.control.IsOn()
}

// DemandEnergy demands energy (kWh) from the heat pump and returns the
// energy delivered (kWh).
func (s *ServiceWater) DemandEnergy(energyDemand float64) (float64, error) {
	serviceOn := s.isOn()
	if !serviceOn {
		energyDemand = 0.0
	}

	// Hot water cylinders have no emitter circuit, so no temperature-spread
	// correction applies.
	return s.hp.demandEnergy(
		s.name,
		ServiceTypeWater,
		energyDemand,
		s.tempHotWater,
		s.tempColdFeed,
		s.tempLimitUpper,
		timeConstantWater,
		serviceOn,
		1.0,
	)
}

// EnergyOutputMax returns the maximum energy (kWh) deliverable this
// timestep, after time already granted to higher-priority services.
func (s *ServiceWater) EnergyOutputMax() (float64, error) {
	tempOutput := s.tempHotWater
	if tempOutput > s.tempLimitUpper {
		tempOutput = s.tempLimitUpper
	}
	return s.hp.energyOutputMax(tempOutput)
}

// ServiceSpace is a space heating service provided by a heat pump.
type ServiceSpace struct {
	hp   *HeatPump
	name string

	tempLimitUpper float64 // Kelvin
	tempDiffEmit   float64 // design emitter temperature spread, K
	control        Control
}

// CreateServiceSpaceHeating registers a space heating service on the heat
// pump. tempLimitUpper in Celsius; tempDiffEmitDsgn is the design emitter
// flow/return differential in K.
func (hp *HeatPump) CreateServiceSpaceHeating(
	name string,
	tempLimitUpper, tempDiffEmitDsgn float64,
	control Control,
) (*ServiceSpace, error) {
	if _, err := hp.registerService(name); err != nil {
		return nil, err
	}
	return &ServiceSpace{
		hp:             hp,
		name:           name,
		tempLimitUpper: celsiusToKelvin(tempLimitUpper),
		tempDiffEmit:   tempDiffEmitDsgn,
		control:        control,
	}, nil
}

func (s *ServiceSpace) isOn() bool {
	return s.control == nil || s.control.IsOn()
}

// DemandEnergy demands energy (kWh) at the given flow and return
// temperatures (Celsius) and returns the energy delivered (kWh).
func (s *ServiceSpace) DemandEnergy(energyDemand, tempFlow, tempReturn float64) (float64, error) {
	serviceOn := s.isOn()
	if !serviceOn {
		energyDemand = 0.0
	}

	tempOutput := celsiusToKelvin(tempFlow)
	tempSource, err := s.hp.tempSource()
	if err != nil {
		return 0, err
	}
	spreadCorrection := s.hp.tempSpreadCorrection(
		tempSource,
		minFloat(tempOutput, s.tempLimitUpper),
		s.tempDiffEmit,
	)

	return s.hp.demandEnergy(
		s.name,
		ServiceTypeSpace,
		energyDemand,
		tempOutput,
		celsiusToKelvin(tempReturn),
		s.tempLimitUpper,
		timeConstantSpace,
		serviceOn,
		spreadCorrection,
	)
}

// EnergyOutputMax returns the maximum energy (kWh) deliverable this timestep
// at the given flow temperature (Celsius).
func (s *ServiceSpace) EnergyOutputMax(tempFlow float64) (float64, error) {
	tempOutput := celsiusToKelvin(tempFlow)
	if tempOutput > s.tempLimitUpper {
		tempOutput = s.tempLimitUpper
	}
	return s.hp.energyOutputMax(tempOutput)
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
