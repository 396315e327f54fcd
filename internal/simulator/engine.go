// Package simulator drives the per-timestep dwelling simulation. Within a
// timestep it issues one demand call per active service in a fixed order,
// hot water before space heating, then closes the timestep on the heat pump
// exactly once.
package simulator

import (
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"dwelling_simulator/internal/conditions"
	"dwelling_simulator/internal/energysupply"
	"dwelling_simulator/internal/heatpump"
	"dwelling_simulator/internal/simtime"
	"dwelling_simulator/internal/weather"
)

const (
	serviceNameWater = "heat_pump_water"
	serviceNameSpace = "heat_pump_space"
	serviceNameAux   = "heat_pump_auxiliary"

	fuelMainsElectricity = "mains_electricity"
)

// hotWaterProfile spreads the daily hot water demand over the hours of the
// day; fractions sum to 1.
var hotWaterProfile = [24]float64{
	0.00, 0.00, 0.00, 0.00, 0.00, 0.01,
	0.06, 0.12, 0.10, 0.05, 0.03, 0.03,
	0.04, 0.03, 0.02, 0.02, 0.03, 0.05,
	0.08, 0.10, 0.09, 0.07, 0.05, 0.02,
}

// Config holds the dwelling and plant parameters of one simulation run.
// Temperatures in Celsius, heat loss coefficient in W/K.
type Config struct {
	StartHour float64 `json:"start_hour"`
	EndHour   float64 `json:"end_hour"`
	StepHours float64 `json:"step_hours"`

	HeatLossCoeff float64 `json:"heat_loss_coeff"`
	SetpointTemp  float64 `json:"setpoint_temp"`

	SpaceFlowTemp       float64 `json:"space_flow_temp"`
	SpaceReturnTemp     float64 `json:"space_return_temp"`
	SpaceTempLimitUpper float64 `json:"space_temp_limit_upper"`

	HotWaterTemp           float64 `json:"hot_water_temp"`
	HotWaterTempLimitUpper float64 `json:"hot_water_temp_limit_upper"`
	ColdFeedTemp           float64 `json:"cold_feed_temp"`
	DailyHotWaterKWh       float64 `json:"daily_hot_water_kwh"`

	HeatPump heatpump.Config `json:"heat_pump"`
}

// State is the driver's current position in the run.
type State struct {
	Index   int     `json:"index"`
	Hour    float64 `json:"hour"`
	Speed   float64 `json:"speed"`
	Running bool    `json:"running"`
	Done    bool    `json:"done"`
}

// Result is one completed timestep.
type Result struct {
	Index          int     `json:"index"`
	Hour           float64 `json:"hour"`
	ExternalTemp   float64 `json:"external_temp"`
	SpaceDemand    float64 `json:"space_demand_kwh"`
	WaterDemand    float64 `json:"water_demand_kwh"`
	SpaceDelivered float64 `json:"space_delivered_kwh"`
	WaterDelivered float64 `json:"water_delivered_kwh"`
	Electricity    float64 `json:"electricity_kwh"`
}

// Summary holds running totals over the completed timesteps.
type Summary struct {
	Steps             int     `json:"steps"`
	SpaceDemandKWh    float64 `json:"space_demand_kwh"`
	WaterDemandKWh    float64 `json:"water_demand_kwh"`
	SpaceDeliveredKWh float64 `json:"space_delivered_kwh"`
	WaterDeliveredKWh float64 `json:"water_delivered_kwh"`
	ElectricityKWh    float64 `json:"electricity_kwh"`
}

// Callback receives simulation events.
type Callback interface {
	OnState(state State)
	OnTimestep(result Result)
	OnSummary(summary Summary)
}

// Engine advances the simulation one timestep at a time, either stepwise for
// batch runs or on a ticker at configurable speed for interactive streaming.
type Engine struct {
	mu       sync.Mutex
	cfg      Config
	callback Callback

	simTime  *simtime.SimulationTime
	external *conditions.ExternalConditions
	supply   *energysupply.EnergySupply
	hp       *heatpump.HeatPump
	water    *heatpump.ServiceWater
	space    *heatpump.ServiceSpace

	running bool
	speed   float64 // timesteps per wall-clock second
	done    bool
	pending float64 // fractional steps owed by the ticker
	stopCh  chan struct{}

	summary Summary
}

// New builds the full plant from the configuration and weather series.
func New(cfg Config, series *weather.Series, cb Callback) (*Engine, error) {
	simTime, err := simtime.New(cfg.StartHour, cfg.EndHour, cfg.StepHours)
	if err != nil {
		return nil, err
	}
	external, err := conditions.New(simTime, series)
	if err != nil {
		return nil, err
	}
	supply := energysupply.New(fuelMainsElectricity, simTime)

	hp, err := heatpump.New(&cfg.HeatPump, supply, simTime, external, serviceNameAux)
	if err != nil {
		return nil, err
	}
	water, err := hp.CreateServiceHotWater(
		serviceNameWater, cfg.HotWaterTemp, cfg.HotWaterTempLimitUpper, cfg.ColdFeedTemp, nil)
	if err != nil {
		return nil, err
	}
	space, err := hp.CreateServiceSpaceHeating(
		serviceNameSpace, cfg.SpaceTempLimitUpper, cfg.SpaceFlowTemp-cfg.SpaceReturnTemp, nil)
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:      cfg,
		callback: cb,
		simTime:  simTime,
		external: external,
		supply:   supply,
		hp:       hp,
		water:    water,
		space:    space,
		speed:    8760, // one simulated year per second at hourly steps
	}, nil
}

// Supply exposes the electricity supply ledger for reporting.
func (e *Engine) Supply() *energysupply.EnergySupply { return e.supply }

// State returns the current driver state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

func (e *Engine) stateLocked() State {
	return State{
		Index:   e.simTime.Index(),
		Hour:    e.simTime.Current(),
		Speed:   e.speed,
		Running: e.running,
		Done:    e.done,
	}
}

// Step runs the current timestep and advances the clock. It returns false
// once the simulation has finished.
func (e *Engine) Step() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stepLocked()
}

func (e *Engine) stepLocked() (bool, error) {
	if e.done {
		return false, nil
	}

	timestep := e.simTime.Timestep()
	extTemp := e.external.AirTemp()

	waterDemand := e.cfg.DailyHotWaterKWh * hotWaterProfile[e.simTime.HourOfDay()] * timestep
	spaceDemand := math.Max(0, e.cfg.SetpointTemp-extTemp) * e.cfg.HeatLossCoeff * timestep / 1000.0

	// Hot water is served before space heating; call order decides who gets
	// the remaining compressor time.
	waterDelivered, err := e.water.DemandEnergy(waterDemand)
	if err != nil {
		return false, fmt.Errorf("hot water service: %w", err)
	}
	spaceDelivered, err := e.space.DemandEnergy(spaceDemand, e.cfg.SpaceFlowTemp, e.cfg.SpaceReturnTemp)
	if err != nil {
		return false, fmt.Errorf("space heating service: %w", err)
	}
	e.hp.TimestepEnd()

	idx := e.simTime.Index()
	result := Result{
		Index:          idx,
		Hour:           e.simTime.Current(),
		ExternalTemp:   extTemp,
		SpaceDemand:    spaceDemand,
		WaterDemand:    waterDemand,
		SpaceDelivered: spaceDelivered,
		WaterDelivered: waterDelivered,
		Electricity:    e.supply.ResultsTotal()[idx],
	}

	e.summary.Steps++
	e.summary.SpaceDemandKWh += spaceDemand
	e.summary.WaterDemandKWh += waterDemand
	e.summary.SpaceDeliveredKWh += spaceDelivered
	e.summary.WaterDeliveredKWh += waterDelivered
	e.summary.ElectricityKWh += result.Electricity

	if !e.simTime.Next() {
		e.done = true
		e.running = false
	}

	if e.callback != nil {
		e.callback.OnTimestep(result)
		e.callback.OnSummary(e.summary)
		e.callback.OnState(e.stateLocked())
	}

	return !e.done, nil
}

// Run executes the remaining timesteps to completion.
func (e *Engine) Run() (Summary, error) {
	for {
		more, err := e.Step()
		if err != nil {
			return e.SummaryTotals(), err
		}
		if !more {
			return e.SummaryTotals(), nil
		}
	}
}

// SummaryTotals returns the running totals so far.
func (e *Engine) SummaryTotals() Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.summary
}

const tickInterval = 100 * time.Millisecond

// Start begins advancing timesteps on a ticker.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running || e.done {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.stopCh = make(chan struct{})
	e.mu.Unlock()

	e.broadcastState()
	go e.loop()
}

// Pause stops the ticker loop.
func (e *Engine) Pause() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	close(e.stopCh)
	e.mu.Unlock()

	e.broadcastState()
}

// SetSpeed sets how many timesteps are simulated per wall-clock second.
func (e *Engine) SetSpeed(speed float64) {
	if speed < 0.1 {
		speed = 0.1
	}
	if speed > 1e6 {
		speed = 1e6
	}

	e.mu.Lock()
	e.speed = speed
	e.mu.Unlock()

	e.broadcastState()
}

func (e *Engine) loop() {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			if e.tick() {
				return
			}
		}
	}
}

// tick advances the fraction of steps owed for one ticker interval. Returns
// true when the simulation has finished.
func (e *Engine) tick() bool {
	e.mu.Lock()
	if !e.running {
		// A pause can race the last ticker fire.
		e.mu.Unlock()
		return true
	}
	e.pending += e.speed * tickInterval.Seconds()

	for e.pending >= 1.0 && !e.done {
		e.pending -= 1.0
		if _, err := e.stepLocked(); err != nil {
			// Configuration problems surface on the first step; stop rather
			// than repeat the same failure every tick.
			log.Printf("simulation step failed: %v", err)
			e.done = true
			e.running = false
			e.mu.Unlock()
			e.broadcastState()
			return true
		}
	}

	finished := e.done
	if finished {
		e.running = false
		close(e.stopCh)
	}
	e.mu.Unlock()

	if finished {
		e.broadcastState()
	}
	return finished
}

func (e *Engine) broadcastState() {
	if e.callback == nil {
		return
	}
	e.callback.OnState(e.State())
}
