// Package energysupply records energy demand against named supplies such as
// mains electricity. Systems consuming energy register a named connection and
// post kWh amounts to it each timestep.
package energysupply

import (
	"fmt"

	"dwelling_simulator/internal/simtime"
)

// Connection ties one end user to an EnergySupply. Holding the end-user name
// in the connection keeps every consumer from having to repeat it and
// enforces unique registration.
type Connection struct {
	supply      *EnergySupply
	endUserName string
}

// DemandEnergy records the amount demanded (kWh) against the current
// timestep for this connection's end user.
func (c *Connection) DemandEnergy(amountKWh float64) {
	c.supply.demandEnergy(c.endUserName, amountKWh)
}

// Name returns the end-user name of the connection.
func (c *Connection) Name() string { return c.endUserName }

// EnergySupply accumulates demand per timestep, in total and per end user.
type EnergySupply struct {
	fuelType        string
	simTime         *simtime.SimulationTime
	demandTotal     []float64
	demandByEndUser map[string][]float64
}

func New(fuelType string, simTime *simtime.SimulationTime) *EnergySupply {
	return &EnergySupply{
		fuelType:        fuelType,
		simTime:         simTime,
		demandTotal:     make([]float64, simTime.TotalSteps()),
		demandByEndUser: make(map[string][]float64),
	}
}

// FuelType returns the fuel this supply delivers.
func (s *EnergySupply) FuelType() string { return s.fuelType }

// Connection registers an end user and returns its connection. Registering
// the same name twice is an error.
func (s *EnergySupply) Connection(endUserName string) (*Connection, error) {
	if _, exists := s.demandByEndUser[endUserName]; exists {
		return nil, fmt.Errorf("energy supply end user name already used: %s", endUserName)
	}
	s.demandByEndUser[endUserName] = make([]float64, s.simTime.TotalSteps())
	return &Connection{supply: s, endUserName: endUserName}, nil
}

func (s *EnergySupply) demandEnergy(endUserName string, amountKWh float64) {
	idx := s.simTime.Index()
	s.demandTotal[idx] += amountKWh
	s.demandByEndUser[endUserName][idx] += amountKWh
}

// ResultsTotal returns the total demand on this supply for each timestep.
func (s *EnergySupply) ResultsTotal() []float64 { return s.demandTotal }

// ResultsByEndUser returns the per-timestep demand for each registered end
// user.
func (s *EnergySupply) ResultsByEndUser() map[string][]float64 { return s.demandByEndUser }
