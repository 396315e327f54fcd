// Package conditions exposes the external conditions at the current
// simulation timestep.
package conditions

import (
	"fmt"

	"dwelling_simulator/internal/simtime"
	"dwelling_simulator/internal/weather"
)

// ExternalConditions answers queries about the outside environment for the
// timestep the simulation is currently on.
type ExternalConditions struct {
	simTime *simtime.SimulationTime
	series  *weather.Series
}

// New wires a weather series to the simulation clock. The series must cover
// the full simulated period.
func New(simTime *simtime.SimulationTime, series *weather.Series) (*ExternalConditions, error) {
	start, _, ok := series.Range()
	if !ok {
		return nil, fmt.Errorf("external conditions: weather series is empty")
	}
	if start > simTime.Current() {
		return nil, fmt.Errorf("external conditions: weather series starts at hour %v, after simulation start %v",
			start, simTime.Current())
	}
	return &ExternalConditions{simTime: simTime, series: series}, nil
}

// AirTemp returns the external air temperature (Celsius) for the current
// timestep. The series record at or before the current simulation time
// applies; a series ending early holds its last value.
func (c *ExternalConditions) AirTemp() float64 {
	rec, ok := c.series.At(c.simTime.Current())
	if !ok {
		// Guarded against at construction; only reachable if the clock runs
		// backwards.
		return 0
	}
	return rec.AirTemp
}
