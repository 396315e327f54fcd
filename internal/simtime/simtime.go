// Package simtime tracks the simulation timestep. A SimulationTime value is
// the single source of truth for timestep information and is queried by every
// component holding a reference to it.
package simtime

import (
	"fmt"
	"math"
)

// SimulationTime iterates over the timesteps of one simulation run. Times are
// expressed in hours from an arbitrary zero point; hour zero is midnight.
type SimulationTime struct {
	start   float64
	end     float64
	step    float64
	current float64
	idx     int
	total   int
}

// New creates a SimulationTime covering [start, end) in increments of step
// hours.
func New(start, end, step float64) (*SimulationTime, error) {
	if step <= 0 {
		return nil, fmt.Errorf("simulation timestep must be positive, got %v", step)
	}
	if start < 0 {
		return nil, fmt.Errorf("simulation start must not be negative, got %v", start)
	}
	if end <= start {
		return nil, fmt.Errorf("simulation end %v must be after start %v", end, start)
	}
	return &SimulationTime{
		start:   start,
		end:     end,
		step:    step,
		current: start,
		total:   int(math.Ceil((end - start) / step)),
	}, nil
}

// Next advances to the following timestep. It returns false once the end of
// the simulation has been reached.
//
// Iteration is driven by the integer index, and the current time is
// recomputed from the start each step. Accumulating the step instead would
// drift for steps with no exact binary representation and could yield more
// iterations than TotalSteps.
func (t *SimulationTime) Next() bool {
	if t.idx+1 >= t.total {
		return false
	}
	t.idx++
	t.current = t.start + float64(t.idx)*t.step
	return true
}

// Current returns the current simulation time in hours.
func (t *SimulationTime) Current() float64 { return t.current }

// Index returns the zero-based ordinal of the current timestep.
func (t *SimulationTime) Index() int { return t.idx }

// CurrentHour returns the current whole hour.
func (t *SimulationTime) CurrentHour() int { return int(math.Floor(t.current)) }

// HourOfDay returns the hour of day; 00:00-01:00 is hour zero.
func (t *SimulationTime) HourOfDay() int {
	return int(math.Floor(math.Mod(t.current, 24)))
}

// TotalSteps returns the number of timesteps in the simulation.
func (t *SimulationTime) TotalSteps() int { return t.total }

// Timestep returns the length of one timestep in hours.
func (t *SimulationTime) Timestep() float64 { return t.step }
