package simtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Validation(t *testing.T) {
	_, err := New(0, 10, 0)
	assert.Error(t, err)

	_, err = New(0, 10, -1)
	assert.Error(t, err)

	_, err = New(10, 10, 1)
	assert.Error(t, err)

	_, err = New(-1, 10, 1)
	assert.Error(t, err)
}

func TestSimulationTime_Iteration(t *testing.T) {
	st, err := New(0, 3, 1)
	require.NoError(t, err)

	assert.Equal(t, 3, st.TotalSteps())
	assert.Equal(t, 0, st.Index())
	assert.Equal(t, 0.0, st.Current())

	require.True(t, st.Next())
	assert.Equal(t, 1, st.Index())
	assert.Equal(t, 1.0, st.Current())

	require.True(t, st.Next())
	assert.Equal(t, 2, st.Index())

	// End of the run; state stays on the last timestep.
	assert.False(t, st.Next())
	assert.Equal(t, 2, st.Index())
	assert.Equal(t, 2.0, st.Current())
}

func TestSimulationTime_FractionalSteps(t *testing.T) {
	st, err := New(0, 1, 0.25)
	require.NoError(t, err)

	assert.Equal(t, 4, st.TotalSteps())
	assert.Equal(t, 0.25, st.Timestep())

	steps := 1
	for st.Next() {
		steps++
	}
	assert.Equal(t, 4, steps)
}

func TestSimulationTime_InexactStepMatchesTotal(t *testing.T) {
	// 0.1 hours has no exact binary representation; the iteration count must
	// still agree with TotalSteps.
	st, err := New(0, 1, 0.1)
	require.NoError(t, err)
	require.Equal(t, 10, st.TotalSteps())

	steps := 1
	for st.Next() {
		steps++
	}
	assert.Equal(t, 10, steps)
	assert.Equal(t, 9, st.Index())
	assert.InDelta(t, 0.9, st.Current(), 1e-12)
}

func TestSimulationTime_HourOfDay(t *testing.T) {
	st, err := New(25.5, 100, 0.5)
	require.NoError(t, err)

	assert.Equal(t, 25, st.CurrentHour())
	assert.Equal(t, 1, st.HourOfDay())

	require.True(t, st.Next())
	assert.Equal(t, 2, st.HourOfDay())
}

func TestSimulationTime_TotalStepsRoundsUp(t *testing.T) {
	st, err := New(0, 2.5, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalSteps())
}
