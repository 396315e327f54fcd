package conditions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dwelling_simulator/internal/simtime"
	"dwelling_simulator/internal/weather"
)

func TestNew_RejectsEmptySeries(t *testing.T) {
	st, err := simtime.New(0, 2, 1)
	require.NoError(t, err)

	_, err = New(st, weather.NewSeries(nil))
	assert.Error(t, err)
}

func TestNew_RejectsLateSeries(t *testing.T) {
	st, err := simtime.New(0, 2, 1)
	require.NoError(t, err)

	series := weather.NewSeries([]weather.Record{{Hour: 5, AirTemp: 1}})
	_, err = New(st, series)
	assert.Error(t, err)
}

func TestExternalConditions_AirTempTracksClock(t *testing.T) {
	st, err := simtime.New(0, 3, 1)
	require.NoError(t, err)

	series := weather.NewSeries([]weather.Record{
		{Hour: 0, AirTemp: -2.0},
		{Hour: 1, AirTemp: 0.5},
	})
	ec, err := New(st, series)
	require.NoError(t, err)

	assert.Equal(t, -2.0, ec.AirTemp())

	require.True(t, st.Next())
	assert.Equal(t, 0.5, ec.AirTemp())

	// The series ends before the simulation; the last value holds.
	require.True(t, st.Next())
	assert.Equal(t, 0.5, ec.AirTemp())
}
