package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeatherCSVParser_Parse(t *testing.T) {
	csv := `hour,air_temp
0,-2.5
1,-1.0
2,0.5
`
	p := &WeatherCSVParser{}
	records, err := p.Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, 0.0, records[0].Hour)
	assert.Equal(t, -2.5, records[0].AirTemp)
	assert.Equal(t, 2.0, records[2].Hour)
	assert.Equal(t, 0.5, records[2].AirTemp)
}

func TestWeatherCSVParser_EmptyFile(t *testing.T) {
	p := &WeatherCSVParser{}
	_, err := p.Parse(strings.NewReader("hour,air_temp\n"))
	assert.Error(t, err)
}

func TestWeatherCSVParser_MalformedRow(t *testing.T) {
	csv := `hour,air_temp
0,not-a-number
`
	p := &WeatherCSVParser{}
	_, err := p.Parse(strings.NewReader(csv))
	assert.Error(t, err)
}
