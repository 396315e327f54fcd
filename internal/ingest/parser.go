// Package ingest reads weather data files into the simulation's weather
// series.
package ingest

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"dwelling_simulator/internal/weather"
)

// Parser reads weather data from a source and returns records.
type Parser interface {
	Parse(r io.Reader) ([]weather.Record, error)
}

// weatherRow is one CSV line of an hourly weather file.
type weatherRow struct {
	Hour    float64 `csv:"hour"`
	AirTemp float64 `csv:"air_temp"`
}

// WeatherCSVParser parses hourly weather CSV files with columns
// hour,air_temp (hours from simulation zero, Celsius).
type WeatherCSVParser struct{}

func (p *WeatherCSVParser) Parse(r io.Reader) ([]weather.Record, error) {
	var rows []weatherRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("parsing weather CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("weather CSV contains no rows")
	}

	records := make([]weather.Record, len(rows))
	for i, row := range rows {
		records[i] = weather.Record{Hour: row.Hour, AirTemp: row.AirTemp}
	}
	return records, nil
}
