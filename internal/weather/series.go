// Package weather holds the weather time series driving a simulation run.
package weather

import "sort"

// Record is one weather observation. Hour counts from the simulation's zero
// point; AirTemp is the external air temperature in Celsius.
type Record struct {
	Hour    float64
	AirTemp float64
}

// Series is an in-memory weather series sorted by hour.
type Series struct {
	records []Record
}

// NewSeries builds a Series from records in any order.
func NewSeries(records []Record) *Series {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Hour < sorted[j].Hour })
	return &Series{records: sorted}
}

// Len returns the number of records in the series.
func (s *Series) Len() int { return len(s.records) }

// Range returns the hour span covered by the series.
func (s *Series) Range() (start, end float64, ok bool) {
	if len(s.records) == 0 {
		return 0, 0, false
	}
	return s.records[0].Hour, s.records[len(s.records)-1].Hour, true
}

// At returns the most recent record at or before the given hour.
func (s *Series) At(hour float64) (Record, bool) {
	if len(s.records) == 0 {
		return Record{}, false
	}

	// Find first record after hour
	idx := sort.Search(len(s.records), func(i int) bool {
		return s.records[i].Hour > hour
	})
	if idx == 0 {
		return Record{}, false
	}
	return s.records[idx-1], true
}

// InRange returns records between start (inclusive) and end (exclusive).
func (s *Series) InRange(start, end float64) []Record {
	startIdx := sort.Search(len(s.records), func(i int) bool {
		return s.records[i].Hour >= start
	})
	endIdx := sort.Search(len(s.records), func(i int) bool {
		return s.records[i].Hour >= end
	})
	if startIdx >= endIdx {
		return nil
	}
	out := make([]Record, endIdx-startIdx)
	copy(out, s.records[startIdx:endIdx])
	return out
}
