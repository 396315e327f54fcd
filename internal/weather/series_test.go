package weather

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSeries() *Series {
	// Deliberately unsorted input.
	return NewSeries([]Record{
		{Hour: 2, AirTemp: 4.0},
		{Hour: 0, AirTemp: 2.0},
		{Hour: 1, AirTemp: 3.0},
		{Hour: 5, AirTemp: 7.0},
	})
}

func TestSeries_Range(t *testing.T) {
	s := testSeries()
	start, end, ok := s.Range()
	require.True(t, ok)
	assert.Equal(t, 0.0, start)
	assert.Equal(t, 5.0, end)

	_, _, ok = NewSeries(nil).Range()
	assert.False(t, ok)
}

func TestSeries_At(t *testing.T) {
	s := testSeries()

	rec, ok := s.At(1)
	require.True(t, ok)
	assert.Equal(t, 3.0, rec.AirTemp)

	// Between records: the most recent at-or-before applies.
	rec, ok = s.At(3.5)
	require.True(t, ok)
	assert.Equal(t, 4.0, rec.AirTemp)

	// After the last record the series holds its final value.
	rec, ok = s.At(100)
	require.True(t, ok)
	assert.Equal(t, 7.0, rec.AirTemp)

	// Before the first record nothing applies.
	_, ok = s.At(-1)
	assert.False(t, ok)
}

func TestSeries_InRange(t *testing.T) {
	s := testSeries()

	recs := s.InRange(1, 5)
	require.Len(t, recs, 2)
	assert.Equal(t, 1.0, recs[0].Hour)
	assert.Equal(t, 2.0, recs[1].Hour)

	assert.Nil(t, s.InRange(3, 3))
	assert.Nil(t, s.InRange(10, 20))
}

func TestSeries_DoesNotMutateInput(t *testing.T) {
	input := []Record{{Hour: 2}, {Hour: 1}}
	NewSeries(input)
	assert.Equal(t, 2.0, input[0].Hour)
}
