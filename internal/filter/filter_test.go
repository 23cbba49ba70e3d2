package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbjohnson/polestar-log-viewer/internal/storage"
)

func f(v float64) *float64 { return &v }

func keys(trips []storage.Trip) []string {
	out := make([]string, len(trips))
	for i, t := range trips {
		out[i] = t.StartKey
	}
	return out
}

func TestApplyDefaultPassesEverything(t *testing.T) {
	trips := []storage.Trip{
		{StartKey: "2026-02-19, 15:05", Distance: 10},
		{StartKey: "2026-02-20, 08:10", Distance: 0},
	}

	res := Apply(trips, Default())
	assert.Len(t, res.Trips, 2)
	assert.Equal(t, 0, res.Excluded)
}

func TestApplyDateWindowIsInclusive(t *testing.T) {
	trips := []storage.Trip{
		{StartKey: "2026-02-18, 23:59", Distance: 5},
		{StartKey: "2026-02-19, 00:00", Distance: 5},
		{StartKey: "2026-02-20, 23:59", Distance: 5},
		{StartKey: "2026-02-21, 00:00", Distance: 5},
	}

	spec := Spec{DateStart: "2026-02-19", DateEnd: "2026-02-20"}
	res := Apply(trips, spec)

	assert.Equal(t, []string{"2026-02-19, 00:00", "2026-02-20, 23:59"}, keys(res.Trips))
	assert.Equal(t, 2, res.Excluded)
}

func TestApplyDateWindowNeedsBothBounds(t *testing.T) {
	trips := []storage.Trip{
		{StartKey: "2026-01-01, 09:00", Distance: 5},
	}

	// A lone start date imposes no constraint.
	res := Apply(trips, Spec{DateStart: "2026-02-19"})
	assert.Len(t, res.Trips, 1)
}

func TestApplyDistanceRange(t *testing.T) {
	trips := []storage.Trip{
		{StartKey: "2026-02-19, 15:05", Distance: 2},
		{StartKey: "2026-02-20, 08:10", Distance: 10},
		{StartKey: "2026-02-21, 17:45", Distance: 50},
	}

	spec := Spec{Distance: Range{Min: f(5), Max: f(20)}}
	res := Apply(trips, spec)

	assert.Equal(t, []string{"2026-02-20, 08:10"}, keys(res.Trips))
	assert.Equal(t, 2, res.Excluded)
}

func TestApplyTemperatureExcludesUnenriched(t *testing.T) {
	trips := []storage.Trip{
		{StartKey: "2026-02-19, 15:05", Distance: 10, Temperature: f(40)},
		{StartKey: "2026-02-20, 08:10", Distance: 10, Temperature: nil},
		{StartKey: "2026-02-21, 17:45", Distance: 10, Temperature: f(90)},
	}

	spec := Spec{Temperature: Range{Min: f(30), Max: f(60)}}
	res := Apply(trips, spec)

	// The unenriched trip cannot satisfy an active temperature bound.
	assert.Equal(t, []string{"2026-02-19, 15:05"}, keys(res.Trips))
	assert.Equal(t, 2, res.Excluded)
}

func TestApplyUnenrichedPassesWithoutTemperatureFilter(t *testing.T) {
	trips := []storage.Trip{
		{StartKey: "2026-02-20, 08:10", Distance: 10, Temperature: nil},
	}

	res := Apply(trips, Spec{Distance: Range{Min: f(5)}})
	assert.Len(t, res.Trips, 1)
}

func TestApplySearchMatchesNotesAndTags(t *testing.T) {
	trips := []storage.Trip{
		{StartKey: "2026-02-19, 15:05", Notes: "Cold MORNING commute"},
		{StartKey: "2026-02-20, 08:10", Tags: []string{"roadtrip", "morning"}},
		{StartKey: "2026-02-21, 17:45", Notes: "groceries"},
	}

	res := Apply(trips, Spec{SearchText: "Morning"})

	assert.Equal(t, []string{"2026-02-19, 15:05", "2026-02-20, 08:10"}, keys(res.Trips))
	assert.Equal(t, 1, res.Excluded)
}

func TestApplyExcludedTags(t *testing.T) {
	trips := []storage.Trip{
		{StartKey: "2026-02-19, 15:05", Tags: []string{"commute"}},
		{StartKey: "2026-02-20, 08:10", Tags: []string{"Roadtrip"}},
		{StartKey: "2026-02-21, 17:45", Tags: []string{}},
	}

	res := Apply(trips, Spec{ExcludedTags: []string{"roadtrip"}})

	assert.Equal(t, []string{"2026-02-19, 15:05", "2026-02-21, 17:45"}, keys(res.Trips))
}

func TestApplyPredicatesCombineWithAnd(t *testing.T) {
	trips := []storage.Trip{
		{StartKey: "2026-02-19, 15:05", Distance: 10, Efficiency: 3, Temperature: f(40)},
		{StartKey: "2026-02-20, 08:10", Distance: 10, Efficiency: 1, Temperature: f(40)},
		{StartKey: "2026-02-21, 17:45", Distance: 2, Efficiency: 3, Temperature: f(40)},
	}

	spec := Spec{
		Distance:   Range{Min: f(5)},
		Efficiency: Range{Min: f(2)},
	}
	res := Apply(trips, spec)

	assert.Equal(t, []string{"2026-02-19, 15:05"}, keys(res.Trips))
	assert.Equal(t, 2, res.Excluded)
}

func TestApplyCountsAreConsistent(t *testing.T) {
	trips := []storage.Trip{
		{StartKey: "2026-02-19, 15:05", Distance: 10},
		{StartKey: "2026-02-20, 08:10", Distance: 1},
		{StartKey: "2026-02-21, 17:45", Distance: 20},
	}

	res := Apply(trips, Spec{Distance: Range{Min: f(5)}})
	assert.Equal(t, len(trips), len(res.Trips)+res.Excluded)
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	trips := []storage.Trip{
		{StartKey: "2026-02-19, 15:05", Distance: 10},
		{StartKey: "2026-02-20, 08:10", Distance: 1},
	}

	_ = Apply(trips, Spec{Distance: Range{Min: f(5)}})
	require.Len(t, trips, 2)
	assert.Equal(t, "2026-02-19, 15:05", trips[0].StartKey)
}

func TestRangeContains(t *testing.T) {
	unbounded := Range{}
	assert.True(t, unbounded.Contains(-1e9))
	assert.False(t, unbounded.Active())

	bounded := Range{Min: f(5), Max: f(10)}
	assert.True(t, bounded.Contains(5))
	assert.True(t, bounded.Contains(10))
	assert.False(t, bounded.Contains(4.999))
	assert.False(t, bounded.Contains(10.001))
}

func TestSpecIsDefault(t *testing.T) {
	spec := Default()
	assert.True(t, spec.IsDefault())

	spec.SearchText = "x"
	assert.False(t, spec.IsDefault())

	spec = Default()
	spec.Temperature.Min = f(30)
	assert.False(t, spec.IsDefault())
}
