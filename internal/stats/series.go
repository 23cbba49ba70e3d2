package stats

import (
	"math"
	"sort"

	"github.com/dbjohnson/polestar-log-viewer/internal/storage"
	"github.com/dbjohnson/polestar-log-viewer/internal/units"
)

// TimePoint is one entry of the efficiency-over-time series.
type TimePoint struct {
	StartKey   string
	Efficiency float64 // display units, rounded to 2 decimals
	Distance   float64 // display units
}

// ScatterPoint is one observation of a pairwise regression series, with
// the fitted trendline evaluated at its x value. Trend is NaN when no line
// was produced.
type ScatterPoint struct {
	X     float64
	Y     float64 // efficiency, display units
	Trend float64
}

// Series is a scatter series with an optional fitted trendline.
type Series struct {
	Points   []ScatterPoint
	Line     Line
	HasTrend bool
}

// round2 keeps chart labels stable across recomputation.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// TimeSeries returns trips sorted ascending by start timestamp with
// positive distance, converted for display.
func TimeSeries(trips []storage.Trip, sys units.System) []TimePoint {
	sorted := sortedByStart(trips)

	out := make([]TimePoint, 0, len(sorted))
	for i := range sorted {
		t := &sorted[i]
		if t.Distance <= 0 {
			continue
		}
		out = append(out, TimePoint{
			StartKey:   t.StartKey,
			Efficiency: round2(units.Efficiency(t.Efficiency, sys)),
			Distance:   units.Distance(t.Distance, sys),
		})
	}
	return out
}

// TemperatureSeries plots efficiency against ambient temperature for
// trips with enriched temperature and positive distance.
func TemperatureSeries(trips []storage.Trip, sys units.System) Series {
	var points []ScatterPoint
	for i := range trips {
		t := &trips[i]
		if t.Temperature == nil || t.Distance <= 0 {
			continue
		}
		points = append(points, ScatterPoint{
			X: round1(units.Temperature(*t.Temperature, sys)),
			Y: round2(units.Efficiency(t.Efficiency, sys)),
		})
	}
	return fitSeries(points)
}

// SpeedSeries plots efficiency against average trip speed. Speed is
// distance over duration with a 1-minute floor so sub-minute trips don't
// blow up the division.
func SpeedSeries(trips []storage.Trip, sys units.System) Series {
	var points []ScatterPoint
	for i := range trips {
		t := &trips[i]
		if t.Distance <= 0 {
			continue
		}
		start, ok := t.StartTime()
		if !ok {
			continue
		}
		end, ok := t.EndTime()
		if !ok {
			continue
		}

		mins := end.Sub(start).Minutes()
		mph := t.Distance / math.Max(mins, 1) * 60

		points = append(points, ScatterPoint{
			X: round1(units.Speed(mph, sys)),
			Y: round2(units.Efficiency(t.Efficiency, sys)),
		})
	}
	return fitSeries(points)
}

// DistanceSeries plots efficiency against trip distance.
func DistanceSeries(trips []storage.Trip, sys units.System) Series {
	var points []ScatterPoint
	for i := range trips {
		t := &trips[i]
		if t.Distance <= 0 {
			continue
		}
		points = append(points, ScatterPoint{
			X: round1(units.Distance(t.Distance, sys)),
			Y: round2(units.Efficiency(t.Efficiency, sys)),
		})
	}
	return fitSeries(points)
}

// fitSeries sorts the points by x, fits a regression line, and evaluates
// the trendline at each observed x. With fewer than two valid points the
// trendline is omitted entirely.
func fitSeries(points []ScatterPoint) Series {
	sort.Slice(points, func(i, j int) bool { return points[i].X < points[j].X })

	input := make([]Point, len(points))
	for i, p := range points {
		input[i] = Point{X: p.X, Y: p.Y}
	}

	line, ok := Linear(input)
	for i := range points {
		if ok {
			points[i].Trend = round2(line.At(points[i].X))
		} else {
			points[i].Trend = math.NaN()
		}
	}

	return Series{Points: points, Line: line, HasTrend: ok}
}

// sortedByStart returns a copy of trips ordered ascending by start
// timestamp. Trips with unparsable start keys sort by the raw key, which
// for the export layout is the same ordering.
func sortedByStart(trips []storage.Trip) []storage.Trip {
	sorted := make([]storage.Trip, len(trips))
	copy(sorted, trips)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].StartKey < sorted[j].StartKey
	})
	return sorted
}
