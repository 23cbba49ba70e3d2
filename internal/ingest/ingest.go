// Package ingest parses exported trip-log CSV files, normalizes values to
// canonical imperial units, and upserts them into the record store.
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/dbjohnson/polestar-log-viewer/internal/storage"
	"github.com/dbjohnson/polestar-log-viewer/internal/units"
)

// Dialect is the unit system a source file encodes its numeric columns in.
// A single detection per file governs every distance-like column; mixed
// dialects within one file are not supported.
type Dialect string

const (
	DialectImperial Dialect = "imperial"
	DialectMetric   Dialect = "metric"
)

// Column names in the vehicle's CSV export. The distance column name is
// what distinguishes the two dialects.
const (
	colDistanceImperial = "Distance in Mile"
	colDistanceMetric   = "Distance in Km"

	colStartDate      = "Start Date"
	colEndDate        = "End Date"
	colStartAddress   = "Start Address"
	colEndAddress     = "End Address"
	colConsumption    = "Consumption in Kwh"
	colStartLatitude  = "Start Latitude"
	colStartLongitude = "Start Longitude"
	colEndLatitude    = "End Latitude"
	colEndLongitude   = "End Longitude"
	colStartOdometer  = "Start Odometer"
	colEndOdometer    = "End Odometer"
	colTripType       = "Trip Type"
	colSOCSource      = "SOC Source"
	colSOCDestination = "SOC Destination"
)

// Result reports a completed import.
type Result struct {
	Accepted int
	Dialect  Dialect
}

// Import parses the CSV stream and upserts all accepted rows into the
// store in one batch call. A structurally malformed file fails the whole
// operation; individual malformed rows are silently skipped.
func Import(ctx context.Context, store storage.Store, r io.Reader) (*Result, error) {
	trips, dialect, err := Parse(r)
	if err != nil {
		return nil, err
	}

	if err := store.UpsertTrips(ctx, trips); err != nil {
		return nil, fmt.Errorf("store trips: %w", err)
	}

	return &Result{Accepted: len(trips), Dialect: dialect}, nil
}

// Parse reads the header row, detects the source dialect, and converts
// each valid data row into a canonical Trip.
func Parse(r io.Reader) ([]storage.Trip, Dialect, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // ragged rows are handled per-row

	header, err := reader.Read()
	if err != nil {
		return nil, "", fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	dialect, distanceCol, err := detectDialect(index)
	if err != nil {
		return nil, "", err
	}

	var trips []storage.Trip
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, "", fmt.Errorf("read row: %w", err)
		}

		trip, ok := parseRow(record, index, dialect, distanceCol)
		if !ok {
			continue // row rejection is not fatal for the batch
		}
		trips = append(trips, *trip)
	}

	if trips == nil {
		trips = []storage.Trip{}
	}

	return trips, dialect, nil
}

// detectDialect decides the file's unit dialect from the distance column
// name. A file with neither variant is structurally unusable.
func detectDialect(index map[string]int) (Dialect, string, error) {
	if _, ok := index[colDistanceMetric]; ok {
		return DialectMetric, colDistanceMetric, nil
	}
	if _, ok := index[colDistanceImperial]; ok {
		return DialectImperial, colDistanceImperial, nil
	}
	return "", "", fmt.Errorf("no distance column found: expected %q or %q",
		colDistanceImperial, colDistanceMetric)
}

// parseRow converts one data row into a canonical Trip. Returns false to
// reject the row when distance or consumption is not a finite number or
// the start timestamp is empty.
func parseRow(record []string, index map[string]int, dialect Dialect, distanceCol string) (*storage.Trip, bool) {
	field := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	startKey := field(colStartDate)
	if startKey == "" {
		return nil, false
	}

	distance, err := strconv.ParseFloat(field(distanceCol), 64)
	if err != nil || math.IsInf(distance, 0) || math.IsNaN(distance) {
		return nil, false
	}
	consumption, err := strconv.ParseFloat(field(colConsumption), 64)
	if err != nil || math.IsInf(consumption, 0) || math.IsNaN(consumption) {
		return nil, false
	}

	startOdometer := parseOptionalFloat(field(colStartOdometer))
	endOdometer := parseOptionalFloat(field(colEndOdometer))

	// One normalization point: a metric file converts every
	// distance-like column to canonical miles.
	if dialect == DialectMetric {
		distance = units.CanonicalDistance(distance, units.Metric)
		startOdometer = units.CanonicalDistance(startOdometer, units.Metric)
		endOdometer = units.CanonicalDistance(endOdometer, units.Metric)
	}

	efficiency := 0.0
	if consumption > 0 {
		efficiency = distance / consumption
	}

	return &storage.Trip{
		StartKey:       startKey,
		EndTimestamp:   field(colEndDate),
		StartAddress:   field(colStartAddress),
		EndAddress:     field(colEndAddress),
		Distance:       distance,
		Consumption:    consumption,
		Efficiency:     efficiency,
		StartLat:       parseCoord(field(colStartLatitude)),
		StartLng:       parseCoord(field(colStartLongitude)),
		EndLat:         parseCoord(field(colEndLatitude)),
		EndLng:         parseCoord(field(colEndLongitude)),
		StartOdometer:  startOdometer,
		EndOdometer:    endOdometer,
		TripType:       field(colTripType),
		SOCSource:      parseOptionalInt(field(colSOCSource)),
		SOCDestination: parseOptionalInt(field(colSOCDestination)),
		Temperature:    nil, // filled in later by the enrichment worker
		Notes:          "",
		Tags:           []string{},
	}, true
}

// parseCoord returns NaN for absent or malformed coordinates; enrichment
// skips such records.
func parseCoord(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func parseOptionalFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0
	}
	return v
}

func parseOptionalInt(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}
