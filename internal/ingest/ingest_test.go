package ingest

import (
	"context"
	"database/sql"
	"math"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbjohnson/polestar-log-viewer/internal/storage"
	"github.com/dbjohnson/polestar-log-viewer/internal/units"
)

const imperialHeader = "Start Date,End Date,Start Address,End Address,Distance in Mile," +
	"Consumption in Kwh,Start Latitude,Start Longitude,End Latitude,End Longitude," +
	"Start Odometer,End Odometer,Trip Type,SOC Source,SOC Destination"

const metricHeader = "Start Date,End Date,Start Address,End Address,Distance in Km," +
	"Consumption in Kwh,Start Latitude,Start Longitude,End Latitude,End Longitude," +
	"Start Odometer,End Odometer,Trip Type,SOC Source,SOC Destination"

func openTestStore(t *testing.T) storage.Store {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, storage.NewMigrationRunner(db).Run())

	store, err := storage.NewSQLiteStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func TestParseImperial(t *testing.T) {
	input := imperialHeader + "\n" +
		`"2026-02-19, 15:05","2026-02-19, 15:35",Home,Office,10,5,44.97,-93.26,44.95,-93.20,10200,10210,normal,84,78` + "\n" +
		`"2026-02-20, 08:10","2026-02-20, 08:20",Office,Home,0,2,44.95,-93.20,44.97,-93.26,10210,10210,normal,78,77` + "\n" +
		`"2026-02-21, 17:45","2026-02-21, 18:00",Home,Store,8,0,44.97,-93.26,44.98,-93.30,10210,10218,normal,77,77` + "\n"

	trips, dialect, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, DialectImperial, dialect)
	require.Len(t, trips, 3)

	// Efficiency is distance/consumption when consumption is positive,
	// zero otherwise.
	assert.InDelta(t, 2.0, trips[0].Efficiency, 1e-9)
	assert.Equal(t, 0.0, trips[1].Efficiency)
	assert.Equal(t, 0.0, trips[2].Efficiency)

	assert.Equal(t, "2026-02-19, 15:05", trips[0].StartKey)
	assert.Equal(t, "Home", trips[0].StartAddress)
	assert.InDelta(t, 44.97, trips[0].StartLat, 1e-9)
	assert.Equal(t, 84, trips[0].SOCSource)
	assert.Nil(t, trips[0].Temperature)
	assert.Equal(t, []string{}, trips[0].Tags)
}

func TestParseMetricConvertsDistanceColumns(t *testing.T) {
	input := metricHeader + "\n" +
		`"2026-02-19, 15:05","2026-02-19, 15:35",Home,Office,16.0934,5,44.97,-93.26,44.95,-93.20,16093.4,16109.5,normal,84,78` + "\n"

	trips, dialect, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, DialectMetric, dialect)
	require.Len(t, trips, 1)

	assert.InDelta(t, 10.0, trips[0].Distance, 1e-6)
	assert.InDelta(t, 16093.4/units.KmPerMile, trips[0].StartOdometer, 1e-6)
	assert.InDelta(t, 16109.5/units.KmPerMile, trips[0].EndOdometer, 1e-6)
	// Consumption is kWh in both dialects; efficiency is computed after
	// conversion, so it is canonical mi/kWh.
	assert.InDelta(t, 5.0, trips[0].Consumption, 1e-9)
	assert.InDelta(t, 2.0, trips[0].Efficiency, 1e-6)
}

func TestParseNoDistanceColumn(t *testing.T) {
	input := "Start Date,Consumption in Kwh\n\"2026-02-19, 15:05\",5\n"

	_, _, err := Parse(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no distance column")
}

func TestParseRejectsBadRows(t *testing.T) {
	input := imperialHeader + "\n" +
		// missing start key
		`,"2026-02-19, 15:35",Home,Office,10,5,,,,,,,normal,84,78` + "\n" +
		// non-numeric distance
		`"2026-02-20, 08:10","2026-02-20, 08:20",Home,Office,abc,5,,,,,,,normal,84,78` + "\n" +
		// non-numeric consumption
		`"2026-02-21, 17:45","2026-02-21, 18:00",Home,Office,10,n/a,,,,,,,normal,84,78` + "\n" +
		// good row
		`"2026-02-22, 09:00","2026-02-22, 09:30",Home,Office,10,5,,,,,,,normal,84,78` + "\n"

	trips, _, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, trips, 1)
	assert.Equal(t, "2026-02-22, 09:00", trips[0].StartKey)
}

func TestParseMissingCoordinatesBecomeNaN(t *testing.T) {
	input := imperialHeader + "\n" +
		`"2026-02-19, 15:05","2026-02-19, 15:35",Home,Office,10,5,,,,,,,normal,84,78` + "\n"

	trips, _, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, trips, 1)
	assert.True(t, math.IsNaN(trips[0].StartLat))
	assert.True(t, math.IsNaN(trips[0].EndLng))
	assert.Equal(t, 0.0, trips[0].StartOdometer)
}

func TestParseEmptyFile(t *testing.T) {
	trips, dialect, err := Parse(strings.NewReader(imperialHeader + "\n"))
	require.NoError(t, err)
	assert.Equal(t, DialectImperial, dialect)
	assert.NotNil(t, trips)
	assert.Empty(t, trips)
}

func TestParseMalformedHeader(t *testing.T) {
	_, _, err := Parse(strings.NewReader(""))
	assert.Error(t, err)
}

func TestImportIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	input := imperialHeader + "\n" +
		`"2026-02-19, 15:05","2026-02-19, 15:35",Home,Office,10,5,,,,,,,normal,84,78` + "\n" +
		`"2026-02-20, 08:10","2026-02-20, 08:20",Office,Home,12,6,,,,,,,normal,78,72` + "\n"

	res, err := Import(ctx, store, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Accepted)

	res, err = Import(ctx, store, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Accepted)

	trips, err := store.ScanAll(ctx)
	require.NoError(t, err)
	assert.Len(t, trips, 2, "re-importing the same file must not duplicate trips")
}

func TestImportOverlappingWindowReplaces(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := imperialHeader + "\n" +
		`"2026-02-19, 15:05","2026-02-19, 15:35",Home,Office,10,5,,,,,,,normal,84,78` + "\n"
	second := imperialHeader + "\n" +
		`"2026-02-19, 15:05","2026-02-19, 15:40",Home,Airport,11,5.5,,,,,,,normal,84,76` + "\n" +
		`"2026-02-20, 08:10","2026-02-20, 08:20",Office,Home,12,6,,,,,,,normal,78,72` + "\n"

	_, err := Import(ctx, store, strings.NewReader(first))
	require.NoError(t, err)
	_, err = Import(ctx, store, strings.NewReader(second))
	require.NoError(t, err)

	trips, err := store.ScanAll(ctx)
	require.NoError(t, err)
	require.Len(t, trips, 2)
	assert.Equal(t, "Airport", trips[0].EndAddress)
	assert.InDelta(t, 11.0, trips[0].Distance, 1e-9)
}
