package enrich

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbjohnson/polestar-log-viewer/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

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

// lookup records one call to the stub temperature source.
type lookup struct {
	lat, lng float64
	hour     int
}

// stubSource answers lookups from a fixed temperature, or misses/fails
// when configured to.
type stubSource struct {
	calls []lookup
	temp  float64
	miss  bool
	err   error
}

func (s *stubSource) HourlyTemperature(ctx context.Context, lat, lng float64, day time.Time, hour int) (float64, bool, error) {
	s.calls = append(s.calls, lookup{lat: lat, lng: lng, hour: hour})
	if s.err != nil {
		return 0, false, s.err
	}
	if s.miss {
		return 0, false, nil
	}
	return s.temp, true, nil
}

func trip(startKey string, lat, lng float64) storage.Trip {
	return storage.Trip{
		StartKey:    startKey,
		Distance:    10,
		Consumption: 5,
		Efficiency:  2,
		StartLat:    lat,
		StartLng:    lng,
		EndLat:      lat,
		EndLng:      lng,
		Tags:        []string{},
	}
}

func TestRunEnrichesOnlyMissingTrips(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	enriched := trip("2026-02-18, 07:00", 44.97, -93.26)
	existing := 55.0
	enriched.Temperature = &existing

	missing1 := trip("2026-02-19, 15:05", 44.97, -93.26)
	missing2 := trip("2026-02-20, 08:10", 44.95, -93.20)
	require.NoError(t, store.UpsertTrips(ctx, []storage.Trip{enriched, missing1, missing2}))

	source := &stubSource{temp: 41.5}
	worker := NewWorker(store, source, testLogger())
	worker.SetThrottle(0)

	res, err := worker.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Scanned)
	assert.Equal(t, 2, res.Enriched)
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, 0, res.Misses)

	// Exactly one lookup per missing trip, none for the populated one.
	require.Len(t, source.calls, 2)
	assert.Equal(t, 15, source.calls[0].hour, "lookup uses the trip's start hour")
	assert.Equal(t, 8, source.calls[1].hour)

	got, err := store.GetTrip(ctx, missing1.StartKey)
	require.NoError(t, err)
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 41.5, *got.Temperature, 1e-9)

	// The already-enriched trip keeps its original value.
	got, err = store.GetTrip(ctx, enriched.StartKey)
	require.NoError(t, err)
	assert.InDelta(t, 55.0, *got.Temperature, 1e-9)
}

func TestRunSkipsTripsWithoutCoordinates(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	noCoords := trip("2026-02-19, 15:05", math.NaN(), math.NaN())
	good := trip("2026-02-20, 08:10", 44.95, -93.20)
	require.NoError(t, store.UpsertTrips(ctx, []storage.Trip{noCoords, good}))

	source := &stubSource{temp: 41.5}
	worker := NewWorker(store, source, testLogger())
	worker.SetThrottle(0)

	res, err := worker.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Scanned)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Enriched)
	assert.Len(t, source.calls, 1, "skipped trips must not hit the source")

	got, err := store.GetTrip(ctx, noCoords.StartKey)
	require.NoError(t, err)
	assert.Nil(t, got.Temperature)
}

func TestRunSkipsUnparsableStartKey(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	bad := trip("not a timestamp", 44.97, -93.26)
	require.NoError(t, store.UpsertTrips(ctx, []storage.Trip{bad}))

	source := &stubSource{temp: 41.5}
	worker := NewWorker(store, source, testLogger())
	worker.SetThrottle(0)

	res, err := worker.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Empty(t, source.calls)
}

func TestRunMissLeavesTemperatureNull(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	missing := trip("2026-02-19, 15:05", 44.97, -93.26)
	require.NoError(t, store.UpsertTrips(ctx, []storage.Trip{missing}))

	source := &stubSource{miss: true}
	worker := NewWorker(store, source, testLogger())
	worker.SetThrottle(0)

	res, err := worker.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Misses)
	assert.Equal(t, 0, res.Enriched)

	got, err := store.GetTrip(ctx, missing.StartKey)
	require.NoError(t, err)
	assert.Nil(t, got.Temperature, "a miss must leave the trip retryable")
}

func TestRunLookupErrorIsNotFatal(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertTrips(ctx, []storage.Trip{
		trip("2026-02-19, 15:05", 44.97, -93.26),
		trip("2026-02-20, 08:10", 44.95, -93.20),
	}))

	source := &stubSource{err: errors.New("connection refused")}
	worker := NewWorker(store, source, testLogger())
	worker.SetThrottle(0)

	res, err := worker.Run(ctx)
	require.NoError(t, err, "lookup failures degrade to misses, not errors")
	assert.Equal(t, 2, res.Misses)
	assert.Len(t, source.calls, 2, "the pass continues past a failed lookup")
}

func TestRunEmptyStore(t *testing.T) {
	store := openTestStore(t)

	source := &stubSource{temp: 41.5}
	worker := NewWorker(store, source, testLogger())
	worker.SetThrottle(0)

	res, err := worker.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Scanned)
	assert.Empty(t, source.calls)
}

func TestRunThrottlesBetweenLookups(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertTrips(ctx, []storage.Trip{
		trip("2026-02-19, 15:05", 44.97, -93.26),
		trip("2026-02-20, 08:10", 44.95, -93.20),
	}))

	source := &stubSource{temp: 41.5}
	worker := NewWorker(store, source, testLogger())

	fc := clockwork.NewFakeClock()
	worker.SetClock(fc)

	done := make(chan *Result, 1)
	go func() {
		res, err := worker.Run(ctx)
		require.NoError(t, err)
		done <- res
	}()

	// One throttle interval follows every lookup, including the last.
	for i := 0; i < 2; i++ {
		fc.BlockUntil(1)
		fc.Advance(DefaultThrottle)
	}

	res := <-done
	assert.Equal(t, 2, res.Enriched)
	assert.Len(t, source.calls, 2)
}

func TestRunStopsOnContextCancellation(t *testing.T) {
	store := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, store.UpsertTrips(ctx, []storage.Trip{
		trip("2026-02-19, 15:05", 44.97, -93.26),
		trip("2026-02-20, 08:10", 44.95, -93.20),
		trip("2026-02-21, 17:45", 44.98, -93.30),
	}))

	source := &stubSource{temp: 41.5}
	worker := NewWorker(store, source, testLogger())

	fc := clockwork.NewFakeClock()
	worker.SetClock(fc)

	done := make(chan struct{})
	var res *Result
	var runErr error
	go func() {
		res, runErr = worker.Run(ctx)
		close(done)
	}()

	// Cancel while the worker waits out the first throttle interval.
	fc.BlockUntil(1)
	cancel()
	<-done

	require.ErrorIs(t, runErr, context.Canceled)
	require.NotNil(t, res)
	assert.Equal(t, 1, res.Enriched, "partial progress is kept")
	assert.Len(t, source.calls, 1)
}
