// Package enrich backfills missing trip temperatures from an external
// hourly-temperature source, one record at a time.
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dbjohnson/polestar-log-viewer/internal/storage"
	"github.com/dbjohnson/polestar-log-viewer/internal/weather"
)

// DefaultThrottle is the fixed delay between successive external lookups,
// honoring the free API's rate limits.
const DefaultThrottle = 200 * time.Millisecond

// Worker runs best-effort enrichment passes over the record store. Each
// pass is safe to re-run: already-enriched records are excluded by the
// temperature-IS-NULL scan, and every update is an independent keyed
// point-write.
type Worker struct {
	store    storage.Store
	source   weather.Source
	clock    clockwork.Clock
	logger   *slog.Logger
	throttle time.Duration
}

// NewWorker creates an enrichment worker with the default throttle and
// real clock.
func NewWorker(store storage.Store, source weather.Source, logger *slog.Logger) *Worker {
	return &Worker{
		store:    store,
		source:   source,
		clock:    clockwork.NewRealClock(),
		logger:   logger,
		throttle: DefaultThrottle,
	}
}

// SetClock swaps the time source, letting tests drive the throttle with a
// fake clock.
func (w *Worker) SetClock(c clockwork.Clock) {
	w.clock = c
}

// SetThrottle overrides the delay between lookups.
func (w *Worker) SetThrottle(d time.Duration) {
	w.throttle = d
}

// Result reports one completed enrichment pass.
type Result struct {
	Scanned  int // trips missing temperature at scan time
	Skipped  int // left null: bad coordinates or unparsable start key
	Enriched int
	Misses   int // lookups that returned no usable value
}

// Run performs one enrichment pass: scan for trips with no temperature,
// look each one up sequentially, and point-update the successes. Lookup
// misses are not fatal; the affected trips stay null and are retried on
// the next pass. The context cancels the pass between iterations.
func (w *Worker) Run(ctx context.Context) (*Result, error) {
	trips, err := w.store.MissingTemperature(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan for missing temperatures: %w", err)
	}

	res := &Result{Scanned: len(trips)}
	if len(trips) == 0 {
		return res, nil
	}

	w.logger.Info("starting enrichment pass", "missing", len(trips))

	for i := range trips {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		trip := &trips[i]
		if !enrichable(trip) {
			res.Skipped++
			continue
		}

		w.lookupOne(ctx, trip, res)

		// Fixed delay between lookups regardless of outcome.
		if !w.sleep(ctx, w.throttle) {
			return res, ctx.Err()
		}
	}

	w.logger.Info("enrichment pass complete",
		"enriched", res.Enriched, "misses", res.Misses, "skipped", res.Skipped)

	return res, nil
}

// lookupOne performs the external lookup for a single trip and persists
// the temperature on success.
func (w *Worker) lookupOne(ctx context.Context, trip *storage.Trip, res *Result) {
	start, _ := trip.StartTime()

	temp, ok, err := w.source.HourlyTemperature(ctx, trip.StartLat, trip.StartLng, start, start.Hour())
	if err != nil || !ok {
		if err != nil {
			w.logger.Warn("temperature lookup failed", "trip", trip.StartKey, "error", err)
		}
		res.Misses++
		return
	}

	if err := w.store.UpdateTemperature(ctx, trip.StartKey, temp); err != nil {
		w.logger.Warn("persist temperature failed", "trip", trip.StartKey, "error", err)
		res.Misses++
		return
	}

	w.logger.Debug("trip enriched", "trip", trip.StartKey, "temperature_f", temp)
	res.Enriched++
}

// enrichable reports whether a trip has the coordinates and timestamp the
// lookup needs.
func enrichable(t *storage.Trip) bool {
	if math.IsNaN(t.StartLat) || math.IsNaN(t.StartLng) {
		return false
	}
	_, ok := t.StartTime()
	return ok
}

// sleep waits for d on the worker clock, returning false if the context
// was cancelled first.
func (w *Worker) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := w.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
