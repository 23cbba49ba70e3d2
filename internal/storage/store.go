package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrNotFound is returned by point updates when no trip has the given
// start key.
var ErrNotFound = errors.New("trip not found")

// Store defines the interface for trip data operations.
type Store interface {
	UpsertTrips(ctx context.Context, trips []Trip) error
	ScanAll(ctx context.Context) ([]Trip, error)
	MissingTemperature(ctx context.Context) ([]Trip, error)
	UpdateTemperature(ctx context.Context, startKey string, fahrenheit float64) error
	UpdateDetails(ctx context.Context, startKey, notes string, tags []string) error
	GetTrip(ctx context.Context, startKey string) (*Trip, error)
	GetStats(ctx context.Context) (*Stats, error)
	Close() error
}

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB

	// Prepared statements
	getTrip     *sql.Stmt
	setTemp     *sql.Stmt
	setDetails  *sql.Stmt
	upsertTrip  *sql.Stmt
}

// NewSQLiteStore creates a SQLiteStore from an already-opened and migrated
// database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}

	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	return s, nil
}

const tripColumns = `start_ts, end_ts, start_address, end_address,
	distance, consumption, efficiency,
	start_lat, start_lng, end_lat, end_lng,
	start_odometer, end_odometer,
	trip_type, soc_source, soc_dest,
	temperature, notes, tags`

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.upsertTrip, err = s.db.Prepare(`
		INSERT INTO trips (` + tripColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(start_ts) DO UPDATE SET
			end_ts = excluded.end_ts,
			start_address = excluded.start_address,
			end_address = excluded.end_address,
			distance = excluded.distance,
			consumption = excluded.consumption,
			efficiency = excluded.efficiency,
			start_lat = excluded.start_lat,
			start_lng = excluded.start_lng,
			end_lat = excluded.end_lat,
			end_lng = excluded.end_lng,
			start_odometer = excluded.start_odometer,
			end_odometer = excluded.end_odometer,
			trip_type = excluded.trip_type,
			soc_source = excluded.soc_source,
			soc_dest = excluded.soc_dest,
			temperature = excluded.temperature,
			notes = excluded.notes,
			tags = excluded.tags,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return err
	}

	s.getTrip, err = s.db.Prepare(`SELECT ` + tripColumns + ` FROM trips WHERE start_ts = ?`)
	if err != nil {
		return err
	}

	s.setTemp, err = s.db.Prepare(`
		UPDATE trips SET temperature = ?, updated_at = CURRENT_TIMESTAMP WHERE start_ts = ?
	`)
	if err != nil {
		return err
	}

	s.setDetails, err = s.db.Prepare(`
		UPDATE trips SET notes = ?, tags = ?, updated_at = CURRENT_TIMESTAMP WHERE start_ts = ?
	`)
	if err != nil {
		return err
	}

	return nil
}

// NormalizeTags lowercases and deduplicates tags, dropping empties.
// Insertion order of the first occurrence is preserved.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// nullIfNaN maps NaN coordinates to SQL NULL.
func nullIfNaN(v float64) sql.NullFloat64 {
	if math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

// nanIfNull maps SQL NULL coordinates back to NaN.
func nanIfNull(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func encodeTags(tags []string) (string, error) {
	normalized := NormalizeTags(tags)
	data, err := json.Marshal(normalized)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(data), nil
}

func decodeTags(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return []string{}
	}
	if tags == nil {
		tags = []string{}
	}
	return tags
}

// UpsertTrips inserts or replaces trips keyed by start timestamp, all in a
// single transaction. Re-importing an overlapping export window is
// idempotent: previously seen keys are overwritten in place.
func (s *SQLiteStore) UpsertTrips(ctx context.Context, trips []Trip) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt := tx.StmtContext(ctx, s.upsertTrip)
	for i := range trips {
		t := &trips[i]
		tags, err := encodeTags(t.Tags)
		if err != nil {
			return err
		}

		var temp sql.NullFloat64
		if t.Temperature != nil {
			temp = sql.NullFloat64{Float64: *t.Temperature, Valid: true}
		}

		if _, err := stmt.ExecContext(ctx,
			t.StartKey, t.EndTimestamp, t.StartAddress, t.EndAddress,
			t.Distance, t.Consumption, t.Efficiency,
			nullIfNaN(t.StartLat), nullIfNaN(t.StartLng), nullIfNaN(t.EndLat), nullIfNaN(t.EndLng),
			t.StartOdometer, t.EndOdometer,
			t.TripType, t.SOCSource, t.SOCDestination,
			temp, t.Notes, tags,
		); err != nil {
			return fmt.Errorf("upsert trip %s: %w", t.StartKey, err)
		}
	}

	return tx.Commit()
}

// ScanAll returns every stored trip ordered by start key.
func (s *SQLiteStore) ScanAll(ctx context.Context) ([]Trip, error) {
	return s.scanTrips(ctx,
		`SELECT `+tripColumns+` FROM trips ORDER BY start_ts`)
}

// MissingTemperature returns trips not yet enriched with weather data,
// ordered by start key.
func (s *SQLiteStore) MissingTemperature(ctx context.Context) ([]Trip, error) {
	return s.scanTrips(ctx,
		`SELECT `+tripColumns+` FROM trips WHERE temperature IS NULL ORDER BY start_ts`)
}

// scanTrips executes a query and scans the results into Trip slices.
func (s *SQLiteStore) scanTrips(ctx context.Context, query string, args ...interface{}) ([]Trip, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trips: %w", err)
	}
	defer rows.Close()

	var trips []Trip
	for rows.Next() {
		t, err := scanTrip(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}
		trips = append(trips, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Return empty slice rather than nil
	if trips == nil {
		trips = []Trip{}
	}

	return trips, nil
}

// scanTrip reads one row into a Trip using the given scan function.
func scanTrip(scan func(...interface{}) error) (*Trip, error) {
	var t Trip
	var startLat, startLng, endLat, endLng, temp sql.NullFloat64
	var tags string

	err := scan(
		&t.StartKey, &t.EndTimestamp, &t.StartAddress, &t.EndAddress,
		&t.Distance, &t.Consumption, &t.Efficiency,
		&startLat, &startLng, &endLat, &endLng,
		&t.StartOdometer, &t.EndOdometer,
		&t.TripType, &t.SOCSource, &t.SOCDestination,
		&temp, &t.Notes, &tags,
	)
	if err != nil {
		return nil, err
	}

	t.StartLat = nanIfNull(startLat)
	t.StartLng = nanIfNull(startLng)
	t.EndLat = nanIfNull(endLat)
	t.EndLng = nanIfNull(endLng)
	if temp.Valid {
		v := temp.Float64
		t.Temperature = &v
	}
	t.Tags = decodeTags(tags)

	return &t, nil
}

// GetTrip retrieves a single trip by start key.
func (s *SQLiteStore) GetTrip(ctx context.Context, startKey string) (*Trip, error) {
	row := s.getTrip.QueryRowContext(ctx, startKey)
	t, err := scanTrip(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("trip %s: %w", startKey, ErrNotFound)
		}
		return nil, fmt.Errorf("get trip: %w", err)
	}
	return t, nil
}

// UpdateTemperature sets the enriched temperature for a single trip.
func (s *SQLiteStore) UpdateTemperature(ctx context.Context, startKey string, fahrenheit float64) error {
	res, err := s.setTemp.ExecContext(ctx, fahrenheit, startKey)
	if err != nil {
		return fmt.Errorf("update temperature: %w", err)
	}
	return requireRow(res, startKey)
}

// UpdateDetails sets the notes and tags for a single trip. Tags are
// lowercased and deduplicated before writing.
func (s *SQLiteStore) UpdateDetails(ctx context.Context, startKey, notes string, tags []string) error {
	encoded, err := encodeTags(tags)
	if err != nil {
		return err
	}

	res, err := s.setDetails.ExecContext(ctx, notes, encoded, startKey)
	if err != nil {
		return fmt.Errorf("update details: %w", err)
	}
	return requireRow(res, startKey)
}

// requireRow converts a zero-row update into ErrNotFound.
func requireRow(res sql.Result, startKey string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("trip %s: %w", startKey, ErrNotFound)
	}
	return nil
}

// GetStats returns aggregate statistics about the trip database.
func (s *SQLiteStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM trips").Scan(&stats.TotalTrips)
	if err != nil {
		return nil, fmt.Errorf("count trips: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM trips WHERE temperature IS NULL",
	).Scan(&stats.MissingTemperature)
	if err != nil {
		return nil, fmt.Errorf("count missing temperature: %w", err)
	}

	if stats.TotalTrips > 0 {
		err = s.db.QueryRowContext(ctx,
			"SELECT MIN(start_ts), MAX(start_ts) FROM trips",
		).Scan(&stats.OldestStart, &stats.NewestStart)
		if err != nil {
			return nil, fmt.Errorf("trip time range: %w", err)
		}
	}

	return stats, nil
}

// Close releases all prepared statements. The underlying *sql.DB is NOT
// closed; that is the caller's responsibility.
func (s *SQLiteStore) Close() error {
	stmts := []*sql.Stmt{s.upsertTrip, s.getTrip, s.setTemp, s.setDetails}
	for _, stmt := range stmts {
		if stmt != nil {
			stmt.Close()
		}
	}
	return nil
}
