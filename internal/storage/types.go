package storage

import "time"

// StartKeyLayout is the timestamp format used by the vehicle's CSV export
// for the Start Date / End Date columns, e.g. "2026-02-19, 15:05". The raw
// start string doubles as the trip's primary key.
const StartKeyLayout = "2006-01-02, 15:04"

// Trip is one completed vehicle journey. All distance-like fields are
// canonical miles and temperature is canonical °F regardless of the source
// file's dialect or the user's display preference.
type Trip struct {
	StartKey     string // start timestamp string; primary key
	EndTimestamp string
	StartAddress string
	EndAddress   string

	Distance    float64 // miles
	Consumption float64 // kWh
	Efficiency  float64 // mi/kWh, derived at ingestion

	StartLat float64 // NaN when absent in the source
	StartLng float64
	EndLat   float64
	EndLng   float64

	StartOdometer float64 // miles
	EndOdometer   float64

	TripType       string
	SOCSource      int
	SOCDestination int

	Temperature *float64 // °F; nil means not yet enriched
	Notes       string
	Tags        []string // lowercase, deduplicated
}

// StartTime parses the trip's start key. Returns false when the key does
// not match the export layout.
func (t *Trip) StartTime() (time.Time, bool) {
	ts, err := time.ParseInLocation(StartKeyLayout, t.StartKey, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// EndTime parses the trip's end timestamp.
func (t *Trip) EndTime() (time.Time, bool) {
	ts, err := time.ParseInLocation(StartKeyLayout, t.EndTimestamp, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// HasTag reports whether the trip carries the given lowercase tag.
func (t *Trip) HasTag(tag string) bool {
	for _, existing := range t.Tags {
		if existing == tag {
			return true
		}
	}
	return false
}

// Stats holds aggregate statistics about the trip database.
type Stats struct {
	TotalTrips         int64
	MissingTemperature int64
	OldestStart        string
	NewestStart        string
}
