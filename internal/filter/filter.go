// Package filter evaluates a declarative filter specification against the
// trip collection. All numeric bounds are canonical units (miles, °F,
// mi/kWh); the display layer converts user input before it lands here.
package filter

import (
	"strings"
	"time"

	"github.com/dbjohnson/polestar-log-viewer/internal/storage"
)

// DateLayout is the format of the Spec's date-interval bounds.
const DateLayout = "2006-01-02"

// Range is an optional inclusive numeric interval. Nil bounds impose no
// constraint.
type Range struct {
	Min *float64 `yaml:"min,omitempty"`
	Max *float64 `yaml:"max,omitempty"`
}

// Active reports whether either bound is set.
func (r Range) Active() bool {
	return r.Min != nil || r.Max != nil
}

// Contains reports whether v satisfies the set bounds.
func (r Range) Contains(v float64) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// Spec is the persisted filter state. Predicates combine with logical AND
// across categories.
type Spec struct {
	// Date interval, active only when both bounds are set.
	DateStart string `yaml:"date_start,omitempty"`
	DateEnd   string `yaml:"date_end,omitempty"`

	Distance    Range `yaml:"distance"`    // miles
	Temperature Range `yaml:"temperature"` // °F
	Efficiency  Range `yaml:"efficiency"`  // mi/kWh

	// Case-insensitive substring match against notes or any tag.
	SearchText string `yaml:"search_text,omitempty"`

	// Trips carrying any of these tags are excluded.
	ExcludedTags []string `yaml:"excluded_tags,omitempty"`
}

// Default returns an empty Spec that passes every trip.
func Default() Spec {
	return Spec{}
}

// IsDefault reports whether no predicate is active.
func (s *Spec) IsDefault() bool {
	return !s.dateActive() && !s.Distance.Active() && !s.Temperature.Active() &&
		!s.Efficiency.Active() && s.SearchText == "" && len(s.ExcludedTags) == 0
}

func (s *Spec) dateActive() bool {
	return s.DateStart != "" && s.DateEnd != ""
}

// Result is the outcome of one filter pass. Included and Excluded are
// derived from the same single pass over the collection.
type Result struct {
	Trips    []storage.Trip
	Excluded int
}

// Apply evaluates the spec against every trip and returns the subset
// satisfying all active predicates. The source slice is not mutated and
// the result is deterministic for identical inputs.
func Apply(trips []storage.Trip, spec Spec) Result {
	search := strings.ToLower(strings.TrimSpace(spec.SearchText))

	excluded := make(map[string]struct{}, len(spec.ExcludedTags))
	for _, tag := range spec.ExcludedTags {
		excluded[strings.ToLower(tag)] = struct{}{}
	}

	var dayStart, dayEnd time.Time
	dateActive := false
	if spec.dateActive() {
		start, errStart := time.ParseInLocation(DateLayout, spec.DateStart, time.Local)
		end, errEnd := time.ParseInLocation(DateLayout, spec.DateEnd, time.Local)
		if errStart == nil && errEnd == nil {
			dateActive = true
			dayStart = start
			// Inclusive through the end of the final day.
			dayEnd = end.AddDate(0, 0, 1)
		}
	}

	res := Result{Trips: make([]storage.Trip, 0, len(trips))}
	for i := range trips {
		t := &trips[i]
		if matches(t, spec, search, excluded, dateActive, dayStart, dayEnd) {
			res.Trips = append(res.Trips, *t)
		} else {
			res.Excluded++
		}
	}

	return res
}

func matches(t *storage.Trip, spec Spec, search string, excluded map[string]struct{},
	dateActive bool, dayStart, dayEnd time.Time) bool {

	if dateActive {
		start, ok := t.StartTime()
		if !ok || start.Before(dayStart) || !start.Before(dayEnd) {
			return false
		}
	}

	if !spec.Distance.Contains(t.Distance) {
		return false
	}

	// An unknown temperature cannot be evaluated against an active
	// constraint, so not-yet-enriched trips are excluded here.
	if spec.Temperature.Active() {
		if t.Temperature == nil || !spec.Temperature.Contains(*t.Temperature) {
			return false
		}
	}

	if !spec.Efficiency.Contains(t.Efficiency) {
		return false
	}

	if search != "" {
		if !strings.Contains(strings.ToLower(t.Notes), search) && !anyTagContains(t.Tags, search) {
			return false
		}
	}

	// Stored tags are already lowercase.
	for tag := range excluded {
		if t.HasTag(tag) {
			return false
		}
	}

	return true
}

func anyTagContains(tags []string, search string) bool {
	for _, tag := range tags {
		if strings.Contains(strings.ToLower(tag), search) {
			return true
		}
	}
	return false
}
