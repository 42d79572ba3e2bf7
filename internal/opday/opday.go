// Package opday resolves the operational (business) day of an instant.
//
// A restaurant's closing shift runs past midnight, so anything that happens
// between 00:00 and 05:00 local time is still attributed to the previous day.
// All functions are pure: callers pass the instant already converted to the
// business location and never rely on the system clock here.
package opday

import (
	"fmt"
	"time"
)

// CutoffHour is the first hour that belongs to the new operational day.
const CutoffHour = 5

// KeyLayout is the canonical grouping key format (YYYY-MM-DD).
const KeyLayout = "2006-01-02"

// IsEarlyMorning reports whether t's local hour is in [0, CutoffHour).
func IsEarlyMorning(t time.Time) bool {
	return t.Hour() < CutoffHour
}

// Resolve returns the operational day of t as a midnight timestamp in t's location.
// Time of day is discarded after the shift.
func Resolve(t time.Time) time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	if IsEarlyMorning(t) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// Key returns the YYYY-MM-DD key of the operational day of t.
func Key(t time.Time) string {
	return Resolve(t).Format(KeyLayout)
}

// ParseKey parses a YYYY-MM-DD key into a midnight timestamp in loc.
func ParseKey(key string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(KeyLayout, key, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("opday: invalid day %q: %w", key, err)
	}
	return d, nil
}

// Bounds returns the half-open instant window [start, end) covered by the
// operational day `day` (only its calendar date is used) in loc.
func Bounds(day time.Time, loc *time.Location) (start, end time.Time) {
	start = time.Date(day.Year(), day.Month(), day.Day(), CutoffHour, 0, 0, 0, loc)
	end = start.AddDate(0, 0, 1)
	return start, end
}

// MonthRange returns the first and last operational-day keys of the month that
// contains the operational day of t.
func MonthRange(t time.Time) (first, last string) {
	d := Resolve(t)
	start := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, d.Location())
	end := start.AddDate(0, 1, -1)
	return start.Format(KeyLayout), end.Format(KeyLayout)
}
