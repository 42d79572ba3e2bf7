package service

import (
	"fmt"
	"time"

	"restopos/internal/opday"
)

// DateRange is an inclusive range of operational days (YYYY-MM-DD keys).
// Empty ends default to the current operational day.
type DateRange struct {
	From string
	To   string
}

// keys resolves the defaults and validates the range.
func (r DateRange) keys(now time.Time) (from, to string, err error) {
	today := opday.Key(now)
	from, to = r.From, r.To
	if from == "" {
		from = today
	}
	if to == "" {
		to = today
	}
	loc := now.Location()
	f, err := opday.ParseKey(from, loc)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidDateRange, err)
	}
	t, err := opday.ParseKey(to, loc)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidDateRange, err)
	}
	if t.Before(f) {
		return "", "", fmt.Errorf("%w: %s > %s", ErrInvalidDateRange, from, to)
	}
	return from, to, nil
}

// window converts the range into the half-open instant window it covers.
func (r DateRange) window(now time.Time) (start, end time.Time, err error) {
	from, to, err := r.keys(now)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	loc := now.Location()
	f, _ := opday.ParseKey(from, loc)
	t, _ := opday.ParseKey(to, loc)
	start, _ = opday.Bounds(f, loc)
	_, end = opday.Bounds(t, loc)
	return start, end, nil
}
