package model

import (
	"fmt"
	"time"
)

// dayFormat is the canonical wire and storage format for calendar dates.
const dayFormat = "2006-01-02"

// Day is a calendar date with no time-of-day component. The zero value
// means "unknown date". Days compare and sort by their UTC midnight
// instant, and their string form sorts lexically in date order, which the
// store relies on for range scans.
type Day struct {
	t time.Time
}

// NewDay builds a Day from a year, month, and day-of-month.
func NewDay(year int, month time.Month, day int) Day {
	return Day{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DayOf returns the calendar date of t in t's location.
func DayOf(t time.Time) Day {
	if t.IsZero() {
		return Day{}
	}
	return NewDay(t.Year(), t.Month(), t.Day())
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dayFormat, s)
	if err != nil {
		return Day{}, fmt.Errorf("parsing day %q: %w", s, err)
	}
	return Day{t: t}, nil
}

// IsZero reports whether the day is unset.
func (d Day) IsZero() bool {
	return d.t.IsZero()
}

// String formats the day as YYYY-MM-DD. The zero day formats as "".
func (d Day) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(dayFormat)
}

// Time returns the day's UTC midnight instant.
func (d Day) Time() time.Time {
	return d.t
}

// AddDays returns the day shifted by n calendar days.
func (d Day) AddDays(n int) Day {
	return Day{t: d.t.AddDate(0, 0, n)}
}

// Next returns the following calendar day.
func (d Day) Next() Day {
	return d.AddDays(1)
}

// Before reports whether d is strictly earlier than o.
func (d Day) Before(o Day) bool {
	return d.t.Before(o.t)
}

// After reports whether d is strictly later than o.
func (d Day) After(o Day) bool {
	return d.t.After(o.t)
}

// Equal reports whether d and o are the same calendar date.
func (d Day) Equal(o Day) bool {
	return d.t.Equal(o.t)
}
