package model

import "fmt"

// DateRange is an inclusive [Start, End] span of calendar days.
// Start must not be after End.
type DateRange struct {
	Start Day
	End   Day
}

// NewDateRange builds a range, rejecting inverted bounds.
func NewDateRange(start, end Day) (DateRange, error) {
	if start.After(end) {
		return DateRange{}, fmt.Errorf("invalid date range: %s after %s", start, end)
	}
	return DateRange{Start: start, End: end}, nil
}

// Days expands the range into its individual days, in order.
func (r DateRange) Days() []Day {
	var days []Day
	for d := r.Start; !d.After(r.End); d = d.Next() {
		days = append(days, d)
	}
	return days
}

// Contains reports whether d falls within the range.
func (r DateRange) Contains(d Day) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// Len returns the number of days in the range.
func (r DateRange) Len() int {
	return int(r.End.Time().Sub(r.Start.Time()).Hours()/24) + 1
}

func (r DateRange) String() string {
	return fmt.Sprintf("%s to %s", r.Start, r.End)
}
