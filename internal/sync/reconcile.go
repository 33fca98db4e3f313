package sync

import (
	"sort"

	"bcfeed/internal/model"
)

// CollapseDateRanges reduces a set of unresolved days to the minimal list of
// disjoint inclusive ranges covering exactly those days, in chronological
// order. Consecutive days merge into one range; provider queries are priced
// per call, so one call per contiguous gap minimizes round-trips.
func CollapseDateRanges(missing []model.Day) []model.DateRange {
	if len(missing) == 0 {
		return nil
	}

	days := make([]model.Day, len(missing))
	copy(days, missing)
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	var ranges []model.DateRange
	current := model.DateRange{Start: days[0], End: days[0]}
	for _, d := range days[1:] {
		if d.Equal(current.End) {
			continue
		}
		if d.Equal(current.End.Next()) {
			current.End = d
			continue
		}
		ranges = append(ranges, current)
		current = model.DateRange{Start: d, End: d}
	}
	ranges = append(ranges, current)

	return ranges
}
