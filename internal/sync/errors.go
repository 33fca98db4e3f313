package sync

import (
	"errors"
	"fmt"
)

// ErrInvalidRange is returned when the requested window's start date falls
// after its end date. Caller input; never retried automatically.
var ErrInvalidRange = errors.New("start date must be on or before end date")

// ErrSyncActive is returned when a populate run is requested while another
// run is still executing against the same cache store.
var ErrSyncActive = errors.New("a sync run is already in progress")

// TooManyResultsError aborts a run whose search returned more message IDs
// than the configured ceiling. Silently truncating would produce an
// incomplete cache entry marked complete, so this is a hard stop: the caller
// must narrow the range or raise the ceiling.
type TooManyResultsError struct {
	Max   int
	Found int
}

func (e *TooManyResultsError) Error() string {
	return fmt.Sprintf(
		"exceeded maximum number of results per search (max=%d, num results=%d)",
		e.Max, e.Found,
	)
}
