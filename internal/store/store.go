package store

import (
	"context"

	"bcfeed/internal/model"
)

// Store defines the persistence interface for the date-keyed release cache.
//
// Each calendar day owns an entry holding zero or more releases and a
// "scraped" completion flag. Scraped means the day's provider query has been
// issued and its outcome, empty or not, is durably persisted. Today is never
// reported as resolved so that late-arriving messages for the current day are
// re-fetched on the next run.
type Store interface {
	// EntriesForRange returns the releases of every resolved day in
	// [start, end] together with the days that still need fetching.
	// A day is resolved when its entry is marked scraped and it is not
	// today; today is always returned as missing.
	EntriesForRange(ctx context.Context, start, end model.Day) ([]model.Release, []model.Day, error)

	// PersistReleases upserts releases keyed by (date, canonical URL) and
	// marks each touched day scraped. Releases with a zero date cannot be
	// keyed and are skipped. When excludeToday is set, today's releases
	// are still written but today's scraped flag is left untouched.
	PersistReleases(ctx context.Context, releases []model.Release, excludeToday bool) error

	// MarkRangeScraped marks every day in [start, end] scraped, creating
	// entries as needed. Today is skipped when excludeToday is set.
	MarkRangeScraped(ctx context.Context, start, end model.Day, excludeToday bool) error

	// PersistEmptyRange records that [start, end] was queried and yielded
	// no messages, so the range is never re-queried.
	PersistEmptyRange(ctx context.Context, start, end model.Day, excludeToday bool) error

	// ListReleases returns all cached releases in [start, end] regardless
	// of scraped state, ordered by date then URL.
	ListReleases(ctx context.Context, start, end model.Day) ([]model.Release, error)

	// BeginRun records the start of a sync run over the given window and
	// returns the run ID.
	BeginRun(ctx context.Context, window model.DateRange) (string, error)

	// FinishRun records a run's terminal state. A nil runErr marks the
	// run succeeded.
	FinishRun(ctx context.Context, id string, runErr error) error

	Close() error
}
