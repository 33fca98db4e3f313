// Package sync implements the incremental release-cache synchronization
// pipeline: it computes which parts of a requested date window are not yet
// cached, fetches only those from the mail provider, parses and dedupes the
// results, and persists them so no range is re-fetched once resolved.
package sync

import (
	"context"
	"fmt"
	"sort"
	gosync "sync"

	"go.uber.org/zap"

	"bcfeed/internal/extract"
	"bcfeed/internal/model"
	"bcfeed/internal/provider"
	"bcfeed/internal/store"
)

// ProviderFactory opens a fresh provider session. The syncer creates one
// session per run and closes it on every exit path.
type ProviderFactory func() (provider.Provider, error)

// ExtractFunc parses one message into a candidate release. A zero release
// means "not a release email"; either outcome counts the message as skipped.
type ExtractFunc func(html, subject string) (model.Release, error)

// Option configures a Syncer.
type Option func(*Syncer)

// WithLogger sets the progress sink.
func WithLogger(log *zap.Logger) Option {
	return func(s *Syncer) { s.log = log }
}

// WithExtractor overrides the release extractor.
func WithExtractor(fn ExtractFunc) Option {
	return func(s *Syncer) { s.extract = fn }
}

// WithSearch overrides the sender and subject filters used to find release
// announcement emails.
func WithSearch(sender, subjectContains string) Option {
	return func(s *Syncer) {
		s.sender = sender
		s.subjectContains = subjectContains
	}
}

// Syncer drives cache population runs. Runs against the same store must not
// overlap: concurrent runs could compute the same gap and double-fetch, or
// race on the same day's write, so a run-level guard rejects overlap.
type Syncer struct {
	store       store.Store
	newProvider ProviderFactory
	extract     ExtractFunc
	log         *zap.Logger

	sender          string
	subjectContains string

	mu     gosync.Mutex
	active bool
}

// New creates a Syncer over the given store and provider factory.
func New(st store.Store, factory ProviderFactory, opts ...Option) *Syncer {
	s := &Syncer{
		store:           st,
		newProvider:     factory,
		extract:         extract.ParseReleaseEmail,
		log:             zap.NewNop(),
		sender:          "noreply@bandcamp.com",
		subjectContains: "New release from",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PopulateCache brings the cache up to date for the inclusive [after,
// before] window and returns the merged, deduplicated release list for it.
//
// Previously seen dates are served from cache; only unresolved sub-ranges
// hit the provider, one search per contiguous gap, processed strictly
// sequentially. Each gap's releases are persisted before the gap is marked
// scraped, so a failure mid-run leaves earlier gaps durably cached and a
// re-run skips them. Today is persisted but never marked complete, so
// late-arriving messages for the current day are re-fetched next run.
// Cancellation is honored between gaps; a gap already in flight completes.
func (s *Syncer) PopulateCache(
	ctx context.Context,
	after, before model.Day,
	maxResults, batchSize int,
) ([]model.Release, error) {
	if after.IsZero() || before.IsZero() || after.After(before) {
		return nil, fmt.Errorf("%w: %s .. %s", ErrInvalidRange, after, before)
	}

	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	window := model.DateRange{Start: after, End: before}
	runID, err := s.store.BeginRun(ctx, window)
	if err != nil {
		// The audit trail is best-effort; the run itself proceeds.
		s.log.Warn("could not record sync run", zap.Error(err))
	}

	releases, runErr := s.populate(ctx, window, maxResults, batchSize)

	if runID != "" {
		// The terminal status is recorded even when the run was cancelled.
		if err := s.store.FinishRun(context.WithoutCancel(ctx), runID, runErr); err != nil {
			s.log.Warn("could not finish sync run record", zap.Error(err))
		}
	}

	return releases, runErr
}

func (s *Syncer) populate(
	ctx context.Context,
	window model.DateRange,
	maxResults, batchSize int,
) ([]model.Release, error) {
	cached, missing, err := s.store.EntriesForRange(ctx, window.Start, window.End)
	if err != nil {
		return nil, err
	}

	gaps := CollapseDateRanges(missing)

	// Cached releases seed the list; fetched releases are only ever
	// appended after them. The keep-last dedupe pass depends on this
	// ordering to let fresh data supersede stale cache.
	releases := make([]model.Release, 0, len(cached))
	releases = append(releases, cached...)

	if len(gaps) == 0 {
		s.log.Info("date range already scraped; no provider download needed",
			zap.String("window", window.String()),
		)
		return s.finish(ctx, releases)
	}

	for _, gap := range gaps {
		s.log.Info("date range will be downloaded", zap.String("range", gap.String()))
	}

	prov, err := s.newProvider()
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := prov.Close(); cerr != nil {
			s.log.Warn("closing provider", zap.Error(cerr))
		}
	}()

	if err := prov.Authenticate(ctx); err != nil {
		return nil, err
	}

	for _, gap := range gaps {
		// Cooperative cancellation between gaps only; an in-flight gap
		// completes so it is never left half-persisted.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fetched, err := s.fetchGap(ctx, prov, gap, maxResults, batchSize)
		if err != nil {
			return nil, err
		}
		releases = append(releases, fetched...)
	}

	return s.finish(ctx, releases)
}

// fetchGap queries, fetches, parses, and persists one contiguous gap. The
// gap's releases are durably stored before the range is marked scraped.
func (s *Syncer) fetchGap(
	ctx context.Context,
	prov provider.Provider,
	gap model.DateRange,
	maxResults, batchSize int,
) ([]model.Release, error) {
	q := provider.Query{
		Sender:          s.sender,
		SubjectContains: s.subjectContains,
		After:           gap.Start,
		// The provider window is half-open; one past the gap end makes
		// the inclusive range exclusive on the provider side.
		Before: gap.End.Next(),
	}

	s.log.Info("querying provider",
		zap.String("after", q.After.String()),
		zap.String("before", q.Before.String()),
	)

	ids, err := prov.Search(ctx, q, maxResults)
	if err != nil {
		return nil, err
	}
	if maxResults > 0 && len(ids) > maxResults {
		return nil, &TooManyResultsError{Max: maxResults, Found: len(ids)}
	}

	// Once the gap's data is in hand, its writes run to completion even if
	// the run was cancelled mid-gap, so the gap is never half-persisted.
	storeCtx := context.WithoutCancel(ctx)

	if len(ids) == 0 {
		s.log.Info("no messages found", zap.String("range", gap.String()))
		if err := s.store.PersistEmptyRange(storeCtx, gap.Start, gap.End, true); err != nil {
			return nil, err
		}
		return nil, nil
	}

	s.log.Info("found messages",
		zap.Int("count", len(ids)),
		zap.String("range", gap.String()),
	)

	msgs, err := prov.Fetch(ctx, ids, batchSize)
	if err != nil {
		return nil, err
	}

	fetched := s.buildReleases(msgs)
	fetched = DedupeByURL(fetched)
	s.log.Info("parsed releases",
		zap.Int("count", len(fetched)),
		zap.String("range", gap.String()),
	)

	if err := s.store.PersistReleases(storeCtx, fetched, true); err != nil {
		return nil, err
	}
	if err := s.store.MarkRangeScraped(storeCtx, gap.Start, gap.End, true); err != nil {
		return nil, err
	}

	return fetched, nil
}

// buildReleases runs fetched messages through the extractor and normalizes
// the candidates into release records. Messages that fail extraction or
// resolve to an empty record are counted as skipped, never fatal. Messages
// are processed in ID order so batch-local dedup is deterministic.
func (s *Syncer) buildReleases(msgs map[string]provider.RawMessage) []model.Release {
	ids := make([]string, 0, len(msgs))
	for id := range msgs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var releases []model.Release
	skipped := 0
	for _, id := range ids {
		msg := msgs[id]

		rel, err := s.extract(msg.HTML, msg.Subject)
		if err != nil {
			skipped++
			s.log.Warn("failed to parse message", zap.String("id", id), zap.Error(err))
			continue
		}
		if rel.IsZero() && msg.Date.IsZero() {
			skipped++
			continue
		}

		rel.Date = msg.Date
		releases = append(releases, rel)
	}

	if skipped > 0 {
		s.log.Info("skipped messages", zap.Int("count", skipped))
	}
	return releases
}

// finish runs the keep-last dedupe over cached-plus-fetched releases and
// writes the merged result back so superseded records are replaced on disk.
func (s *Syncer) finish(ctx context.Context, releases []model.Release) ([]model.Release, error) {
	deduped := DedupeByDate(releases)
	if err := s.store.PersistReleases(ctx, deduped, true); err != nil {
		return nil, err
	}
	s.log.Info("loaded unique releases", zap.Int("count", len(deduped)))
	return deduped, nil
}

func (s *Syncer) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return ErrSyncActive
	}
	s.active = true
	return nil
}

func (s *Syncer) release() {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
}
