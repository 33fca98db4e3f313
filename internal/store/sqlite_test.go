package store_test

import (
	"context"
	"testing"
	"time"

	"bcfeed/internal/model"
	"bcfeed/tests/testutil"
)

var testNow = time.Date(2024, time.March, 10, 15, 0, 0, 0, time.UTC)

func mustDay(t *testing.T, s string) model.Day {
	t.Helper()
	d, err := model.ParseDay(s)
	if err != nil {
		t.Fatalf("parsing day %q: %v", s, err)
	}
	return d
}

func release(t *testing.T, date, url string) model.Release {
	t.Helper()
	return model.Release{
		URL:        url,
		Date:       mustDay(t, date),
		ArtistName: "Some Artist",
	}
}

func TestEntriesForRangeFreshStore(t *testing.T) {
	s := testutil.NewTestStoreAt(t, testNow)
	ctx := context.Background()

	start := mustDay(t, "2024-03-01")
	end := mustDay(t, "2024-03-03")

	releases, missing, err := s.EntriesForRange(ctx, start, end)
	if err != nil {
		t.Fatalf("EntriesForRange: %v", err)
	}
	if len(releases) != 0 {
		t.Errorf("fresh store should have no releases, got %d", len(releases))
	}
	if len(missing) != 3 {
		t.Fatalf("every day should be missing, got %d", len(missing))
	}
	for i, want := range []string{"2024-03-01", "2024-03-02", "2024-03-03"} {
		if missing[i].String() != want {
			t.Errorf("missing[%d] = %s, want %s", i, missing[i], want)
		}
	}
}

func TestEntriesForRangeRejectsInverted(t *testing.T) {
	s := testutil.NewTestStoreAt(t, testNow)

	_, _, err := s.EntriesForRange(context.Background(),
		mustDay(t, "2024-03-03"), mustDay(t, "2024-03-01"))
	if err == nil {
		t.Fatal("inverted range should be rejected")
	}
}

func TestPersistReleasesResolvesDays(t *testing.T) {
	s := testutil.NewTestStoreAt(t, testNow)
	ctx := context.Background()

	rel := release(t, "2024-03-01", "https://a.bandcamp.com/album/one")
	if err := s.PersistReleases(ctx, []model.Release{rel}, true); err != nil {
		t.Fatalf("PersistReleases: %v", err)
	}

	releases, missing, err := s.EntriesForRange(ctx,
		mustDay(t, "2024-03-01"), mustDay(t, "2024-03-02"))
	if err != nil {
		t.Fatalf("EntriesForRange: %v", err)
	}
	if len(releases) != 1 || releases[0].URL != rel.URL {
		t.Fatalf("persisted release not returned: %v", releases)
	}
	if len(missing) != 1 || missing[0].String() != "2024-03-02" {
		t.Errorf("only 2024-03-02 should be missing, got %v", missing)
	}
}

func TestPersistReleasesTodayStaysUnresolved(t *testing.T) {
	s := testutil.NewTestStoreAt(t, testNow)
	ctx := context.Background()

	today := model.DayOf(testNow)
	rel := release(t, today.String(), "https://a.bandcamp.com/album/today")
	if err := s.PersistReleases(ctx, []model.Release{rel}, true); err != nil {
		t.Fatalf("PersistReleases: %v", err)
	}

	_, missing, err := s.EntriesForRange(ctx, today, today)
	if err != nil {
		t.Fatalf("EntriesForRange: %v", err)
	}
	if len(missing) != 1 || !missing[0].Equal(today) {
		t.Fatalf("today must stay missing after persist, got %v", missing)
	}

	// The release row itself is stored for listing.
	stored, err := s.ListReleases(ctx, today, today)
	if err != nil {
		t.Fatalf("ListReleases: %v", err)
	}
	if len(stored) != 1 {
		t.Errorf("today's release should be stored, got %d rows", len(stored))
	}
}

func TestPersistReleasesSkipsInvalid(t *testing.T) {
	s := testutil.NewTestStoreAt(t, testNow)
	ctx := context.Background()

	releases := []model.Release{
		{},
		{URL: "https://a.bandcamp.com/album/no-date"},
		{Date: mustDay(t, "2024-03-01"), ArtistName: "No URL"},
	}
	if err := s.PersistReleases(ctx, releases, true); err != nil {
		t.Fatalf("PersistReleases: %v", err)
	}

	stored, err := s.ListReleases(ctx, mustDay(t, "2024-01-01"), mustDay(t, "2024-12-31"))
	if err != nil {
		t.Fatalf("ListReleases: %v", err)
	}
	if len(stored) != 0 {
		t.Errorf("invalid releases must not be stored, got %v", stored)
	}
}

func TestPersistReleasesUpsertsByIdentity(t *testing.T) {
	s := testutil.NewTestStoreAt(t, testNow)
	ctx := context.Background()

	first := release(t, "2024-03-01", "https://a.bandcamp.com/album/one")
	first.ReleaseTitle = "Old Title"
	if err := s.PersistReleases(ctx, []model.Release{first}, true); err != nil {
		t.Fatalf("PersistReleases: %v", err)
	}

	second := first
	second.ReleaseTitle = "New Title"
	if err := s.PersistReleases(ctx, []model.Release{second}, true); err != nil {
		t.Fatalf("PersistReleases: %v", err)
	}

	stored, err := s.ListReleases(ctx, first.Date, first.Date)
	if err != nil {
		t.Fatalf("ListReleases: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("re-persisting the same identity should not duplicate, got %d rows", len(stored))
	}
	if stored[0].ReleaseTitle != "New Title" {
		t.Errorf("latest write should win, got title %q", stored[0].ReleaseTitle)
	}
}

func TestMarkRangeScraped(t *testing.T) {
	s := testutil.NewTestStoreAt(t, testNow)
	ctx := context.Background()

	start := mustDay(t, "2024-03-01")
	end := mustDay(t, "2024-03-03")
	if err := s.MarkRangeScraped(ctx, start, end, true); err != nil {
		t.Fatalf("MarkRangeScraped: %v", err)
	}

	_, missing, err := s.EntriesForRange(ctx, start, end)
	if err != nil {
		t.Fatalf("EntriesForRange: %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("marked range should have no missing days, got %v", missing)
	}
}

func TestMarkRangeScrapedExcludesToday(t *testing.T) {
	s := testutil.NewTestStoreAt(t, testNow)
	ctx := context.Background()

	today := model.DayOf(testNow)
	start := today.AddDays(-2)
	if err := s.MarkRangeScraped(ctx, start, today, true); err != nil {
		t.Fatalf("MarkRangeScraped: %v", err)
	}

	_, missing, err := s.EntriesForRange(ctx, start, today)
	if err != nil {
		t.Fatalf("EntriesForRange: %v", err)
	}
	if len(missing) != 1 || !missing[0].Equal(today) {
		t.Errorf("only today should stay missing, got %v", missing)
	}
}

func TestScrapedFlagNeverClears(t *testing.T) {
	s := testutil.NewTestStoreAt(t, testNow)
	ctx := context.Background()

	d := mustDay(t, "2024-03-01")
	if err := s.MarkRangeScraped(ctx, d, d, true); err != nil {
		t.Fatalf("MarkRangeScraped: %v", err)
	}

	// Pretend d is today again; the excluded-today write carries scraped=0
	// but must not lower the existing flag.
	s.SetClock(func() time.Time { return d.Time().Add(12 * time.Hour) })
	if err := s.MarkRangeScraped(ctx, d, d, true); err != nil {
		t.Fatalf("MarkRangeScraped: %v", err)
	}
	s.SetClock(func() time.Time { return testNow })

	_, missing, err := s.EntriesForRange(ctx, d, d)
	if err != nil {
		t.Fatalf("EntriesForRange: %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("scraped flag was cleared: missing %v", missing)
	}
}

func TestPersistEmptyRange(t *testing.T) {
	s := testutil.NewTestStoreAt(t, testNow)
	ctx := context.Background()

	start := mustDay(t, "2024-02-01")
	end := mustDay(t, "2024-02-05")
	if err := s.PersistEmptyRange(ctx, start, end, true); err != nil {
		t.Fatalf("PersistEmptyRange: %v", err)
	}

	releases, missing, err := s.EntriesForRange(ctx, start, end)
	if err != nil {
		t.Fatalf("EntriesForRange: %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("empty range should be fully resolved, got missing %v", missing)
	}
	if len(releases) != 0 {
		t.Errorf("empty range should have no releases, got %v", releases)
	}
}

func TestListReleasesOrdering(t *testing.T) {
	s := testutil.NewTestStoreAt(t, testNow)
	ctx := context.Background()

	releases := []model.Release{
		release(t, "2024-03-02", "https://b.bandcamp.com/album/later"),
		release(t, "2024-03-01", "https://z.bandcamp.com/album/second"),
		release(t, "2024-03-01", "https://a.bandcamp.com/album/first"),
	}
	if err := s.PersistReleases(ctx, releases, true); err != nil {
		t.Fatalf("PersistReleases: %v", err)
	}

	got, err := s.ListReleases(ctx, mustDay(t, "2024-03-01"), mustDay(t, "2024-03-02"))
	if err != nil {
		t.Fatalf("ListReleases: %v", err)
	}

	want := []string{
		"https://a.bandcamp.com/album/first",
		"https://z.bandcamp.com/album/second",
		"https://b.bandcamp.com/album/later",
	}
	if len(got) != len(want) {
		t.Fatalf("got %d releases, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].URL != want[i] {
			t.Errorf("got[%d] = %s, want %s", i, got[i].URL, want[i])
		}
	}
}

func TestReleaseRoundTripFields(t *testing.T) {
	s := testutil.NewTestStoreAt(t, testNow)
	ctx := context.Background()

	rel := model.Release{
		URL:          "https://a.bandcamp.com/track/one",
		Date:         mustDay(t, "2024-03-01"),
		ImageURL:     "https://f4.bcbits.com/img/a1.jpg",
		IsTrack:      true,
		ArtistName:   "Artist",
		ReleaseTitle: "Title",
		PageName:     "Page",
	}
	if err := s.PersistReleases(ctx, []model.Release{rel}, true); err != nil {
		t.Fatalf("PersistReleases: %v", err)
	}

	got, err := s.ListReleases(ctx, rel.Date, rel.Date)
	if err != nil {
		t.Fatalf("ListReleases: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d releases, want 1", len(got))
	}
	if got[0] != rel {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got[0], rel)
	}
}

func TestRunLifecycle(t *testing.T) {
	s := testutil.NewTestStoreAt(t, testNow)
	ctx := context.Background()

	window := model.DateRange{
		Start: mustDay(t, "2024-03-01"),
		End:   mustDay(t, "2024-03-05"),
	}

	id, err := s.BeginRun(ctx, window)
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if id == "" {
		t.Fatal("BeginRun returned empty id")
	}

	if err := s.FinishRun(ctx, id, nil); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	id2, err := s.BeginRun(ctx, window)
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if id2 == id {
		t.Error("run ids should be unique")
	}
	if err := s.FinishRun(ctx, id2, context.DeadlineExceeded); err != nil {
		t.Fatalf("FinishRun with error: %v", err)
	}
}
