package sync

import (
	"testing"

	"bcfeed/internal/model"
)

func TestDedupeByURLKeepsFirst(t *testing.T) {
	releases := []model.Release{
		{URL: "https://a.bandcamp.com/album/one", ArtistName: "First"},
		{URL: "https://a.bandcamp.com/album/two"},
		{URL: "https://a.bandcamp.com/album/one", ArtistName: "Second"},
	}

	got := DedupeByURL(releases)
	if len(got) != 2 {
		t.Fatalf("got %d releases, want 2", len(got))
	}
	if got[0].ArtistName != "First" {
		t.Errorf("first occurrence should win, got artist %q", got[0].ArtistName)
	}
	if got[1].URL != "https://a.bandcamp.com/album/two" {
		t.Errorf("order not preserved: %v", got)
	}
}

func TestDedupeByURLKeepsEmptyURLs(t *testing.T) {
	releases := []model.Release{
		{PageName: "one"},
		{PageName: "two"},
	}

	got := DedupeByURL(releases)
	if len(got) != 2 {
		t.Fatalf("releases without a URL must not collapse; got %d", len(got))
	}
}

func TestDedupeByDateKeepsLast(t *testing.T) {
	d := day(t, "2024-03-01")
	cached := model.Release{
		URL: "https://a.bandcamp.com/album/one", Date: d, ArtistName: "",
	}
	fresh := model.Release{
		URL: "https://a.bandcamp.com/album/one", Date: d, ArtistName: "Corrected Artist",
	}
	other := model.Release{URL: "https://b.bandcamp.com/album/two", Date: d}

	got := DedupeByDate([]model.Release{cached, other, fresh})
	if len(got) != 2 {
		t.Fatalf("got %d releases, want 2", len(got))
	}
	if got[0].ArtistName != "Corrected Artist" {
		t.Errorf("later record should supersede, got artist %q", got[0].ArtistName)
	}
	if got[1].URL != other.URL {
		t.Errorf("output order should follow first appearance: %v", got)
	}
}

func TestDedupeByDateSameURLDifferentDates(t *testing.T) {
	releases := []model.Release{
		{URL: "https://a.bandcamp.com/album/one", Date: day(t, "2024-03-01")},
		{URL: "https://a.bandcamp.com/album/one", Date: day(t, "2024-03-02")},
	}

	got := DedupeByDate(releases)
	if len(got) != 2 {
		t.Fatalf("distinct dates are distinct identities; got %d", len(got))
	}
}

func TestDedupeByDateEmpty(t *testing.T) {
	if got := DedupeByDate(nil); len(got) != 0 {
		t.Errorf("DedupeByDate(nil) = %v, want empty", got)
	}
}
