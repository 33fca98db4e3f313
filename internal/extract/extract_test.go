package extract

import "testing"

const albumEmail = `
<html><body>
<p>Greetings listener,</p>
<p>
  Ghost Label Records just released
  <span style="font-style: italic;">Midnight Transmissions</span>
  by Night Courier, check it out here:
</p>
<p>
  <a href="https://ghostlabel.bandcamp.com/album/midnight-transmissions?from=email&amp;id=123">
    <img src="https://f4.bcbits.com/img/a0001.jpg"/>
  </a>
</p>
</body></html>`

const trackEmail = `
<html><body>
<p>Night Courier just released <i>Signal Fade</i>, check it out here:</p>
<a href="https://nightcourier.bandcamp.com/track/signal-fade#listen">listen</a>
</body></html>`

func TestParseReleaseEmailAlbum(t *testing.T) {
	rel, err := ParseReleaseEmail(albumEmail, "New release from Ghost Label Records")
	if err != nil {
		t.Fatalf("ParseReleaseEmail: %v", err)
	}

	if rel.URL != "https://ghostlabel.bandcamp.com/album/midnight-transmissions" {
		t.Errorf("URL = %q, query string should be stripped", rel.URL)
	}
	if rel.IsTrack {
		t.Error("album URL should not be marked as a track")
	}
	if rel.PageName != "Ghost Label Records" {
		t.Errorf("PageName = %q, want %q", rel.PageName, "Ghost Label Records")
	}
	if rel.ReleaseTitle != "Midnight Transmissions" {
		t.Errorf("ReleaseTitle = %q, want %q", rel.ReleaseTitle, "Midnight Transmissions")
	}
	if rel.ArtistName != "Night Courier" {
		t.Errorf("ArtistName = %q, want %q", rel.ArtistName, "Night Courier")
	}
}

func TestParseReleaseEmailTrack(t *testing.T) {
	rel, err := ParseReleaseEmail(trackEmail, "New release from Night Courier")
	if err != nil {
		t.Fatalf("ParseReleaseEmail: %v", err)
	}

	if rel.URL != "https://nightcourier.bandcamp.com/track/signal-fade" {
		t.Errorf("URL = %q, fragment should be stripped", rel.URL)
	}
	if !rel.IsTrack {
		t.Error("track URL should be marked as a track")
	}
	if rel.PageName != "Night Courier" {
		t.Errorf("PageName = %q, want %q", rel.PageName, "Night Courier")
	}
	if rel.ReleaseTitle != "Signal Fade" {
		t.Errorf("ReleaseTitle = %q, want %q", rel.ReleaseTitle, "Signal Fade")
	}
	// No "by <artist>" clause in this variant.
	if rel.ArtistName != "" {
		t.Errorf("ArtistName = %q, want empty", rel.ArtistName)
	}
}

func TestParseReleaseEmailJustAnnounced(t *testing.T) {
	html := `
	<html><body>
	<p>Ghost Label Records just announced <em>Forthcoming EP</em>, check it out here:</p>
	<a href="https://ghostlabel.bandcamp.com/album/forthcoming-ep">here</a>
	</body></html>`

	rel, err := ParseReleaseEmail(html, "New release from Ghost Label Records")
	if err != nil {
		t.Fatalf("ParseReleaseEmail: %v", err)
	}
	if rel.PageName != "Ghost Label Records" {
		t.Errorf("PageName = %q, want %q", rel.PageName, "Ghost Label Records")
	}
	if rel.ReleaseTitle != "Forthcoming EP" {
		t.Errorf("ReleaseTitle = %q, want %q", rel.ReleaseTitle, "Forthcoming EP")
	}
}

func TestParseReleaseEmailCustomDomain(t *testing.T) {
	html := `
	<html><body>
	<p>Some Artist just released <i>Self Hosted</i>, check it out here:</p>
	<a href="https://music.someartist.net/album/self-hosted">link</a>
	</body></html>`

	rel, err := ParseReleaseEmail(html, "New release from Some Artist")
	if err != nil {
		t.Fatalf("ParseReleaseEmail: %v", err)
	}
	if rel.URL != "https://music.someartist.net/album/self-hosted" {
		t.Errorf("custom artist domains should be accepted, got URL %q", rel.URL)
	}
}

func TestParseReleaseEmailSubjectGate(t *testing.T) {
	rel, err := ParseReleaseEmail(albumEmail, "Your Bandcamp receipt")
	if err != nil {
		t.Fatalf("ParseReleaseEmail: %v", err)
	}
	if !rel.IsZero() {
		t.Errorf("non-release subject should yield a zero release, got %+v", rel)
	}
}

func TestParseReleaseEmailSubjectCaseInsensitive(t *testing.T) {
	rel, err := ParseReleaseEmail(albumEmail, "NEW RELEASE FROM Ghost Label Records")
	if err != nil {
		t.Fatalf("ParseReleaseEmail: %v", err)
	}
	if rel.IsZero() {
		t.Error("subject check should be case insensitive")
	}
}

func TestParseReleaseEmailEmptyBody(t *testing.T) {
	for _, body := range []string{"", "none", "None"} {
		rel, err := ParseReleaseEmail(body, "New release from Someone")
		if err != nil {
			t.Fatalf("ParseReleaseEmail(%q): %v", body, err)
		}
		if !rel.IsZero() {
			t.Errorf("body %q should yield a zero release", body)
		}
	}
}

func TestParseReleaseEmailNoReleaseLink(t *testing.T) {
	html := `
	<html><body>
	<p>Thanks for your purchase!</p>
	<a href="https://bandcamp.com/settings">manage your account</a>
	</body></html>`

	rel, err := ParseReleaseEmail(html, "")
	if err != nil {
		t.Fatalf("ParseReleaseEmail: %v", err)
	}
	if !rel.IsZero() {
		t.Errorf("message without a release link should yield a zero release, got %+v", rel)
	}
}

func TestParseReleaseEmailTitleFallsBackToFirstItalic(t *testing.T) {
	// The release phrase is absent, so the title cannot be located in the
	// sentence; the first italic run still stands in for it.
	html := `
	<html><body>
	<p>Check out <i>Stray Static</i>!</p>
	<a href="https://a.bandcamp.com/album/stray-static">here</a>
	</body></html>`

	rel, err := ParseReleaseEmail(html, "New release from A")
	if err != nil {
		t.Fatalf("ParseReleaseEmail: %v", err)
	}
	if rel.ReleaseTitle != "Stray Static" {
		t.Errorf("ReleaseTitle = %q, want %q", rel.ReleaseTitle, "Stray Static")
	}
	if rel.PageName != "" {
		t.Errorf("PageName = %q, want empty without the release phrase", rel.PageName)
	}
}

func TestParseReleaseEmailStripsGreeting(t *testing.T) {
	rel, err := ParseReleaseEmail(albumEmail, "New release from Ghost Label Records")
	if err != nil {
		t.Fatalf("ParseReleaseEmail: %v", err)
	}
	if rel.PageName == "listener" || rel.PageName == "Greetings listener" {
		t.Errorf("greeting leaked into PageName: %q", rel.PageName)
	}
}
