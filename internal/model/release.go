package model

import "net/url"

// Release is a single announced Bandcamp release. Its identity is the
// canonical release page URL; all other fields are best-effort metadata
// scraped from the announcement email. Date is zero when the message date
// could not be recovered.
type Release struct {
	// URL is the canonical release page URL with query string and
	// fragment stripped.
	URL string

	// Date is the calendar date the announcement arrived.
	Date Day

	ImageURL     string
	IsTrack      bool
	ArtistName   string
	ReleaseTitle string
	PageName     string
}

// IsZero reports whether every field of the release is empty. A release
// with no information at all is invalid and must never be persisted.
func (r Release) IsZero() bool {
	return r.URL == "" &&
		r.Date.IsZero() &&
		r.ImageURL == "" &&
		!r.IsTrack &&
		r.ArtistName == "" &&
		r.ReleaseTitle == "" &&
		r.PageName == ""
}

// CanonicalURL strips the query string and fragment from a release URL,
// producing the release's identity form. Unparsable input is returned
// unchanged.
func CanonicalURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}
