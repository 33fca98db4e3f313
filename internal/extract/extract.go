// Package extract turns a Bandcamp release-announcement email into a
// candidate release record using site-specific text heuristics.
package extract

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"bcfeed/internal/model"
)

// subjectPrefix gates which messages are treated as release announcements.
const subjectPrefix = "new release from"

var (
	releasePhrasePattern = regexp.MustCompile(`(?i)just\s+(?:released|announced)`)
	callToActionPattern  = regexp.MustCompile(`(?i),\s*check it out here`)
)

// ParseReleaseEmail extracts release metadata from an announcement email's
// HTML body and subject. It returns a zero Release when the message is not a
// release announcement; the caller must discard that result. The returned
// release carries no date; the message date is attached upstream.
func ParseReleaseEmail(html, subject string) (model.Release, error) {
	if html == "" || strings.EqualFold(html, "none") {
		return model.Release{}, nil
	}

	// Only accept messages whose subject carries the release prefix.
	if subject != "" && !strings.HasPrefix(strings.ToLower(subject), subjectPrefix) {
		return model.Release{}, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return model.Release{}, fmt.Errorf("parsing email html: %w", err)
	}

	releaseURL := findReleaseURL(doc)
	if releaseURL == "" {
		return model.Release{}, nil
	}

	rel := model.Release{
		URL:     releaseURL,
		IsTrack: strings.Contains(strings.ToLower(urlPath(releaseURL)), "/track/"),
	}

	// The body text follows one of:
	//   "<page_name> just released <release_title>, check it out here"
	//   "<page_name> just released <release_title> by <artist_name>, check it out here"
	// with "just announced" as an alternative phrase.
	fullText := normalizeText(doc.Selection)
	fullText = stripGreeting(fullText)
	fullText = callToActionPattern.Split(fullText, 2)[0]
	fullText = strings.TrimSpace(fullText)

	var after string
	if loc := releasePhrasePattern.FindStringIndex(fullText); loc != nil {
		before := strings.TrimSpace(fullText[:loc[0]])
		after = strings.TrimSpace(fullText[loc[1]:])
		if before != "" {
			rel.PageName = before
		}
	}

	italics := italicTexts(doc)
	if len(italics) > 0 {
		if after != "" {
			for _, text := range italics {
				if strings.Contains(after, text) {
					rel.ReleaseTitle = text
					break
				}
			}
		}
		if rel.ReleaseTitle == "" {
			rel.ReleaseTitle = italics[0]
		}
	}

	if after != "" && rel.ReleaseTitle != "" {
		byPattern := regexp.MustCompile(
			`(?i)` + regexp.QuoteMeta(rel.ReleaseTitle) + `\s+by\s+(.+)$`,
		)
		if m := byPattern.FindStringSubmatch(after); m != nil {
			rel.ArtistName = strings.TrimSpace(m[1])
		}
	}

	return rel, nil
}

// findReleaseURL returns the canonical form of the first anchor whose path
// looks like a release page. Custom artist domains are accepted as long as
// the path contains /album/ or /track/.
func findReleaseURL(doc *goquery.Document) string {
	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		path := strings.ToLower(urlPath(href))
		if strings.Contains(path, "/album/") || strings.Contains(path, "/track/") {
			found = model.CanonicalURL(href)
			return false
		}
		return true
	})
	return found
}

// urlPath returns the path component of a raw URL, or "" when unparsable.
func urlPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Path
}

// stripGreeting drops the leading "Greetings <username>," sentence.
func stripGreeting(text string) string {
	if !strings.HasPrefix(strings.ToLower(text), "greetings ") {
		return text
	}
	if _, rest, ok := strings.Cut(text, ","); ok {
		return strings.TrimSpace(rest)
	}
	return text
}

// italicTexts collects the normalized text of italic runs, which Bandcamp
// uses to mark the release title.
func italicTexts(doc *goquery.Document) []string {
	var texts []string
	doc.Find("span, i, em").Each(func(_ int, sel *goquery.Selection) {
		tag := goquery.NodeName(sel)
		style, _ := sel.Attr("style")
		if tag != "i" && tag != "em" && !strings.Contains(strings.ToLower(style), "italic") {
			return
		}
		if text := normalizeText(sel); text != "" {
			texts = append(texts, text)
		}
	})
	return texts
}

// normalizeText flattens a selection's text with single-space separators.
func normalizeText(sel *goquery.Selection) string {
	return strings.Join(strings.Fields(sel.Text()), " ")
}
