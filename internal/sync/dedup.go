package sync

import "bcfeed/internal/model"

// DedupeByURL collapses releases sharing a canonical URL, keeping the
// first-seen representative. A release email is not expected to repeat
// within one query window, so this mainly absorbs parser noise inside a
// single fetch batch.
func DedupeByURL(releases []model.Release) []model.Release {
	seen := make(map[string]bool, len(releases))
	out := make([]model.Release, 0, len(releases))
	for _, r := range releases {
		if r.URL != "" && seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		out = append(out, r)
	}
	return out
}

// DedupeByDate collapses releases sharing a (date, canonical URL) identity,
// keeping the last-appended record. Callers append freshly fetched releases
// after cached ones, so a new fetch supersedes a stale cached record whose
// metadata Bandcamp has since corrected. Output order follows first
// appearance of each identity.
func DedupeByDate(releases []model.Release) []model.Release {
	type key struct {
		date string
		url  string
	}

	index := make(map[key]int, len(releases))
	out := make([]model.Release, 0, len(releases))
	for _, r := range releases {
		k := key{date: r.Date.String(), url: r.URL}
		if i, ok := index[k]; ok {
			out[i] = r
			continue
		}
		index[k] = len(out)
		out = append(out, r)
	}
	return out
}
