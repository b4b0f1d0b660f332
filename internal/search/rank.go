// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"sort"
	"strings"
	"unicode"

	"github.com/pdiddy/bioscout/pkg/types"
)

// dedup removes duplicate articles in two passes: first by the exact
// (source, external ID) natural key, then across sources by a
// normalized title + publication date fingerprint (R3.1, R3.2). When
// two sources index the same article the instance with the higher
// match count is kept; ties go to the stronger source priority. The
// result is independent of input order.
func dedup(articles []types.Article) []types.Article {
	// Sort a copy so first-seen always means "preferred": higher match
	// count first, then source priority, then external ID.
	sorted := make([]types.Article, len(articles))
	copy(sorted, articles)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.MatchCount != b.MatchCount {
			return a.MatchCount > b.MatchCount
		}
		if a.Source.Priority() != b.Source.Priority() {
			return a.Source.Priority() < b.Source.Priority()
		}
		return a.ExternalID < b.ExternalID
	})

	byKey := make(map[string]int)         // source+id → index in deduped
	byFingerprint := make(map[string]int) // title+date → index in deduped
	var deduped []types.Article

	for _, art := range sorted {
		key := string(art.Source) + "\x00" + art.ExternalID
		if _, ok := byKey[key]; ok {
			continue
		}

		fp := fingerprint(art)
		if idx, ok := byFingerprint[fp]; ok {
			// Cross-source duplicate. The kept instance already has the
			// higher match count; fill in a longer abstract if the
			// duplicate carries one.
			if len(art.Abstract) > len(deduped[idx].Abstract) {
				deduped[idx].Abstract = art.Abstract
			}
			continue
		}

		idx := len(deduped)
		deduped = append(deduped, art)
		byKey[key] = idx
		byFingerprint[fp] = idx
	}
	return deduped
}

// fingerprint returns the cross-source duplicate key: the normalized
// title plus the publication date.
func fingerprint(art types.Article) string {
	return normalizeTitle(art.Title) + "|" + art.Date.Format(dateFmt)
}

// normalizeTitle returns a lowercased, punctuation-stripped,
// whitespace-collapsed version of the title (R3.1).
func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// rank orders articles by match count descending, publication date
// descending, source priority, then external ID ascending (R4.2). The
// key is total, so identical inputs always produce identical output
// regardless of arrival order.
func rank(articles []types.Article) []types.Article {
	sort.Slice(articles, func(i, j int) bool {
		a, b := articles[i], articles[j]
		if a.MatchCount != b.MatchCount {
			return a.MatchCount > b.MatchCount
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if a.Source.Priority() != b.Source.Priority() {
			return a.Source.Priority() < b.Source.Priority()
		}
		return a.ExternalID < b.ExternalID
	})
	return articles
}
