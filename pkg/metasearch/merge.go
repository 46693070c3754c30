package metasearch

import (
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/glimpse-search/glimpse/pkg/types"
)

// snippetPolicy strips every tag from scraped snippets before they
// reach a response.
var snippetPolicy = bluemonday.StrictPolicy()

// engineResult pairs an engine's descriptor weight with its hits in
// original rank order.
type engineResult struct {
	engine string
	weight float64
	hits   []types.Hit
}

// mergedHit accumulates cross-engine state for one canonical URL.
type mergedHit struct {
	hit        types.Hit
	canonical  string
	score      float64
	bestWeight float64
	bestRank   int
}

// mergeResults dedups hits by canonical URL and ranks them.
//
// Each occurrence contributes weight × 1/(rank+1) to the score, rank
// being the hit's 0-based position in its engine's list. Title, snippet
// and media fields come from the highest-weight engine that supplied
// them; missing media fields are filled from lower-weight engines.
// The final order is score descending with ties broken by contributing
// engine weight, then original rank, then canonical URL.
func mergeResults(results []engineResult) []types.Hit {
	byURL := make(map[string]*mergedHit)
	var order []string

	for _, er := range results {
		for rank, hit := range er.hits {
			canon := CanonicalURL(hit.URL)
			if canon == "" {
				continue
			}
			contribution := er.weight * (1.0 / float64(rank+1))

			m, ok := byURL[canon]
			if !ok {
				hit.Snippet = sanitizeSnippet(hit.Snippet)
				hit.Engines = []string{er.engine}
				byURL[canon] = &mergedHit{
					hit:        hit,
					canonical:  canon,
					score:      contribution,
					bestWeight: er.weight,
					bestRank:   rank,
				}
				order = append(order, canon)
				continue
			}

			m.score += contribution
			m.hit.Engines = appendUnique(m.hit.Engines, er.engine)
			preferSrc := er.weight > m.bestWeight
			mergeMedia(&m.hit.Media, hit.Media, preferSrc)
			if preferSrc {
				if hit.Title != "" {
					m.hit.Title = hit.Title
				}
				if s := sanitizeSnippet(hit.Snippet); s != "" {
					m.hit.Snippet = s
				}
				m.hit.Engine = hit.Engine
				m.bestWeight = er.weight
				if rank < m.bestRank {
					m.bestRank = rank
				}
			}
		}
	}

	merged := make([]*mergedHit, 0, len(order))
	for _, canon := range order {
		m := byURL[canon]
		m.hit.Score = m.score
		m.hit.URL = m.canonical
		merged = append(merged, m)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.bestWeight != b.bestWeight {
			return a.bestWeight > b.bestWeight
		}
		if a.bestRank != b.bestRank {
			return a.bestRank < b.bestRank
		}
		return a.canonical < b.canonical
	})

	out := make([]types.Hit, len(merged))
	for i, m := range merged {
		out[i] = m.hit
	}
	return out
}

// mergeMedia fills dst from src field-wise. When preferSrc is set,
// src's non-empty fields win; otherwise src only fills gaps.
func mergeMedia(dst *types.Media, src types.Media, preferSrc bool) {
	pick := func(d *string, s string) {
		if s != "" && (preferSrc || *d == "") {
			*d = s
		}
	}
	pick(&dst.ThumbnailURL, src.ThumbnailURL)
	pick(&dst.Duration, src.Duration)
	pick(&dst.EmbedURL, src.EmbedURL)
	pick(&dst.Channel, src.Channel)
	pick(&dst.PublishedAt, src.PublishedAt)
	if src.DurationSeconds > 0 && (preferSrc || dst.DurationSeconds == 0) {
		dst.DurationSeconds = src.DurationSeconds
	}
	if src.Views > 0 && (preferSrc || dst.Views == 0) {
		dst.Views = src.Views
	}
	if src.Width > 0 && (preferSrc || dst.Width == 0) {
		dst.Width = src.Width
		dst.Height = src.Height
	}
}

func sanitizeSnippet(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(snippetPolicy.Sanitize(s))
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

// mergeSuggestions dedups suggestion strings case-insensitively,
// preserving first-seen order and dropping the query itself.
func mergeSuggestions(query string, lists ...[]string) []string {
	seen := map[string]bool{strings.ToLower(strings.TrimSpace(query)): true}
	var out []string
	for _, list := range lists {
		for _, s := range list {
			key := strings.ToLower(strings.TrimSpace(s))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}
