package metasearch

import (
	"strings"

	"github.com/glimpse-search/glimpse/pkg/types"
)

// postFilter applies per-category constraints to merged hits. Filters
// drop hits that cannot render in the category's result template.
func postFilter(q types.Query, hits []types.Hit) []types.Hit {
	switch q.Category {
	case types.CategoryImages:
		return filterHits(hits, func(h types.Hit) bool {
			return h.Media.ThumbnailURL != ""
		})
	case types.CategoryVideos:
		return filterHits(hits, func(h types.Hit) bool {
			// A video hit without any media signal is usually a scraped
			// navigation link.
			return h.Media.Duration != "" || h.Media.ThumbnailURL != "" || h.Media.EmbedURL != ""
		})
	case types.CategoryFiles:
		if q.FileType == "" {
			return hits
		}
		ext := "." + strings.ToLower(q.FileType)
		return filterHits(hits, func(h types.Hit) bool {
			return strings.HasSuffix(strings.ToLower(h.URL), ext)
		})
	default:
		return hits
	}
}

func filterHits(hits []types.Hit, keep func(types.Hit) bool) []types.Hit {
	out := hits[:0]
	for _, h := range hits {
		if keep(h) {
			out = append(out, h)
		}
	}
	return out
}
