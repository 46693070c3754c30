package bangs

import (
	"sort"

	"github.com/glimpse-search/glimpse/pkg/types"
)

// builtinBangs is the compiled-in table. External triggers redirect,
// internal ones switch the category.
var builtinBangs = []Entry{
	{Trigger: "g", Name: "Google", URLTemplate: "https://www.google.com/search?q={query}", External: true},
	{Trigger: "b", Name: "Bing", URLTemplate: "https://www.bing.com/search?q={query}", External: true},
	{Trigger: "ddg", Name: "DuckDuckGo", URLTemplate: "https://duckduckgo.com/?q={query}", External: true},
	{Trigger: "w", Name: "Wikipedia", URLTemplate: "https://en.wikipedia.org/wiki/Special:Search?search={query}", External: true},
	{Trigger: "yt", Name: "YouTube", URLTemplate: "https://www.youtube.com/results?search_query={query}", External: true},
	{Trigger: "gh", Name: "GitHub", URLTemplate: "https://github.com/search?q={query}", External: true},
	{Trigger: "so", Name: "Stack Overflow", URLTemplate: "https://stackoverflow.com/search?q={query}", External: true},
	{Trigger: "mdn", Name: "MDN Web Docs", URLTemplate: "https://developer.mozilla.org/en-US/search?q={query}", External: true},
	{Trigger: "gopkg", Name: "Go Packages", URLTemplate: "https://pkg.go.dev/search?q={query}", External: true},
	{Trigger: "osm", Name: "OpenStreetMap", URLTemplate: "https://www.openstreetmap.org/search?query={query}", External: true},
	{Trigger: "wa", Name: "Wolfram Alpha", URLTemplate: "https://www.wolframalpha.com/input?i={query}", External: true},
	{Trigger: "arxiv", Name: "arXiv", URLTemplate: "https://arxiv.org/abs/{query}", External: true},

	{Trigger: "i", Name: "Images", Category: types.CategoryImages},
	{Trigger: "images", Name: "Images", Category: types.CategoryImages},
	{Trigger: "v", Name: "Videos", Category: types.CategoryVideos},
	{Trigger: "videos", Name: "Videos", Category: types.CategoryVideos},
	{Trigger: "n", Name: "News", Category: types.CategoryNews},
	{Trigger: "news", Name: "News", Category: types.CategoryNews},
	{Trigger: "maps", Name: "Maps", Category: types.CategoryMaps},
	{Trigger: "music", Name: "Music", Category: types.CategoryMusic},
	{Trigger: "files", Name: "Files", Category: types.CategoryFiles},
	{Trigger: "sci", Name: "Science", Category: types.CategoryScience},
	{Trigger: "it", Name: "IT", Category: types.CategoryIT},
}

func builtinByTrigger(trigger string) (Entry, bool) {
	for _, e := range builtinBangs {
		if e.Trigger == trigger {
			return e, true
		}
	}
	return Entry{}, false
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Trigger < entries[j].Trigger
	})
}
