// Package types defines the shared data model for queries, hits, and
// merged result pages.
package types

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// Category is a search vertical.
type Category string

const (
	CategoryGeneral Category = "general"
	CategoryImages  Category = "images"
	CategoryVideos  Category = "videos"
	CategoryNews    Category = "news"
	CategoryMaps    Category = "maps"
	CategoryMusic   Category = "music"
	CategoryFiles   Category = "files"
	CategoryScience Category = "science"
	CategoryIT      Category = "it"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryGeneral, CategoryImages, CategoryVideos, CategoryNews,
		CategoryMaps, CategoryMusic, CategoryFiles, CategoryScience, CategoryIT:
		return true
	}
	return false
}

// SafeSearch is the safe-search filtering level.
type SafeSearch int

const (
	SafeSearchOff SafeSearch = iota
	SafeSearchModerate
	SafeSearchStrict
)

// ParseSafeSearch maps the wire value ("off", "moderate", "strict", or
// "0"/"1"/"2") onto a level. Unknown values default to moderate.
func ParseSafeSearch(s string) SafeSearch {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "0", "none":
		return SafeSearchOff
	case "strict", "2":
		return SafeSearchStrict
	default:
		return SafeSearchModerate
	}
}

// TimeRange restricts results by age.
type TimeRange string

const (
	TimeRangeAny   TimeRange = ""
	TimeRangeDay   TimeRange = "day"
	TimeRangeWeek  TimeRange = "week"
	TimeRangeMonth TimeRange = "month"
	TimeRangeYear  TimeRange = "year"
)

// ParseTimeRange maps a wire value onto a TimeRange; unknown values mean any.
func ParseTimeRange(s string) TimeRange {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "day", "d":
		return TimeRangeDay
	case "week", "w":
		return TimeRangeWeek
	case "month", "m":
		return TimeRangeMonth
	case "year", "y":
		return TimeRangeYear
	}
	return TimeRangeAny
}

// Query limits enforced at construction time.
const (
	MaxQueryLength = 500
	MaxPerPage     = 50
	DefaultPerPage = 10
)

// Query is an immutable, fully-specified search request.
type Query struct {
	Text        string            `json:"text"`
	Category    Category          `json:"category"`
	Page        int               `json:"page"`
	PerPage     int               `json:"per_page"`
	Locale      string            `json:"locale,omitempty"`
	SafeSearch  SafeSearch        `json:"safe_search"`
	TimeRange   TimeRange         `json:"time_range,omitempty"`
	Filters     map[string]string `json:"filters,omitempty"`
	Verbatim    bool              `json:"verbatim,omitempty"`
	SiteInclude string            `json:"site,omitempty"`
	SiteExclude string            `json:"exclude_site,omitempty"`
	FileType    string            `json:"filetype,omitempty"`
}

// QueryOptions carries the optional knobs accepted by NewQuery.
type QueryOptions struct {
	Category    Category
	Page        int
	PerPage     int
	Locale      string
	SafeSearch  SafeSearch
	TimeRange   TimeRange
	Filters     map[string]string
	Verbatim    bool
	SiteInclude string
	SiteExclude string
	FileType    string
}

// NewQuery validates and normalizes the inputs into an immutable Query.
// Empty text is a validation error, page defaults to 1, per-page is
// clamped to [1, MaxPerPage], and the locale must be a parseable BCP-47
// tag (or empty).
func NewQuery(text string, opts QueryOptions) (Query, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Query{}, NewError(KindValidation, "query text must not be empty")
	}
	if len(text) > MaxQueryLength {
		return Query{}, NewError(KindValidation, fmt.Sprintf("query text exceeds %d characters", MaxQueryLength))
	}

	q := Query{
		Text:        text,
		Category:    opts.Category,
		Page:        opts.Page,
		PerPage:     opts.PerPage,
		SafeSearch:  opts.SafeSearch,
		TimeRange:   opts.TimeRange,
		Verbatim:    opts.Verbatim,
		SiteInclude: opts.SiteInclude,
		SiteExclude: opts.SiteExclude,
		FileType:    opts.FileType,
	}
	if q.Category == "" {
		q.Category = CategoryGeneral
	}
	if !q.Category.Valid() {
		return Query{}, NewError(KindValidation, fmt.Sprintf("unknown category %q", opts.Category))
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = DefaultPerPage
	}
	if q.PerPage > MaxPerPage {
		q.PerPage = MaxPerPage
	}
	if opts.Locale != "" {
		tag, err := language.Parse(opts.Locale)
		if err != nil {
			return Query{}, NewError(KindValidation, fmt.Sprintf("invalid locale %q", opts.Locale))
		}
		q.Locale = tag.String()
	}
	if len(opts.Filters) > 0 {
		q.Filters = make(map[string]string, len(opts.Filters))
		for k, v := range opts.Filters {
			q.Filters[k] = v
		}
	}
	return q, nil
}

// Media carries the optional media attributes of a hit.
type Media struct {
	ThumbnailURL    string `json:"thumbnail_url,omitempty"`
	Duration        string `json:"duration,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	EmbedURL        string `json:"embed_url,omitempty"`
	Views           int64  `json:"views,omitempty"`
	Channel         string `json:"channel,omitempty"`
	PublishedAt     string `json:"published_at,omitempty"`
	Width           int    `json:"width,omitempty"`
	Height          int    `json:"height,omitempty"`
}

// Hit is a single search result record.
type Hit struct {
	URL      string   `json:"url"`
	Title    string   `json:"title"`
	Snippet  string   `json:"snippet,omitempty"`
	Engine   string   `json:"engine"`
	Engines  []string `json:"engines,omitempty"`
	Score    float64  `json:"score"`
	Category Category `json:"category,omitempty"`
	Media    Media    `json:"media,omitzero"`
}

// EngineDiag records per-engine timing and failure for one request.
type EngineDiag struct {
	Engine    string `json:"engine"`
	ElapsedMs int64  `json:"elapsed_ms"`
	Error     string `json:"error,omitempty"`
	Hits      int    `json:"hits"`
}

// PageInfo describes the returned slice of the merged result list.
type PageInfo struct {
	Page    int  `json:"page"`
	PerPage int  `json:"per_page"`
	HasMore bool `json:"has_more"`
}

// Widget is a detector-produced enrichment block.
type Widget struct {
	Type     string `json:"type"`
	Position int    `json:"position"`
	Data     any    `json:"data"`
}

// InstantAnswer is a computed answer shown above the results.
type InstantAnswer struct {
	Type   string `json:"type"`
	Query  string `json:"query"`
	Result string `json:"result"`
	Data   any    `json:"data,omitempty"`
}

// KnowledgePanel is an entity record attached to a result page.
type KnowledgePanel struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	ImageURL    string            `json:"image_url,omitempty"`
	Facts       map[string]string `json:"facts,omitempty"`
	Source      string            `json:"source,omitempty"`
}

// MergedResult is the deduped, ranked, paginated output for one query.
type MergedResult struct {
	Query           Query           `json:"query"`
	Results         []Hit           `json:"results"`
	TotalResults    int             `json:"total_results"`
	Engines         []string        `json:"engines"`
	EnginesFailed   int             `json:"engines_failed,omitempty"`
	Diagnostics     []EngineDiag    `json:"diagnostics,omitempty"`
	InstantAnswer   *InstantAnswer  `json:"instant_answer,omitempty"`
	KnowledgePanel  *KnowledgePanel `json:"knowledge_panel,omitempty"`
	Widgets         []Widget        `json:"widgets,omitempty"`
	RelatedSearches []string        `json:"related_searches,omitempty"`
	PageInfo        PageInfo        `json:"page_info"`
	ElapsedMs       int64           `json:"elapsed_ms"`
	CachedAt        time.Time       `json:"cached_at,omitzero"`
}

// Redirect is returned instead of a result page when a bang resolves to
// an external target.
type Redirect struct {
	URL     string `json:"redirect_url"`
	Trigger string `json:"trigger"`
	Name    string `json:"name,omitempty"`
}
