package engines

import (
	"fmt"
	"net/url"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/glimpse-search/glimpse/pkg/types"
)

// Dailymotion queries the public Data API, which needs no key for
// video search.
type Dailymotion struct {
	Base
	durationMap map[string][2]string
}

// NewDailymotion creates the Dailymotion engine.
func NewDailymotion() *Dailymotion {
	return &Dailymotion{
		Base: NewBase(Descriptor{
			Name:           "dailymotion",
			Shortcut:       "dm",
			Categories:     []types.Category{types.CategoryVideos},
			SupportsPaging: true,
			MaxPage:        100,
			Timeout:        6 * time.Second,
			Weight:         0.6,
			Enabled:        true,
		}),
		// [min, max] duration bounds in seconds per filter value.
		durationMap: map[string][2]string{
			"short":  {"", "240"},
			"medium": {"240", "1200"},
			"long":   {"1200", ""},
		},
	}
}

// BuildRequest encodes the query against /videos with explicit fields.
func (e *Dailymotion) BuildRequest(q types.Query) (*RequestConfig, error) {
	v := url.Values{}
	v.Set("search", q.Text)
	v.Set("fields", "title,description,url,thumbnail_360_url,duration,views_total,owner.screenname,created_time")
	v.Set("page", fmt.Sprintf("%d", q.Page))
	v.Set("limit", "20")
	if q.SafeSearch != types.SafeSearchOff {
		v.Set("is_created_for_kids", "")
		v.Set("family_filter", "true")
	}
	if lang := shortLang(q.Locale); lang != "" {
		v.Set("languages", lang)
	}
	if bounds, ok := e.durationMap[q.Filters["duration"]]; ok {
		if bounds[0] != "" {
			v.Set("longer_than", bounds[0])
		}
		if bounds[1] != "" {
			v.Set("shorter_than", bounds[1])
		}
	}

	rc := NewRequestConfig("https://api.dailymotion.com/videos?" + v.Encode())
	rc.Headers.Set("Accept", "application/json")
	rc.Headers.Set("User-Agent", randomUserAgent())
	return rc, nil
}

type dailymotionVideo struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Thumbnail   string `json:"thumbnail_360_url"`
	Duration    int    `json:"duration"`
	Views       int64  `json:"views_total"`
	Owner       string `json:"owner.screenname"`
	CreatedTime int64  `json:"created_time"`
}

type dailymotionResponse struct {
	List    []dailymotionVideo `json:"list"`
	HasMore bool               `json:"has_more"`
}

// ParseResponse maps video list entries onto hits.
func (e *Dailymotion) ParseResponse(body []byte, q types.Query) (*Result, error) {
	var data dailymotionResponse
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(body, &data); err != nil {
		return &Result{}, nil
	}

	res := &Result{}
	for _, item := range data.List {
		if item.URL == "" || item.Title == "" {
			continue
		}
		dur, secs := NormalizeDuration(fmt.Sprintf("%d", item.Duration))
		var published string
		if item.CreatedTime > 0 {
			published = time.Unix(item.CreatedTime, 0).UTC().Format(time.RFC3339)
		}
		res.Hits = append(res.Hits, types.Hit{
			URL:      item.URL,
			Title:    item.Title,
			Snippet:  cleanText(item.Description),
			Engine:   "dailymotion",
			Category: types.CategoryVideos,
			Media: types.Media{
				ThumbnailURL:    item.Thumbnail,
				Duration:        dur,
				DurationSeconds: secs,
				Views:           item.Views,
				Channel:         item.Owner,
				PublishedAt:     published,
			},
		})
	}
	return res, nil
}
