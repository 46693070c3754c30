package engines

import (
	"fmt"
	"net/url"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/glimpse-search/glimpse/pkg/types"
)

// YouTube queries a Piped API instance, which proxies YouTube search as
// plain JSON without consent walls or API keys.
type YouTube struct {
	Base
	apiBase string
}

// NewYouTube creates the YouTube engine backed by the given Piped
// instance. An empty apiBase falls back to the public default.
func NewYouTube(apiBase string) *YouTube {
	if apiBase == "" {
		apiBase = "https://pipedapi.kavin.rocks"
	}
	return &YouTube{
		Base: NewBase(Descriptor{
			Name:           "youtube",
			Shortcut:       "yt",
			Categories:     []types.Category{types.CategoryVideos, types.CategoryMusic},
			SupportsPaging: false,
			MaxPage:        1,
			Timeout:        8 * time.Second,
			Weight:         1.0,
			Enabled:        true,
		}),
		apiBase: apiBase,
	}
}

// BuildRequest asks the Piped search endpoint for videos. The API is
// cursor-paginated, so only page 1 is reachable statelessly.
func (y *YouTube) BuildRequest(q types.Query) (*RequestConfig, error) {
	if q.Page > 1 {
		return nil, nil
	}
	filter := "videos"
	if q.Category == types.CategoryMusic {
		filter = "music_songs"
	}
	v := url.Values{}
	v.Set("q", q.Text)
	v.Set("filter", filter)

	rc := NewRequestConfig(y.apiBase + "/search?" + v.Encode())
	rc.Headers.Set("Accept", "application/json")
	rc.Headers.Set("User-Agent", randomUserAgent())
	return rc, nil
}

type pipedItem struct {
	URL          string `json:"url"`
	Type         string `json:"type"`
	Title        string `json:"title"`
	Thumbnail    string `json:"thumbnail"`
	UploaderName string `json:"uploaderName"`
	UploadedDate string `json:"uploadedDate"`
	Duration     int    `json:"duration"`
	Views        int64  `json:"views"`
	ShortDesc    string `json:"shortDescription"`
}

type pipedSearchResponse struct {
	Items      []pipedItem `json:"items"`
	Suggestion string      `json:"suggestion"`
}

// ParseResponse maps Piped stream items onto video hits.
func (y *YouTube) ParseResponse(body []byte, q types.Query) (*Result, error) {
	var data pipedSearchResponse
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(body, &data); err != nil {
		return &Result{}, nil
	}

	res := &Result{}
	if data.Suggestion != "" {
		res.Suggestions = append(res.Suggestions, data.Suggestion)
	}
	for _, item := range data.Items {
		if item.Type != "stream" || item.URL == "" || item.Title == "" {
			continue
		}
		watch := "https://www.youtube.com" + item.URL
		dur, secs := NormalizeDuration(fmt.Sprintf("%d", item.Duration))
		res.Hits = append(res.Hits, types.Hit{
			URL:      watch,
			Title:    item.Title,
			Snippet:  cleanText(item.ShortDesc),
			Engine:   "youtube",
			Category: q.Category,
			Media: types.Media{
				ThumbnailURL:    item.Thumbnail,
				Duration:        dur,
				DurationSeconds: secs,
				EmbedURL:        "https://www.youtube-nocookie.com/embed/" + watchID(item.URL),
				Views:           item.Views,
				Channel:         item.UploaderName,
				PublishedAt:     item.UploadedDate,
			},
		})
	}
	return res, nil
}

// watchID extracts the video id from a /watch?v= path.
func watchID(path string) string {
	u, err := url.Parse(path)
	if err != nil {
		return ""
	}
	return u.Query().Get("v")
}
