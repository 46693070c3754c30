package engines

import (
	"fmt"
	"net/url"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/glimpse-search/glimpse/pkg/types"
)

// Vimeo queries Vimeo's unauthenticated onsite search API.
type Vimeo struct {
	Base
}

// NewVimeo creates the Vimeo engine.
func NewVimeo() *Vimeo {
	return &Vimeo{
		Base: NewBase(Descriptor{
			Name:           "vimeo",
			Shortcut:       "vm",
			Categories:     []types.Category{types.CategoryVideos},
			SupportsPaging: true,
			MaxPage:        20,
			Timeout:        6 * time.Second,
			Weight:         0.7,
			Enabled:        true,
		}),
	}
}

// BuildRequest encodes the query against the onsite search endpoint.
func (e *Vimeo) BuildRequest(q types.Query) (*RequestConfig, error) {
	v := url.Values{}
	v.Set("term", q.Text)
	v.Set("page", fmt.Sprintf("%d", q.Page))
	v.Set("per_page", "24")
	v.Set("filter_type", "clip")

	rc := NewRequestConfig("https://vimeo.com/search?" + v.Encode())
	rc.Headers.Set("Accept", "application/json")
	rc.Headers.Set("User-Agent", randomUserAgent())
	return rc, nil
}

type vimeoPicture struct {
	Sizes []struct {
		Link string `json:"link"`
	} `json:"sizes"`
}

type vimeoClip struct {
	Link        string       `json:"link"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Duration    int          `json:"duration"`
	CreatedTime string       `json:"created_time"`
	Pictures    vimeoPicture `json:"pictures"`
	User        struct {
		Name string `json:"name"`
	} `json:"user"`
}

type vimeoSearchResponse struct {
	Data []struct {
		Clip vimeoClip `json:"clip"`
	} `json:"data"`
}

// ParseResponse maps clip entries onto video hits.
func (e *Vimeo) ParseResponse(body []byte, q types.Query) (*Result, error) {
	var data vimeoSearchResponse
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(body, &data); err != nil {
		return &Result{}, nil
	}

	res := &Result{}
	for _, entry := range data.Data {
		clip := entry.Clip
		if clip.Link == "" || clip.Name == "" {
			continue
		}
		var thumb string
		if n := len(clip.Pictures.Sizes); n > 0 {
			thumb = clip.Pictures.Sizes[n-1].Link
		}
		dur, secs := NormalizeDuration(fmt.Sprintf("%d", clip.Duration))
		res.Hits = append(res.Hits, types.Hit{
			URL:      clip.Link,
			Title:    clip.Name,
			Snippet:  cleanText(clip.Description),
			Engine:   "vimeo",
			Category: types.CategoryVideos,
			Media: types.Media{
				ThumbnailURL:    thumb,
				Duration:        dur,
				DurationSeconds: secs,
				Channel:         clip.User.Name,
				PublishedAt:     clip.CreatedTime,
			},
		})
	}
	return res, nil
}
