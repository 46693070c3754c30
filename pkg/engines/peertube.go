package engines

import (
	"fmt"
	"net/url"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/glimpse-search/glimpse/pkg/types"
)

// PeerTube queries the Sepia Search index, which federates video
// search across PeerTube instances.
type PeerTube struct {
	Base
	apiBase string
}

// NewPeerTube creates the PeerTube engine against the given Sepia
// instance. An empty apiBase falls back to the public index.
func NewPeerTube(apiBase string) *PeerTube {
	if apiBase == "" {
		apiBase = "https://sepiasearch.org"
	}
	return &PeerTube{
		Base: NewBase(Descriptor{
			Name:           "peertube",
			Shortcut:       "pt",
			Categories:     []types.Category{types.CategoryVideos},
			SupportsPaging: true,
			MaxPage:        100,
			Timeout:        6 * time.Second,
			Weight:         0.5,
			Enabled:        true,
		}),
		apiBase: apiBase,
	}
}

// BuildRequest encodes the query; Sepia paginates with start/count.
func (e *PeerTube) BuildRequest(q types.Query) (*RequestConfig, error) {
	v := url.Values{}
	v.Set("search", q.Text)
	v.Set("start", fmt.Sprintf("%d", (q.Page-1)*10))
	v.Set("count", "10")
	v.Set("sort", "-match")
	if q.SafeSearch != types.SafeSearchOff {
		v.Set("nsfw", "false")
	}
	if lang := shortLang(q.Locale); lang != "" {
		v.Set("languageOneOf", lang)
	}

	rc := NewRequestConfig(e.apiBase + "/api/v1/search/videos?" + v.Encode())
	rc.Headers.Set("Accept", "application/json")
	rc.Headers.Set("User-Agent", randomUserAgent())
	return rc, nil
}

type peertubeVideo struct {
	URL         string `json:"url"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Duration    int    `json:"duration"`
	Views       int64  `json:"views"`
	PublishedAt string `json:"publishedAt"`
	Thumbnail   string `json:"thumbnailUrl"`
	EmbedPath   string `json:"embedPath"`
	Account     struct {
		DisplayName string `json:"displayName"`
		Host        string `json:"host"`
	} `json:"account"`
}

type peertubeResponse struct {
	Total int             `json:"total"`
	Data  []peertubeVideo `json:"data"`
}

// ParseResponse maps federated video records onto hits.
func (e *PeerTube) ParseResponse(body []byte, q types.Query) (*Result, error) {
	var data peertubeResponse
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(body, &data); err != nil {
		return &Result{}, nil
	}

	res := &Result{}
	for _, item := range data.Data {
		if item.URL == "" || item.Name == "" {
			continue
		}
		dur, secs := NormalizeDuration(fmt.Sprintf("%d", item.Duration))
		var embed string
		if item.EmbedPath != "" && item.Account.Host != "" {
			embed = "https://" + item.Account.Host + item.EmbedPath
		}
		res.Hits = append(res.Hits, types.Hit{
			URL:      item.URL,
			Title:    item.Name,
			Snippet:  cleanText(item.Description),
			Engine:   "peertube",
			Category: types.CategoryVideos,
			Media: types.Media{
				ThumbnailURL:    item.Thumbnail,
				Duration:        dur,
				DurationSeconds: secs,
				EmbedURL:        embed,
				Views:           item.Views,
				Channel:         item.Account.DisplayName,
				PublishedAt:     item.PublishedAt,
			},
		})
	}
	return res, nil
}
