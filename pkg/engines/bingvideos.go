package engines

import (
	"fmt"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	jsoniter "github.com/json-iterator/go"

	"github.com/glimpse-search/glimpse/pkg/types"
)

// BingVideos scrapes Bing's video vertical. Each result card carries a
// vrhm attribute with a JSON metadata blob.
type BingVideos struct {
	Base
	durationMap map[string]string
}

// NewBingVideos creates the Bing videos engine.
func NewBingVideos() *BingVideos {
	return &BingVideos{
		Base: NewBase(Descriptor{
			Name:           "bing_videos",
			Shortcut:       "bv",
			Categories:     []types.Category{types.CategoryVideos},
			SupportsPaging: true,
			MaxPage:        10,
			Timeout:        8 * time.Second,
			Weight:         0.9,
			Enabled:        true,
		}),
		durationMap: map[string]string{
			"short":  `videolength="short"`,
			"medium": `videolength="medium"`,
			"long":   `videolength="long"`,
		},
	}
}

// BuildRequest encodes the query; Bing videos paginates 35 per page.
func (b *BingVideos) BuildRequest(q types.Query) (*RequestConfig, error) {
	v := url.Values{}
	v.Set("q", q.Text)
	if q.Page > 1 {
		v.Set("first", fmt.Sprintf("%d", (q.Page-1)*35+1))
	}
	if f, ok := b.durationMap[q.Filters["duration"]]; ok {
		v.Set("qft", "+filterui:"+f)
	}

	rc := NewRequestConfig("https://www.bing.com/videos/search?" + v.Encode())
	rc.Headers.Set("User-Agent", randomUserAgent())
	rc.Headers.Set("Accept", "text/html,application/xhtml+xml")
	return rc, nil
}

type bingVideoMeta struct {
	MURL     string `json:"murl"`
	Thumb    string `json:"thid"`
	PURL     string `json:"purl"`
	VT       string `json:"vt"`
	Duration string `json:"du"`
}

// ParseResponse extracts video cards via their vrhm JSON attributes.
func (b *BingVideos) ParseResponse(body []byte, q types.Query) (*Result, error) {
	doc, err := htmlDocument(body)
	if err != nil {
		return &Result{}, nil
	}

	res := &Result{}
	seen := make(map[string]bool)

	doc.Find("div.dg_u div[vrhm], div.mc_vtvc").Each(func(_ int, s *goquery.Selection) {
		var meta bingVideoMeta
		if raw, ok := s.Attr("vrhm"); ok {
			// Defensive: malformed metadata yields a skipped card, not a failure.
			_ = jsoniter.ConfigCompatibleWithStandardLibrary.UnmarshalFromString(raw, &meta)
		}
		u := meta.PURL
		if u == "" {
			href, _ := s.Find("a[href]").First().Attr("href")
			if href != "" && href[0] == '/' {
				href = "https://www.bing.com" + href
			}
			u = href
		}
		if u == "" || seen[u] || !absoluteHTTPURL(u) {
			return
		}
		title := meta.VT
		if title == "" {
			title = cleanText(s.Find("div.mc_vtvc_title").First().Text())
		}
		if title == "" {
			return
		}
		durRaw := meta.Duration
		if durRaw == "" {
			durRaw = cleanText(s.Find("div.mc_bc_rc span.mc_bc, span.vtbc").First().Text())
		}
		dur, secs := NormalizeDuration(durRaw)

		seen[u] = true
		res.Hits = append(res.Hits, types.Hit{
			URL:      u,
			Title:    title,
			Engine:   "bing_videos",
			Category: types.CategoryVideos,
			Media: types.Media{
				ThumbnailURL:    meta.Thumb,
				Duration:        dur,
				DurationSeconds: secs,
			},
		})
	})

	return res, nil
}
