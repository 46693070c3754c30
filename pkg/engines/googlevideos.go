package engines

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/glimpse-search/glimpse/pkg/types"
)

// GoogleVideos scrapes Google's video vertical (tbm=vid).
type GoogleVideos struct {
	Base
	timeRangeMap map[types.TimeRange]string
	durationMap  map[string]string
}

// NewGoogleVideos creates the Google videos engine.
func NewGoogleVideos() *GoogleVideos {
	return &GoogleVideos{
		Base: NewBase(Descriptor{
			Name:           "google_videos",
			Shortcut:       "gv",
			Categories:     []types.Category{types.CategoryVideos},
			SupportsPaging: true,
			MaxPage:        10,
			Timeout:        10 * time.Second,
			Weight:         1.0,
			Enabled:        true,
		}),
		timeRangeMap: map[types.TimeRange]string{
			types.TimeRangeDay:   "qdr:d",
			types.TimeRangeWeek:  "qdr:w",
			types.TimeRangeMonth: "qdr:m",
			types.TimeRangeYear:  "qdr:y",
		},
		durationMap: map[string]string{
			"short":  "dur:s",
			"medium": "dur:m",
			"long":   "dur:l",
		},
	}
}

// BuildRequest encodes the query with tbm=vid and tbs filter params.
func (g *GoogleVideos) BuildRequest(q types.Query) (*RequestConfig, error) {
	v := url.Values{}
	v.Set("q", q.Text)
	v.Set("tbm", "vid")
	v.Set("start", fmt.Sprintf("%d", (q.Page-1)*10))

	var tbs []string
	if tr, ok := g.timeRangeMap[q.TimeRange]; ok && q.TimeRange != types.TimeRangeAny {
		tbs = append(tbs, tr)
	}
	if d, ok := g.durationMap[q.Filters["duration"]]; ok {
		tbs = append(tbs, d)
	}
	if len(tbs) > 0 {
		v.Set("tbs", joinComma(tbs))
	}
	if q.SafeSearch == types.SafeSearchStrict {
		v.Set("safe", "active")
	}

	rc := NewRequestConfig("https://www.google.com/search?" + v.Encode())
	rc.Headers.Set("User-Agent", randomUserAgent())
	rc.Headers.Set("Accept", "text/html,application/xhtml+xml")
	rc.Cookies = append(rc.Cookies, &http.Cookie{Name: "CONSENT", Value: "YES+"})
	return rc, nil
}

// ParseResponse extracts video cards from the result HTML.
func (g *GoogleVideos) ParseResponse(body []byte, q types.Query) (*Result, error) {
	if bytes.Contains(body, []byte("/sorry/")) {
		return nil, types.NewError(types.KindEngine, "google captcha page")
	}
	doc, err := htmlDocument(body)
	if err != nil {
		return &Result{}, nil
	}

	res := &Result{}
	seen := make(map[string]bool)

	doc.Find("div.MjjYud, div.g").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Find("a[href]").First().Attr("href")
		u := resolveGoogleHref(href)
		if u == "" || seen[u] || !absoluteHTTPURL(u) {
			return
		}
		title := cleanText(s.Find("h3").First().Text())
		if title == "" {
			return
		}
		durRaw := cleanText(s.Find("div[aria-label], span.J3lDdd").First().Text())
		dur, secs := NormalizeDuration(durRaw)
		thumb, _ := s.Find("img").First().Attr("src")

		seen[u] = true
		res.Hits = append(res.Hits, types.Hit{
			URL:      u,
			Title:    title,
			Snippet:  cleanText(s.Find("div.VwiC3b, span.st").First().Text()),
			Engine:   "google_videos",
			Category: types.CategoryVideos,
			Media: types.Media{
				ThumbnailURL:    thumb,
				Duration:        dur,
				DurationSeconds: secs,
			},
		})
	})

	return res, nil
}

func joinComma(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += "," + p
	}
	return out
}
