package engines

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/glimpse-search/glimpse/pkg/types"
)

// Bing scrapes Bing web search result pages.
type Bing struct {
	Base
	timeRangeMap map[types.TimeRange]string
	safeMap      map[types.SafeSearch]string
}

// NewBing creates the Bing web engine.
func NewBing() *Bing {
	return &Bing{
		Base: NewBase(Descriptor{
			Name:           "bing",
			Shortcut:       "bi",
			Categories:     []types.Category{types.CategoryGeneral, types.CategoryNews},
			SupportsPaging: true,
			MaxPage:        20,
			Timeout:        8 * time.Second,
			Weight:         0.9,
			Enabled:        true,
		}),
		timeRangeMap: map[types.TimeRange]string{
			types.TimeRangeDay:   `ex1:"ez1"`,
			types.TimeRangeWeek:  `ex1:"ez2"`,
			types.TimeRangeMonth: `ex1:"ez3"`,
			types.TimeRangeYear:  `ex1:"ez5"`,
		},
		safeMap: map[types.SafeSearch]string{
			types.SafeSearchOff:      "OFF",
			types.SafeSearchModerate: "DEMOTE",
			types.SafeSearchStrict:   "STRICT",
		},
	}
}

// BuildRequest encodes the query into a Bing search URL. Bing paginates
// with a 1-indexed "first" offset.
func (b *Bing) BuildRequest(q types.Query) (*RequestConfig, error) {
	text := q.Text
	if q.SiteInclude != "" {
		text += " site:" + q.SiteInclude
	}
	if q.SiteExclude != "" {
		text += " -site:" + q.SiteExclude
	}

	v := url.Values{}
	v.Set("q", text)
	if q.Page > 1 {
		v.Set("first", fmt.Sprintf("%d", (q.Page-1)*10+1))
	}
	if f, ok := b.timeRangeMap[q.TimeRange]; ok && q.TimeRange != types.TimeRangeAny {
		v.Set("filters", f)
	}

	rc := NewRequestConfig("https://www.bing.com/search?" + v.Encode())
	rc.Headers.Set("User-Agent", randomUserAgent())
	rc.Headers.Set("Accept", "text/html,application/xhtml+xml")
	if safe, ok := b.safeMap[q.SafeSearch]; ok {
		rc.Cookies = append(rc.Cookies, &http.Cookie{
			Name: "SRCHHPGUSR", Value: "ADLT=" + safe,
		})
	}
	if lang := shortLang(q.Locale); lang != "" {
		rc.Cookies = append(rc.Cookies, &http.Cookie{
			Name: "_EDGE_S", Value: "mkt=" + lang,
		})
	}
	return rc, nil
}

// ParseResponse extracts results from ol#b_results > li.b_algo blocks.
func (b *Bing) ParseResponse(body []byte, q types.Query) (*Result, error) {
	doc, err := htmlDocument(body)
	if err != nil {
		return &Result{}, nil
	}

	res := &Result{}
	seen := make(map[string]bool)

	doc.Find("li.b_algo").Each(func(_ int, s *goquery.Selection) {
		link := s.Find("h2 a").First()
		href, _ := link.Attr("href")
		if href == "" || seen[href] || !absoluteHTTPURL(href) {
			return
		}
		title := cleanText(link.Text())
		if title == "" {
			return
		}
		snippet := cleanText(s.Find("div.b_caption p").First().Text())
		if snippet == "" {
			snippet = cleanText(s.Find("p").First().Text())
		}
		seen[href] = true
		res.Hits = append(res.Hits, types.Hit{
			URL:      href,
			Title:    title,
			Snippet:  snippet,
			Engine:   "bing",
			Category: q.Category,
		})
	})

	doc.Find("div#sp_requery a, li.b_ans div.b_rs a").Each(func(_ int, s *goquery.Selection) {
		if t := cleanText(s.Text()); t != "" {
			res.Suggestions = append(res.Suggestions, t)
		}
	})

	return res, nil
}
