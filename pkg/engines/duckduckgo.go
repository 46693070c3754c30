package engines

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/glimpse-search/glimpse/pkg/types"
)

// DuckDuckGo scrapes the lite HTML endpoint at html.duckduckgo.com.
// The endpoint takes a POST form and paginates with uneven offsets:
// page 2 starts at 10, later pages add 15 per page.
type DuckDuckGo struct {
	Base
	timeRangeMap map[types.TimeRange]string
	regionMap    map[string]string
}

// NewDuckDuckGo creates the DuckDuckGo web engine.
func NewDuckDuckGo() *DuckDuckGo {
	return &DuckDuckGo{
		Base: NewBase(Descriptor{
			Name:           "duckduckgo",
			Shortcut:       "ddg",
			Categories:     []types.Category{types.CategoryGeneral},
			SupportsPaging: true,
			MaxPage:        5,
			Timeout:        10 * time.Second,
			Weight:         1.0,
			Enabled:        true,
		}),
		timeRangeMap: map[types.TimeRange]string{
			types.TimeRangeDay:   "d",
			types.TimeRangeWeek:  "w",
			types.TimeRangeMonth: "m",
			types.TimeRangeYear:  "y",
		},
		regionMap: map[string]string{
			"en-us": "us-en", "en-gb": "uk-en", "de": "de-de",
			"fr": "fr-fr", "es": "es-es", "it": "it-it",
			"ja": "jp-jp", "ko": "kr-kr", "zh": "cn-zh", "ru": "ru-ru",
		},
	}
}

func (d *DuckDuckGo) region(locale string) string {
	key := strings.ToLower(locale)
	if r, ok := d.regionMap[key]; ok {
		return r
	}
	if r, ok := d.regionMap[shortLang(locale)]; ok {
		return r
	}
	return "wt-wt"
}

// BuildRequest builds the POST form for the lite endpoint.
func (d *DuckDuckGo) BuildRequest(q types.Query) (*RequestConfig, error) {
	region := d.region(q.Locale)

	form := url.Values{}
	form.Set("q", q.Text)
	if q.Page == 1 {
		form.Set("b", "")
	} else {
		offset := 10 + (q.Page-2)*15
		form.Set("s", fmt.Sprintf("%d", offset))
		form.Set("nextParams", "")
		form.Set("v", "l")
		form.Set("o", "json")
		form.Set("dc", fmt.Sprintf("%d", offset+1))
		form.Set("api", "d.js")
	}
	if region == "wt-wt" {
		form.Set("kl", "")
	} else {
		form.Set("kl", region)
	}
	form.Set("df", "")
	if tr, ok := d.timeRangeMap[q.TimeRange]; ok {
		form.Set("df", tr)
	}

	rc := NewRequestConfig("https://html.duckduckgo.com/html/")
	rc.Method = http.MethodPost
	rc.Body = []byte(form.Encode())
	rc.Headers.Set("Content-Type", "application/x-www-form-urlencoded")
	rc.Headers.Set("Referer", "https://html.duckduckgo.com/html/")
	rc.Headers.Set("User-Agent", randomUserAgent())
	rc.Headers.Set("Accept", "text/html,application/xhtml+xml")
	rc.Headers.Set("Sec-Fetch-Mode", "navigate")
	rc.Cookies = append(rc.Cookies, &http.Cookie{Name: "kl", Value: region})
	if tr, ok := d.timeRangeMap[q.TimeRange]; ok {
		rc.Cookies = append(rc.Cookies, &http.Cookie{Name: "df", Value: tr})
	}
	return rc, nil
}

// ParseResponse extracts div.web-result blocks, skipping ad results and
// unwrapping the uddg redirector.
func (d *DuckDuckGo) ParseResponse(body []byte, q types.Query) (*Result, error) {
	if bytes.Contains(body, []byte("challenge-form")) || bytes.Contains(body, []byte("Unfortunately, bots")) {
		return nil, types.NewError(types.KindEngine, "duckduckgo captcha page")
	}

	doc, err := htmlDocument(body)
	if err != nil {
		return &Result{}, nil
	}

	res := &Result{}
	seen := make(map[string]bool)

	doc.Find("div#links div.web-result").Each(func(_ int, s *goquery.Selection) {
		if cls, _ := s.Attr("class"); strings.Contains(cls, "result--ad") {
			return
		}
		link := s.Find("h2 a").First()
		href, _ := link.Attr("href")
		u := resolveUDDG(href)
		if u == "" || seen[u] || !absoluteHTTPURL(u) {
			return
		}
		title := cleanText(link.Text())
		if title == "" {
			return
		}
		seen[u] = true
		res.Hits = append(res.Hits, types.Hit{
			URL:      u,
			Title:    title,
			Snippet:  cleanText(s.Find("a.result__snippet").First().Text()),
			Engine:   "duckduckgo",
			Category: types.CategoryGeneral,
		})
	})

	return res, nil
}

// resolveUDDG unwraps DuckDuckGo's //duckduckgo.com/l/?uddg= redirector.
func resolveUDDG(href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//duckduckgo.com/l/?") {
		u, err := url.Parse("https:" + href)
		if err != nil {
			return ""
		}
		real, err := url.QueryUnescape(u.Query().Get("uddg"))
		if err != nil {
			return ""
		}
		return real
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return ""
}
