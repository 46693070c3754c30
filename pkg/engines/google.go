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

// Google scrapes Google web search result pages.
type Google struct {
	Base
	timeRangeMap map[types.TimeRange]string
	safeMap      map[types.SafeSearch]string
	langMap      map[string]string
}

// NewGoogle creates the Google web engine.
func NewGoogle() *Google {
	return &Google{
		Base: NewBase(Descriptor{
			Name:           "google",
			Shortcut:       "go",
			Categories:     []types.Category{types.CategoryGeneral},
			SupportsPaging: true,
			MaxPage:        50,
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
		safeMap: map[types.SafeSearch]string{
			types.SafeSearchOff:      "off",
			types.SafeSearchModerate: "medium",
			types.SafeSearchStrict:   "high",
		},
		langMap: map[string]string{
			"en": "lang_en", "de": "lang_de", "fr": "lang_fr",
			"es": "lang_es", "it": "lang_it", "pt": "lang_pt",
			"ja": "lang_ja", "ko": "lang_ko", "zh": "lang_zh-CN",
			"ru": "lang_ru",
		},
	}
}

// BuildRequest encodes the query into a Google search URL with consent
// cookie and rotated user agent.
func (g *Google) BuildRequest(q types.Query) (*RequestConfig, error) {
	text := q.Text
	if q.Verbatim {
		text = fmt.Sprintf("%q", text)
	}
	if q.SiteInclude != "" {
		text += " site:" + q.SiteInclude
	}
	if q.SiteExclude != "" {
		text += " -site:" + q.SiteExclude
	}
	if q.FileType != "" {
		text += " filetype:" + q.FileType
	}

	v := url.Values{}
	v.Set("q", text)
	v.Set("ie", "utf8")
	v.Set("oe", "utf8")
	v.Set("filter", "0")
	v.Set("start", fmt.Sprintf("%d", (q.Page-1)*10))
	if lang := shortLang(q.Locale); lang != "" {
		if lr, ok := g.langMap[lang]; ok {
			v.Set("lr", lr)
			v.Set("hl", lang)
		}
	}
	if tr, ok := g.timeRangeMap[q.TimeRange]; ok && q.TimeRange != types.TimeRangeAny {
		v.Set("tbs", "qdr:"+tr)
	}
	if sf, ok := g.safeMap[q.SafeSearch]; ok {
		v.Set("safe", sf)
	}

	rc := NewRequestConfig("https://www.google.com/search?" + v.Encode())
	rc.Headers.Set("User-Agent", randomUserAgent())
	rc.Headers.Set("Accept", "text/html,application/xhtml+xml")
	rc.Headers.Set("Accept-Language", "en-US,en;q=0.9")
	rc.Cookies = append(rc.Cookies, &http.Cookie{Name: "CONSENT", Value: "YES+"})
	rc.Cookies = append(rc.Cookies, &http.Cookie{Name: "SOCS", Value: "CAESHAgBEhIaAB"})
	return rc, nil
}

// ParseResponse extracts organic results from the returned HTML.
func (g *Google) ParseResponse(body []byte, q types.Query) (*Result, error) {
	if bytes.Contains(body, []byte("sorry.google.com")) || bytes.Contains(body, []byte("/sorry/")) {
		return nil, types.NewError(types.KindEngine, "google captcha page")
	}

	doc, err := htmlDocument(body)
	if err != nil {
		return &Result{}, nil
	}

	res := &Result{}
	seen := make(map[string]bool)

	parse := func(_ int, s *goquery.Selection) {
		link := s.Find("a[href]").First()
		href, _ := link.Attr("href")
		u := resolveGoogleHref(href)
		if u == "" || seen[u] || !absoluteHTTPURL(u) {
			return
		}
		// Skip Google's own properties except the translator.
		if strings.Contains(u, "google.com") && !strings.Contains(u, "translate.google") {
			return
		}
		title := cleanText(s.Find("h3").First().Text())
		if title == "" {
			return
		}
		snippet := cleanText(s.Find(`div[data-sncf="1"]`).First().Text())
		if snippet == "" {
			snippet = cleanText(s.Find("div.VwiC3b").First().Text())
		}
		seen[u] = true
		res.Hits = append(res.Hits, types.Hit{
			URL:      u,
			Title:    title,
			Snippet:  snippet,
			Engine:   "google",
			Category: types.CategoryGeneral,
		})
	}

	doc.Find("div.MjjYud").Each(parse)
	if len(res.Hits) == 0 {
		// Older markup variant.
		doc.Find("div.g").Each(parse)
	}

	doc.Find("div.ouy7Mc a, a.k8XOCe").Each(func(_ int, s *goquery.Selection) {
		if t := cleanText(s.Text()); t != "" {
			res.Suggestions = append(res.Suggestions, t)
		}
	})

	return res, nil
}

// resolveGoogleHref unwraps Google's /url?q= redirector.
func resolveGoogleHref(href string) string {
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	if strings.HasPrefix(href, "/url?") {
		u, err := url.Parse(href)
		if err != nil {
			return ""
		}
		real := u.Query().Get("q")
		if real == "" {
			real = u.Query().Get("url")
		}
		return real
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return ""
}

// shortLang reduces a BCP-47 tag to its primary subtag.
func shortLang(locale string) string {
	if locale == "" {
		return ""
	}
	if i := strings.IndexAny(locale, "-_"); i > 0 {
		return strings.ToLower(locale[:i])
	}
	return strings.ToLower(locale)
}
