package engines

import (
	"math/rand/v2"
	"net/url"
	"strings"
)

// Realistic desktop browser user agents rotated across scraper requests.
// Upstreams serve degraded or blocked markup to obvious bots.
var browserUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
}

// randomUserAgent returns one of the rotated browser user agents.
func randomUserAgent() string {
	return browserUserAgents[rand.IntN(len(browserUserAgents))]
}

// absoluteHTTPURL reports whether raw parses as an absolute http(s) URL.
func absoluteHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// cleanText collapses whitespace runs in scraped text.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
