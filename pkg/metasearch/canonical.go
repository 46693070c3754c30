// Package metasearch fans a query out to the selected engines, merges
// and ranks their results, and produces one result page.
package metasearch

import (
	"net/url"
	"strings"
)

// Tracking parameters stripped during canonicalization. Two URLs that
// differ only in these are the same document.
var trackingParams = map[string]bool{
	"fbclid":      true,
	"gclid":       true,
	"msclkid":     true,
	"dclid":       true,
	"igshid":      true,
	"mc_cid":      true,
	"mc_eid":      true,
	"ref":         true,
	"ref_src":     true,
	"spm":         true,
	"_hsenc":      true,
	"_hsmi":       true,
	"vero_conv":   true,
	"vero_id":     true,
	"wickedid":    true,
	"yclid":       true,
	"twclid":      true,
	"s_kwcid":     true,
	"sscid":       true,
	"affiliate":   true,
	"campaignid":  true,
	"adgroupid":   true,
	"click_id":    true,
	"gbraid":      true,
	"wbraid":      true,
	"si":          true,
	"pk_campaign": true,
	"pk_kwd":      true,
}

func isTrackingParam(key string) bool {
	if trackingParams[key] {
		return true
	}
	return strings.HasPrefix(key, "utm_")
}

// CanonicalURL normalizes raw for dedup: scheme and host lowercased,
// default ports and trailing slash dropped, fragment removed, tracking
// query parameters stripped, remaining parameters re-encoded in sorted
// order. Unparseable input canonicalizes to itself.
func CanonicalURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if (u.Scheme == "http" && strings.HasSuffix(u.Host, ":80")) ||
		(u.Scheme == "https" && strings.HasSuffix(u.Host, ":443")) {
		u.Host = u.Host[:strings.LastIndex(u.Host, ":")]
	}
	u.Fragment = ""

	if u.RawQuery != "" {
		q := u.Query()
		for key := range q {
			if isTrackingParam(strings.ToLower(key)) {
				q.Del(key)
			}
		}
		u.RawQuery = q.Encode()
	}

	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}
