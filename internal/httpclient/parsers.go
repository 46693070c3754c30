package httpclient

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// RateLimitInfo carries what an upstream told us about its limits.
type RateLimitInfo struct {
	RetryAfter        time.Duration
	ResetTime         int64 // Unix seconds
	RequestsRemaining int
}

// ParseRateLimitHeaders extracts rate limit information from the
// headers search upstreams commonly send. Retry-After is accepted both
// as delay seconds and as an HTTP date.
func ParseRateLimitHeaders(headers http.Header) RateLimitInfo {
	info := RateLimitInfo{}

	if retryAfter := headers.Get("Retry-After"); retryAfter != "" {
		if seconds, err := strconv.Atoi(retryAfter); err == nil {
			info.RetryAfter = time.Duration(seconds) * time.Second
		} else if at, err := http.ParseTime(retryAfter); err == nil {
			if d := time.Until(at); d > 0 {
				info.RetryAfter = d
			}
		}
	}

	if resetStr := headers.Get("X-RateLimit-Reset"); resetStr != "" {
		var resetTime int64
		fmt.Sscanf(resetStr, "%d", &resetTime)
		info.ResetTime = resetTime
	}

	if remaining := headers.Get("X-RateLimit-Remaining"); remaining != "" {
		fmt.Sscanf(remaining, "%d", &info.RequestsRemaining)
	}

	return info
}
