package httpclient

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseRateLimitHeadersSeconds(t *testing.T) {
	h := http.Header{}
	h.Set("Retry-After", "30")
	h.Set("X-RateLimit-Remaining", "12")
	h.Set("X-RateLimit-Reset", "1700000000")

	info := ParseRateLimitHeaders(h)
	assert.Equal(t, 30*time.Second, info.RetryAfter)
	assert.Equal(t, 12, info.RequestsRemaining)
	assert.Equal(t, int64(1700000000), info.ResetTime)
}

func TestParseRateLimitHeadersHTTPDate(t *testing.T) {
	h := http.Header{}
	h.Set("Retry-After", time.Now().Add(time.Minute).UTC().Format(http.TimeFormat))

	info := ParseRateLimitHeaders(h)
	assert.Greater(t, info.RetryAfter, 50*time.Second)
	assert.LessOrEqual(t, info.RetryAfter, time.Minute)
}

func TestParseRateLimitHeadersEmpty(t *testing.T) {
	info := ParseRateLimitHeaders(http.Header{})
	assert.Zero(t, info.RetryAfter)
	assert.Zero(t, info.RequestsRemaining)
}

func TestRetryableError(t *testing.T) {
	inner := errors.New("boom")
	err := &RetryableError{StatusCode: 429, Message: "slow down", RetryAfter: 5 * time.Second, Err: inner}

	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "retry after")
	assert.True(t, err.IsRetryable())
	assert.ErrorIs(t, err, inner)

	var re *RetryableError
	assert.True(t, errors.As(err, &re))
}
