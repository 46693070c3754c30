package metasearch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalURL(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{
			name:     "host lowercased",
			raw:      "https://Example.COM/Path",
			expected: "https://example.com/Path",
		},
		{
			name:     "trailing slash dropped",
			raw:      "https://example.com/docs/",
			expected: "https://example.com/docs",
		},
		{
			name:     "fragment dropped",
			raw:      "https://example.com/page#section-2",
			expected: "https://example.com/page",
		},
		{
			name:     "utm params stripped",
			raw:      "https://example.com/a?utm_source=x&utm_medium=y&id=7",
			expected: "https://example.com/a?id=7",
		},
		{
			name:     "fbclid stripped",
			raw:      "https://example.com/a?fbclid=abc123",
			expected: "https://example.com/a",
		},
		{
			name:     "default https port dropped",
			raw:      "https://example.com:443/a",
			expected: "https://example.com/a",
		},
		{
			name:     "default http port dropped",
			raw:      "http://example.com:80/a",
			expected: "http://example.com/a",
		},
		{
			name:     "non-default port kept",
			raw:      "https://example.com:8443/a",
			expected: "https://example.com:8443/a",
		},
		{
			name:     "query params sorted",
			raw:      "https://example.com/a?b=2&a=1",
			expected: "https://example.com/a?a=1&b=2",
		},
		{
			name:     "meaningful params kept",
			raw:      "https://example.com/watch?v=abc",
			expected: "https://example.com/watch?v=abc",
		},
		{
			name:     "unparseable returned verbatim",
			raw:      "://not a url",
			expected: "://not a url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CanonicalURL(tt.raw))
		})
	}

	t.Run("equivalent urls share a canonical form", func(t *testing.T) {
		a := CanonicalURL("https://Example.com/page/?utm_campaign=spring#top")
		b := CanonicalURL("https://example.com/page")
		assert.Equal(t, b, a)
	})
}
