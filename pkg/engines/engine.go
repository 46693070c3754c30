// Package engines defines the engine contract and one adapter per
// upstream search backend.
//
// An engine is two pure functions around an HTTP exchange the caller
// owns: BuildRequest turns a query into a request description without
// performing I/O, and ParseResponse turns the response body into hits
// without performing I/O. The metasearch coordinator owns the transport,
// timeouts, and cancellation.
package engines

import (
	"context"
	"net/http"
	"time"

	"github.com/glimpse-search/glimpse/pkg/types"
)

// Descriptor carries an engine's registration metadata. Registered once
// at process init and read-only afterwards.
type Descriptor struct {
	Name           string           `json:"name"`
	Shortcut       string           `json:"shortcut"`
	Categories     []types.Category `json:"categories"`
	SupportsPaging bool             `json:"supports_paging"`
	MaxPage        int              `json:"max_page"`
	Timeout        time.Duration    `json:"timeout_ms"`
	Weight         float64          `json:"weight"`
	Enabled        bool             `json:"enabled"`
}

// HasCategory reports whether the descriptor serves cat.
func (d Descriptor) HasCategory(cat types.Category) bool {
	for _, c := range d.Categories {
		if c == cat {
			return true
		}
	}
	return false
}

// RequestConfig describes the HTTP request an engine wants issued.
type RequestConfig struct {
	URL     string
	Method  string
	Headers http.Header
	Cookies []*http.Cookie
	Body    []byte
}

// NewRequestConfig returns a GET request config with empty headers.
func NewRequestConfig(url string) *RequestConfig {
	return &RequestConfig{URL: url, Method: http.MethodGet, Headers: make(http.Header)}
}

// Result is the outcome of one engine for one query.
type Result struct {
	Hits        []types.Hit
	Suggestions []string
	Elapsed     time.Duration
	Err         error
}

// Engine is the uniform adapter interface. Implementations must be safe
// for concurrent use; both methods are pure functions of their inputs.
type Engine interface {
	// Descriptor returns the engine's registration metadata.
	Descriptor() Descriptor

	// BuildRequest builds the upstream request for q. It never performs
	// I/O. A nil config with nil error means the engine has nothing to
	// ask for this query (e.g. unsupported page).
	BuildRequest(q types.Query) (*RequestConfig, error)

	// ParseResponse extracts hits from the upstream body. Unrecognized
	// or empty bodies yield an empty result, never a panic; partial
	// parses are allowed.
	ParseResponse(body []byte, q types.Query) (*Result, error)
}

// Local is implemented by engines that answer from a local index and
// short-circuit the network entirely.
type Local interface {
	Engine

	// Search runs the query against the local backing store.
	Search(ctx context.Context, q types.Query) (*Result, error)
}
