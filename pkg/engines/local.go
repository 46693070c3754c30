package engines

import (
	"context"
	"time"

	"github.com/glimpse-search/glimpse/pkg/fts"
	"github.com/glimpse-search/glimpse/pkg/types"
)

// LocalIndex serves results from the local full-text index instead of
// an upstream. It implements Local, so the coordinator skips the HTTP
// round trip entirely.
type LocalIndex struct {
	Base
	driver fts.Driver
}

// NewLocalIndex creates the local index engine over driver.
func NewLocalIndex(driver fts.Driver) *LocalIndex {
	return &LocalIndex{
		Base: NewBase(Descriptor{
			Name:           "local",
			Shortcut:       "lo",
			Categories:     []types.Category{types.CategoryGeneral, types.CategoryIT, types.CategoryScience},
			SupportsPaging: true,
			MaxPage:        100,
			Timeout:        2 * time.Second,
			Weight:         1.2,
			Enabled:        true,
		}),
		driver: driver,
	}
}

// BuildRequest returns nil: this engine never issues HTTP requests.
func (l *LocalIndex) BuildRequest(q types.Query) (*RequestConfig, error) {
	return nil, nil
}

// ParseResponse is unreachable for a local engine; it returns empty.
func (l *LocalIndex) ParseResponse(body []byte, q types.Query) (*Result, error) {
	return &Result{}, nil
}

// Search runs the query against the index driver.
func (l *LocalIndex) Search(ctx context.Context, q types.Query) (*Result, error) {
	start := time.Now()
	matches, err := l.driver.Search(ctx, fts.SearchRequest{
		Query:  q.Text,
		Mode:   fts.ModeDisjunctive,
		Limit:  q.PerPage,
		Offset: (q.Page - 1) * q.PerPage,
	})
	if err != nil {
		return nil, types.WrapError(types.KindEngine, "local index search", err)
	}

	res := &Result{Elapsed: time.Since(start)}
	for _, m := range matches {
		res.Hits = append(res.Hits, types.Hit{
			URL:      m.URL,
			Title:    m.Title,
			Snippet:  m.Snippet,
			Engine:   "local",
			Score:    m.Score,
			Category: q.Category,
		})
	}
	return res, nil
}
