// Package fts defines the full-text search driver contract and a
// factory registry for the available backends.
package fts

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/glimpse-search/glimpse/pkg/config"
	"github.com/glimpse-search/glimpse/pkg/types"
)

// Document is one indexable page.
type Document struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Language string `json:"language,omitempty"`
}

// Match is one scored search result from an index.
type Match struct {
	URL     string  `json:"url"`
	Title   string  `json:"title"`
	Snippet string  `json:"snippet,omitempty"`
	Score   float64 `json:"score"`
}

// Mode selects how multi-term queries combine.
type Mode int

const (
	// ModeDisjunctive matches documents containing any query term.
	ModeDisjunctive Mode = iota
	// ModeConjunctive matches only documents containing every term.
	ModeConjunctive
)

// SearchRequest carries a driver query.
type SearchRequest struct {
	Query  string
	Mode   Mode
	Limit  int
	Offset int
}

// Driver is the minimal read contract every backend implements.
type Driver interface {
	// Name returns the driver's registered name.
	Name() string

	// Search runs req against the index.
	Search(ctx context.Context, req SearchRequest) ([]Match, error)

	// Close releases backend resources.
	Close() error
}

// Indexer is implemented by drivers that accept writes.
type Indexer interface {
	// Index upserts a batch of documents.
	Index(ctx context.Context, docs []Document) error

	// Flush persists buffered writes.
	Flush(ctx context.Context) error
}

// StatsProvider is implemented by drivers that can report index size.
type StatsProvider interface {
	Stats(ctx context.Context) (Stats, error)
}

// Stats summarizes an index.
type Stats struct {
	DocCount    int64 `json:"doc_count"`
	TermCount   int64 `json:"term_count"`
	TotalTokens int64 `json:"total_tokens"`
}

// Factory builds a driver from configuration.
type Factory func(cfg config.FTSConfig) (Driver, error)

var (
	factoryMu sync.RWMutex
	factories = make(map[string]Factory)
)

// RegisterDriver registers a named driver factory. Called from driver
// package init functions.
func RegisterDriver(name string, f Factory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	if _, dup := factories[name]; dup {
		panic(fmt.Sprintf("fts: driver %q registered twice", name))
	}
	factories[name] = f
}

// Open builds the driver named by cfg.Driver.
func Open(cfg config.FTSConfig) (Driver, error) {
	factoryMu.RLock()
	f, ok := factories[cfg.Driver]
	factoryMu.RUnlock()
	if !ok {
		return nil, types.NewError(types.KindConfig,
			fmt.Sprintf("unknown fts driver %q (have %v)", cfg.Driver, DriverNames()))
	}
	return f(cfg)
}

// DriverNames returns the registered driver names, sorted.
func DriverNames() []string {
	factoryMu.RLock()
	defer factoryMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
