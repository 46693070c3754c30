// Package meili backs the full-text driver contract with a remote
// Meilisearch instance.
package meili

import (
	"context"

	"github.com/meilisearch/meilisearch-go"

	"github.com/glimpse-search/glimpse/pkg/config"
	"github.com/glimpse-search/glimpse/pkg/fts"
	"github.com/glimpse-search/glimpse/pkg/types"
)

const taskTimeoutMs = 15 * 1000

func init() {
	fts.RegisterDriver("meilisearch", func(cfg config.FTSConfig) (fts.Driver, error) {
		if cfg.MeiliHost == "" {
			return nil, types.NewError(types.KindConfig, "meilisearch driver requires meili_host")
		}
		client := meilisearch.New(cfg.MeiliHost, meilisearch.WithAPIKey(cfg.MeiliKey))
		return NewDriver(client, cfg.MeiliIndex), nil
	})
}

// Driver adapts a Meilisearch index to the fts contract. Meilisearch
// ranks with its own relevancy rules; scores surface through the
// ranking-score field when requested.
type Driver struct {
	client meilisearch.ServiceManager
	index  meilisearch.IndexManager
}

// NewDriver wraps an existing client and index name.
func NewDriver(client meilisearch.ServiceManager, indexName string) *Driver {
	return &Driver{client: client, index: client.Index(indexName)}
}

// Name implements fts.Driver.
func (d *Driver) Name() string { return "meilisearch" }

// Close implements fts.Driver.
func (d *Driver) Close() error {
	d.client.Close()
	return nil
}

// Search implements fts.Driver. Conjunctive mode maps onto
// Meilisearch's "all" matching strategy.
func (d *Driver) Search(_ context.Context, req fts.SearchRequest) ([]fts.Match, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}

	sr := &meilisearch.SearchRequest{
		Query:                req.Query,
		Limit:                int64(limit),
		Offset:               int64(req.Offset),
		ShowRankingScore:     true,
		AttributesToRetrieve: []string{"id", "url", "title", "body"},
	}
	if req.Mode == fts.ModeConjunctive {
		sr.MatchingStrategy = meilisearch.All
	}

	result, err := d.index.Search(req.Query, sr)
	if err != nil {
		return nil, types.WrapError(types.KindExternalAPI, "meilisearch search", err)
	}

	matches := make([]fts.Match, 0, len(result.Hits))
	for _, hit := range result.Hits {
		m, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}
		match := fts.Match{
			URL:     getString(m, "url"),
			Title:   getString(m, "title"),
			Snippet: getString(m, "body"),
		}
		if score, ok := m["_rankingScore"].(float64); ok {
			match.Score = score
		}
		if match.URL == "" {
			continue
		}
		if len(match.Snippet) > 240 {
			match.Snippet = match.Snippet[:240]
		}
		matches = append(matches, match)
	}
	return matches, nil
}

// Index implements fts.Indexer. Documents key on their id field.
func (d *Driver) Index(_ context.Context, docs []fts.Document) error {
	if len(docs) == 0 {
		return nil
	}
	task, err := d.index.AddDocuments(docs)
	if err != nil {
		return types.WrapError(types.KindExternalAPI, "meilisearch add documents", err)
	}
	if _, err := d.index.WaitForTask(task.TaskUID, taskTimeoutMs); err != nil {
		return types.WrapError(types.KindExternalAPI, "meilisearch indexing task", err)
	}
	return nil
}

// Flush implements fts.Indexer. Writes land when the indexing task
// completes, so there is nothing buffered locally.
func (d *Driver) Flush(context.Context) error { return nil }

// Stats implements fts.StatsProvider.
func (d *Driver) Stats(_ context.Context) (fts.Stats, error) {
	stats, err := d.index.GetStats()
	if err != nil {
		return fts.Stats{}, types.WrapError(types.KindExternalAPI, "meilisearch stats", err)
	}
	return fts.Stats{DocCount: stats.NumberOfDocuments}, nil
}

func getString(m map[string]interface{}, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}
