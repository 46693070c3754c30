// Package search orchestrates a full request: cache, bangs, the
// meta-search coordinator, widget enrichment, and the news and AI
// session services built on top of it.
package search

import (
	"context"
	"log/slog"

	"github.com/glimpse-search/glimpse/pkg/bangs"
	"github.com/glimpse-search/glimpse/pkg/cache"
	"github.com/glimpse-search/glimpse/pkg/config"
	"github.com/glimpse-search/glimpse/pkg/instant"
	"github.com/glimpse-search/glimpse/pkg/observability"
	"github.com/glimpse-search/glimpse/pkg/types"
	"github.com/glimpse-search/glimpse/pkg/widgets"
)

// Coordinator is the meta-search fan-out contract the service drives.
type Coordinator interface {
	Search(ctx context.Context, q types.Query) (*types.MergedResult, error)
}

// Options carries per-request knobs outside the query itself.
type Options struct {
	// Refetch bypasses the cache read (the write still happens).
	Refetch bool

	// Widgets is the caller's widget configuration.
	Widgets widgets.Settings
}

// Response is either a result page or a bang redirect, never both.
type Response struct {
	Result   *types.MergedResult `json:"result,omitempty"`
	Redirect *types.Redirect     `json:"redirect,omitempty"`
}

// Service runs the request pipeline: cache check, bang resolution,
// meta-search, enrichment, suggest recording, cache store.
type Service struct {
	coordinator Coordinator
	store       cache.Store
	bangs       *bangs.Resolver
	widgets     *widgets.Pipeline
	instant     *instant.Service
	cacheCfg    config.CacheConfig
	metrics     observability.Metrics
	logger      *slog.Logger
}

// NewService wires the pipeline. store and resolver may be nil in
// reduced deployments; the corresponding steps are skipped.
func NewService(coordinator Coordinator, store cache.Store, resolver *bangs.Resolver,
	svc *instant.Service, cacheCfg config.CacheConfig) *Service {
	return &Service{
		coordinator: coordinator,
		store:       store,
		bangs:       resolver,
		widgets:     widgets.NewPipeline(svc),
		instant:     svc,
		cacheCfg:    cacheCfg,
		metrics:     &observability.PrometheusMetrics{},
		logger:      slog.Default().With("component", "search"),
	}
}

// WithMetrics replaces the default no-op metric set.
func (s *Service) WithMetrics(m observability.Metrics) *Service {
	if m != nil {
		s.metrics = m
	}
	return s
}

// Instant exposes the instant-answer service for direct routes.
func (s *Service) Instant() *instant.Service { return s.instant }

// Bangs exposes the bang resolver for management routes.
func (s *Service) Bangs() *bangs.Resolver { return s.bangs }

// Search runs the full pipeline for q.
func (s *Service) Search(ctx context.Context, q types.Query, opts Options) (*Response, error) {
	fp := cache.FingerprintQuery(q, s.cacheCfg.Version)

	if s.store != nil && !opts.Refetch {
		cached, err := s.store.Get(ctx, fp)
		switch {
		case err == nil:
			s.metrics.RecordCacheLookup(ctx, true)
			s.logger.Debug("cache hit", "fingerprint", fp.String())
			return &Response{Result: cached}, nil
		case cache.IsMiss(err):
			s.metrics.RecordCacheLookup(ctx, false)
		default:
			// Backend trouble degrades to a miss.
			s.metrics.RecordCacheLookup(ctx, false)
			s.logger.Warn("cache read failed", "error", err)
		}
	}

	resolution := bangs.Resolution{Query: q.Text}
	if s.bangs != nil {
		resolution = s.bangs.Resolve(q.Text)
	}
	if resolution.RedirectURL != "" {
		return &Response{Redirect: &types.Redirect{
			URL:     resolution.RedirectURL,
			Trigger: resolution.Bang.Trigger,
			Name:    resolution.Bang.Name,
		}}, nil
	}

	q, err := applyResolution(q, resolution)
	if err != nil {
		return nil, err
	}

	page, err := s.coordinator.Search(ctx, q)
	if err != nil {
		return nil, err
	}

	if resolution.Lucky && len(page.Results) > 0 {
		return &Response{Redirect: &types.Redirect{
			URL:  page.Results[0].URL,
			Name: page.Results[0].Title,
		}}, nil
	}

	s.widgets.Enrich(q, page, opts.Widgets)

	if s.instant != nil {
		// Fire-and-forget; history must never slow the response.
		go s.instant.Suggest.Record(q.Text)
	}

	if s.store != nil && ctx.Err() == nil {
		ttl := cache.TTLFor(s.cacheCfg, q.Category)
		if err := s.store.Put(ctx, fp, page, ttl); err != nil {
			s.logger.Warn("cache write failed", "error", err)
		}
	}
	return &Response{Result: page}, nil
}

// Suggest returns prefix completions from the recorded history.
func (s *Service) Suggest(prefix string) []string {
	if s.instant == nil {
		return nil
	}
	return s.instant.Suggest.Suggest(prefix)
}

// applyResolution folds the bang outcome back into the query. Internal
// bangs switch category; time bangs narrow the range; in both cases
// the trigger token is already stripped from the text.
func applyResolution(q types.Query, r bangs.Resolution) (types.Query, error) {
	if r.Query == q.Text && r.Bang == nil && r.TimeRange == types.TimeRangeAny && !r.Lucky {
		return q, nil
	}

	opts := types.QueryOptions{
		Category:    q.Category,
		Page:        q.Page,
		PerPage:     q.PerPage,
		Locale:      q.Locale,
		SafeSearch:  q.SafeSearch,
		TimeRange:   q.TimeRange,
		Filters:     q.Filters,
		Verbatim:    q.Verbatim,
		SiteInclude: q.SiteInclude,
		SiteExclude: q.SiteExclude,
		FileType:    q.FileType,
	}
	if r.Bang != nil && !r.Bang.External {
		opts.Category = r.Category
	}
	if r.TimeRange != types.TimeRangeAny {
		opts.TimeRange = r.TimeRange
	}
	return types.NewQuery(r.Query, opts)
}
