package metasearch

import (
	"context"
	"log/slog"
	"time"

	"github.com/glimpse-search/glimpse/pkg/config"
	"github.com/glimpse-search/glimpse/pkg/engines"
	"github.com/glimpse-search/glimpse/pkg/observability"
	"github.com/glimpse-search/glimpse/pkg/types"
)

// taskState tracks one engine task through its lifecycle.
type taskState int

const (
	taskPending taskState = iota
	taskFetching
	taskParsing
	taskDone
	taskFailed
)

// engineOutcome is what one engine task delivers to the collector.
type engineOutcome struct {
	engine      string
	weight      float64
	hits        []types.Hit
	suggestions []string
	elapsed     time.Duration
	err         error
}

// Coordinator owns the fan-out/collect cycle for one engine registry.
type Coordinator struct {
	registry *engines.Registry
	client   *Client
	cfg      config.MetaSearchConfig
	metrics  observability.Metrics
	logger   *slog.Logger
}

// NewCoordinator builds a coordinator over the given registry and client.
func NewCoordinator(registry *engines.Registry, client *Client, cfg config.MetaSearchConfig) *Coordinator {
	return &Coordinator{
		registry: registry,
		client:   client,
		cfg:      cfg,
		metrics:  &observability.PrometheusMetrics{},
		logger:   slog.Default().With("component", "metasearch"),
	}
}

// WithMetrics replaces the default no-op metric set.
func (c *Coordinator) WithMetrics(m observability.Metrics) *Coordinator {
	if m != nil {
		c.metrics = m
	}
	return c
}

// Search fans q out to every enabled engine in its category, collects
// within the request budget, and returns the merged page. Engine
// failures degrade the result instead of failing it; only a page with
// no engines at all is an error.
func (c *Coordinator) Search(ctx context.Context, q types.Query) (*types.MergedResult, error) {
	started := time.Now()

	selected := c.selectEngines(q)
	if len(selected) == 0 {
		return nil, types.NewError(types.KindNotFound,
			"no engines available for category "+string(q.Category))
	}

	budget := time.Duration(c.cfg.RequestBudgetMs) * time.Millisecond
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	// Buffered to len(selected) so late engines never block on a
	// departed collector.
	outcomes := make(chan engineOutcome, len(selected))
	for _, e := range selected {
		go c.runEngine(ctx, e, q, outcomes)
	}

	collected := c.collect(ctx, outcomes, len(selected))

	page := c.assemble(q, collected)
	page.ElapsedMs = time.Since(started).Milliseconds()
	c.metrics.RecordSearch(ctx, string(q.Category), time.Since(started), len(page.Results))
	return page, nil
}

// selectEngines picks the enabled engines serving the query's category,
// dropping ones that cannot serve the requested page.
func (c *Coordinator) selectEngines(q types.Query) []engines.Engine {
	var out []engines.Engine
	for _, e := range c.registry.ByCategory(q.Category) {
		d := e.Descriptor()
		if q.Page > 1 && (!d.SupportsPaging || q.Page > d.MaxPage) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// runEngine executes one engine task: build, fetch, parse. Each task
// gets min(engine timeout, remaining budget).
func (c *Coordinator) runEngine(ctx context.Context, e engines.Engine, q types.Query, out chan<- engineOutcome) {
	d := e.Descriptor()
	start := time.Now()
	state := taskPending

	deliver := func(hits []types.Hit, suggestions []string, err error) {
		c.metrics.RecordEngineRequest(ctx, d.Name, time.Since(start), err)
		if err != nil {
			state = taskFailed
			c.logger.Debug("engine failed",
				"engine", d.Name, "state", int(state),
				"elapsed", time.Since(start), "error", err)
		} else {
			state = taskDone
			c.metrics.RecordEngineHits(ctx, d.Name, len(hits))
		}
		out <- engineOutcome{
			engine:      d.Name,
			weight:      d.Weight,
			hits:        hits,
			suggestions: suggestions,
			elapsed:     time.Since(start),
			err:         err,
		}
	}

	engineBudget := d.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < engineBudget {
			engineBudget = remaining
		}
	}
	if engineBudget <= 0 {
		deliver(nil, nil, types.NewError(types.KindEngine, "budget exhausted"))
		return
	}
	ctx, cancel := context.WithTimeout(ctx, engineBudget)
	defer cancel()

	if local, ok := e.(engines.Local); ok {
		res, err := local.Search(ctx, q)
		if err != nil {
			deliver(nil, nil, err)
			return
		}
		deliver(res.Hits, res.Suggestions, nil)
		return
	}

	rc, err := e.BuildRequest(q)
	if err != nil {
		deliver(nil, nil, err)
		return
	}
	if rc == nil {
		// Nothing to ask for this query.
		deliver(nil, nil, nil)
		return
	}

	state = taskFetching
	body, err := c.client.Do(ctx, d.Name, rc)
	if err != nil {
		deliver(nil, nil, err)
		return
	}

	state = taskParsing
	res, err := e.ParseResponse(body, q)
	if err != nil {
		deliver(nil, nil, err)
		return
	}
	deliver(res.Hits, res.Suggestions, nil)
}

// collect drains outcomes until every engine reported, the budget ran
// out, or the early-return window closed. The window opens at the first
// non-empty result and closes EarlyReturnMs later, provided MinEngines
// have reported by then.
func (c *Coordinator) collect(ctx context.Context, outcomes <-chan engineOutcome, total int) []engineOutcome {
	var (
		collected []engineOutcome
		reported  int
		gotFirst  bool
	)

	earlyReturn := time.Duration(c.cfg.EarlyReturnMs) * time.Millisecond
	// Inactive until the first result arrives.
	window := time.NewTimer(time.Hour)
	defer window.Stop()

	for reported < total {
		select {
		case o := <-outcomes:
			reported++
			collected = append(collected, o)
			if !gotFirst && o.err == nil && len(o.hits) > 0 {
				gotFirst = true
				window.Reset(earlyReturn)
			}
		case <-window.C:
			if gotFirst && c.successCount(collected) >= c.cfg.MinEngines {
				return collected
			}
			// Not enough engines yet; keep collecting.
			window.Reset(earlyReturn)
		case <-ctx.Done():
			return collected
		}
	}
	return collected
}

func (c *Coordinator) successCount(collected []engineOutcome) int {
	n := 0
	for _, o := range collected {
		if o.err == nil {
			n++
		}
	}
	return n
}

// assemble merges, filters, and paginates the collected outcomes.
func (c *Coordinator) assemble(q types.Query, collected []engineOutcome) *types.MergedResult {
	var (
		results     []engineResult
		suggestions [][]string
		diags       []types.EngineDiag
		succeeded   []string
		failed      int
	)

	for _, o := range collected {
		diag := types.EngineDiag{
			Engine:    o.engine,
			ElapsedMs: o.elapsed.Milliseconds(),
			Hits:      len(o.hits),
		}
		if o.err != nil {
			diag.Error = o.err.Error()
			failed++
		} else {
			succeeded = append(succeeded, o.engine)
			results = append(results, engineResult{engine: o.engine, weight: o.weight, hits: o.hits})
			if len(o.suggestions) > 0 {
				suggestions = append(suggestions, o.suggestions)
			}
		}
		diags = append(diags, diag)
	}

	hits := postFilter(q, mergeResults(results))

	hasMore := len(hits) > q.PerPage
	if !hasMore {
		for _, name := range succeeded {
			if e, ok := c.registry.ByName(name); ok {
				d := e.Descriptor()
				if d.SupportsPaging && q.Page < d.MaxPage && len(hits) > 0 {
					hasMore = true
					break
				}
			}
		}
	}
	if len(hits) > q.PerPage {
		hits = hits[:q.PerPage]
	}

	total := (q.Page-1)*q.PerPage + len(hits)
	if hasMore {
		// Upstreams hide their true totals; estimate ten pages ahead.
		total = q.PerPage * 10
		if floor := (q.Page-1)*q.PerPage + len(hits); floor > total {
			total = floor
		}
	}

	return &types.MergedResult{
		Query:           q,
		Results:         hits,
		TotalResults:    total,
		Engines:         succeeded,
		EnginesFailed:   failed,
		Diagnostics:     diags,
		RelatedSearches: mergeSuggestions(q.Text, suggestions...),
		PageInfo: types.PageInfo{
			Page:    q.Page,
			PerPage: q.PerPage,
			HasMore: hasMore,
		},
	}
}
