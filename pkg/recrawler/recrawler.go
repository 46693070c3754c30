package recrawler

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/glimpse-search/glimpse/pkg/config"
	"github.com/glimpse-search/glimpse/pkg/observability"
	"github.com/glimpse-search/glimpse/pkg/types"
)

// Recrawler drives the three-stage pipeline over one store.
type Recrawler struct {
	cfg     config.RecrawlerConfig
	store   Store
	stats   *Stats
	metrics observability.Metrics
	logger  *slog.Logger
}

// New creates a recrawler over the given store.
func New(cfg config.RecrawlerConfig, store Store) *Recrawler {
	return &Recrawler{
		cfg:     cfg,
		store:   store,
		stats:   &Stats{},
		metrics: &observability.PrometheusMetrics{},
		logger:  slog.Default().With("component", "recrawler"),
	}
}

// WithMetrics replaces the default no-op metric set.
func (r *Recrawler) WithMetrics(m observability.Metrics) *Recrawler {
	if m != nil {
		r.metrics = m
	}
	return r
}

// Stats returns the live counters.
func (r *Recrawler) Stats() Snapshot { return r.stats.Snapshot() }

// Run executes one full pass: load seeds, resolve domains, optionally
// probe, fetch, and write. It returns the final counters.
func (r *Recrawler) Run(ctx context.Context) (Snapshot, error) {
	urls, err := r.loadSeeds(ctx)
	if err != nil {
		return r.stats.Snapshot(), err
	}
	if len(urls) == 0 {
		return r.stats.Snapshot(), types.NewError(types.KindNotFound, "no seed urls to recrawl")
	}

	byDomain := groupByDomain(urls)
	r.logger.Info("recrawl starting",
		"urls", len(urls), "domains", len(byDomain), "mode", r.cfg.Mode)

	table := newDomainTable(r.cfg.DomainFailThreshold, r.cfg.MaxConnsPerDomain)
	timeout := time.Duration(r.cfg.TimeoutMs) * time.Millisecond

	logCtx, stopLog := context.WithCancel(ctx)
	defer stopLog()
	go r.stats.logLoop(logCtx, 10*time.Second, r.logger)

	// Stage 1: resolve every unique domain up front.
	r.prefetchDNS(ctx, table, byDomain, timeout)

	fetch := newFetcher(r.cfg, table, r.stats, r.metrics)

	// Optional pass 0: probe one URL per domain to weed out dead hosts
	// before spending fetch capacity on them.
	if r.cfg.TwoPass {
		r.probeDomains(ctx, fetch, table, byDomain)
	}

	// Stages 2 and 3 run concurrently over bounded channels.
	urlCh := make(chan string, 2*r.cfg.Workers)
	resultCh := make(chan CrawlResult, 2*r.cfg.Workers)
	stateCh := make(chan CrawlState, 2*r.cfg.Workers)

	writer := newBatchWriter(r.store, r.store, r.cfg.BatchSize, r.stats)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return writer.run(gctx, resultCh, stateCh)
	})
	g.Go(func() error {
		fetch.run(gctx, r.cfg.Workers, urlCh, resultCh, stateCh)
		close(resultCh)
		close(stateCh)
		return nil
	})
	g.Go(func() error {
		defer close(urlCh)
		for _, u := range interleaveDomains(byDomain) {
			select {
			case urlCh <- u:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	err = g.Wait()

	snap := r.stats.Snapshot()
	dead := countDead(table)
	r.logger.Info("recrawl finished",
		"fetched", snap.Fetched, "failed", snap.FetchFailed,
		"skipped", snap.Skipped, "written", snap.Written,
		"dead_domains", dead)
	return snap, err
}

// loadSeeds reads the seed set, dropping already-processed URLs when
// resume is on.
func (r *Recrawler) loadSeeds(ctx context.Context) ([]string, error) {
	urls, err := r.store.Seeds(ctx)
	if err != nil {
		return nil, err
	}
	if !r.cfg.Resume {
		return urls, nil
	}

	processed, err := r.store.ProcessedURLs(ctx)
	if err != nil {
		return nil, err
	}
	kept := urls[:0]
	for _, u := range urls {
		if _, done := processed[u]; !done {
			kept = append(kept, u)
		}
	}
	r.logger.Info("resume enabled",
		"seeds", len(urls), "already_processed", len(urls)-len(kept))
	return kept, nil
}

func (r *Recrawler) prefetchDNS(ctx context.Context, table *domainTable,
	byDomain map[string][]string, timeout time.Duration) {
	workers := r.cfg.DNSWorkers
	if workers > len(byDomain) {
		workers = len(byDomain)
	}

	domainCh := make(chan string, 2*workers)
	go func() {
		defer close(domainCh)
		for d := range byDomain {
			select {
			case domainCh <- d:
			case <-ctx.Done():
				return
			}
		}
	}()
	newDNSPool(table, workers, timeout, r.stats).run(ctx, domainCh)
}

// probeDomains issues one status-only request per live domain, killing
// domains that never answer.
func (r *Recrawler) probeDomains(ctx context.Context, fetch *fetcher,
	table *domainTable, byDomain map[string][]string) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)

	for domain, urls := range byDomain {
		if table.isDead(domain) || len(urls) == 0 {
			continue
		}
		probe := urls[0]
		g.Go(func() error {
			if _, err := fetch.request(gctx, domain, probe, "status"); err != nil {
				table.kill(domain, ReasonProbeUnreachable)
			}
			return nil
		})
	}
	g.Wait()
}

// groupByDomain buckets the URLs, dropping unparseable ones.
func groupByDomain(urls []string) map[string][]string {
	out := make(map[string][]string)
	for _, u := range urls {
		if d := domainOf(u); d != "" {
			out[d] = append(out[d], u)
		}
	}
	return out
}

// interleaveDomains feeds URLs round-robin across domains so the
// per-domain connection cap never serializes the tail of the run.
func interleaveDomains(byDomain map[string][]string) []string {
	total := 0
	for _, urls := range byDomain {
		total += len(urls)
	}

	out := make([]string, 0, total)
	for round := 0; len(out) < total; round++ {
		for _, urls := range byDomain {
			if round < len(urls) {
				out = append(out, urls[round])
			}
		}
	}
	return out
}

func countDead(table *domainTable) int {
	n := 0
	for _, c := range table.deadCount() {
		n += c
	}
	return n
}

// OpenStore builds the configured persistence backend.
func OpenStore(ctx context.Context, cfg config.RecrawlerConfig) (Store, error) {
	switch cfg.Store {
	case "postgres":
		return OpenPostgresStore(ctx, cfg.PostgresDSN)
	case "sqlite", "":
		return OpenSQLiteStore(cfg.SQLitePath)
	default:
		return nil, types.NewError(types.KindConfig, "unknown recrawler store "+cfg.Store)
	}
}
