package recrawler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cespare/xxhash/v2"
	"github.com/temoto/robotstxt"

	"github.com/glimpse-search/glimpse/pkg/config"
	"github.com/glimpse-search/glimpse/pkg/observability"
)

// robotsRules is the per-domain robots.txt verdict. A nil group allows
// everything (missing or unparseable robots.txt).
type robotsRules struct {
	group *robotstxt.Group
}

func (r robotsRules) allows(path string) bool {
	if r.group == nil {
		return true
	}
	return r.group.Test(path)
}

const fetchBodyCap = 2 << 20 // enough for title and meta extraction

// fetcher is the stage-2 worker pool. Each request draws a transport
// from a domain-hashed shard and holds the domain's semaphore slot.
type fetcher struct {
	cfg     config.RecrawlerConfig
	table   *domainTable
	shards  []*http.Client
	stats   *Stats
	metrics observability.Metrics
}

func newFetcher(cfg config.RecrawlerConfig, table *domainTable, stats *Stats, metrics observability.Metrics) *fetcher {
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond

	shards := make([]*http.Client, cfg.TransportShards)
	for i := range shards {
		transport := &http.Transport{
			MaxIdleConns:        cfg.MaxConnsPerDomain * 4,
			MaxIdleConnsPerHost: cfg.MaxConnsPerDomain,
			MaxConnsPerHost:     cfg.MaxConnsPerDomain,
			IdleConnTimeout:     30 * time.Second,
			DialContext:         directIPDialer(table),
		}
		shards[i] = &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return errors.New("too many redirects")
				}
				return nil
			},
		}
	}
	if metrics == nil {
		metrics = &observability.PrometheusMetrics{}
	}
	return &fetcher{cfg: cfg, table: table, shards: shards, stats: stats, metrics: metrics}
}

// directIPDialer dials the cached resolved address when the DNS stage
// already has one, skipping a second lookup per connection.
func directIPDialer(table *domainTable) func(ctx context.Context, network, addr string) (net.Conn, error) {
	base := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 15 * time.Second}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err == nil {
			if ip := table.ip(host); ip != "" {
				addr = net.JoinHostPort(ip, port)
			}
		}
		return base.DialContext(ctx, network, addr)
	}
}

func (f *fetcher) client(domain string) *http.Client {
	return f.shards[xxhash.Sum64String(domain)%uint64(len(f.shards))]
}

// run consumes URLs until in is drained, delivering results and state
// deltas. Dead-domain URLs are skipped with a state record only.
func (f *fetcher) run(ctx context.Context, workers int, in <-chan string,
	results chan<- CrawlResult, states chan<- CrawlState) {
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case rawURL, ok := <-in:
					if !ok {
						return
					}
					f.fetchOne(ctx, rawURL, results, states)
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	wg.Wait()
}

func (f *fetcher) fetchOne(ctx context.Context, rawURL string,
	results chan<- CrawlResult, states chan<- CrawlState) {
	domain := domainOf(rawURL)
	if domain == "" {
		f.deliver(ctx, states, CrawlState{
			URL: rawURL, Attempts: 1, LastError: "unparseable url", UpdatedAt: time.Now(),
		})
		return
	}
	if f.table.isDead(domain) {
		f.stats.skipped.Add(1)
		f.metrics.RecordRecrawlFetch(ctx, "skipped")
		f.deliver(ctx, states, CrawlState{
			URL: rawURL, Attempts: 0, LastError: "domain dead", UpdatedAt: time.Now(),
		})
		return
	}

	entry := f.table.get(domain)
	select {
	case entry.sem <- struct{}{}:
		defer func() { <-entry.sem }()
	case <-ctx.Done():
		return
	}

	if f.cfg.RespectRobots && !f.robotsAllow(ctx, domain, rawURL) {
		f.stats.skipped.Add(1)
		f.deliver(ctx, states, CrawlState{
			URL: rawURL, Attempts: 0, LastError: "disallowed by robots.txt", UpdatedAt: time.Now(),
		})
		return
	}

	result, err := f.request(ctx, domain, rawURL, f.cfg.Mode)
	now := time.Now()
	if err != nil {
		f.stats.fetchFailed.Add(1)
		f.metrics.RecordRecrawlFetch(ctx, "failed")
		f.table.recordFailure(domain, classifyFetchError(err))
		f.deliver(ctx, states, CrawlState{
			URL: rawURL, Attempts: 1, LastError: err.Error(), UpdatedAt: now,
		})
		return
	}

	f.stats.fetched.Add(1)
	f.metrics.RecordRecrawlFetch(ctx, "ok")
	f.table.recordSuccess(domain)
	f.deliver(ctx, states, CrawlState{
		URL: rawURL, Attempts: 1, LastStatus: result.Status, UpdatedAt: now,
	})
	select {
	case results <- *result:
	case <-ctx.Done():
	}
}

func (f *fetcher) deliver(ctx context.Context, states chan<- CrawlState, st CrawlState) {
	select {
	case states <- st:
	case <-ctx.Done():
	}
}

// request issues one fetch in the given mode (status, head, full).
func (f *fetcher) request(ctx context.Context, domain, rawURL, mode string) (*CrawlResult, error) {
	method := http.MethodGet
	if mode == "head" {
		method = http.MethodHead
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	start := time.Now()
	resp, err := f.client(domain).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	result := &CrawlResult{
		URL:           rawURL,
		Domain:        domain,
		Status:        resp.StatusCode,
		ContentLength: resp.ContentLength,
		FetchedAt:     start,
	}

	if mode == "full" && resp.StatusCode < 400 {
		body, err := io.ReadAll(io.LimitReader(resp.Body, fetchBodyCap))
		if err == nil {
			extractMeta(body, result)
		}
	}
	// status and head modes drop the body unread.

	result.ElapsedMs = time.Since(start).Milliseconds()
	return result, nil
}

// robotsAllow lazily fetches robots.txt once per domain.
func (f *fetcher) robotsAllow(ctx context.Context, domain, rawURL string) bool {
	entry := f.table.get(domain)
	entry.robotsOnce.Do(func() {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			"https://"+domain+"/robots.txt", nil)
		if err != nil {
			return
		}
		req.Header.Set("User-Agent", f.cfg.UserAgent)
		resp, err := f.client(domain).Do(req)
		if err != nil {
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return
		}
		data, err := robotstxt.FromResponse(resp)
		if err != nil {
			return
		}
		entry.robots = robotsRules{group: data.FindGroup(f.cfg.UserAgent)}
	})

	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return entry.robots.allows(u.Path)
}

// extractMeta pulls title, meta description, and language out of an
// HTML body.
func extractMeta(body []byte, result *CrawlResult) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return
	}
	result.Title = strings.TrimSpace(doc.Find("title").First().Text())
	if desc, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		result.Description = strings.TrimSpace(desc)
	}
	if lang, ok := doc.Find("html").First().Attr("lang"); ok {
		result.Language = strings.ToLower(strings.TrimSpace(lang))
	}
}

func classifyFetchError(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return ReasonHTTPRefused
	case errors.Is(err, context.DeadlineExceeded),
		strings.Contains(msg, "Client.Timeout"),
		strings.Contains(msg, "deadline exceeded"):
		return ReasonHTTPTimeout
	default:
		return ReasonHTTPRefused
	}
}

func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
