package recrawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glimpse-search/glimpse/pkg/config"
)

func testConfig(t *testing.T) config.RecrawlerConfig {
	t.Helper()
	cfg := config.RecrawlerConfig{
		Workers:    4,
		DNSWorkers: 4,
		BatchSize:  2,
		SQLitePath: filepath.Join(t.TempDir(), "recrawl.db"),
	}
	cfg.SetDefaults()
	cfg.Workers = 4
	cfg.DNSWorkers = 4
	cfg.BatchSize = 2
	return cfg
}

func openTestStore(t *testing.T, cfg config.RecrawlerConfig) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLiteStore(cfg.SQLitePath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

const testPage = `<!DOCTYPE html>
<html lang="en"><head>
<title>Test Page</title>
<meta name="description" content="A page used in tests">
</head><body>hello</body></html>`

func crawlServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.Write([]byte(testPage))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunFullMode(t *testing.T) {
	srv := crawlServer(t)
	cfg := testConfig(t)
	cfg.Mode = "full"
	store := openTestStore(t, cfg)

	ctx := context.Background()
	seeds := []string{srv.URL + "/a", srv.URL + "/b", srv.URL + "/missing"}
	require.NoError(t, store.AddSeeds(ctx, seeds))

	snap, err := New(cfg, store).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), snap.Fetched)
	assert.Equal(t, int64(3), snap.Written)

	// Extraction reached the result store.
	var title, description, language string
	row := store.db.QueryRow(
		`SELECT title, description, language FROM results WHERE url = ?`, srv.URL+"/a")
	require.NoError(t, row.Scan(&title, &description, &language))
	assert.Equal(t, "Test Page", title)
	assert.Equal(t, "A page used in tests", description)
	assert.Equal(t, "en", language)

	// Non-2xx fetches are still results; no body extraction happens.
	row = store.db.QueryRow(`SELECT status, title FROM results WHERE url = ?`, srv.URL+"/missing")
	var status int
	require.NoError(t, row.Scan(&status, &title))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Empty(t, title)
}

func TestRunSkipsDeadDomains(t *testing.T) {
	cfg := testConfig(t)
	store := openTestStore(t, cfg)
	ctx := context.Background()

	// .invalid never resolves, so the DNS stage kills the domain and
	// its URLs are skipped with a state record.
	require.NoError(t, store.AddSeeds(ctx, []string{
		"https://nxdomain.invalid/one",
		"https://nxdomain.invalid/two",
	}))

	snap, err := New(cfg, store).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), snap.Fetched)
	assert.Equal(t, int64(2), snap.Skipped)

	processed, err := store.ProcessedURLs(ctx)
	require.NoError(t, err)
	assert.Len(t, processed, 2, "skipped urls still record state")
}

func TestRunResume(t *testing.T) {
	srv := crawlServer(t)
	cfg := testConfig(t)
	cfg.Resume = true
	store := openTestStore(t, cfg)
	ctx := context.Background()

	require.NoError(t, store.AddSeeds(ctx, []string{srv.URL + "/a", srv.URL + "/b"}))
	require.NoError(t, store.WriteStates(ctx, []CrawlState{
		{URL: srv.URL + "/a", Attempts: 1, LastStatus: 200, UpdatedAt: time.Now()},
	}))

	snap, err := New(cfg, store).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.Fetched, "already-processed url skipped")
}

func TestRunNoSeeds(t *testing.T) {
	cfg := testConfig(t)
	store := openTestStore(t, cfg)

	_, err := New(cfg, store).Run(context.Background())
	require.Error(t, err)
}

func TestDomainTableThreshold(t *testing.T) {
	table := newDomainTable(3, 8)

	assert.False(t, table.recordFailure("example.com", ReasonHTTPRefused))
	assert.False(t, table.recordFailure("example.com", ReasonHTTPRefused))
	assert.True(t, table.recordFailure("example.com", ReasonHTTPRefused))
	assert.True(t, table.isDead("example.com"))

	dead := table.deadCount()
	assert.Equal(t, 1, dead[ReasonHTTPRefused])
}

func TestDomainTableSuccessImmunity(t *testing.T) {
	table := newDomainTable(2, 8)
	table.recordSuccess("example.com")

	// Timeouts never kill a domain that has answered before.
	for i := 0; i < 5; i++ {
		assert.False(t, table.recordFailure("example.com", ReasonHTTPTimeout))
	}
	assert.False(t, table.isDead("example.com"))

	// Refused connections still count.
	table.recordFailure("example.com", ReasonHTTPRefused)
	assert.True(t, table.recordFailure("example.com", ReasonHTTPRefused))
}

func TestDomainTableSuccessResetsCounter(t *testing.T) {
	table := newDomainTable(2, 8)
	table.recordFailure("example.com", ReasonHTTPRefused)
	table.recordSuccess("example.com")
	assert.False(t, table.recordFailure("example.com", ReasonHTTPRefused))
	assert.False(t, table.isDead("example.com"))
}

func TestInterleaveDomains(t *testing.T) {
	byDomain := map[string][]string{
		"a.com": {"a1", "a2", "a3"},
		"b.com": {"b1"},
	}
	out := interleaveDomains(byDomain)
	require.Len(t, out, 4)

	// Both domains appear in the first round.
	firstTwo := map[string]bool{out[0]: true, out[1]: true}
	assert.True(t, firstTwo["a1"])
	assert.True(t, firstTwo["b1"])
}

// flakyStore fails the first N flushes.
type flakyStore struct {
	*SQLiteStore
	mu       sync.Mutex
	failures int
}

func (f *flakyStore) WriteResults(ctx context.Context, batch []CrawlResult) error {
	f.mu.Lock()
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return fmt.Errorf("transient store failure")
	}
	f.mu.Unlock()
	return f.SQLiteStore.WriteResults(ctx, batch)
}

func TestBatchWriterRetries(t *testing.T) {
	cfg := testConfig(t)
	store := &flakyStore{SQLiteStore: openTestStore(t, cfg), failures: 2}

	stats := &Stats{}
	writer := newBatchWriter(store, store.SQLiteStore, 1, stats)
	writer.backoff = time.Millisecond

	results := make(chan CrawlResult, 1)
	states := make(chan CrawlState)
	results <- CrawlResult{URL: "https://example.com/x", Domain: "example.com",
		Status: 200, FetchedAt: time.Now()}
	close(results)
	close(states)

	require.NoError(t, writer.run(context.Background(), results, states))
	assert.Equal(t, int64(1), stats.Snapshot().Written)
}

func TestBatchWriterFatalAfterRetries(t *testing.T) {
	cfg := testConfig(t)
	store := &flakyStore{SQLiteStore: openTestStore(t, cfg), failures: 100}

	writer := newBatchWriter(store, store.SQLiteStore, 1, &Stats{})
	writer.backoff = time.Millisecond
	results := make(chan CrawlResult, 1)
	states := make(chan CrawlState)
	results <- CrawlResult{URL: "https://example.com/x", Domain: "example.com",
		Status: 200, FetchedAt: time.Now()}
	close(results)
	close(states)

	err := writer.run(context.Background(), results, states)
	require.Error(t, err)
}

func TestExtractMeta(t *testing.T) {
	var result CrawlResult
	extractMeta([]byte(testPage), &result)
	assert.Equal(t, "Test Page", result.Title)
	assert.Equal(t, "A page used in tests", result.Description)
	assert.Equal(t, "en", result.Language)
}

func TestDomainOf(t *testing.T) {
	assert.Equal(t, "example.com", domainOf("https://Example.com/path?q=1"))
	assert.Equal(t, "example.com", domainOf("https://example.com:8443/x"))
	assert.Equal(t, "", domainOf("://not a url"))
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	store := openTestStore(t, cfg)
	ctx := context.Background()

	require.NoError(t, store.AddSeeds(ctx, []string{"https://a.com/1", "https://a.com/1", "https://b.com/2"}))
	seeds, err := store.Seeds(ctx)
	require.NoError(t, err)
	assert.Len(t, seeds, 2, "duplicate seeds collapse")

	now := time.Now()
	require.NoError(t, store.WriteStates(ctx, []CrawlState{
		{URL: "https://a.com/1", Attempts: 1, LastStatus: 500, UpdatedAt: now},
	}))
	require.NoError(t, store.WriteStates(ctx, []CrawlState{
		{URL: "https://a.com/1", Attempts: 1, LastStatus: 200, UpdatedAt: now},
	}))

	var attempts, lastStatus int
	row := store.db.QueryRow(`SELECT attempts, last_status FROM crawl_state WHERE url = ?`, "https://a.com/1")
	require.NoError(t, row.Scan(&attempts, &lastStatus))
	assert.Equal(t, 2, attempts, "attempts accumulate across deltas")
	assert.Equal(t, 200, lastStatus)
}
