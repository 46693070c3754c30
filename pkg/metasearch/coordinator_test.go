package metasearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glimpse-search/glimpse/pkg/config"
	"github.com/glimpse-search/glimpse/pkg/engines"
	"github.com/glimpse-search/glimpse/pkg/types"
)

// jsonEngine is a test engine that fetches a JSON array of hits from
// its base URL.
type jsonEngine struct {
	engines.Base
	baseURL string
}

func newJSONEngine(name, shortcut, baseURL string, weight float64, timeout time.Duration) *jsonEngine {
	return &jsonEngine{
		Base: engines.NewBase(engines.Descriptor{
			Name:       name,
			Shortcut:   shortcut,
			Categories: []types.Category{types.CategoryGeneral},
			Timeout:    timeout,
			Weight:     weight,
			Enabled:    true,
		}),
		baseURL: baseURL,
	}
}

func (e *jsonEngine) BuildRequest(q types.Query) (*engines.RequestConfig, error) {
	return engines.NewRequestConfig(e.baseURL + "?q=" + q.Text), nil
}

func (e *jsonEngine) ParseResponse(body []byte, q types.Query) (*engines.Result, error) {
	var hits []types.Hit
	if err := json.Unmarshal(body, &hits); err != nil {
		return &engines.Result{}, nil
	}
	return &engines.Result{Hits: hits}, nil
}

// localFake implements engines.Local without any HTTP.
type localFake struct {
	engines.Base
	hits []types.Hit
	err  error
}

func (l *localFake) BuildRequest(q types.Query) (*engines.RequestConfig, error) { return nil, nil }
func (l *localFake) ParseResponse(b []byte, q types.Query) (*engines.Result, error) {
	return &engines.Result{}, nil
}
func (l *localFake) Search(ctx context.Context, q types.Query) (*engines.Result, error) {
	return &engines.Result{Hits: l.hits}, l.err
}

func hitsServer(t *testing.T, hits []types.Hit, delay time.Duration) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		_ = json.NewEncoder(w).Encode(hits)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func coordinatorFor(t *testing.T, cfg config.MetaSearchConfig, engs ...engines.Engine) *Coordinator {
	t.Helper()
	cfg.SetDefaults()

	r := engines.NewRegistry()
	for _, e := range engs {
		require.NoError(t, r.Register(e))
	}
	r.Freeze()

	client, err := NewClient(cfg)
	require.NoError(t, err)
	return NewCoordinator(r, client, cfg)
}

func TestCoordinatorSearchMergesEngines(t *testing.T) {
	srvA := hitsServer(t, []types.Hit{
		{URL: "https://shared.example/doc", Title: "Shared", Engine: "a"},
		{URL: "https://a.example/1", Title: "A1", Engine: "a"},
	}, 0)
	srvB := hitsServer(t, []types.Hit{
		{URL: "https://shared.example/doc/", Title: "Shared B", Engine: "b"},
	}, 0)

	co := coordinatorFor(t, config.MetaSearchConfig{MinEngines: 2},
		newJSONEngine("a", "aa", srvA.URL, 1.0, 2*time.Second),
		newJSONEngine("b", "bb", srvB.URL, 0.5, 2*time.Second),
	)

	q, err := types.NewQuery("test", types.QueryOptions{})
	require.NoError(t, err)

	page, err := co.Search(context.Background(), q)
	require.NoError(t, err)

	require.Len(t, page.Results, 2)
	assert.Equal(t, "https://shared.example/doc", page.Results[0].URL)
	assert.ElementsMatch(t, []string{"a", "b"}, page.Results[0].Engines)
	assert.ElementsMatch(t, []string{"a", "b"}, page.Engines)
	assert.Zero(t, page.EnginesFailed)
	assert.Len(t, page.Diagnostics, 2)
	assert.Equal(t, 1, page.PageInfo.Page)
}

func TestCoordinatorAllEnginesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	co := coordinatorFor(t, config.MetaSearchConfig{},
		newJSONEngine("a", "aa", srv.URL, 1.0, time.Second),
		newJSONEngine("b", "bb", srv.URL, 1.0, time.Second),
	)

	q, err := types.NewQuery("test", types.QueryOptions{})
	require.NoError(t, err)

	page, err := co.Search(context.Background(), q)
	require.NoError(t, err, "all-fail is a degraded success, not an error")
	assert.Empty(t, page.Results)
	assert.Equal(t, 2, page.EnginesFailed)
	assert.Empty(t, page.Engines)
	for _, d := range page.Diagnostics {
		assert.NotEmpty(t, d.Error)
	}
}

func TestCoordinatorNoEnginesForCategory(t *testing.T) {
	co := coordinatorFor(t, config.MetaSearchConfig{})

	q, err := types.NewQuery("test", types.QueryOptions{Category: types.CategoryMaps})
	require.NoError(t, err)

	_, err = co.Search(context.Background(), q)
	require.Error(t, err)
	assert.Equal(t, types.KindNotFound, types.KindOf(err))
}

func TestCoordinatorPagingEligibility(t *testing.T) {
	srv := hitsServer(t, []types.Hit{{URL: "https://x.example/1", Title: "X"}}, 0)

	nopaging := newJSONEngine("nopage", "np", srv.URL, 1.0, time.Second)
	co := coordinatorFor(t, config.MetaSearchConfig{}, nopaging)

	q, err := types.NewQuery("test", types.QueryOptions{Page: 2})
	require.NoError(t, err)

	_, err = co.Search(context.Background(), q)
	require.Error(t, err, "engine without paging cannot serve page 2")
	assert.Equal(t, types.KindNotFound, types.KindOf(err))
}

func TestCoordinatorEarlyReturn(t *testing.T) {
	fastA := hitsServer(t, []types.Hit{{URL: "https://fast.example/a", Title: "FA"}}, 0)
	fastB := hitsServer(t, []types.Hit{{URL: "https://fast.example/b", Title: "FB"}}, 0)
	slow := hitsServer(t, []types.Hit{{URL: "https://slow.example/1", Title: "S"}}, 3*time.Second)

	co := coordinatorFor(t, config.MetaSearchConfig{
		RequestBudgetMs: 10000,
		EarlyReturnMs:   200,
		MinEngines:      2,
	},
		newJSONEngine("fasta", "fa", fastA.URL, 1.0, 5*time.Second),
		newJSONEngine("fastb", "fb", fastB.URL, 1.0, 5*time.Second),
		newJSONEngine("slow", "sl", slow.URL, 1.0, 5*time.Second),
	)

	q, err := types.NewQuery("test", types.QueryOptions{})
	require.NoError(t, err)

	start := time.Now()
	page, err := co.Search(context.Background(), q)
	elapsed := time.Since(start)
	require.NoError(t, err)

	assert.Less(t, elapsed, 2*time.Second, "should return before the slow engine")
	assert.Len(t, page.Results, 2)
	assert.NotContains(t, page.Engines, "slow")
}

func TestCoordinatorLocalEngine(t *testing.T) {
	local := &localFake{
		Base: engines.NewBase(engines.Descriptor{
			Name:       "local",
			Shortcut:   "lo",
			Categories: []types.Category{types.CategoryGeneral},
			Enabled:    true,
			Weight:     1.5,
		}),
		hits: []types.Hit{{URL: "https://indexed.example/doc", Title: "Indexed"}},
	}

	co := coordinatorFor(t, config.MetaSearchConfig{}, local)

	q, err := types.NewQuery("test", types.QueryOptions{})
	require.NoError(t, err)

	page, err := co.Search(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "https://indexed.example/doc", page.Results[0].URL)
}

func TestCoordinatorBudgetExceeded(t *testing.T) {
	slow := hitsServer(t, []types.Hit{{URL: "https://slow.example/1", Title: "S"}}, 2*time.Second)

	co := coordinatorFor(t, config.MetaSearchConfig{RequestBudgetMs: 300},
		newJSONEngine("slow", "sl", slow.URL, 1.0, 5*time.Second))

	q, err := types.NewQuery("test", types.QueryOptions{})
	require.NoError(t, err)

	page, err := co.Search(context.Background(), q)
	require.NoError(t, err)
	assert.Empty(t, page.Results)
}

func TestClientRateLimitStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	cfg := config.MetaSearchConfig{}
	cfg.SetDefaults()
	client, err := NewClient(cfg)
	require.NoError(t, err)

	_, err = client.Do(context.Background(), "e", engines.NewRequestConfig(srv.URL))
	require.Error(t, err)
	assert.Equal(t, types.KindRateLimited, types.KindOf(err))
}

func TestClientCircuitBreakerOpens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	cfg := config.MetaSearchConfig{BreakerFailures: 2}
	cfg.SetDefaults()
	client, err := NewClient(cfg)
	require.NoError(t, err)

	rc := engines.NewRequestConfig(srv.URL)
	for i := 0; i < 2; i++ {
		_, err := client.Do(context.Background(), "flaky", rc)
		require.Error(t, err)
	}

	// Third call should trip the open breaker without hitting the server.
	_, err = client.Do(context.Background(), "flaky", rc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit open")
}
