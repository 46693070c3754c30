package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glimpse-search/glimpse/pkg/bangs"
	"github.com/glimpse-search/glimpse/pkg/cache"
	"github.com/glimpse-search/glimpse/pkg/config"
	"github.com/glimpse-search/glimpse/pkg/instant"
	"github.com/glimpse-search/glimpse/pkg/observability"
	"github.com/glimpse-search/glimpse/pkg/search"
	"github.com/glimpse-search/glimpse/pkg/types"
)

// fakeCoordinator echoes the query back as a one-hit page and records
// the last query it saw.
type fakeCoordinator struct {
	last types.Query
	err  error
}

func (f *fakeCoordinator) Search(_ context.Context, q types.Query) (*types.MergedResult, error) {
	f.last = q
	if f.err != nil {
		return nil, f.err
	}
	return &types.MergedResult{
		Query: q,
		Results: []types.Hit{
			{URL: "https://example.com/1", Title: "One", Engine: "fake", Score: 1.0},
		},
		TotalResults: 1,
		Engines:      []string{"fake"},
		PageInfo:     types.PageInfo{Page: q.Page, PerPage: q.PerPage},
	}, nil
}

func newTestServer(t *testing.T, cfg config.ServerConfig) (*Server, *fakeCoordinator) {
	t.Helper()
	cacheCfg := config.CacheConfig{}
	cacheCfg.SetDefaults()

	coordinator := &fakeCoordinator{}
	resolver, err := bangs.NewResolver(nil)
	require.NoError(t, err)

	svc := search.NewService(coordinator, cache.NewMemoryStore(), resolver,
		instant.NewService(8), cacheCfg)
	return NewServer(cfg, svc, nil), coordinator
}

func doRequest(t *testing.T, srv *Server, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestSearchRoute(t *testing.T) {
	srv, coordinator := newTestServer(t, config.ServerConfig{})

	rec := doRequest(t, srv, http.MethodGet, "/search?q=golang", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "golang", coordinator.last.Text)
	assert.Equal(t, types.CategoryGeneral, coordinator.last.Category)
	assert.Contains(t, rec.Body.String(), "https://example.com/1")
}

func TestSearchRouteMissingQuery(t *testing.T) {
	srv, _ := newTestServer(t, config.ServerConfig{})

	rec := doRequest(t, srv, http.MethodGet, "/search", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"validation"`)
}

func TestSearchRouteParams(t *testing.T) {
	srv, coordinator := newTestServer(t, config.ServerConfig{})

	rec := doRequest(t, srv, http.MethodGet,
		"/search/videos?q=test&duration=short&page=2&per_page=5&time=week&lang=en&verbatim=true", "")
	require.Equal(t, http.StatusOK, rec.Code)

	q := coordinator.last
	assert.Equal(t, types.CategoryVideos, q.Category)
	assert.Equal(t, "short", q.Filters["duration"])
	assert.Equal(t, 2, q.Page)
	assert.Equal(t, 5, q.PerPage)
	assert.Equal(t, types.TimeRangeWeek, q.TimeRange)
	assert.Equal(t, "en", q.Locale)
	assert.True(t, q.Verbatim)
}

func TestSearchRoutePerPageCap(t *testing.T) {
	srv, coordinator := newTestServer(t, config.ServerConfig{})

	t.Run("over the cap clamps to the maximum", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/search?q=x&per_page=51", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, types.MaxPerPage, coordinator.last.PerPage)
	})

	t.Run("non-integer is rejected", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/search?q=x&per_page=lots", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSearchRouteBangRedirect(t *testing.T) {
	srv, coordinator := newTestServer(t, config.ServerConfig{})

	rec := doRequest(t, srv, http.MethodGet, "/search?q=%21yt+funny+cats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "redirect_url")
	assert.Contains(t, rec.Body.String(), "youtube.com")
	assert.Empty(t, coordinator.last.Text, "external bang never reaches the coordinator")
}

func TestSearchRouteEngineError(t *testing.T) {
	srv, coordinator := newTestServer(t, config.ServerConfig{})
	coordinator.err = types.NewError(types.KindEngine, "all engines down")

	rec := doRequest(t, srv, http.MethodGet, "/search?q=broken", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"engine_error"`)
}

func TestSuggestRoute(t *testing.T) {
	srv, _ := newTestServer(t, config.ServerConfig{})
	srv.service.Instant().Suggest.Record("golang testing")
	srv.service.Instant().Suggest.Record("golang generics")

	rec := doRequest(t, srv, http.MethodGet, "/suggest?q=golang", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "golang testing")

	rec = doRequest(t, srv, http.MethodGet, "/suggest", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBangRoutes(t *testing.T) {
	srv, _ := newTestServer(t, config.ServerConfig{})

	rec := doRequest(t, srv, http.MethodGet, "/bangs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"yt"`)

	rec = doRequest(t, srv, http.MethodPost, "/bangs",
		`{"trigger":"hn","name":"Hacker News","url_template":"https://hn.algolia.com/?q={query}","external":true}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/bangs", "")
	assert.Contains(t, rec.Body.String(), "hn.algolia.com")

	rec = doRequest(t, srv, http.MethodDelete, "/bangs?trigger=hn", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, srv, http.MethodDelete, "/bangs?trigger=doesnotexist", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/bangs", `{"trigger":"!!","external":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestKnowledgeRoute(t *testing.T) {
	srv, _ := newTestServer(t, config.ServerConfig{})
	srv.service.Instant().Knowledge = instant.NewKnowledgeBase([]types.KnowledgePanel{
		{Name: "Go", Description: "A programming language"},
	})

	rec := doRequest(t, srv, http.MethodGet, "/knowledge/Go", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "programming language")

	rec = doRequest(t, srv, http.MethodGet, "/knowledge/unknown-thing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInstantRoutes(t *testing.T) {
	srv, _ := newTestServer(t, config.ServerConfig{})

	rec := doRequest(t, srv, http.MethodGet, "/instant/calc?q=2%2B2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"type":"calculation"`)
	assert.Contains(t, rec.Body.String(), `"result":"4"`)

	rec = doRequest(t, srv, http.MethodGet, "/instant/convert?q=10+km+to+mi", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mi")

	// No dictionary loaded.
	rec = doRequest(t, srv, http.MethodGet, "/instant/define?q=define+gopher", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// No weather provider configured.
	rec = doRequest(t, srv, http.MethodGet, "/instant/weather?q=Berlin", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/instant/nope?q=x", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/instant/calc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHomeFeedRouteWithoutNews(t *testing.T) {
	srv, _ := newTestServer(t, config.ServerConfig{})

	rec := doRequest(t, srv, http.MethodGet, "/news/home", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthzRoute(t *testing.T) {
	srv, _ := newTestServer(t, config.ServerConfig{})

	rec := doRequest(t, srv, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestNotFoundEnvelope(t *testing.T) {
	srv, _ := newTestServer(t, config.ServerConfig{})

	rec := doRequest(t, srv, http.MethodGet, "/nope", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"not_found"`)
}

func TestRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, config.ServerConfig{RateLimit: 2})

	router := srv.Router()
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		last = httptest.NewRecorder()
		router.ServeHTTP(last, req)
	}
	require.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.NotEmpty(t, last.Header().Get("Retry-After"))

	// A different client is unaffected.
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsRoute(t *testing.T) {
	srv, _ := newTestServer(t, config.ServerConfig{})

	// Without a wired metric set the endpoint reports unavailable.
	rec := doRequest(t, srv, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	metrics, err := observability.InitMetrics(context.Background(), observability.MetricsConfig{Enabled: true})
	require.NoError(t, err)
	srv.WithMetrics(metrics)

	router := srv.Router()
	req := httptest.NewRequest(http.MethodGet, "/search?q=metrics", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "glimpse_http_requests")
}
