package engines

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glimpse-search/glimpse/pkg/types"
)

func mustQuery(t *testing.T, text string, opts types.QueryOptions) types.Query {
	t.Helper()
	q, err := types.NewQuery(text, opts)
	require.NoError(t, err)
	return q
}

func requestQuery(t *testing.T, rc *RequestConfig) url.Values {
	t.Helper()
	u, err := url.Parse(rc.URL)
	require.NoError(t, err)
	return u.Query()
}

func TestGoogleBuildRequest(t *testing.T) {
	g := NewGoogle()

	t.Run("basic query", func(t *testing.T) {
		q := mustQuery(t, "golang channels", types.QueryOptions{})
		rc, err := g.BuildRequest(q)
		require.NoError(t, err)

		v := requestQuery(t, rc)
		assert.Equal(t, "golang channels", v.Get("q"))
		assert.Equal(t, "0", v.Get("start"))
		assert.NotEmpty(t, rc.Headers.Get("User-Agent"))

		var names []string
		for _, c := range rc.Cookies {
			names = append(names, c.Name)
		}
		assert.Contains(t, names, "CONSENT")
	})

	t.Run("pagination offset", func(t *testing.T) {
		q := mustQuery(t, "x", types.QueryOptions{Page: 3})
		rc, err := g.BuildRequest(q)
		require.NoError(t, err)
		assert.Equal(t, "20", requestQuery(t, rc).Get("start"))
	})

	t.Run("time range and safe search", func(t *testing.T) {
		q := mustQuery(t, "x", types.QueryOptions{
			TimeRange:  types.TimeRangeWeek,
			SafeSearch: types.SafeSearchStrict,
		})
		rc, err := g.BuildRequest(q)
		require.NoError(t, err)

		v := requestQuery(t, rc)
		assert.Equal(t, "qdr:w", v.Get("tbs"))
		assert.Equal(t, "high", v.Get("safe"))
	})

	t.Run("verbatim and site operators", func(t *testing.T) {
		q := mustQuery(t, "error handling", types.QueryOptions{
			Verbatim:    true,
			SiteInclude: "go.dev",
			FileType:    "pdf",
		})
		rc, err := g.BuildRequest(q)
		require.NoError(t, err)

		text := requestQuery(t, rc).Get("q")
		assert.Contains(t, text, `"error handling"`)
		assert.Contains(t, text, "site:go.dev")
		assert.Contains(t, text, "filetype:pdf")
	})
}

func TestGoogleParseResponse(t *testing.T) {
	g := NewGoogle()
	q := mustQuery(t, "test", types.QueryOptions{})

	t.Run("organic results", func(t *testing.T) {
		body := `<html><body>
			<div class="MjjYud">
				<a href="https://example.com/one"><h3>First Result</h3></a>
				<div class="VwiC3b">First snippet text</div>
			</div>
			<div class="MjjYud">
				<a href="/url?q=https://example.org/two"><h3>Second Result</h3></a>
				<div data-sncf="1">Second snippet</div>
			</div>
			<div class="MjjYud">
				<a href="https://www.google.com/maps"><h3>Skipped</h3></a>
			</div>
			<div class="ouy7Mc"><a>related query</a></div>
		</body></html>`

		res, err := g.ParseResponse([]byte(body), q)
		require.NoError(t, err)
		require.Len(t, res.Hits, 2)

		assert.Equal(t, "https://example.com/one", res.Hits[0].URL)
		assert.Equal(t, "First Result", res.Hits[0].Title)
		assert.Equal(t, "First snippet text", res.Hits[0].Snippet)
		assert.Equal(t, "google", res.Hits[0].Engine)

		assert.Equal(t, "https://example.org/two", res.Hits[1].URL)
		assert.Equal(t, "Second snippet", res.Hits[1].Snippet)

		assert.Equal(t, []string{"related query"}, res.Suggestions)
	})

	t.Run("captcha page is an engine error", func(t *testing.T) {
		_, err := g.ParseResponse([]byte(`<a href="https://www.google.com/sorry/index">`), q)
		require.Error(t, err)
		assert.Equal(t, types.KindEngine, types.KindOf(err))
	})

	t.Run("malformed body yields empty result", func(t *testing.T) {
		res, err := g.ParseResponse([]byte("\x00\x01 not html"), q)
		require.NoError(t, err)
		assert.Empty(t, res.Hits)
	})

	t.Run("duplicate urls deduped", func(t *testing.T) {
		body := strings.Repeat(`<div class="g"><a href="https://example.com/dup"><h3>Dup</h3></a></div>`, 3)
		res, err := g.ParseResponse([]byte(body), q)
		require.NoError(t, err)
		assert.Len(t, res.Hits, 1)
	})
}

func TestBingBuildRequest(t *testing.T) {
	b := NewBing()

	q := mustQuery(t, "zig lang", types.QueryOptions{
		Page:       2,
		TimeRange:  types.TimeRangeDay,
		SafeSearch: types.SafeSearchStrict,
		Locale:     "de",
	})
	rc, err := b.BuildRequest(q)
	require.NoError(t, err)

	v := requestQuery(t, rc)
	assert.Equal(t, "zig lang", v.Get("q"))
	assert.Equal(t, "11", v.Get("first"))
	assert.Equal(t, `ex1:"ez1"`, v.Get("filters"))

	cookies := make(map[string]string)
	for _, c := range rc.Cookies {
		cookies[c.Name] = c.Value
	}
	assert.Equal(t, "ADLT=STRICT", cookies["SRCHHPGUSR"])
	assert.Equal(t, "mkt=de", cookies["_EDGE_S"])
}

func TestBingParseResponse(t *testing.T) {
	b := NewBing()
	q := mustQuery(t, "test", types.QueryOptions{})

	body := `<html><body><ol id="b_results">
		<li class="b_algo">
			<h2><a href="https://example.com/a">Alpha</a></h2>
			<div class="b_caption"><p>Alpha snippet</p></div>
		</li>
		<li class="b_algo">
			<h2><a href="javascript:void(0)">Broken</a></h2>
		</li>
		<li class="b_algo">
			<h2><a href="https://example.com/b">Beta</a></h2>
			<p>Fallback snippet</p>
		</li>
	</ol></body></html>`

	res, err := b.ParseResponse([]byte(body), q)
	require.NoError(t, err)
	require.Len(t, res.Hits, 2)
	assert.Equal(t, "Alpha snippet", res.Hits[0].Snippet)
	assert.Equal(t, "Fallback snippet", res.Hits[1].Snippet)
}

func TestDuckDuckGoBuildRequest(t *testing.T) {
	d := NewDuckDuckGo()

	t.Run("first page form", func(t *testing.T) {
		q := mustQuery(t, "privacy", types.QueryOptions{})
		rc, err := d.BuildRequest(q)
		require.NoError(t, err)

		assert.Equal(t, "POST", rc.Method)
		form, err := url.ParseQuery(string(rc.Body))
		require.NoError(t, err)
		assert.Equal(t, "privacy", form.Get("q"))
		_, hasB := form["b"]
		assert.True(t, hasB)
		_, hasS := form["s"]
		assert.False(t, hasS)
	})

	t.Run("page offsets are uneven", func(t *testing.T) {
		for page, offset := range map[int]string{2: "10", 3: "25", 4: "40"} {
			q := mustQuery(t, "privacy", types.QueryOptions{Page: page})
			rc, err := d.BuildRequest(q)
			require.NoError(t, err)

			form, err := url.ParseQuery(string(rc.Body))
			require.NoError(t, err)
			assert.Equal(t, offset, form.Get("s"), "page %d", page)
		}
	})

	t.Run("region from locale", func(t *testing.T) {
		q := mustQuery(t, "x", types.QueryOptions{Locale: "en-US"})
		rc, err := d.BuildRequest(q)
		require.NoError(t, err)

		form, err := url.ParseQuery(string(rc.Body))
		require.NoError(t, err)
		assert.Equal(t, "us-en", form.Get("kl"))
	})
}

func TestDuckDuckGoParseResponse(t *testing.T) {
	d := NewDuckDuckGo()
	q := mustQuery(t, "test", types.QueryOptions{})

	t.Run("web results with uddg redirect", func(t *testing.T) {
		body := `<div id="links">
			<div class="result web-result">
				<h2><a href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fpage">Example Page</a></h2>
				<a class="result__snippet">A snippet here</a>
			</div>
			<div class="result web-result result--ad">
				<h2><a href="https://ads.example.com">Ad Result</a></h2>
			</div>
			<div class="result web-result">
				<h2><a href="https://plain.example.org/">Plain Link</a></h2>
			</div>
		</div>`

		res, err := d.ParseResponse([]byte(body), q)
		require.NoError(t, err)
		require.Len(t, res.Hits, 2)
		assert.Equal(t, "https://example.com/page", res.Hits[0].URL)
		assert.Equal(t, "A snippet here", res.Hits[0].Snippet)
		assert.Equal(t, "https://plain.example.org/", res.Hits[1].URL)
	})

	t.Run("captcha detection", func(t *testing.T) {
		_, err := d.ParseResponse([]byte(`<form class="challenge-form">`), q)
		require.Error(t, err)
		assert.Equal(t, types.KindEngine, types.KindOf(err))
	})
}

func TestBingVideosParse(t *testing.T) {
	bv := NewBingVideos()
	q := mustQuery(t, "test", types.QueryOptions{Category: types.CategoryVideos})

	body := `<div class="dg_u">
		<div vrhm='{"purl":"https://example.com/v1","vt":"Video One","du":"3:42","thid":"https://tse.mm.bing.net/th?id=1"}'></div>
		<div vrhm='not json'></div>
	</div>`

	res, err := bv.ParseResponse([]byte(body), q)
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "https://example.com/v1", res.Hits[0].URL)
	assert.Equal(t, "Video One", res.Hits[0].Title)
	assert.Equal(t, "00:03:42", res.Hits[0].Media.Duration)
	assert.Equal(t, 222, res.Hits[0].Media.DurationSeconds)
}
