package bangs

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glimpse-search/glimpse/pkg/types"
)

func newResolver(t *testing.T) *Resolver {
	t.Helper()
	r, err := NewResolver(nil)
	require.NoError(t, err)
	return r
}

func TestResolveExternal(t *testing.T) {
	r := newResolver(t)

	t.Run("leading trigger", func(t *testing.T) {
		res := r.Resolve("!gh concurrent map")
		require.NotNil(t, res.Bang)
		assert.Equal(t, "gh", res.Bang.Trigger)
		assert.Equal(t, "concurrent map", res.Query)
		assert.Equal(t, "https://github.com/search?q=concurrent%20map", res.RedirectURL)
	})

	t.Run("trailing trigger", func(t *testing.T) {
		res := r.Resolve("concurrent map !gh")
		require.NotNil(t, res.Bang)
		assert.Equal(t, "concurrent map", res.Query)
		assert.NotEmpty(t, res.RedirectURL)
	})

	t.Run("case insensitive", func(t *testing.T) {
		res := r.Resolve("!GH stuff")
		require.NotNil(t, res.Bang)
		assert.Equal(t, "gh", res.Bang.Trigger)
	})

	t.Run("query is url encoded", func(t *testing.T) {
		res := r.Resolve("!w C++ & templates")
		require.NotNil(t, res.Bang)
		assert.Contains(t, res.RedirectURL, "C%2B%2B%20%26%20templates")
	})

	t.Run("spaces encode as percent-20", func(t *testing.T) {
		res := r.Resolve("!yt funny cats")
		require.NotNil(t, res.Bang)
		assert.Equal(t, "https://www.youtube.com/results?search_query=funny%20cats", res.RedirectURL)
	})
}

func TestResolveInternal(t *testing.T) {
	r := newResolver(t)

	res := r.Resolve("!images northern lights")
	require.NotNil(t, res.Bang)
	assert.Empty(t, res.RedirectURL)
	assert.Equal(t, types.CategoryImages, res.Category)
	assert.Equal(t, "northern lights", res.Query)
}

func TestResolveTimeFilters(t *testing.T) {
	r := newResolver(t)

	tests := map[string]types.TimeRange{
		"!day":   types.TimeRangeDay,
		"!week":  types.TimeRangeWeek,
		"!month": types.TimeRangeMonth,
		"!year":  types.TimeRangeYear,
	}
	for trigger, expected := range tests {
		res := r.Resolve(trigger + " release notes")
		assert.Nil(t, res.Bang, trigger)
		assert.Equal(t, expected, res.TimeRange, trigger)
		assert.Equal(t, "release notes", res.Query, trigger)
	}
}

func TestResolveLucky(t *testing.T) {
	r := newResolver(t)

	res := r.Resolve("!lucky golang spec")
	assert.True(t, res.Lucky)
	assert.Equal(t, "golang spec", res.Query)
	assert.Empty(t, res.RedirectURL)
}

func TestResolveMisses(t *testing.T) {
	r := newResolver(t)

	t.Run("unknown trigger returns original", func(t *testing.T) {
		res := r.Resolve("!zzzznotabang hello")
		assert.Nil(t, res.Bang)
		assert.Equal(t, "!zzzznotabang hello", res.Query)
	})

	t.Run("mid-query bang ignored", func(t *testing.T) {
		res := r.Resolve("hello !gh world")
		assert.Nil(t, res.Bang)
		assert.Equal(t, "hello !gh world", res.Query)
	})

	t.Run("bare bang is not a trigger", func(t *testing.T) {
		res := r.Resolve("! hello")
		assert.Nil(t, res.Bang)
	})

	t.Run("empty text", func(t *testing.T) {
		res := r.Resolve("")
		assert.Nil(t, res.Bang)
	})
}

func TestResolverAddDelete(t *testing.T) {
	r := newResolver(t)

	t.Run("user bang resolves", func(t *testing.T) {
		require.NoError(t, r.Add(Entry{
			Trigger:     "hn",
			Name:        "Hacker News",
			URLTemplate: "https://hn.algolia.com/?q={query}",
			External:    true,
		}))
		res := r.Resolve("!hn zig")
		require.NotNil(t, res.Bang)
		assert.Equal(t, "https://hn.algolia.com/?q=zig", res.RedirectURL)
	})

	t.Run("invalid entries rejected", func(t *testing.T) {
		assert.Error(t, r.Add(Entry{Trigger: "x!", External: true, URLTemplate: "https://x/{query}"}))
		assert.Error(t, r.Add(Entry{Trigger: "ok", External: true, URLTemplate: "https://x/no-placeholder"}))
		assert.Error(t, r.Add(Entry{Trigger: "ok", Category: "bogus"}))
	})

	t.Run("user bang shadows builtin and delete restores it", func(t *testing.T) {
		require.NoError(t, r.Add(Entry{
			Trigger:     "g",
			Name:        "Custom",
			URLTemplate: "https://custom.example/?q={query}",
			External:    true,
		}))
		assert.Contains(t, r.Resolve("!g x").RedirectURL, "custom.example")

		require.NoError(t, r.Delete("g"))
		assert.Contains(t, r.Resolve("!g x").RedirectURL, "google.com")
	})

	t.Run("delete unknown trigger errors", func(t *testing.T) {
		err := r.Delete("nosuch")
		require.Error(t, err)
		assert.Equal(t, types.KindNotFound, types.KindOf(err))
	})
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bangs.db")

	store, err := OpenSQLiteStore(path)
	require.NoError(t, err)

	entry := Entry{
		Trigger:     "hn",
		Name:        "Hacker News",
		URLTemplate: "https://hn.algolia.com/?q={query}",
		External:    true,
	}
	require.NoError(t, store.Add(entry))
	require.NoError(t, store.Add(Entry{Trigger: "sci2", Name: "Sci", Category: types.CategoryScience}))

	t.Run("list round trips", func(t *testing.T) {
		got, err := store.List()
		require.NoError(t, err)
		require.Len(t, got, 2)
	})

	t.Run("upsert overwrites", func(t *testing.T) {
		entry.Name = "HN"
		require.NoError(t, store.Add(entry))
		got, err := store.List()
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("resolver loads persisted bangs", func(t *testing.T) {
		require.NoError(t, store.Close())

		reopened, err := OpenSQLiteStore(path)
		require.NoError(t, err)
		defer reopened.Close()

		r, err := NewResolver(reopened)
		require.NoError(t, err)
		res := r.Resolve("!hn databases")
		require.NotNil(t, res.Bang)
		assert.Equal(t, "HN", res.Bang.Name)
	})
}
