package engines

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glimpse-search/glimpse/pkg/config"
	"github.com/glimpse-search/glimpse/pkg/types"
)

type fakeEngine struct {
	Base
}

func newFakeEngine(name, shortcut string, cats ...types.Category) *fakeEngine {
	if len(cats) == 0 {
		cats = []types.Category{types.CategoryGeneral}
	}
	return &fakeEngine{Base: NewBase(Descriptor{
		Name:       name,
		Shortcut:   shortcut,
		Categories: cats,
		Enabled:    true,
	})}
}

func (f *fakeEngine) BuildRequest(q types.Query) (*RequestConfig, error) {
	return NewRequestConfig("https://example.com/?q=" + q.Text), nil
}

func (f *fakeEngine) ParseResponse(body []byte, q types.Query) (*Result, error) {
	return &Result{}, nil
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(newFakeEngine("alpha", "al")))
	require.NoError(t, r.Register(newFakeEngine("beta", "be")))

	t.Run("duplicate name rejected", func(t *testing.T) {
		err := r.Register(newFakeEngine("alpha", "xx"))
		assert.ErrorContains(t, err, "already registered")
	})

	t.Run("duplicate shortcut rejected", func(t *testing.T) {
		err := r.Register(newFakeEngine("gamma", "al"))
		assert.ErrorContains(t, err, "shortcut")
	})

	t.Run("empty name rejected", func(t *testing.T) {
		err := r.Register(newFakeEngine("", "zz"))
		assert.Error(t, err)
	})

	t.Run("shortcut length bounds", func(t *testing.T) {
		assert.Error(t, r.Register(newFakeEngine("delta", "")))
		assert.Error(t, r.Register(newFakeEngine("delta", "d")))
		assert.Error(t, r.Register(newFakeEngine("delta", "toolong")))
	})

	t.Run("frozen registry rejects registration", func(t *testing.T) {
		r.Freeze()
		err := r.Register(newFakeEngine("late", "la"))
		assert.ErrorContains(t, err, "frozen")
	})
}

func TestRegistryLookups(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newFakeEngine("web", "we", types.CategoryGeneral)))
	require.NoError(t, r.Register(newFakeEngine("vids", "vi", types.CategoryVideos)))

	disabled := newFakeEngine("off", "of", types.CategoryGeneral)
	disabled.desc.Enabled = false
	require.NoError(t, r.Register(disabled))
	r.Freeze()

	t.Run("list sorted by name", func(t *testing.T) {
		names := make([]string, 0)
		for _, e := range r.List() {
			names = append(names, e.Descriptor().Name)
		}
		assert.Equal(t, []string{"off", "vids", "web"}, names)
	})

	t.Run("by name", func(t *testing.T) {
		e, ok := r.ByName("web")
		require.True(t, ok)
		assert.Equal(t, "web", e.Descriptor().Name)

		_, ok = r.ByName("nope")
		assert.False(t, ok)
	})

	t.Run("by category skips disabled", func(t *testing.T) {
		got := r.ByCategory(types.CategoryGeneral)
		require.Len(t, got, 1)
		assert.Equal(t, "web", got[0].Descriptor().Name)
	})

	t.Run("by shortcut", func(t *testing.T) {
		e, ok := r.ByShortcut("vi")
		require.True(t, ok)
		assert.Equal(t, "vids", e.Descriptor().Name)

		_, ok = r.ByShortcut("zz")
		assert.False(t, ok)
	})

	assert.Equal(t, 3, r.Count())
}

func TestApplyOverrides(t *testing.T) {
	r := NewRegistry()
	e := newFakeEngine("web", "we")
	require.NoError(t, r.Register(e))

	off := false
	r.ApplyOverrides(config.EnginesConfig{
		"web":     {Enabled: &off, Weight: 0.5, TimeoutMs: 1500},
		"unknown": {Weight: 2.0},
	})
	r.Freeze()

	d := e.Descriptor()
	assert.False(t, d.Enabled)
	assert.Equal(t, 0.5, d.Weight)
	assert.Equal(t, 1500*time.Millisecond, d.Timeout)
}

func TestBaseDefaults(t *testing.T) {
	b := NewBase(Descriptor{Name: "x", Shortcut: "xx"})
	d := b.Descriptor()
	assert.Equal(t, 5*time.Second, d.Timeout)
	assert.Equal(t, 1.0, d.Weight)
	assert.Equal(t, 1, d.MaxPage)
}
