package engines

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/glimpse-search/glimpse/pkg/config"
	"github.com/glimpse-search/glimpse/pkg/types"
)

// Registry maps engine names to instances. Registration happens during
// process init; after Freeze the read path takes no lock.
type Registry struct {
	mu     sync.RWMutex
	items  map[string]Engine
	frozen bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{items: make(map[string]Engine)}
}

// Register adds an engine. Names and shortcuts must be unique.
func (r *Registry) Register(e Engine) error {
	d := e.Descriptor()
	if d.Name == "" {
		return fmt.Errorf("engine name cannot be empty")
	}
	if n := len(d.Shortcut); n < 2 || n > 4 {
		return fmt.Errorf("engine %q: shortcut must be 2-4 characters", d.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("registry is frozen; engines register at init only")
	}
	if _, exists := r.items[d.Name]; exists {
		return fmt.Errorf("engine %q already registered", d.Name)
	}
	for _, other := range r.items {
		if other.Descriptor().Shortcut == d.Shortcut {
			return fmt.Errorf("engine %q: shortcut %q already taken", d.Name, d.Shortcut)
		}
	}
	r.items[d.Name] = e
	return nil
}

// Freeze ends the mutation phase.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// List returns all engines sorted by name.
func (r *Registry) List() []Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Engine, 0, len(r.items))
	for _, e := range r.items {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Descriptor().Name < out[j].Descriptor().Name
	})
	return out
}

// ByName returns the engine registered under name.
func (r *Registry) ByName(name string) (Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.items[name]
	return e, ok
}

// ByCategory returns enabled engines serving cat, sorted by name.
func (r *Registry) ByCategory(cat types.Category) []Engine {
	var out []Engine
	for _, e := range r.List() {
		d := e.Descriptor()
		if d.Enabled && d.HasCategory(cat) {
			out = append(out, e)
		}
	}
	return out
}

// ByShortcut returns the engine whose bang shortcut matches sc.
func (r *Registry) ByShortcut(sc string) (Engine, bool) {
	for _, e := range r.List() {
		if e.Descriptor().Shortcut == sc {
			return e, true
		}
	}
	return nil, false
}

// Count returns the number of registered engines.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Configurable is implemented by engines whose descriptor accepts
// config overrides.
type Configurable interface {
	ApplyOverride(cfg config.EngineConfig)
}

// ApplyOverrides applies per-engine config before Freeze.
func (r *Registry) ApplyOverrides(cfg config.EnginesConfig) {
	for name, ec := range cfg {
		e, ok := r.ByName(name)
		if !ok {
			continue
		}
		if c, ok := e.(Configurable); ok {
			c.ApplyOverride(ec)
		}
	}
}

// Base carries descriptor state shared by all engine implementations
// and implements the Configurable override hook.
type Base struct {
	desc Descriptor
}

// NewBase builds the embedded descriptor holder.
func NewBase(d Descriptor) Base {
	if d.Timeout == 0 {
		d.Timeout = 5 * time.Second
	}
	if d.Weight == 0 {
		d.Weight = 1.0
	}
	if d.MaxPage == 0 {
		d.MaxPage = 1
	}
	return Base{desc: d}
}

// Descriptor returns the engine metadata.
func (b *Base) Descriptor() Descriptor { return b.desc }

// ApplyOverride applies config overrides to the descriptor.
func (b *Base) ApplyOverride(cfg config.EngineConfig) {
	if cfg.Enabled != nil {
		b.desc.Enabled = *cfg.Enabled
	}
	if cfg.Weight > 0 {
		b.desc.Weight = cfg.Weight
	}
	if cfg.TimeoutMs > 0 {
		b.desc.Timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
	}
}
