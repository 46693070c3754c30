// Package bangs resolves !trigger shortcuts into external redirects,
// category switches, or time filters.
package bangs

import (
	"net/url"
	"strings"
	"sync"

	"github.com/glimpse-search/glimpse/pkg/types"
)

// Entry is one bang definition. External entries carry a URL template
// with a {query} placeholder; internal entries switch the search
// category instead.
type Entry struct {
	Trigger     string         `json:"trigger"`
	Name        string         `json:"name"`
	URLTemplate string         `json:"url_template,omitempty"`
	Category    types.Category `json:"category,omitempty"`
	External    bool           `json:"external"`
}

// Validate checks the entry's structural invariants.
func (e Entry) Validate() error {
	trigger := strings.TrimSpace(e.Trigger)
	if trigger == "" || !isAlnum(trigger) {
		return types.NewError(types.KindValidation, "bang trigger must be alphanumeric")
	}
	if e.External {
		if !strings.Contains(e.URLTemplate, "{query}") {
			return types.NewError(types.KindValidation, "external bang template must contain {query}")
		}
		return nil
	}
	if !e.Category.Valid() {
		return types.NewError(types.KindValidation, "internal bang needs a valid category")
	}
	return nil
}

func isAlnum(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// Resolution is the outcome of resolving a query's bang, if any.
type Resolution struct {
	// Query is the text with the bang token removed.
	Query string

	// Bang is the matched entry, nil when no trigger matched.
	Bang *Entry

	// RedirectURL is set for external bangs; the caller stops and
	// redirects.
	RedirectURL string

	// Category is set for internal bangs.
	Category types.Category

	// TimeRange is set by time-filter triggers.
	TimeRange types.TimeRange

	// Lucky requests a single hit whose URL becomes the redirect.
	Lucky bool
}

// Time-filter triggers map straight onto the query's time range.
var timeTriggers = map[string]types.TimeRange{
	"day":   types.TimeRangeDay,
	"week":  types.TimeRangeWeek,
	"month": types.TimeRangeMonth,
	"year":  types.TimeRangeYear,
}

const luckyTrigger = "lucky"

// UserStore persists user-defined bangs across restarts.
type UserStore interface {
	List() ([]Entry, error)
	Add(e Entry) error
	Delete(trigger string) error
	Close() error
}

// Resolver matches !triggers against the built-in table plus user
// entries. User entries shadow built-ins with the same trigger.
type Resolver struct {
	mu   sync.RWMutex
	all  map[string]Entry
	user UserStore
}

// NewResolver creates a resolver seeded with the built-in table and
// any persisted user bangs. A nil store keeps user bangs in memory
// only for the process lifetime.
func NewResolver(store UserStore) (*Resolver, error) {
	r := &Resolver{all: make(map[string]Entry, len(builtinBangs)), user: store}
	for _, e := range builtinBangs {
		r.all[strings.ToLower(e.Trigger)] = e
	}
	if store != nil {
		saved, err := store.List()
		if err != nil {
			return nil, err
		}
		for _, e := range saved {
			r.all[strings.ToLower(e.Trigger)] = e
		}
	}
	return r, nil
}

// Resolve finds a leading or trailing !trigger in text. The match is
// case-insensitive; a miss returns the original text with a nil Bang.
func (r *Resolver) Resolve(text string) Resolution {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return Resolution{Query: text}
	}

	idx := -1
	if isBangToken(tokens[0]) {
		idx = 0
	} else if last := len(tokens) - 1; last > 0 && isBangToken(tokens[last]) {
		idx = last
	}
	if idx == -1 {
		return Resolution{Query: text}
	}

	trigger := strings.ToLower(tokens[idx][1:])
	rest := strings.Join(append(append([]string{}, tokens[:idx]...), tokens[idx+1:]...), " ")

	if tr, ok := timeTriggers[trigger]; ok {
		return Resolution{Query: rest, TimeRange: tr}
	}
	if trigger == luckyTrigger {
		return Resolution{Query: rest, Lucky: true}
	}

	r.mu.RLock()
	entry, ok := r.all[trigger]
	r.mu.RUnlock()
	if !ok {
		return Resolution{Query: text}
	}

	if entry.External {
		redirect := strings.ReplaceAll(entry.URLTemplate, "{query}", escapeQuery(rest))
		return Resolution{Query: rest, Bang: &entry, RedirectURL: redirect}
	}
	return Resolution{Query: rest, Bang: &entry, Category: entry.Category}
}

// List returns every known bang sorted by trigger.
func (r *Resolver) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, 0, len(r.all))
	for _, e := range r.all {
		out = append(out, e)
	}
	sortEntries(out)
	return out
}

// Add validates and registers a user bang, persisting it if a store is
// attached.
func (r *Resolver) Add(e Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	e.Trigger = strings.ToLower(strings.TrimSpace(e.Trigger))

	if r.user != nil {
		if err := r.user.Add(e); err != nil {
			return err
		}
	}
	r.mu.Lock()
	r.all[e.Trigger] = e
	r.mu.Unlock()
	return nil
}

// Delete removes a user bang. Built-in triggers cannot be removed;
// deleting a shadowing user entry restores the built-in.
func (r *Resolver) Delete(trigger string) error {
	trigger = strings.ToLower(strings.TrimSpace(trigger))

	if r.user != nil {
		if err := r.user.Delete(trigger); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if builtin, ok := builtinByTrigger(trigger); ok {
		r.all[trigger] = builtin
		return nil
	}
	if _, ok := r.all[trigger]; !ok {
		return types.NewError(types.KindNotFound, "unknown bang "+trigger)
	}
	delete(r.all, trigger)
	return nil
}

func isBangToken(tok string) bool {
	return len(tok) > 1 && tok[0] == '!' && isAlnum(tok[1:])
}

// escapeQuery percent-encodes the query text for template substitution.
// QueryEscape's form encoding writes spaces as "+", which only works in
// a query string; %20 is valid in every URL component a template may
// place {query} in.
func escapeQuery(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
