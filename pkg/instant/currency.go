package instant

import (
	"encoding/json"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/glimpse-search/glimpse/pkg/types"
)

// RateTable holds exchange rates quoted against one base currency.
// A separate job refreshes the table file; we only read it.
type RateTable struct {
	mu        sync.RWMutex
	base      string
	rates     map[string]float64
	updatedAt time.Time
}

type rateFile struct {
	Base      string             `json:"base"`
	UpdatedAt time.Time          `json:"updated_at"`
	Rates     map[string]float64 `json:"rates"`
}

// NewRateTable creates a table with the given base and rates.
func NewRateTable(base string, rates map[string]float64) *RateTable {
	normalized := make(map[string]float64, len(rates)+1)
	for code, rate := range rates {
		normalized[strings.ToUpper(code)] = rate
	}
	base = strings.ToUpper(base)
	normalized[base] = 1
	return &RateTable{base: base, rates: normalized, updatedAt: time.Now()}
}

// LoadRateTable reads a rate table JSON file.
func LoadRateTable(path string) (*RateTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, types.WrapError(types.KindInternal, "read rate table", err)
	}
	var f rateFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, types.WrapError(types.KindInternal, "parse rate table", err)
	}
	t := NewRateTable(f.Base, f.Rates)
	if !f.UpdatedAt.IsZero() {
		t.updatedAt = f.UpdatedAt
	}
	return t, nil
}

// Convert computes amount × rate(from→to).
func (t *RateTable) Convert(amount float64, from, to string) (float64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	fromRate, ok := t.rates[strings.ToUpper(from)]
	if !ok {
		return 0, types.NewError(types.KindNotFound, "unknown currency "+from)
	}
	toRate, ok := t.rates[strings.ToUpper(to)]
	if !ok {
		return 0, types.NewError(types.KindNotFound, "unknown currency "+to)
	}
	// Rates are quoted against the base: amount/fromRate is in base
	// units, multiplied out to the target.
	return amount / fromRate * toRate, nil
}

// UpdatedAt reports when the table was last refreshed.
func (t *RateTable) UpdatedAt() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.updatedAt
}

// Replace swaps in a freshly loaded table.
func (t *RateTable) Replace(other *RateTable) {
	t.mu.Lock()
	t.base = other.base
	t.rates = other.rates
	t.updatedAt = other.updatedAt
	t.mu.Unlock()
}
