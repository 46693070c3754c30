package instant

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/glimpse-search/glimpse/pkg/types"
)

// Definition is a dictionary record.
type Definition struct {
	Word       string   `json:"word"`
	PartOf     string   `json:"part_of_speech,omitempty"`
	Definition string   `json:"definition"`
	Synonyms   []string `json:"synonyms,omitempty"`
}

// ErrWordNotFound is the distinguished miss for dictionary lookups.
var ErrWordNotFound = types.NewError(types.KindNotFound, "word not found")

// Dictionary is an in-memory word table loaded from disk.
type Dictionary struct {
	entries map[string]Definition
}

// NewDictionary builds a dictionary from entries.
func NewDictionary(entries []Definition) *Dictionary {
	m := make(map[string]Definition, len(entries))
	for _, e := range entries {
		m[strings.ToLower(e.Word)] = e
	}
	return &Dictionary{entries: m}
}

// LoadDictionary reads a JSON array of definitions.
func LoadDictionary(path string) (*Dictionary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, types.WrapError(types.KindInternal, "read dictionary", err)
	}
	var entries []Definition
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, types.WrapError(types.KindInternal, "parse dictionary", err)
	}
	return NewDictionary(entries), nil
}

// Lookup returns the definition for word or ErrWordNotFound.
func (d *Dictionary) Lookup(word string) (Definition, error) {
	e, ok := d.entries[strings.ToLower(strings.TrimSpace(word))]
	if !ok {
		return Definition{}, ErrWordNotFound
	}
	return e, nil
}

// Len returns the number of entries.
func (d *Dictionary) Len() int { return len(d.entries) }
