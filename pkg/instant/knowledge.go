package instant

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/glimpse-search/glimpse/pkg/types"
)

// KnowledgeBase holds entity records for knowledge panels.
type KnowledgeBase struct {
	entities map[string]types.KnowledgePanel
	names    []string
}

// NewKnowledgeBase builds a base from entity records.
func NewKnowledgeBase(entities []types.KnowledgePanel) *KnowledgeBase {
	kb := &KnowledgeBase{entities: make(map[string]types.KnowledgePanel, len(entities))}
	for _, e := range entities {
		key := strings.ToLower(e.Name)
		kb.entities[key] = e
		kb.names = append(kb.names, key)
	}
	return kb
}

// LoadKnowledgeBase reads a JSON array of entity records.
func LoadKnowledgeBase(path string) (*KnowledgeBase, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, types.WrapError(types.KindInternal, "read knowledge base", err)
	}
	var entities []types.KnowledgePanel
	if err := json.Unmarshal(raw, &entities); err != nil {
		return nil, types.WrapError(types.KindInternal, "parse knowledge base", err)
	}
	return NewKnowledgeBase(entities), nil
}

// Lookup finds an entity by exact name, then by fuzzy containment in
// either direction. A miss returns (nil, false).
func (kb *KnowledgeBase) Lookup(query string) (*types.KnowledgePanel, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, false
	}

	if e, ok := kb.entities[q]; ok {
		return &e, true
	}

	// Fuzzy pass: the shortest name containing (or contained in) the
	// query wins, so "go language" finds "go".
	var best string
	for _, name := range kb.names {
		if strings.Contains(q, name) || strings.Contains(name, q) {
			if best == "" || len(name) < len(best) {
				best = name
			}
		}
	}
	if best == "" {
		return nil, false
	}
	e := kb.entities[best]
	return &e, true
}

// Len returns the number of entities.
func (kb *KnowledgeBase) Len() int { return len(kb.entities) }
