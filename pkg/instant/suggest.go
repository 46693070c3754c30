package instant

import (
	"sort"
	"strings"
	"sync"
)

// Suggester serves prefix completions from a trie over recorded
// queries. Recording is fire-and-forget from the search path, so the
// structure takes its own lock.
type Suggester struct {
	mu    sync.RWMutex
	root  *trieNode
	limit int
}

type trieNode struct {
	children map[rune]*trieNode
	// count > 0 marks a complete recorded query and how often.
	count int
}

func newTrieNode() *trieNode {
	return &trieNode{children: make(map[rune]*trieNode)}
}

// NewSuggester creates a suggester capped at limit completions.
func NewSuggester(limit int) *Suggester {
	if limit <= 0 {
		limit = 8
	}
	return &Suggester{root: newTrieNode(), limit: limit}
}

// Record adds one observation of query to the history.
func (s *Suggester) Record(query string) {
	query = normalizeSuggestion(query)
	if query == "" {
		return
	}
	s.mu.Lock()
	node := s.root
	for _, r := range query {
		child, ok := node.children[r]
		if !ok {
			child = newTrieNode()
			node.children[r] = child
		}
		node = child
	}
	node.count++
	s.mu.Unlock()
}

// suggestion pairs a completion with its observation count.
type suggestion struct {
	text  string
	count int
}

// Suggest returns up to the configured limit of recorded queries
// starting with prefix, most frequent first, excluding the prefix
// itself.
func (s *Suggester) Suggest(prefix string) []string {
	normalized := normalizeSuggestion(prefix)
	if normalized == "" {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	node := s.root
	for _, r := range normalized {
		child, ok := node.children[r]
		if !ok {
			return nil
		}
		node = child
	}

	var found []suggestion
	collect(node, normalized, &found)

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].count != found[j].count {
			return found[i].count > found[j].count
		}
		return found[i].text < found[j].text
	})

	out := make([]string, 0, s.limit)
	for _, f := range found {
		if f.text == normalized {
			continue
		}
		out = append(out, f.text)
		if len(out) == s.limit {
			break
		}
	}
	return out
}

func collect(node *trieNode, prefix string, out *[]suggestion) {
	if node.count > 0 {
		*out = append(*out, suggestion{text: prefix, count: node.count})
	}
	for r, child := range node.children {
		collect(child, prefix+string(r), out)
	}
}

func normalizeSuggestion(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
