package bm25

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/glimpse-search/glimpse/pkg/config"
	"github.com/glimpse-search/glimpse/pkg/fts"
	"github.com/glimpse-search/glimpse/pkg/types"
)

// BM25 free parameters. Standard Robertson values.
const (
	k1 = 1.2
	b  = 0.75
)

const defaultLimit = 20

// logOnePlus is the BM25+ style idf: ln(1 + x), always positive.
func logOnePlus(x float64) float64 { return math.Log(1 + x) }

func init() {
	fts.RegisterDriver("bm25", func(cfg config.FTSConfig) (fts.Driver, error) {
		strip := cfg.StripAccents == nil || *cfg.StripAccents
		return Open(cfg.DataDir, fts.NewAnalyzer(cfg.Language, strip))
	})
}

// Driver searches an ordered set of immutable segments under dir.
// Writes buffer in memory until Flush, which seals a new segment.
type Driver struct {
	dir      string
	analyzer *fts.Analyzer

	mu       sync.RWMutex
	segments []*segment
	pending  []fts.Document
}

// Open loads every segment under dir, creating dir if needed.
func Open(dir string, analyzer *fts.Analyzer) (*Driver, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, types.WrapError(types.KindConfig, "create index dir", err)
	}

	paths, err := filepath.Glob(filepath.Join(dir, "*.seg"))
	if err != nil {
		return nil, types.WrapError(types.KindConfig, "scan index dir", err)
	}
	sort.Strings(paths)

	d := &Driver{dir: dir, analyzer: analyzer}
	for _, p := range paths {
		seg, err := openSegment(p)
		if err != nil {
			return nil, err
		}
		d.segments = append(d.segments, seg)
	}
	return d, nil
}

// Name implements fts.Driver.
func (d *Driver) Name() string { return "bm25" }

// Close implements fts.Driver. Segments are plain memory, nothing to
// release; buffered documents not yet flushed are dropped.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.segments = nil
	d.pending = nil
	return nil
}

// Index buffers docs for the next Flush.
func (d *Driver) Index(_ context.Context, docs []fts.Document) error {
	for _, doc := range docs {
		if doc.URL == "" {
			return types.NewError(types.KindValidation, "document needs a url")
		}
	}
	d.mu.Lock()
	d.pending = append(d.pending, docs...)
	d.mu.Unlock()
	return nil
}

// Flush seals the buffered documents into a new segment. A flush with
// nothing buffered is a no-op.
func (d *Driver) Flush(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.pending) == 0 {
		return nil
	}

	path := filepath.Join(d.dir, fmt.Sprintf("%06d.seg", len(d.segments)))
	if err := buildSegment(path, d.pending, d.analyzer); err != nil {
		return err
	}
	seg, err := openSegment(path)
	if err != nil {
		return err
	}
	d.segments = append(d.segments, seg)
	d.pending = nil
	return nil
}

// Stats implements fts.StatsProvider over all sealed segments.
func (d *Driver) Stats(_ context.Context) (fts.Stats, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var s fts.Stats
	for _, seg := range d.segments {
		s.DocCount += int64(seg.header.DocCount)
		s.TermCount += int64(seg.header.TermCount)
		s.TotalTokens += int64(seg.header.TotalTokens)
	}
	return s, nil
}

// scoredDoc accumulates one document's score during search.
type scoredDoc struct {
	doc   storedDoc
	score float64
	terms int
}

// Search implements fts.Driver: BM25 over every segment, merged by
// URL keeping the highest score. Conjunctive mode keeps only documents
// matching every query term.
func (d *Driver) Search(ctx context.Context, req fts.SearchRequest) ([]fts.Match, error) {
	terms := d.analyzer.Tokens(req.Query)
	if len(terms) == 0 {
		return nil, nil
	}
	hashes := make([]uint64, 0, len(terms))
	seen := make(map[uint64]struct{}, len(terms))
	for _, t := range terms {
		h := xxhash.Sum64String(t)
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		hashes = append(hashes, h)
	}

	d.mu.RLock()
	segments := d.segments
	d.mu.RUnlock()

	byURL := make(map[string]*scoredDoc)
	for _, seg := range segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := d.scoreSegment(seg, hashes, byURL); err != nil {
			return nil, err
		}
	}

	matches := make([]fts.Match, 0, len(byURL))
	for _, sd := range byURL {
		if req.Mode == fts.ModeConjunctive && sd.terms < len(hashes) {
			continue
		}
		matches = append(matches, fts.Match{
			URL:     sd.doc.URL,
			Title:   sd.doc.Title,
			Snippet: sd.doc.Snippet,
			Score:   sd.score,
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].URL < matches[j].URL
	})

	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if req.Offset >= len(matches) {
		return nil, nil
	}
	matches = matches[req.Offset:]
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (d *Driver) scoreSegment(seg *segment, hashes []uint64, byURL map[string]*scoredDoc) error {
	n := float64(seg.header.DocCount)
	local := make(map[uint32]*scoredDoc)

	for _, h := range hashes {
		if !seg.mayContain(h) {
			continue
		}
		entry, ok := seg.lookup(h)
		if !ok {
			continue
		}
		list, err := seg.postingsFor(entry)
		if err != nil {
			return err
		}

		// Robertson-Sparck Jones idf, floored at a small positive
		// value so very common terms still contribute.
		df := float64(entry.DocFrequency)
		idf := logOnePlus((n - df + 0.5) / (df + 0.5))

		for _, p := range list {
			doc := seg.docs[p.docID]
			tf := float64(p.tf)
			dl := float64(doc.Length)
			score := idf * tf * (k1 + 1) / (tf + k1*(1-b+b*dl/seg.avgdl))

			sd := local[p.docID]
			if sd == nil {
				sd = &scoredDoc{doc: doc}
				local[p.docID] = sd
			}
			sd.score += score
			sd.terms++
		}
	}

	// Merge into the cross-segment view. Later segments win on equal
	// URL only when they score higher.
	for _, sd := range local {
		prev, ok := byURL[sd.doc.URL]
		if !ok || sd.score > prev.score {
			byURL[sd.doc.URL] = sd
		}
	}
	return nil
}
