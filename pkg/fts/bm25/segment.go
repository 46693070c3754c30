// Package bm25 is the embedded full-text driver: immutable on-disk
// segments scored with BM25.
package bm25

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/golang/snappy"
	"github.com/willf/bloom"

	"github.com/glimpse-search/glimpse/pkg/fts"
	"github.com/glimpse-search/glimpse/pkg/types"
)

// Segment layout, in file order:
//
//	magic (4) | version (4) | header | postings | dictionary | docs | bloom
//
// The header records counts and the byte offsets of each section. The
// dictionary is sorted by term hash for binary search; postings are
// delta-varint encoded (docID delta, term frequency); doc metadata is
// a snappy-compressed block of stored fields.
const (
	segmentMagic   = "GLFT"
	segmentVersion = 1
)

type segmentHeader struct {
	DocCount       uint32
	TermCount      uint32
	TotalTokens    uint64
	PostingsOffset uint64
	DictOffset     uint64
	DocsOffset     uint64
	BloomOffset    uint64
}

const headerSize = 4 + 4 + 4 + 4 + 8 + 8*4

// termEntry is one dictionary row.
type termEntry struct {
	Hash          uint64
	PostingOffset uint64
	DocFrequency  uint32
}

// storedDoc is the per-document metadata kept in the docs section.
type storedDoc struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Length  uint32 `json:"length"`
}

// posting is one (doc, tf) pair.
type posting struct {
	docID uint32
	tf    uint32
}

const snippetLimit = 240

// buildSegment analyzes docs and writes an immutable segment to path.
func buildSegment(path string, docs []fts.Document, analyzer *fts.Analyzer) error {
	if len(docs) == 0 {
		return types.NewError(types.KindValidation, "segment needs at least one document")
	}

	stored := make([]storedDoc, 0, len(docs))
	postings := make(map[uint64][]posting)
	var totalTokens uint64

	for i, doc := range docs {
		tokens := analyzer.Tokens(doc.Title + " " + doc.Body)
		totalTokens += uint64(len(tokens))

		freq := make(map[uint64]uint32)
		for _, tok := range tokens {
			freq[xxhash.Sum64String(tok)]++
		}
		for hash, tf := range freq {
			postings[hash] = append(postings[hash], posting{docID: uint32(i), tf: tf})
		}

		snippet := doc.Body
		if len(snippet) > snippetLimit {
			snippet = snippet[:snippetLimit]
		}
		stored = append(stored, storedDoc{
			ID:      doc.ID,
			URL:     doc.URL,
			Title:   doc.Title,
			Snippet: snippet,
			Length:  uint32(len(tokens)),
		})
	}

	hashes := make([]uint64, 0, len(postings))
	for h := range postings {
		hashes = append(hashes, h)
	}
	sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })

	// Encode postings, recording each term's offset into the section.
	var postingsBuf []byte
	entries := make([]termEntry, 0, len(hashes))
	var scratch [binary.MaxVarintLen64]byte
	for _, h := range hashes {
		list := postings[h]
		sort.Slice(list, func(i, j int) bool { return list[i].docID < list[j].docID })

		entries = append(entries, termEntry{
			Hash:          h,
			PostingOffset: uint64(len(postingsBuf)),
			DocFrequency:  uint32(len(list)),
		})

		var prev uint32
		for _, p := range list {
			n := binary.PutUvarint(scratch[:], uint64(p.docID-prev))
			postingsBuf = append(postingsBuf, scratch[:n]...)
			n = binary.PutUvarint(scratch[:], uint64(p.tf))
			postingsBuf = append(postingsBuf, scratch[:n]...)
			prev = p.docID
		}
	}

	docsBuf, err := encodeStoredDocs(stored)
	if err != nil {
		return err
	}

	filter := bloom.NewWithEstimates(uint(len(hashes))+1, 0.01)
	var hashBytes [8]byte
	for _, h := range hashes {
		binary.LittleEndian.PutUint64(hashBytes[:], h)
		filter.Add(hashBytes[:])
	}
	var bloomBuf []byte
	{
		w := &writerBuffer{}
		if _, err := filter.WriteTo(w); err != nil {
			return types.WrapError(types.KindInternal, "encode bloom filter", err)
		}
		bloomBuf = w.data
	}

	hdr := segmentHeader{
		DocCount:       uint32(len(stored)),
		TermCount:      uint32(len(entries)),
		TotalTokens:    totalTokens,
		PostingsOffset: headerSize,
		DictOffset:     headerSize + uint64(len(postingsBuf)),
		DocsOffset:     headerSize + uint64(len(postingsBuf)) + uint64(len(entries))*20,
	}
	hdr.BloomOffset = hdr.DocsOffset + uint64(len(docsBuf))

	f, err := os.Create(path)
	if err != nil {
		return types.WrapError(types.KindInternal, "create segment", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := w.WriteString(segmentMagic); err != nil {
		return err
	}
	writeU32 := func(v uint32) { _ = binary.Write(w, binary.LittleEndian, v) }
	writeU64 := func(v uint64) { _ = binary.Write(w, binary.LittleEndian, v) }

	writeU32(segmentVersion)
	writeU32(hdr.DocCount)
	writeU32(hdr.TermCount)
	writeU64(hdr.TotalTokens)
	writeU64(hdr.PostingsOffset)
	writeU64(hdr.DictOffset)
	writeU64(hdr.DocsOffset)
	writeU64(hdr.BloomOffset)

	if _, err := w.Write(postingsBuf); err != nil {
		return err
	}
	for _, e := range entries {
		writeU64(e.Hash)
		writeU64(e.PostingOffset)
		writeU32(e.DocFrequency)
	}
	if _, err := w.Write(docsBuf); err != nil {
		return err
	}
	if _, err := w.Write(bloomBuf); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return types.WrapError(types.KindInternal, "flush segment", err)
	}
	return f.Sync()
}

type writerBuffer struct{ data []byte }

func (w *writerBuffer) Write(p []byte) (int, error) {
	w.data = append(w.data, p...)
	return len(p), nil
}

// segment is an opened, read-only segment held fully in memory.
type segment struct {
	path     string
	header   segmentHeader
	postings []byte
	dict     []termEntry
	docs     []storedDoc
	filter   *bloom.BloomFilter
	avgdl    float64
}

// openSegment reads and validates a segment file.
func openSegment(path string) (*segment, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, types.WrapError(types.KindInternal, "read segment", err)
	}
	if len(raw) < headerSize {
		return nil, types.NewError(types.KindInternal, "segment truncated: "+path)
	}
	if string(raw[:4]) != segmentMagic {
		return nil, types.NewError(types.KindInternal, "bad segment magic in "+path)
	}
	if v := binary.LittleEndian.Uint32(raw[4:8]); v != segmentVersion {
		return nil, types.NewError(types.KindInternal,
			fmt.Sprintf("unsupported segment version %d in %s", v, path))
	}

	var hdr segmentHeader
	hdr.DocCount = binary.LittleEndian.Uint32(raw[8:12])
	hdr.TermCount = binary.LittleEndian.Uint32(raw[12:16])
	hdr.TotalTokens = binary.LittleEndian.Uint64(raw[16:24])
	hdr.PostingsOffset = binary.LittleEndian.Uint64(raw[24:32])
	hdr.DictOffset = binary.LittleEndian.Uint64(raw[32:40])
	hdr.DocsOffset = binary.LittleEndian.Uint64(raw[40:48])
	hdr.BloomOffset = binary.LittleEndian.Uint64(raw[48:56])

	if hdr.BloomOffset > uint64(len(raw)) || hdr.DictOffset > hdr.DocsOffset {
		return nil, types.NewError(types.KindInternal, "corrupt segment header in "+path)
	}

	seg := &segment{
		path:     path,
		header:   hdr,
		postings: raw[hdr.PostingsOffset:hdr.DictOffset],
	}

	dictRaw := raw[hdr.DictOffset:hdr.DocsOffset]
	seg.dict = make([]termEntry, hdr.TermCount)
	var prevHash uint64
	for i := range seg.dict {
		off := i * 20
		seg.dict[i] = termEntry{
			Hash:          binary.LittleEndian.Uint64(dictRaw[off : off+8]),
			PostingOffset: binary.LittleEndian.Uint64(dictRaw[off+8 : off+16]),
			DocFrequency:  binary.LittleEndian.Uint32(dictRaw[off+16 : off+20]),
		}
		if seg.dict[i].Hash < prevHash {
			return nil, types.NewError(types.KindInternal, "unsorted dictionary in "+path)
		}
		prevHash = seg.dict[i].Hash
	}

	seg.docs, err = decodeStoredDocs(raw[hdr.DocsOffset:hdr.BloomOffset])
	if err != nil {
		return nil, err
	}
	if uint32(len(seg.docs)) != hdr.DocCount {
		return nil, types.NewError(types.KindInternal, "doc count mismatch in "+path)
	}

	seg.filter = bloom.New(1, 1)
	if _, err := seg.filter.ReadFrom(newByteReader(raw[hdr.BloomOffset:])); err != nil {
		return nil, types.WrapError(types.KindInternal, "decode bloom filter", err)
	}

	if hdr.DocCount > 0 {
		seg.avgdl = float64(hdr.TotalTokens) / float64(hdr.DocCount)
	}
	return seg, nil
}

// mayContain is the bloom-filter fast path for term presence.
func (s *segment) mayContain(hash uint64) bool {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], hash)
	return s.filter.Test(b[:])
}

// lookup binary-searches the dictionary for hash.
func (s *segment) lookup(hash uint64) (termEntry, bool) {
	i := sort.Search(len(s.dict), func(i int) bool { return s.dict[i].Hash >= hash })
	if i < len(s.dict) && s.dict[i].Hash == hash {
		return s.dict[i], true
	}
	return termEntry{}, false
}

// postingsFor decodes the posting list for entry.
func (s *segment) postingsFor(entry termEntry) ([]posting, error) {
	buf := s.postings[entry.PostingOffset:]
	out := make([]posting, 0, entry.DocFrequency)
	var prev uint32
	pos := 0
	for i := uint32(0); i < entry.DocFrequency; i++ {
		delta, n := binary.Uvarint(buf[pos:])
		if n <= 0 {
			return nil, types.NewError(types.KindInternal, "corrupt posting list in "+s.path)
		}
		pos += n
		tf, n := binary.Uvarint(buf[pos:])
		if n <= 0 {
			return nil, types.NewError(types.KindInternal, "corrupt posting list in "+s.path)
		}
		pos += n

		docID := prev + uint32(delta)
		out = append(out, posting{docID: docID, tf: uint32(tf)})
		prev = docID
	}
	return out, nil
}

func encodeStoredDocs(docs []storedDoc) ([]byte, error) {
	var buf []byte
	var scratch [binary.MaxVarintLen64]byte
	appendString := func(s string) {
		n := binary.PutUvarint(scratch[:], uint64(len(s)))
		buf = append(buf, scratch[:n]...)
		buf = append(buf, s...)
	}
	for _, d := range docs {
		appendString(d.ID)
		appendString(d.URL)
		appendString(d.Title)
		appendString(d.Snippet)
		n := binary.PutUvarint(scratch[:], uint64(d.Length))
		buf = append(buf, scratch[:n]...)
	}
	return snappy.Encode(nil, buf), nil
}

func decodeStoredDocs(raw []byte) ([]storedDoc, error) {
	buf, err := snappy.Decode(nil, raw)
	if err != nil {
		return nil, types.WrapError(types.KindInternal, "decompress stored docs", err)
	}

	var out []storedDoc
	pos := 0
	readString := func() (string, bool) {
		n, width := binary.Uvarint(buf[pos:])
		if width <= 0 || pos+width+int(n) > len(buf) {
			return "", false
		}
		pos += width
		s := string(buf[pos : pos+int(n)])
		pos += int(n)
		return s, true
	}
	for pos < len(buf) {
		var d storedDoc
		var ok bool
		if d.ID, ok = readString(); !ok {
			return nil, types.NewError(types.KindInternal, "corrupt stored docs")
		}
		if d.URL, ok = readString(); !ok {
			return nil, types.NewError(types.KindInternal, "corrupt stored docs")
		}
		if d.Title, ok = readString(); !ok {
			return nil, types.NewError(types.KindInternal, "corrupt stored docs")
		}
		if d.Snippet, ok = readString(); !ok {
			return nil, types.NewError(types.KindInternal, "corrupt stored docs")
		}
		length, width := binary.Uvarint(buf[pos:])
		if width <= 0 {
			return nil, types.NewError(types.KindInternal, "corrupt stored docs")
		}
		pos += width
		d.Length = uint32(length)
		out = append(out, d)
	}
	return out, nil
}

type byteReader struct {
	data []byte
	pos  int
}

func newByteReader(data []byte) *byteReader { return &byteReader{data: data} }

func (r *byteReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}
