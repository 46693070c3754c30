// Package cache stores merged result pages keyed by a fingerprint of
// the canonical query.
package cache

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/glimpse-search/glimpse/pkg/types"
)

// Fingerprint is a 128-bit key derived from the canonical form of a
// query. Two queries that differ only in irrelevant ways (field order,
// text casing, surrounding whitespace) share a fingerprint.
type Fingerprint struct {
	Hi uint64
	Lo uint64
}

// String renders the fingerprint as 32 hex digits.
func (f Fingerprint) String() string {
	return fmt.Sprintf("%016x%016x", f.Hi, f.Lo)
}

// Two fixed seeds so each half of the key hashes independently.
const (
	seedHi = 0x9e3779b97f4a7c15
	seedLo = 0xc2b2ae3d27d4eb4f
)

// FingerprintQuery canonicalizes q and hashes it twice with different
// seeds to form the 128-bit key.
func FingerprintQuery(q types.Query, version int) Fingerprint {
	canon := canonicalQuery(q, version)
	return Fingerprint{
		Hi: hashSeeded(seedHi, canon),
		Lo: hashSeeded(seedLo, canon),
	}
}

func hashSeeded(seed uint64, s string) uint64 {
	d := xxhash.New()
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(seed >> (8 * i))
	}
	_, _ = d.Write(buf[:])
	_, _ = d.WriteString(s)
	return d.Sum64()
}

// canonicalQuery serializes the cache-relevant query fields in a fixed
// order. The version participates so a format bump invalidates every
// existing entry.
func canonicalQuery(q types.Query, version int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "v=%d;", version)
	fmt.Fprintf(&b, "q=%s;", strings.ToLower(strings.TrimSpace(q.Text)))
	fmt.Fprintf(&b, "cat=%s;", q.Category)
	fmt.Fprintf(&b, "p=%d;pp=%d;", q.Page, q.PerPage)
	fmt.Fprintf(&b, "loc=%s;", strings.ToLower(q.Locale))
	fmt.Fprintf(&b, "ss=%d;tr=%s;", q.SafeSearch, q.TimeRange)
	if q.Verbatim {
		b.WriteString("vb=1;")
	}
	if q.SiteInclude != "" {
		fmt.Fprintf(&b, "site=%s;", q.SiteInclude)
	}
	if q.SiteExclude != "" {
		fmt.Fprintf(&b, "xsite=%s;", q.SiteExclude)
	}
	if q.FileType != "" {
		fmt.Fprintf(&b, "ft=%s;", q.FileType)
	}
	if len(q.Filters) > 0 {
		keys := make([]string, 0, len(q.Filters))
		for k := range q.Filters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "f:%s=%s;", k, q.Filters[k])
		}
	}
	return b.String()
}
