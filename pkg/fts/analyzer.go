package fts

import (
	"strings"
	"sync"
	"unicode"

	ipa "github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
	"github.com/kljensen/snowball"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// snowballLangs maps primary language subtags onto snowball language
// names. Languages outside the table skip stemming.
var snowballLangs = map[string]string{
	"en": "english",
	"fr": "french",
	"es": "spanish",
	"pt": "portuguese",
	"ru": "russian",
	"sv": "swedish",
	"no": "norwegian",
	"hu": "hungarian",
}

// Analyzer normalizes text into index terms: lowercase, split on
// non-letter/digit runes, optional accent folding, then a per-language
// stemmer. Japanese goes through a morphological tokenizer instead of
// rune splitting.
type Analyzer struct {
	lang         string
	stripAccents bool

	jaOnce sync.Once
	ja     *tokenizer.Tokenizer
	jaErr  error
}

// NewAnalyzer creates an analyzer for the given primary language subtag.
func NewAnalyzer(lang string, stripAccents bool) *Analyzer {
	return &Analyzer{lang: strings.ToLower(lang), stripAccents: stripAccents}
}

var accentFolder = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Tokens analyzes text into normalized terms.
func (a *Analyzer) Tokens(text string) []string {
	if a.lang == "ja" {
		return a.tokensJapanese(text)
	}

	text = strings.ToLower(text)
	if a.stripAccents {
		if folded, _, err := transform.String(accentFolder, text); err == nil {
			text = folded
		}
	}

	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	stemLang, stem := snowballLangs[a.lang]
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if stem {
			if stemmed, err := snowball.Stem(f, stemLang, true); err == nil && stemmed != "" {
				out = append(out, stemmed)
				continue
			}
		}
		out = append(out, f)
	}
	return out
}

func (a *Analyzer) tokensJapanese(text string) []string {
	a.jaOnce.Do(func() {
		a.ja, a.jaErr = tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	})
	if a.jaErr != nil {
		// Dictionary failed to load; degrade to rune splitting.
		return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
	}

	tokens := a.ja.Tokenize(text)
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		surface := strings.TrimSpace(tok.Surface)
		if surface == "" {
			continue
		}
		out = append(out, strings.ToLower(surface))
	}
	return out
}
