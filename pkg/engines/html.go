package engines

import (
	"bytes"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// htmlDocument parses a scraped page into a goquery document. Upstream
// result pages are not always UTF-8 (regional Bing and older mirrors
// still serve legacy encodings), so the charset is sniffed from the BOM
// or meta tags and the body transcoded before parsing.
func htmlDocument(body []byte) (*goquery.Document, error) {
	r, err := charset.NewReader(bytes.NewReader(body), "")
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(r)
}
