package engines

import (
	"net/url"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/glimpse-search/glimpse/pkg/types"
)

// Jina queries the s.jina.ai reader search endpoint, which returns
// web results with extracted page content as JSON.
type Jina struct {
	Base
	apiKey string
}

// NewJina creates the Jina engine. The API key is optional; without it
// the endpoint serves a lower rate limit.
func NewJina(apiKey string) *Jina {
	return &Jina{
		Base: NewBase(Descriptor{
			Name:           "jina",
			Shortcut:       "ji",
			Categories:     []types.Category{types.CategoryGeneral},
			SupportsPaging: false,
			MaxPage:        1,
			Timeout:        15 * time.Second,
			Weight:         0.8,
			Enabled:        false,
		}),
		apiKey: apiKey,
	}
}

// BuildRequest asks the reader for JSON output.
func (e *Jina) BuildRequest(q types.Query) (*RequestConfig, error) {
	if q.Page > 1 {
		return nil, nil
	}
	rc := NewRequestConfig("https://s.jina.ai/?q=" + url.QueryEscape(q.Text))
	rc.Headers.Set("Accept", "application/json")
	rc.Headers.Set("X-Respond-With", "no-content")
	if e.apiKey != "" {
		rc.Headers.Set("Authorization", "Bearer "+e.apiKey)
	}
	return rc, nil
}

type jinaResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Content     string `json:"content"`
}

type jinaResponse struct {
	Code int          `json:"code"`
	Data []jinaResult `json:"data"`
}

// ParseResponse maps reader records onto hits.
func (e *Jina) ParseResponse(body []byte, q types.Query) (*Result, error) {
	var data jinaResponse
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(body, &data); err != nil {
		return &Result{}, nil
	}

	res := &Result{}
	for _, item := range data.Data {
		if item.URL == "" || item.Title == "" || !absoluteHTTPURL(item.URL) {
			continue
		}
		snippet := item.Description
		if snippet == "" {
			snippet = item.Content
		}
		const maxSnippet = 300
		if len(snippet) > maxSnippet {
			snippet = snippet[:maxSnippet]
		}
		res.Hits = append(res.Hits, types.Hit{
			URL:      item.URL,
			Title:    item.Title,
			Snippet:  cleanText(snippet),
			Engine:   "jina",
			Category: types.CategoryGeneral,
		})
	}
	return res, nil
}
