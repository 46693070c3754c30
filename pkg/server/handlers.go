package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/glimpse-search/glimpse/pkg/bangs"
	"github.com/glimpse-search/glimpse/pkg/search"
	"github.com/glimpse-search/glimpse/pkg/types"
)

// filterKeys are the recognized per-category filter parameters. Unknown
// parameters are ignored rather than rejected.
var filterKeys = []string{
	"region",
	"size", "color", "type", "aspect",
	"min_width", "min_height", "max_width", "max_height",
	"duration", "quality", "cc", "source", "sort",
}

// parseQuery builds an immutable Query plus per-request options from
// the URL parameters.
func parseQuery(r *http.Request, category types.Category) (types.Query, search.Options, error) {
	params := r.URL.Query()
	opts := types.QueryOptions{Category: category}

	if v := params.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return types.Query{}, search.Options{}, types.NewError(types.KindValidation, "page must be an integer")
		}
		opts.Page = n
	}
	if v := params.Get("per_page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return types.Query{}, search.Options{}, types.NewError(types.KindValidation, "per_page must be an integer")
		}
		// Values past the cap are clamped by NewQuery, not rejected.
		opts.PerPage = n
	}

	opts.TimeRange = types.ParseTimeRange(params.Get("time"))
	opts.Locale = params.Get("lang")
	if v := params.Get("safe"); v != "" {
		opts.SafeSearch = types.ParseSafeSearch(v)
	}
	opts.SiteInclude = params.Get("site")
	opts.SiteExclude = params.Get("exclude_site")
	opts.FileType = params.Get("filetype")
	opts.Verbatim = isTrue(params.Get("verbatim"))

	for _, key := range filterKeys {
		if v := params.Get(key); v != "" {
			if opts.Filters == nil {
				opts.Filters = make(map[string]string)
			}
			opts.Filters[key] = v
		}
	}

	q, err := types.NewQuery(params.Get("q"), opts)
	if err != nil {
		return types.Query{}, search.Options{}, err
	}
	return q, search.Options{Refetch: isTrue(params.Get("refetch"))}, nil
}

func isTrue(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func (s *Server) handleSearch(category types.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, opts, err := parseQuery(r, category)
		if err != nil {
			writeError(w, err)
			return
		}
		resp, err := s.service.Search(r.Context(), q, opts)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	prefix := strings.TrimSpace(r.URL.Query().Get("q"))
	if prefix == "" {
		writeError(w, types.NewError(types.KindValidation, "q must not be empty"))
		return
	}
	suggestions := s.service.Suggest(prefix)
	if suggestions == nil {
		suggestions = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"suggestions": suggestions})
}

func (s *Server) handleBangList(w http.ResponseWriter, r *http.Request) {
	resolver := s.service.Bangs()
	if resolver == nil {
		writeError(w, types.NewError(types.KindNotFound, "bangs are not configured"))
		return
	}
	writeJSON(w, http.StatusOK, map[string][]bangs.Entry{"bangs": resolver.List()})
}

func (s *Server) handleBangAdd(w http.ResponseWriter, r *http.Request) {
	resolver := s.service.Bangs()
	if resolver == nil {
		writeError(w, types.NewError(types.KindNotFound, "bangs are not configured"))
		return
	}

	var entry bangs.Entry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeError(w, types.WrapError(types.KindValidation, "malformed bang entry", err))
		return
	}
	if err := resolver.Add(entry); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleBangDelete(w http.ResponseWriter, r *http.Request) {
	resolver := s.service.Bangs()
	if resolver == nil {
		writeError(w, types.NewError(types.KindNotFound, "bangs are not configured"))
		return
	}

	trigger := strings.TrimSpace(r.URL.Query().Get("trigger"))
	if trigger == "" {
		writeError(w, types.NewError(types.KindValidation, "trigger must not be empty"))
		return
	}
	if err := resolver.Delete(trigger); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleKnowledge(w http.ResponseWriter, r *http.Request) {
	query := chi.URLParam(r, "query")
	panel, ok := s.service.Instant().Knowledge.Lookup(query)
	if !ok {
		writeError(w, types.NewError(types.KindNotFound, "no entity for "+query))
		return
	}
	writeJSON(w, http.StatusOK, panel)
}

// handleInstant serves one answer kind directly, bypassing shape
// detection's ordering. A query that does not produce the requested
// kind is a 404, matching the widget pipeline's absent-answer behavior.
func (s *Server) handleInstant(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, types.NewError(types.KindValidation, "q must not be empty"))
		return
	}

	svc := s.service.Instant()
	if kind == "weather" {
		if svc.Weather == nil {
			writeError(w, types.NewError(types.KindNotFound, "no weather provider configured"))
			return
		}
		answer, err := svc.Weather.Current(r.Context(), q)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, answer)
		return
	}

	wanted, ok := instantKinds[kind]
	if !ok {
		writeError(w, types.NewError(types.KindNotFound, "unknown instant kind "+kind))
		return
	}
	answer := svc.Detect(q)
	if answer == nil || answer.Type != wanted {
		writeError(w, types.NewError(types.KindNotFound, "no "+kind+" answer for this query"))
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

// instantKinds maps route segments onto detector answer types.
var instantKinds = map[string]string{
	"calc":     "calculation",
	"convert":  "convert",
	"currency": "currency",
	"define":   "define",
	"time":     "time",
}

func (s *Server) handleHomeFeed(w http.ResponseWriter, r *http.Request) {
	if s.news == nil {
		writeError(w, types.NewError(types.KindNotFound, "news feed is not configured"))
		return
	}

	categories := defaultFeedCategories
	if v := r.URL.Query().Get("categories"); v != "" {
		categories = nil
		for _, raw := range strings.Split(v, ",") {
			cat := types.Category(strings.TrimSpace(raw))
			if !cat.Valid() {
				writeError(w, types.NewError(types.KindValidation, "unknown category "+string(cat)))
				return
			}
			categories = append(categories, cat)
		}
	}

	feed, err := s.news.HomeFeed(r.Context(), categories)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, feed)
}

var defaultFeedCategories = []types.Category{
	types.CategoryNews, types.CategoryIT, types.CategoryScience,
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
