// Package server exposes the search pipeline over HTTP: the search
// routes, suggest, bang management, instant answers, the news home
// feed, and the operational endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/glimpse-search/glimpse/pkg/config"
	"github.com/glimpse-search/glimpse/pkg/observability"
	"github.com/glimpse-search/glimpse/pkg/search"
	"github.com/glimpse-search/glimpse/pkg/types"
)

// Server serves the public API for one search service.
type Server struct {
	cfg     config.ServerConfig
	service *search.Service
	news    *search.NewsService
	metrics observability.Metrics
	logger  *slog.Logger
}

// NewServer wires the routes over the given services. news may be nil;
// the feed route then 404s.
func NewServer(cfg config.ServerConfig, service *search.Service, news *search.NewsService) *Server {
	return &Server{
		cfg:     cfg,
		service: service,
		news:    news,
		metrics: &observability.PrometheusMetrics{},
		logger:  slog.Default().With("component", "server"),
	}
}

// WithMetrics replaces the default no-op metric set.
func (s *Server) WithMetrics(m observability.Metrics) *Server {
	if m != nil {
		s.metrics = m
	}
	return s
}

// Router builds the chi route tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(metricsMiddleware(s.metrics))
	if s.cfg.RateLimit > 0 {
		r.Use(rateLimitMiddleware(s.cfg.RateLimit))
	}

	r.Get("/search", s.handleSearch(types.CategoryGeneral))
	r.Get("/search/images", s.handleSearch(types.CategoryImages))
	r.Get("/search/videos", s.handleSearch(types.CategoryVideos))
	r.Get("/search/news", s.handleSearch(types.CategoryNews))

	r.Get("/suggest", s.handleSuggest)

	r.Get("/bangs", s.handleBangList)
	r.Post("/bangs", s.handleBangAdd)
	r.Delete("/bangs", s.handleBangDelete)

	r.Get("/knowledge/{query}", s.handleKnowledge)
	r.Get("/instant/{kind}", s.handleInstant)

	r.Get("/news/home", s.handleHomeFeed)

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, types.NewError(types.KindNotFound, "no such route"))
	})
	return r
}

// Start runs the listener until ctx is cancelled, then drains with a
// ten second grace period.
func (s *Server) Start(ctx context.Context) error {
	readTimeout, _ := time.ParseDuration(s.cfg.ReadTimeout)
	writeTimeout, _ := time.ParseDuration(s.cfg.WriteTimeout)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:      s.Router(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
