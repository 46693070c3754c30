package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/glimpse-search/glimpse/pkg/bangs"
	"github.com/glimpse-search/glimpse/pkg/cache"
	"github.com/glimpse-search/glimpse/pkg/config"
	"github.com/glimpse-search/glimpse/pkg/engines"
	"github.com/glimpse-search/glimpse/pkg/fts"
	"github.com/glimpse-search/glimpse/pkg/instant"
	"github.com/glimpse-search/glimpse/pkg/logger"
	"github.com/glimpse-search/glimpse/pkg/metasearch"
	"github.com/glimpse-search/glimpse/pkg/observability"
	"github.com/glimpse-search/glimpse/pkg/search"
	"github.com/glimpse-search/glimpse/pkg/server"

	// Register the shipped fts drivers.
	_ "github.com/glimpse-search/glimpse/pkg/fts/bm25"
	_ "github.com/glimpse-search/glimpse/pkg/fts/meili"
)

// ServeCmd starts the search API server.
type ServeCmd struct {
	Port      int    `help:"Override the configured listen port."`
	Watch     bool   `help:"Watch the config file and apply engine overrides on change."`
	NewsFeeds string `name:"news-feeds" help:"Comma-separated RSS feed URLs for the news home feed." placeholder:"URL,URL"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutting down")
		cancel()
	}()

	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}

	cleanup, err := logger.Configure(cfg.Logger)
	if err != nil {
		return err
	}
	defer cleanup()

	manager := observability.NewManager(cfg.Observability)
	if err := manager.Initialize(ctx); err != nil {
		return fmt.Errorf("initializing observability: %w", err)
	}
	defer manager.Shutdown(context.Background())
	metrics := manager.GetMetrics()

	store, err := cache.Open(cfg.Cache)
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	defer store.Close()

	var index fts.Driver
	if cfg.FTS.Driver != "" {
		index, err = fts.Open(cfg.FTS)
		if err != nil {
			return fmt.Errorf("opening fts driver: %w", err)
		}
		defer index.Close()
	}

	registry, err := engines.BuildRegistry(cfg.Engines, index)
	if err != nil {
		return fmt.Errorf("building engine registry: %w", err)
	}

	client, err := metasearch.NewClient(cfg.MetaSearch)
	if err != nil {
		return fmt.Errorf("building metasearch client: %w", err)
	}
	defer client.CloseIdleConnections()

	coordinator := metasearch.NewCoordinator(registry, client, cfg.MetaSearch).
		WithMetrics(metrics)

	bangStore, err := bangs.OpenSQLiteStore(filepath.Join(cfg.Instant.DataDir, "bangs.db"))
	if err != nil {
		return fmt.Errorf("opening bang store: %w", err)
	}
	defer bangStore.Close()
	resolver, err := bangs.NewResolver(bangStore)
	if err != nil {
		return fmt.Errorf("loading bangs: %w", err)
	}

	instantSvc := buildInstantService(cfg.Instant)

	svc := search.NewService(coordinator, store, resolver, instantSvc, cfg.Cache).
		WithMetrics(metrics)

	var news *search.NewsService
	if c.NewsFeeds != "" {
		news = search.NewNewsService(coordinator, strings.Split(c.NewsFeeds, ","))
	}

	if cli.Config != "" && c.Watch {
		watcher, err := config.Watch(cli.Config, func(next *config.Config) {
			registry.ApplyOverrides(next.Engines)
			slog.Info("engine overrides reloaded")
		})
		if err != nil {
			return fmt.Errorf("watching config: %w", err)
		}
		defer watcher.Close()
	}

	return server.NewServer(cfg.Server, svc, news).
		WithMetrics(metrics).
		Start(ctx)
}

// buildInstantService loads the optional data tables that exist under
// the instant data directory.
func buildInstantService(cfg config.InstantConfig) *instant.Service {
	svc := instant.NewService(cfg.SuggestLimit)

	if dict, err := instant.LoadDictionary(filepath.Join(cfg.DataDir, "dictionary.json")); err == nil {
		svc.Dict = dict
	}
	if rates, err := instant.LoadRateTable(filepath.Join(cfg.DataDir, "rates.json")); err == nil {
		svc.Rates = rates
	}
	if kb, err := instant.LoadKnowledgeBase(filepath.Join(cfg.DataDir, "knowledge.json")); err == nil {
		svc.Knowledge = kb
	}
	svc.Weather = instant.NewStaticWeather()
	return svc
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}
