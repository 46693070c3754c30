package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/glimpse-search/glimpse/pkg/logger"
	"github.com/glimpse-search/glimpse/pkg/recrawler"
)

// RecrawlCmd runs one recrawl pass over the stored seed set.
type RecrawlCmd struct {
	Seeds  string `help:"File of seed URLs (one per line) to add before the run." type:"path"`
	Mode   string `help:"Override the fetch mode (status, head, full)."`
	Resume bool   `help:"Skip URLs that already have crawl state."`
}

func (c *RecrawlCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}
	if c.Mode != "" {
		cfg.Recrawler.Mode = c.Mode
	}
	if c.Resume {
		cfg.Recrawler.Resume = true
	}
	if err := cfg.Recrawler.Validate(); err != nil {
		return err
	}

	cleanup, err := logger.Configure(cfg.Logger)
	if err != nil {
		return err
	}
	defer cleanup()

	store, err := recrawler.OpenStore(ctx, cfg.Recrawler)
	if err != nil {
		return fmt.Errorf("opening recrawl store: %w", err)
	}
	defer store.Close()

	if c.Seeds != "" {
		urls, err := readSeedFile(c.Seeds)
		if err != nil {
			return err
		}
		if err := store.AddSeeds(ctx, urls); err != nil {
			return fmt.Errorf("adding seeds: %w", err)
		}
		fmt.Printf("added %s seed urls\n", humanize.Comma(int64(len(urls))))
	}

	snap, err := recrawler.New(cfg.Recrawler, store).Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("fetched %s, failed %s, skipped %s, written %s\n",
		humanize.Comma(snap.Fetched), humanize.Comma(snap.FetchFailed),
		humanize.Comma(snap.Skipped), humanize.Comma(snap.Written))
	return nil
}

func readSeedFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening seed file: %w", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, scanner.Err()
}
