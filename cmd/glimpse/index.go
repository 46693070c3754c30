package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	jsoniter "github.com/json-iterator/go"

	"github.com/glimpse-search/glimpse/pkg/fts"
	"github.com/glimpse-search/glimpse/pkg/logger"
)

// IndexCmd loads documents into the configured full-text index. The
// input is JSON lines, one document per line, with the fts.Document
// field names.
type IndexCmd struct {
	Docs  string `help:"JSONL file of documents to index." type:"path" required:""`
	Batch int    `help:"Documents per index call." default:"1000"`
}

func (c *IndexCmd) Run(cli *CLI) error {
	ctx := context.Background()

	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}

	cleanup, err := logger.Configure(cfg.Logger)
	if err != nil {
		return err
	}
	defer cleanup()

	driver, err := fts.Open(cfg.FTS)
	if err != nil {
		return fmt.Errorf("opening fts driver: %w", err)
	}
	defer driver.Close()

	indexer, ok := driver.(fts.Indexer)
	if !ok {
		return fmt.Errorf("driver %s does not support indexing", driver.Name())
	}

	f, err := os.Open(c.Docs)
	if err != nil {
		return fmt.Errorf("opening docs file: %w", err)
	}
	defer f.Close()

	var (
		decoder = jsoniter.ConfigCompatibleWithStandardLibrary
		batch   = make([]fts.Document, 0, c.Batch)
		total   int64
		line    int
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := indexer.Index(ctx, batch); err != nil {
			return fmt.Errorf("indexing batch ending at line %d: %w", line, err)
		}
		total += int64(len(batch))
		batch = batch[:0]
		return nil
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<24)
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var doc fts.Document
		if err := decoder.Unmarshal(scanner.Bytes(), &doc); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		batch = append(batch, doc)
		if len(batch) >= c.Batch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if err := flush(); err != nil {
		return err
	}
	if err := indexer.Flush(ctx); err != nil {
		return fmt.Errorf("sealing index: %w", err)
	}

	fmt.Printf("indexed %s documents\n", humanize.Comma(total))
	if sp, ok := driver.(fts.StatsProvider); ok {
		if stats, err := sp.Stats(ctx); err == nil {
			fmt.Printf("index now holds %s documents, %s terms\n",
				humanize.Comma(stats.DocCount), humanize.Comma(stats.TermCount))
		}
	}
	return nil
}
