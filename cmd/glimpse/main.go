// Command glimpse runs the meta-search service and its maintenance
// jobs.
//
// Usage:
//
//	glimpse serve --config config.yaml
//	glimpse recrawl --config config.yaml --seeds seeds.txt
//	glimpse index --config config.yaml --docs docs.jsonl
package main

import (
	"fmt"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/glimpse-search/glimpse"
)

// CLI defines the command-line interface.
type CLI struct {
	Version VersionCmd `cmd:"" help:"Show version information."`
	Serve   ServeCmd   `cmd:"" help:"Start the search API server."`
	Recrawl RecrawlCmd `cmd:"" help:"Run one recrawl pass over the seed set."`
	Index   IndexCmd   `cmd:"" help:"Index documents into the local full-text index."`

	Config string `short:"c" help:"Path to config file." type:"path"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(glimpse.GetVersion())
	return nil
}

func main() {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("glimpse"),
		kong.Description("Privacy-respecting federated meta-search."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(&cli))
}
