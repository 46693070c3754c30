// Package glimpse is a privacy-respecting federated meta-search
// service.
//
// Glimpse fans a query out to a configurable set of upstream search
// engines, merges and re-ranks the results by canonical URL, and
// serves them over a small JSON API. It keeps no per-user state: no
// accounts, no query logs tied to clients, no tracking parameters in
// outgoing requests.
//
// # Quick Start
//
// Install the binary:
//
//	go install github.com/glimpse-search/glimpse/cmd/glimpse@latest
//
// Start the server with the built-in defaults:
//
//	glimpse serve
//
// Or with a config file:
//
//	glimpse serve --config config.yaml
//
// # Architecture
//
//	Client → HTTP API → search service → cache / bangs / instant
//	                                   → coordinator → engines (fan-out)
//
// Engines are in-process adapters registered at startup; the
// coordinator owns transport, timeouts, hedging, and circuit breaking.
// A local BM25 index (fed by the recrawler and the index command) can
// serve alongside the online engines.
//
// # Packages
//
//	import (
//	    "github.com/glimpse-search/glimpse/pkg/search"
//	    "github.com/glimpse-search/glimpse/pkg/engines"
//	    "github.com/glimpse-search/glimpse/pkg/metasearch"
//	)
package glimpse
