package recrawler

import (
	"context"
	"log/slog"
	"time"

	"github.com/glimpse-search/glimpse/pkg/types"
)

const (
	maxFlushRetries = 5
	flushBackoff    = 250 * time.Millisecond
	flushInterval   = 2 * time.Second
)

// batchWriter is the single stage-3 worker: it accumulates results and
// state deltas and flushes them in batches. Flush failures retry with
// exponential backoff before turning fatal.
type batchWriter struct {
	results ResultStore
	states  StateStore
	size    int
	backoff time.Duration
	stats   *Stats
	logger  *slog.Logger
}

func newBatchWriter(results ResultStore, states StateStore, size int, stats *Stats) *batchWriter {
	return &batchWriter{
		results: results,
		states:  states,
		size:    size,
		backoff: flushBackoff,
		stats:   stats,
		logger:  slog.Default().With("component", "recrawler.writer"),
	}
}

// run drains both channels until they close, then flushes the tails.
// The returned error is fatal: a batch that failed every retry.
func (w *batchWriter) run(ctx context.Context, results <-chan CrawlResult, states <-chan CrawlState) error {
	resultBatch := make([]CrawlResult, 0, w.size)
	stateBatch := make([]CrawlState, 0, w.size)

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	flushResults := func() error {
		if len(resultBatch) == 0 {
			return nil
		}
		if err := w.flushWithRetry(ctx, func(ctx context.Context) error {
			return w.results.WriteResults(ctx, resultBatch)
		}); err != nil {
			return err
		}
		w.stats.written.Add(int64(len(resultBatch)))
		resultBatch = resultBatch[:0]
		return nil
	}
	flushStates := func() error {
		if len(stateBatch) == 0 {
			return nil
		}
		if err := w.flushWithRetry(ctx, func(ctx context.Context) error {
			return w.states.WriteStates(ctx, stateBatch)
		}); err != nil {
			return err
		}
		stateBatch = stateBatch[:0]
		return nil
	}

	for results != nil || states != nil {
		select {
		case r, ok := <-results:
			if !ok {
				results = nil
				continue
			}
			resultBatch = append(resultBatch, r)
			if len(resultBatch) >= w.size {
				if err := flushResults(); err != nil {
					return err
				}
			}
		case s, ok := <-states:
			if !ok {
				states = nil
				continue
			}
			stateBatch = append(stateBatch, s)
			if len(stateBatch) >= w.size {
				if err := flushStates(); err != nil {
					return err
				}
			}
		case <-ticker.C:
			if err := flushResults(); err != nil {
				return err
			}
			if err := flushStates(); err != nil {
				return err
			}
		case <-ctx.Done():
			// Discard partial batches on cancellation.
			return ctx.Err()
		}
	}

	if err := flushResults(); err != nil {
		return err
	}
	return flushStates()
}

// flushWithRetry runs flush with exponential backoff, up to
// maxFlushRetries attempts.
func (w *batchWriter) flushWithRetry(ctx context.Context, flush func(context.Context) error) error {
	backoff := w.backoff
	var lastErr error
	for attempt := 1; attempt <= maxFlushRetries; attempt++ {
		lastErr = flush(ctx)
		if lastErr == nil {
			return nil
		}
		w.logger.Warn("batch flush failed",
			"attempt", attempt, "backoff", backoff, "error", lastErr)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
	return types.WrapError(types.KindInternal, "batch flush exhausted retries", lastErr)
}
