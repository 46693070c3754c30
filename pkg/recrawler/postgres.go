package recrawler

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glimpse-search/glimpse/pkg/types"
)

// PostgresStore is the server-grade backend for large recrawl runs.
type PostgresStore struct {
	pool *pgxpool.Pool
}

const pgSchema = `
CREATE TABLE IF NOT EXISTS seeds (
	url TEXT PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS results (
	url            TEXT PRIMARY KEY,
	domain         TEXT NOT NULL,
	status         INTEGER NOT NULL,
	title          TEXT NOT NULL DEFAULT '',
	description    TEXT NOT NULL DEFAULT '',
	language       TEXT NOT NULL DEFAULT '',
	content_length BIGINT NOT NULL DEFAULT 0,
	elapsed_ms     BIGINT NOT NULL DEFAULT 0,
	fetched_at     TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS crawl_state (
	url         TEXT PRIMARY KEY,
	attempts    INTEGER NOT NULL DEFAULT 0,
	last_status INTEGER NOT NULL DEFAULT 0,
	last_error  TEXT NOT NULL DEFAULT '',
	updated_at  TIMESTAMPTZ NOT NULL
);`

// OpenPostgresStore connects and migrates the recrawl tables.
func OpenPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, types.WrapError(types.KindConfig, "connect postgres", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, types.WrapError(types.KindInternal, "migrate recrawl tables", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Seeds returns every seed URL.
func (s *PostgresStore) Seeds(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT url FROM seeds ORDER BY url`)
	if err != nil {
		return nil, types.WrapError(types.KindInternal, "read seeds", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, types.WrapError(types.KindInternal, "scan seed", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// AddSeeds registers URLs in one batched round trip.
func (s *PostgresStore) AddSeeds(ctx context.Context, urls []string) error {
	batch := &pgx.Batch{}
	for _, u := range urls {
		batch.Queue(`INSERT INTO seeds (url) VALUES ($1) ON CONFLICT (url) DO NOTHING`, u)
	}
	return s.sendBatch(ctx, batch, "insert seeds")
}

// WriteResults upserts one batch in a single round trip.
func (s *PostgresStore) WriteResults(ctx context.Context, results []CrawlResult) error {
	if len(results) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range results {
		batch.Queue(`
			INSERT INTO results (url, domain, status, title, description, language,
				content_length, elapsed_ms, fetched_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (url) DO UPDATE SET
				status = EXCLUDED.status,
				title = EXCLUDED.title,
				description = EXCLUDED.description,
				language = EXCLUDED.language,
				content_length = EXCLUDED.content_length,
				elapsed_ms = EXCLUDED.elapsed_ms,
				fetched_at = EXCLUDED.fetched_at`,
			r.URL, r.Domain, r.Status, r.Title, r.Description, r.Language,
			r.ContentLength, r.ElapsedMs, r.FetchedAt)
	}
	return s.sendBatch(ctx, batch, "write results")
}

// WriteStates upserts state deltas, accumulating the attempt count.
func (s *PostgresStore) WriteStates(ctx context.Context, states []CrawlState) error {
	if len(states) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, st := range states {
		batch.Queue(`
			INSERT INTO crawl_state (url, attempts, last_status, last_error, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (url) DO UPDATE SET
				attempts = crawl_state.attempts + EXCLUDED.attempts,
				last_status = EXCLUDED.last_status,
				last_error = EXCLUDED.last_error,
				updated_at = EXCLUDED.updated_at`,
			st.URL, st.Attempts, st.LastStatus, st.LastError, st.UpdatedAt)
	}
	return s.sendBatch(ctx, batch, "write states")
}

// ProcessedURLs returns every URL with recorded state.
func (s *PostgresStore) ProcessedURLs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx, `SELECT url FROM crawl_state`)
	if err != nil {
		return nil, types.WrapError(types.KindInternal, "read processed urls", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, types.WrapError(types.KindInternal, "scan processed url", err)
		}
		out[u] = struct{}{}
	}
	return out, rows.Err()
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) sendBatch(ctx context.Context, batch *pgx.Batch, op string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return types.WrapError(types.KindInternal, op+": begin tx", err)
	}
	defer tx.Rollback(ctx)

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return types.WrapError(types.KindInternal, op, err)
		}
	}
	if err := br.Close(); err != nil {
		return types.WrapError(types.KindInternal, op+": close batch", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return types.WrapError(types.KindInternal, op+": commit", err)
	}
	return nil
}
