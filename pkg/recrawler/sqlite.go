package recrawler

import (
	"context"
	"database/sql"

	_ "modernc.org/sqlite"

	"github.com/glimpse-search/glimpse/pkg/types"
)

// SQLiteStore is the embedded backend for seeds, results, and state.
type SQLiteStore struct {
	db *sql.DB
}

const recrawlSchema = `
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
	content_length INTEGER NOT NULL DEFAULT 0,
	elapsed_ms     INTEGER NOT NULL DEFAULT 0,
	fetched_at     TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS crawl_state (
	url         TEXT PRIMARY KEY,
	attempts    INTEGER NOT NULL DEFAULT 0,
	last_status INTEGER NOT NULL DEFAULT 0,
	last_error  TEXT NOT NULL DEFAULT '',
	updated_at  TIMESTAMP NOT NULL
);`

// OpenSQLiteStore opens (and migrates) the recrawl database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, types.WrapError(types.KindInternal, "open recrawl store", err)
	}
	if _, err := db.Exec(recrawlSchema); err != nil {
		db.Close()
		return nil, types.WrapError(types.KindInternal, "migrate recrawl store", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Seeds returns every seed URL.
func (s *SQLiteStore) Seeds(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT url FROM seeds ORDER BY url`)
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

// AddSeeds registers URLs, ignoring duplicates.
func (s *SQLiteStore) AddSeeds(ctx context.Context, urls []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.WrapError(types.KindInternal, "begin seeds tx", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO seeds (url) VALUES (?) ON CONFLICT(url) DO NOTHING`)
	if err != nil {
		return types.WrapError(types.KindInternal, "prepare seed insert", err)
	}
	defer stmt.Close()

	for _, u := range urls {
		if _, err := stmt.ExecContext(ctx, u); err != nil {
			return types.WrapError(types.KindInternal, "insert seed", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return types.WrapError(types.KindInternal, "commit seeds", err)
	}
	return nil
}

// WriteResults upserts one batch inside a transaction.
func (s *SQLiteStore) WriteResults(ctx context.Context, batch []CrawlResult) error {
	if len(batch) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.WrapError(types.KindInternal, "begin results tx", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO results (url, domain, status, title, description, language,
			content_length, elapsed_ms, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			status = excluded.status,
			title = excluded.title,
			description = excluded.description,
			language = excluded.language,
			content_length = excluded.content_length,
			elapsed_ms = excluded.elapsed_ms,
			fetched_at = excluded.fetched_at`)
	if err != nil {
		return types.WrapError(types.KindInternal, "prepare result insert", err)
	}
	defer stmt.Close()

	for _, r := range batch {
		if _, err := stmt.ExecContext(ctx, r.URL, r.Domain, r.Status, r.Title,
			r.Description, r.Language, r.ContentLength, r.ElapsedMs, r.FetchedAt); err != nil {
			return types.WrapError(types.KindInternal, "insert result", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return types.WrapError(types.KindInternal, "commit results", err)
	}
	return nil
}

// WriteStates upserts state deltas, accumulating the attempt count.
func (s *SQLiteStore) WriteStates(ctx context.Context, batch []CrawlState) error {
	if len(batch) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.WrapError(types.KindInternal, "begin states tx", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO crawl_state (url, attempts, last_status, last_error, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			attempts = crawl_state.attempts + excluded.attempts,
			last_status = excluded.last_status,
			last_error = excluded.last_error,
			updated_at = excluded.updated_at`)
	if err != nil {
		return types.WrapError(types.KindInternal, "prepare state insert", err)
	}
	defer stmt.Close()

	for _, st := range batch {
		if _, err := stmt.ExecContext(ctx, st.URL, st.Attempts, st.LastStatus,
			st.LastError, st.UpdatedAt); err != nil {
			return types.WrapError(types.KindInternal, "insert state", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return types.WrapError(types.KindInternal, "commit states", err)
	}
	return nil
}

// ProcessedURLs returns every URL with recorded state.
func (s *SQLiteStore) ProcessedURLs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT url FROM crawl_state`)
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

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
