package bangs

import (
	"database/sql"
	"errors"

	_ "modernc.org/sqlite"

	"github.com/glimpse-search/glimpse/pkg/types"
)

// SQLiteStore persists user bangs in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const bangsSchema = `
CREATE TABLE IF NOT EXISTS user_bangs (
	trigger      TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	url_template TEXT NOT NULL DEFAULT '',
	category     TEXT NOT NULL DEFAULT '',
	external     INTEGER NOT NULL DEFAULT 0
);`

// OpenSQLiteStore opens (and migrates) the user bang database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, types.WrapError(types.KindInternal, "open bang store", err)
	}
	if _, err := db.Exec(bangsSchema); err != nil {
		db.Close()
		return nil, types.WrapError(types.KindInternal, "migrate bang store", err)
	}
	return &SQLiteStore{db: db}, nil
}

// List returns all stored user bangs.
func (s *SQLiteStore) List() ([]Entry, error) {
	rows, err := s.db.Query(
		`SELECT trigger, name, url_template, category, external FROM user_bangs`)
	if err != nil {
		return nil, types.WrapError(types.KindInternal, "list bangs", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var external int
		if err := rows.Scan(&e.Trigger, &e.Name, &e.URLTemplate, &e.Category, &external); err != nil {
			return nil, types.WrapError(types.KindInternal, "scan bang", err)
		}
		e.External = external != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

// Add upserts a user bang.
func (s *SQLiteStore) Add(e Entry) error {
	external := 0
	if e.External {
		external = 1
	}
	_, err := s.db.Exec(`
		INSERT INTO user_bangs (trigger, name, url_template, category, external)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(trigger) DO UPDATE SET
			name = excluded.name,
			url_template = excluded.url_template,
			category = excluded.category,
			external = excluded.external`,
		e.Trigger, e.Name, e.URLTemplate, string(e.Category), external)
	if err != nil {
		return types.WrapError(types.KindInternal, "store bang", err)
	}
	return nil
}

// Delete removes a stored user bang. Missing triggers are not an error:
// the resolver also deletes shadowed built-ins through this path.
func (s *SQLiteStore) Delete(trigger string) error {
	_, err := s.db.Exec(`DELETE FROM user_bangs WHERE trigger = ?`, trigger)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return types.WrapError(types.KindInternal, "delete bang", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
