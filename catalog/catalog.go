// Package catalog caches Steam's global app catalog in a local SQLite
// database so repeated runs can skip the multi-megabyte applist download.
package catalog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one cached appid/name pair.
type Entry struct {
	AppID int
	Name  string
}

// Cache wraps a SQLite database holding the app catalog.
type Cache struct {
	conn *sql.DB
	path string
}

// Open opens or creates the catalog cache at the given path.
func Open(path string) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	c := &Cache{conn: conn, path: path}
	if err := c.migrate(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to migrate cache database: %w", err)
	}

	return c, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	return c.conn.Close()
}

func (c *Cache) migrate() error {
	if _, err := c.conn.Exec(`
		CREATE TABLE IF NOT EXISTS apps (
			appid INTEGER PRIMARY KEY,
			name TEXT NOT NULL
		)
	`); err != nil {
		return err
	}
	_, err := c.conn.Exec(`
		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`)
	return err
}

// Load returns every cached entry plus the time the catalog was fetched.
// An empty cache yields a zero time.
func (c *Cache) Load() ([]Entry, time.Time, error) {
	var fetchedAt time.Time
	var raw string
	err := c.conn.QueryRow(`SELECT value FROM meta WHERE key = 'fetched_at'`).Scan(&raw)
	switch {
	case err == sql.ErrNoRows:
		// never populated
	case err != nil:
		return nil, time.Time{}, err
	default:
		if t, perr := time.Parse(time.RFC3339, raw); perr == nil {
			fetchedAt = t
		}
	}

	rows, err := c.conn.Query(`SELECT appid, name FROM apps ORDER BY appid`)
	if err != nil {
		return nil, time.Time{}, err
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.AppID, &e.Name); err != nil {
			return nil, time.Time{}, err
		}
		entries = append(entries, e)
	}
	return entries, fetchedAt, rows.Err()
}

// Replace atomically swaps the cached catalog for the given entries and
// stamps the fetch time.
func (c *Cache) Replace(entries []Entry) error {
	tx, err := c.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM apps`); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO apps (appid, name) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range entries {
		if _, err := stmt.Exec(e.AppID, e.Name); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO meta (key, value) VALUES ('fetched_at', ?)`,
		time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return err
	}

	return tx.Commit()
}
