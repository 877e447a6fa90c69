package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const journalSchema = `CREATE TABLE IF NOT EXISTS exports (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	area TEXT NOT NULL,
	path TEXT NOT NULL,
	bytes INTEGER NOT NULL,
	created_at INTEGER NOT NULL
)`

// Entry is one journal row.
type Entry struct {
	ID      int64     `json:"id"`
	Name    string    `json:"name"`
	Area    Area      `json:"area"`
	Path    string    `json:"path"`
	Bytes   int       `json:"bytes"`
	Created time.Time `json:"created"`
}

// Journal records exported files in a SQLite database. It never stores the
// images themselves.
type Journal struct {
	db  *sql.DB
	now func() time.Time
}

// DefaultJournalPath is exports.db in the user cache directory.
func DefaultJournalPath() (string, error) {
	base, err := userCacheDir()
	if err != nil {
		return "", fmt.Errorf("cache dir: %w", err)
	}
	return filepath.Join(base, "memeshot", "exports.db"), nil
}

// OpenJournal opens or creates the journal at path.
func OpenJournal(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	db.SetMaxOpenConns(1)
	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		journalSchema,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init journal: %w", err)
		}
	}
	return &Journal{db: db, now: time.Now}, nil
}

// Close releases the database.
func (j *Journal) Close() error { return j.db.Close() }

// Record appends an entry for a written file.
func (j *Journal) Record(ctx context.Context, area Area, loc Location, size int) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO exports (name, area, path, bytes, created_at) VALUES (?, ?, ?, ?, ?)`,
		loc.Name(), string(area), loc.Path, size, j.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("record export: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, name, area, path, bytes, created_at FROM exports ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query exports: %w", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			area    string
			created int64
		)
		if err := rows.Scan(&e.ID, &e.Name, &area, &e.Path, &e.Bytes, &created); err != nil {
			return nil, fmt.Errorf("scan export: %w", err)
		}
		e.Area = Area(area)
		e.Created = time.UnixMilli(created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Journaled records every successful write of the wrapped Writer. Journal
// failures are logged and do not fail the write.
type Journaled struct {
	Writer  Writer
	Journal *Journal
}

// Write implements Writer.
func (w Journaled) Write(ctx context.Context, area Area, name string, data []byte) (Location, error) {
	loc, err := w.Writer.Write(ctx, area, name, data)
	if err != nil || w.Journal == nil {
		return loc, err
	}
	if jerr := w.Journal.Record(ctx, area, loc, len(data)); jerr != nil {
		log.Printf("journal: %v", jerr)
	}
	return loc, nil
}
