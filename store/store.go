// Package store persists search runs and their leads in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/use-agent/leadscout/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS searches (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    query TEXT NOT NULL,
    total_pages INTEGER,
    total_results INTEGER,
    extracted_at TIMESTAMP
);
CREATE TABLE IF NOT EXISTS leads (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    search_id INTEGER REFERENCES searches(id),
    query TEXT NOT NULL,
    url TEXT NOT NULL,
    title TEXT,
    status TEXT,
    username TEXT,
    followers INTEGER,
    primary_phone TEXT,
    primary_confidence TEXT,
    phones_json TEXT,
    scraped_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_leads_query_url ON leads(query, url);
CREATE INDEX IF NOT EXISTS idx_leads_primary_phone ON leads(primary_phone);
`

// Store wraps the lead database.
type Store struct {
	db *sql.DB
}

// Lead is one stored row that has a primary phone.
type Lead struct {
	Query             string
	URL               string
	Username          string
	PrimaryPhone      string
	PrimaryConfidence models.Confidence
}

// Open creates or opens the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		slog.Warn("failed to set WAL mode", "error", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		slog.Warn("failed to enable foreign keys", "error", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// SaveOutput records the run and inserts its rows. Rows already stored
// for the same query and URL are left untouched. It returns the number
// of new leads.
func (s *Store) SaveOutput(ctx context.Context, out *models.SearchOutput) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO searches (query, total_pages, total_results, extracted_at) VALUES (?, ?, ?, ?)`,
		out.Query, out.TotalPages, out.TotalResults, out.ExtractedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("insert search: %w", err)
	}
	searchID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT OR IGNORE INTO leads
    (search_id, query, url, title, status, username, followers, primary_phone, primary_confidence, phones_json)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range out.Results {
		var username, primary, conf, phones string
		var followers int
		if ig := r.Instagram; ig != nil {
			username = ig.Username
			followers = ig.Followers
			primary = ig.Phones.PrimaryE164
			conf = string(ig.Phones.PrimaryConfidence)
			if len(ig.Phones.Details) > 0 {
				b, err := json.Marshal(ig.Phones.Details)
				if err != nil {
					return 0, err
				}
				phones = string(b)
			}
		}
		res, err := stmt.ExecContext(ctx,
			searchID, out.Query, r.URL, r.Title, string(r.Status),
			nullIfEmpty(username), followers, nullIfEmpty(primary), nullIfEmpty(conf), nullIfEmpty(phones),
		)
		if err != nil {
			return 0, fmt.Errorf("insert lead %s: %w", r.URL, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// Phones lists stored leads that have a primary phone, newest first.
func (s *Store) Phones(ctx context.Context) ([]Lead, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT query, url, COALESCE(username, ''), primary_phone, COALESCE(primary_confidence, '')
FROM leads
WHERE primary_phone IS NOT NULL
ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []Lead
	for rows.Next() {
		var l Lead
		var conf string
		if err := rows.Scan(&l.Query, &l.URL, &l.Username, &l.PrimaryPhone, &conf); err != nil {
			return nil, err
		}
		l.PrimaryConfidence = models.Confidence(conf)
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
