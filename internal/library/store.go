// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package library archives ranked search results in a local SQLite
// database and answers full-text queries over the archive. It is a
// consumer of the engine's output; the engine itself never touches it.
// Implements: prd005-library (R1-R4);
//
//	docs/ARCHITECTURE § Library.
package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/bioscout/pkg/types"
)

const dbFile = "library.db"

// Store manages the article archive database.
type Store struct {
	db         *sql.DB
	maxResults int
}

// NewStore opens or creates the archive at cfg.Dir/library.db,
// creating the schema if it does not exist (R1.1, R1.2).
func NewStore(cfg types.LibraryConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating library directory: %w", err)
	}

	dbPath := filepath.Join(cfg.Dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{db: db, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS articles (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL,
			external_id TEXT NOT NULL,
			title TEXT NOT NULL,
			authors TEXT,
			date TEXT,
			abstract TEXT,
			url TEXT,
			matched_keywords TEXT,
			match_count INTEGER,
			archived_at TEXT,
			UNIQUE(source, external_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_date ON articles(date)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='articles_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE articles_fts USING fts5(title, abstract, content=articles, content_rowid=rowid)`,
			`CREATE TRIGGER articles_ai AFTER INSERT ON articles BEGIN
				INSERT INTO articles_fts(rowid, title, abstract) VALUES (new.rowid, new.title, new.abstract);
			END`,
			`CREATE TRIGGER articles_ad AFTER DELETE ON articles BEGIN
				INSERT INTO articles_fts(articles_fts, rowid, title, abstract) VALUES('delete', old.rowid, old.title, old.abstract);
			END`,
			`CREATE TRIGGER articles_au AFTER UPDATE ON articles BEGIN
				INSERT INTO articles_fts(articles_fts, rowid, title, abstract) VALUES('delete', old.rowid, old.title, old.abstract);
				INSERT INTO articles_fts(rowid, title, abstract) VALUES (new.rowid, new.title, new.abstract);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// SaveResult archives every record of a ranked result, upserting on
// the (source, external_id) key (R2.1, R2.2). It returns how many rows
// were written.
func (s *Store) SaveResult(ctx context.Context, result types.RankedResult) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	archivedAt := time.Now().UTC().Format(time.RFC3339)
	saved := 0
	for _, rec := range result.Records {
		authorsJSON, _ := json.Marshal(rec.Authors)
		keywordsJSON, _ := json.Marshal(rec.MatchedKeywords)

		_, err := tx.ExecContext(ctx,
			`INSERT INTO articles (source, external_id, title, authors, date, abstract, url, matched_keywords, match_count, archived_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(source, external_id) DO UPDATE SET
				title=excluded.title, authors=excluded.authors, date=excluded.date,
				abstract=excluded.abstract, url=excluded.url,
				matched_keywords=excluded.matched_keywords,
				match_count=excluded.match_count, archived_at=excluded.archived_at`,
			string(rec.Source), rec.ExternalID, rec.Title, string(authorsJSON),
			rec.Date.Format("2006-01-02"), rec.Abstract, rec.URL,
			string(keywordsJSON), rec.MatchCount, archivedAt,
		)
		if err != nil {
			return 0, fmt.Errorf("upserting article %s/%s: %w", rec.Source, rec.ExternalID, err)
		}
		saved++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return saved, nil
}

// QueryOptions filters archive queries (R3.1-R3.3).
type QueryOptions struct {
	// Text is a full-text query over title and abstract. Empty matches
	// everything.
	Text string

	// Source restricts results to one database. Empty matches all.
	Source types.Source

	// Limit caps the number of rows; zero uses the store default.
	Limit int
}

// Query returns archived articles matching opts, newest first.
func (s *Store) Query(ctx context.Context, opts QueryOptions) ([]types.Article, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = s.maxResults
	}

	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`SELECT a.source, a.external_id, a.title, a.authors, a.date, a.abstract, a.url, a.matched_keywords, a.match_count
		FROM articles a`)

	var where []string
	if opts.Text != "" {
		sb.WriteString(` JOIN articles_fts f ON f.rowid = a.rowid`)
		where = append(where, `articles_fts MATCH ?`)
		args = append(args, opts.Text)
	}
	if opts.Source != "" {
		where = append(where, `a.source = ?`)
		args = append(args, string(opts.Source))
	}
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	sb.WriteString(` ORDER BY a.date DESC, a.source, a.external_id LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying archive: %w", err)
	}
	defer rows.Close()

	var articles []types.Article
	for rows.Next() {
		var (
			art                 types.Article
			source              string
			authorsJSON         string
			dateStr             string
			matchedKeywordsJSON string
		)
		if err := rows.Scan(&source, &art.ExternalID, &art.Title, &authorsJSON,
			&dateStr, &art.Abstract, &art.URL, &matchedKeywordsJSON, &art.MatchCount); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		art.Source = types.Source(source)
		if authorsJSON != "" {
			json.Unmarshal([]byte(authorsJSON), &art.Authors)
		}
		if matchedKeywordsJSON != "" {
			json.Unmarshal([]byte(matchedKeywordsJSON), &art.MatchedKeywords)
		}
		if t, parseErr := time.Parse("2006-01-02", dateStr); parseErr == nil {
			art.Date = t
		}
		articles = append(articles, art)
	}
	return articles, rows.Err()
}

// Count returns the number of archived articles.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM articles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting articles: %w", err)
	}
	return n, nil
}
