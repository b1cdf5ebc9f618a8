// Package store persists scraped records and run outcomes in SQLite or
// PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/ibeckermayer/xscrape/internal/config"
	"github.com/ibeckermayer/xscrape/internal/types"
)

// Store handles all database operations
type Store struct {
	db       *sql.DB
	postgres bool
}

// Open connects to the database named by cfg. An sqlite store without a
// DSN lives at dataDir/xscrape.db.
func Open(cfg config.DatabaseConfig, dataDir string) (*Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "postgres":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("database.dsn is required for postgres")
		}
		return connect("postgres", cfg.DSN)
	case "sqlite", "":
		path := cfg.DSN
		if path == "" {
			path = filepath.Join(dataDir, "xscrape.db")
		}
		return New(path)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// New creates a new Store with SQLite backend
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	return connect("sqlite", dbPath)
}

func connect(driver, dsn string) (*Store, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db, postgres: driver == "postgres"}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate %s store: %w", driver, err)
	}
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema
func (s *Store) migrate() error {
	ts, autoID := "DATETIME", "INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.postgres {
		ts, autoID = "TIMESTAMPTZ", "BIGSERIAL PRIMARY KEY"
	}

	schema := []string{`
	CREATE TABLE IF NOT EXISTS posts (
		account TEXT NOT NULL,
		post_id TEXT NOT NULL,
		post_url TEXT NOT NULL,
		author_handle TEXT NOT NULL,
		author_name TEXT,
		text_content TEXT,
		media_urls TEXT,
		timestamp ` + ts + `,
		reply_count INTEGER NOT NULL DEFAULT 0,
		repost_count INTEGER NOT NULL DEFAULT 0,
		like_count INTEGER NOT NULL DEFAULT 0,
		view_count INTEGER NOT NULL DEFAULT 0,
		is_repost BOOLEAN NOT NULL DEFAULT FALSE,
		is_quote BOOLEAN NOT NULL DEFAULT FALSE,
		scraped_at ` + ts + ` NOT NULL,
		PRIMARY KEY (account, post_id)
	)`, `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at ` + ts + ` NOT NULL,
		finished_at ` + ts + ` NOT NULL,
		accounts INTEGER NOT NULL,
		records INTEGER NOT NULL
	)`, `
	CREATE TABLE IF NOT EXISTS account_results (
		id ` + autoID + `,
		run_id TEXT NOT NULL REFERENCES runs(id),
		account TEXT NOT NULL,
		status TEXT NOT NULL,
		reason TEXT,
		records INTEGER NOT NULL,
		scrolls INTEGER NOT NULL,
		stop_condition TEXT,
		duration_ms BIGINT NOT NULL,
		error TEXT
	)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_timestamp ON posts(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_account_results_run ON account_results(run_id)`,
	}

	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for postgres
func (s *Store) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Write upserts an account's records. Engagement counts are refreshed when a
// post is seen again.
func (s *Store) Write(account string, records []types.PostRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(s.rebind(`
		INSERT INTO posts (account, post_id, post_url, author_handle, author_name,
			text_content, media_urls, timestamp, reply_count, repost_count,
			like_count, view_count, is_repost, is_quote, scraped_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(account, post_id) DO UPDATE SET
			reply_count = excluded.reply_count,
			repost_count = excluded.repost_count,
			like_count = excluded.like_count,
			view_count = excluded.view_count,
			scraped_at = excluded.scraped_at
	`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		mediaJSON, _ := json.Marshal(r.MediaURLs)
		_, err := stmt.Exec(account, r.PostID, r.PostURL, r.AccountHandle, r.AccountDisplayName,
			r.TextContent, string(mediaJSON), nullTime(r.Timestamp), r.ReplyCount, r.RepostCount,
			r.LikeCount, r.ViewCount, r.IsRepost, r.IsQuote, r.ScrapedAt.UTC())
		if err != nil {
			return fmt.Errorf("failed to save post %s: %w", r.PostID, err)
		}
	}
	return tx.Commit()
}

// RecordRun stores a run and the outcome of each of its accounts
func (s *Store) RecordRun(ctx context.Context, runID string, started, finished time.Time, results []types.AccountResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	total := 0
	for _, r := range results {
		total += r.Records
	}

	_, err = tx.ExecContext(ctx, s.rebind(`
		INSERT INTO runs (id, started_at, finished_at, accounts, records)
		VALUES (?, ?, ?, ?, ?)
	`), runID, started.UTC(), finished.UTC(), len(results), total)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	for _, r := range results {
		_, err := tx.ExecContext(ctx, s.rebind(`
			INSERT INTO account_results (run_id, account, status, reason, records,
				scrolls, stop_condition, duration_ms, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`), runID, r.Handle, string(r.Status), r.Reason, r.Records,
			r.Scrolls, r.StopCond, r.Duration.Milliseconds(), r.Err)
		if err != nil {
			return fmt.Errorf("failed to save result for %s: %w", r.Handle, err)
		}
	}
	return tx.Commit()
}

// PostsByAccount returns an account's stored posts, newest first
func (s *Store) PostsByAccount(account string, limit int) ([]types.PostRecord, error) {
	rows, err := s.db.Query(s.rebind(`
		SELECT post_id, post_url, author_handle, author_name, text_content,
			media_urls, timestamp, reply_count, repost_count, like_count,
			view_count, is_repost, is_quote, scraped_at
		FROM posts
		WHERE account = ?
		ORDER BY timestamp DESC, post_id DESC
		LIMIT ?
	`), account, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPosts(rows)
}

// PostExists checks if a post ID is already stored for an account
func (s *Store) PostExists(account, postID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(s.rebind(`SELECT EXISTS(SELECT 1 FROM posts WHERE account = ? AND post_id = ?)`),
		account, postID).Scan(&exists)
	return exists, err
}

// AccountResults returns the stored outcomes of a run in insertion order
func (s *Store) AccountResults(runID string) ([]types.AccountResult, error) {
	rows, err := s.db.Query(s.rebind(`
		SELECT account, status, reason, records, scrolls, stop_condition, duration_ms, error
		FROM account_results
		WHERE run_id = ?
		ORDER BY id
	`), runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []types.AccountResult
	for rows.Next() {
		var r types.AccountResult
		var status string
		var reason, stop, errText sql.NullString
		var ms int64
		if err := rows.Scan(&r.Handle, &status, &reason, &r.Records, &r.Scrolls, &stop, &ms, &errText); err != nil {
			return nil, err
		}
		r.Status = types.Status(status)
		r.Reason, r.StopCond, r.Err = reason.String, stop.String, errText.String
		r.Duration = time.Duration(ms) * time.Millisecond
		results = append(results, r)
	}
	return results, rows.Err()
}

func scanPosts(rows *sql.Rows) ([]types.PostRecord, error) {
	var posts []types.PostRecord
	for rows.Next() {
		var p types.PostRecord
		var name, text, mediaJSON sql.NullString
		var ts sql.NullTime

		err := rows.Scan(
			&p.PostID, &p.PostURL, &p.AccountHandle, &name, &text,
			&mediaJSON, &ts, &p.ReplyCount, &p.RepostCount, &p.LikeCount,
			&p.ViewCount, &p.IsRepost, &p.IsQuote, &p.ScrapedAt,
		)
		if err != nil {
			return nil, err
		}

		p.AccountDisplayName, p.TextContent = name.String, text.String
		if ts.Valid {
			p.Timestamp = ts.Time.UTC()
		}
		p.MediaURLs = []string{}
		if mediaJSON.Valid {
			json.Unmarshal([]byte(mediaJSON.String), &p.MediaURLs)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
