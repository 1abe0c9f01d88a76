// Package sqlite persists analysis records in a local SQLite file.
package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/JakeFAU/siteprobe/internal/analysis"
	"github.com/JakeFAU/siteprobe/internal/storage"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// DefaultPath is the database file used when none is configured.
const DefaultPath = "crawled_data.db"

// Config controls where records are written.
type Config struct {
	Path  string
	Table string
}

// ResultStore implements analysis.ResultStore on a single SQLite table.
type ResultStore struct {
	db    *sqlx.DB
	table string
}

// Open opens (creating if needed) the database file and pings it. The table
// itself is created by Init.
func Open(ctx context.Context, cfg Config) (*ResultStore, error) {
	path := cfg.Path
	if path == "" {
		path = DefaultPath
	}
	table, err := storage.TableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sqlx.ConnectContext(ctx, "sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	return &ResultStore{db: db, table: table}, nil
}

// Init creates the results table if it does not exist.
func (s *ResultStore) Init(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	url TEXT,
	timestamp TEXT,
	titles TEXT,
	descriptions TEXT,
	links TEXT,
	can_crawl BOOLEAN,
	crawl_delay TEXT,
	sitemap_urls TEXT,
	is_js_heavy BOOLEAN,
	api_detected BOOLEAN,
	rss_feeds TEXT
)`, s.table)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// Append inserts one row and returns its id.
func (s *ResultStore) Append(ctx context.Context, record analysis.Record) (int64, error) {
	row, err := storage.EncodeRow(record)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	url, timestamp, titles, descriptions, links, can_crawl,
	crawl_delay, sitemap_urls, is_js_heavy, api_detected, rss_feeds
) VALUES (
	:url, :timestamp, :titles, :descriptions, :links, :can_crawl,
	:crawl_delay, :sitemap_urls, :is_js_heavy, :api_detected, :rss_feeds
)`, s.table)

	res, err := s.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return 0, fmt.Errorf("insert record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read inserted id: %w", err)
	}
	return id, nil
}

// ListByURL returns every row stored for rawURL in id order.
func (s *ResultStore) ListByURL(ctx context.Context, rawURL string) ([]analysis.Record, error) {
	query := fmt.Sprintf(`
SELECT id, url, timestamp, titles, descriptions, links, can_crawl,
	crawl_delay, sitemap_urls, is_js_heavy, api_detected, rss_feeds
FROM %s
WHERE url = ?
ORDER BY id`, s.table)

	var rows []storage.Row
	if err := s.db.SelectContext(ctx, &rows, query, rawURL); err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}

	records := make([]analysis.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.Decode()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Close closes the database handle.
func (s *ResultStore) Close() error {
	return s.db.Close()
}
