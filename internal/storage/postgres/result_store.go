// Package postgres persists analysis records in a Postgres table.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/siteprobe/internal/analysis"
	"github.com/JakeFAU/siteprobe/internal/storage"
)

// Config controls the Postgres connection pool used for result rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// ResultStore writes analysis rows into Postgres.
type ResultStore struct {
	pool  pool
	table string
}

// Open creates a Postgres-backed ResultStore using the provided config.
func Open(ctx context.Context, cfg Config) (*ResultStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.dsn is required")
	}
	table, err := storage.TableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &ResultStore{pool: p, table: table}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(p pool, table string) (*ResultStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := storage.TableName(table)
	if err != nil {
		return nil, err
	}
	return &ResultStore{pool: p, table: name}, nil
}

// Init creates the results table if it does not exist.
func (s *ResultStore) Init(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	url TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	titles JSONB NOT NULL,
	descriptions JSONB NOT NULL,
	links JSONB NOT NULL,
	can_crawl BOOLEAN NOT NULL,
	crawl_delay TEXT NOT NULL,
	sitemap_urls JSONB NOT NULL,
	is_js_heavy BOOLEAN NOT NULL,
	api_detected BOOLEAN NOT NULL,
	rss_feeds JSONB NOT NULL
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
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
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
) RETURNING id`, s.table)

	var id int64
	err = s.pool.QueryRow(ctx, query,
		row.URL,
		row.Timestamp,
		row.Titles,
		row.Descriptions,
		row.Links,
		row.CanCrawl,
		row.CrawlDelay,
		row.SitemapURLs,
		row.IsJSHeavy,
		row.APIDetected,
		row.RSSFeeds,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert record: %w", err)
	}
	return id, nil
}

// ListByURL returns every row stored for rawURL in id order.
func (s *ResultStore) ListByURL(ctx context.Context, rawURL string) ([]analysis.Record, error) {
	query := fmt.Sprintf(`
SELECT id, url, timestamp, titles::text, descriptions::text, links::text, can_crawl,
	crawl_delay, sitemap_urls::text, is_js_heavy, api_detected, rss_feeds::text
FROM %s
WHERE url = $1
ORDER BY id`, s.table)

	rows, err := s.pool.Query(ctx, query, rawURL)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := make([]analysis.Record, 0)
	for rows.Next() {
		var row storage.Row
		if err := rows.Scan(
			&row.ID,
			&row.URL,
			&row.Timestamp,
			&row.Titles,
			&row.Descriptions,
			&row.Links,
			&row.CanCrawl,
			&row.CrawlDelay,
			&row.SitemapURLs,
			&row.IsJSHeavy,
			&row.APIDetected,
			&row.RSSFeeds,
		); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec, err := row.Decode()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// Close releases the underlying pool resources.
func (s *ResultStore) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}
