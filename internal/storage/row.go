// Package storage holds the row encoding shared by the SQL result stores.
package storage

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/JakeFAU/siteprobe/internal/analysis"
)

// DefaultTable is the table name used when none is configured.
const DefaultTable = "crawl_results"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// TableName returns table, or DefaultTable when empty, after checking that it
// is a plain SQL identifier.
func TableName(table string) (string, error) {
	if table == "" {
		table = DefaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Row is one record in its persisted shape. Sequences are JSON arrays.
type Row struct {
	ID           int64  `db:"id"`
	URL          string `db:"url"`
	Timestamp    string `db:"timestamp"`
	Titles       string `db:"titles"`
	Descriptions string `db:"descriptions"`
	Links        string `db:"links"`
	CanCrawl     bool   `db:"can_crawl"`
	CrawlDelay   string `db:"crawl_delay"`
	SitemapURLs  string `db:"sitemap_urls"`
	IsJSHeavy    bool   `db:"is_js_heavy"`
	APIDetected  bool   `db:"api_detected"`
	RSSFeeds     string `db:"rss_feeds"`
}

// EncodeRow flattens a record into column values.
func EncodeRow(rec analysis.Record) (Row, error) {
	row := Row{
		ID:          rec.ID,
		URL:         rec.URL,
		Timestamp:   rec.Timestamp.Format(analysis.TimestampLayout),
		CanCrawl:    rec.StoredCanCrawl(),
		CrawlDelay:  rec.StoredCrawlDelay(),
		IsJSHeavy:   rec.Access.IsRenderDependent,
		APIDetected: rec.Access.APIDetected,
	}
	fields := []struct {
		dst *string
		src []string
	}{
		{&row.Titles, rec.Content.Titles},
		{&row.Descriptions, rec.Content.Descriptions},
		{&row.Links, rec.Content.Links},
		{&row.SitemapURLs, rec.StoredSitemaps()},
		{&row.RSSFeeds, rec.Access.FeedURLs},
	}
	for _, f := range fields {
		encoded, err := json.Marshal(analysis.NonNil(f.src))
		if err != nil {
			return Row{}, fmt.Errorf("marshal column: %w", err)
		}
		*f.dst = string(encoded)
	}
	return row, nil
}

// Decode rebuilds a record from its persisted shape. Error texts are not
// persisted, so decoded reports never carry one.
func (r Row) Decode() (analysis.Record, error) {
	ts, err := time.Parse(analysis.TimestampLayout, r.Timestamp)
	if err != nil {
		return analysis.Record{}, fmt.Errorf("parse timestamp %q: %w", r.Timestamp, err)
	}
	rec := analysis.Record{
		ID:        r.ID,
		URL:       r.URL,
		Timestamp: ts,
	}
	rec.Policy.Allowed = r.CanCrawl
	rec.Policy.CrawlDelay = r.CrawlDelay
	rec.Access.IsRenderDependent = r.IsJSHeavy
	rec.Access.APIDetected = r.APIDetected

	fields := []struct {
		name string
		src  string
		dst  *[]string
	}{
		{"titles", r.Titles, &rec.Content.Titles},
		{"descriptions", r.Descriptions, &rec.Content.Descriptions},
		{"links", r.Links, &rec.Content.Links},
		{"sitemap_urls", r.SitemapURLs, &rec.Policy.SitemapURLs},
		{"rss_feeds", r.RSSFeeds, &rec.Access.FeedURLs},
	}
	for _, f := range fields {
		values := []string{}
		if f.src != "" {
			if err := json.Unmarshal([]byte(f.src), &values); err != nil {
				return analysis.Record{}, fmt.Errorf("decode %s: %w", f.name, err)
			}
		}
		*f.dst = values
	}
	return rec, nil
}
