package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/siteprobe/internal/analysis"
)

func openTestStore(t *testing.T) *ResultStore {
	t.Helper()
	store, err := Open(context.Background(), Config{Path: filepath.Join(t.TempDir(), "nested", "crawled_data.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Init(context.Background()))
	return store
}

func sampleRecord(url string) analysis.Record {
	return analysis.Record{
		URL:       url,
		Timestamp: time.Date(2024, 2, 3, 4, 5, 6, 789000, time.UTC),
		Outcome: analysis.Outcome{
			Policy: analysis.PolicyReport{
				Allowed:     true,
				CrawlDelay:  "5",
				SitemapURLs: []string{analysis.SitemapNoneFound},
			},
			Content: analysis.ContentReport{
				Titles:       []string{"Home"},
				Descriptions: []string{"A shop"},
				Links:        []string{"https://example.com/a", "https://example.com/b"},
			},
			Access: analysis.AccessReport{
				IsRenderDependent: true,
				FeedURLs:          []string{"https://example.com/rss"},
			},
		},
	}
}

func TestInitIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)

	_, err := store.Append(ctx, sampleRecord("https://example.com"))
	require.NoError(t, err)
	require.NoError(t, store.Init(ctx))

	var tables int
	err = store.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, store.table).Scan(&tables)
	require.NoError(t, err)
	assert.Equal(t, 1, tables)

	rows, err := store.ListByURL(ctx, "https://example.com")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestSchemaColumns(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	var columns []string
	err := store.db.SelectContext(context.Background(), &columns,
		`SELECT name FROM pragma_table_info('`+store.table+`') ORDER BY cid`)
	require.NoError(t, err)
	assert.Equal(t, analysis.Columns, columns)
}

func TestAppendAndListByURL(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)

	first, err := store.Append(ctx, sampleRecord("https://example.com"))
	require.NoError(t, err)
	_, err = store.Append(ctx, sampleRecord("https://other.example"))
	require.NoError(t, err)

	failed := sampleRecord("https://example.com")
	failed.Policy = analysis.PolicyReport{Error: "No robots.txt found"}
	failed.Content = analysis.ContentReport{Error: "Extraction failed: timeout"}
	third, err := store.Append(ctx, failed)
	require.NoError(t, err)
	assert.Greater(t, third, first)

	rows, err := store.ListByURL(ctx, "https://example.com")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	got := rows[0]
	assert.Equal(t, first, got.ID)
	assert.Equal(t, sampleRecord("").Timestamp, got.Timestamp)
	assert.Equal(t, []string{"Home"}, got.Content.Titles)
	assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, got.Content.Links)
	assert.True(t, got.Policy.Allowed)
	assert.Equal(t, "5", got.Policy.CrawlDelay)
	assert.Equal(t, []string{"none found"}, got.Policy.SitemapURLs)
	assert.True(t, got.Access.IsRenderDependent)
	assert.Equal(t, []string{"https://example.com/rss"}, got.Access.FeedURLs)

	degraded := rows[1]
	assert.False(t, degraded.Policy.Allowed)
	assert.Equal(t, analysis.CrawlDelayUnknown, degraded.Policy.CrawlDelay)
	assert.Equal(t, []string{}, degraded.Policy.SitemapURLs)
	assert.Equal(t, []string{}, degraded.Content.Titles)
}

func TestOpenRejectsBadTable(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), Config{Path: filepath.Join(t.TempDir(), "x.db"), Table: "bad-name"})
	require.Error(t, err)
}
