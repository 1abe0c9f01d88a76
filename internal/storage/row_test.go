package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/siteprobe/internal/analysis"
)

func TestTableName(t *testing.T) {
	t.Parallel()

	name, err := TableName("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTable, name)

	name, err = TableName("runs_2024")
	require.NoError(t, err)
	assert.Equal(t, "runs_2024", name)

	_, err = TableName("runs; DROP TABLE x")
	require.Error(t, err)
}

func TestEncodeRowFailedReports(t *testing.T) {
	t.Parallel()

	rec := analysis.Record{
		URL:       "https://example.com",
		Timestamp: time.Date(2024, 1, 2, 3, 4, 5, 678000, time.UTC),
		Outcome: analysis.Outcome{
			Policy:  analysis.PolicyReport{Error: "No robots.txt found"},
			Content: analysis.ContentReport{Error: "Extraction failed: timeout"},
			Access:  analysis.AccessReport{FeedURLs: []string{"https://example.com/rss"}},
		},
	}

	row, err := EncodeRow(rec)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02T03:04:05.000678", row.Timestamp)
	assert.Equal(t, "[]", row.Titles)
	assert.Equal(t, "[]", row.Links)
	assert.Equal(t, "[]", row.SitemapURLs)
	assert.False(t, row.CanCrawl)
	assert.Equal(t, "Unknown", row.CrawlDelay)
	assert.Equal(t, `["https://example.com/rss"]`, row.RSSFeeds)
}

func TestRowDecode(t *testing.T) {
	t.Parallel()

	row := Row{
		ID:           7,
		URL:          "https://example.com",
		Timestamp:    "2024-01-02T03:04:05.000678",
		Titles:       `["Home","About"]`,
		Descriptions: `[]`,
		Links:        `["https://example.com/a"]`,
		CanCrawl:     true,
		CrawlDelay:   "5",
		SitemapURLs:  `["none found"]`,
		IsJSHeavy:    true,
		RSSFeeds:     "",
	}
	rec, err := row.Decode()
	require.NoError(t, err)
	assert.Equal(t, int64(7), rec.ID)
	assert.Equal(t, []string{"Home", "About"}, rec.Content.Titles)
	assert.Equal(t, []string{}, rec.Content.Descriptions)
	assert.Equal(t, []string{"none found"}, rec.Policy.SitemapURLs)
	assert.Equal(t, []string{}, rec.Access.FeedURLs)
	assert.True(t, rec.Policy.Allowed)
	assert.True(t, rec.Access.IsRenderDependent)
	assert.Equal(t, 678*time.Microsecond, time.Duration(rec.Timestamp.Nanosecond()))

	row.Links = "not json"
	_, err = row.Decode()
	require.ErrorContains(t, err, "decode links")

	row.Timestamp = "yesterday"
	_, err = row.Decode()
	require.ErrorContains(t, err, "parse timestamp")
}
