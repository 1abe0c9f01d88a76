// Package export writes persisted analysis rows as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/JakeFAU/siteprobe/internal/analysis"
	"github.com/JakeFAU/siteprobe/internal/storage"
)

// WriteCSV writes a header of the schema columns followed by one line per
// record, in the order given.
func WriteCSV(w io.Writer, records []analysis.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(analysis.Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range records {
		row, err := storage.EncodeRow(rec)
		if err != nil {
			return err
		}
		if err := cw.Write([]string{
			strconv.FormatInt(row.ID, 10),
			row.URL,
			row.Timestamp,
			row.Titles,
			row.Descriptions,
			row.Links,
			strconv.FormatBool(row.CanCrawl),
			row.CrawlDelay,
			row.SitemapURLs,
			strconv.FormatBool(row.IsJSHeavy),
			strconv.FormatBool(row.APIDetected),
			row.RSSFeeds,
		}); err != nil {
			return fmt.Errorf("write csv row %d: %w", row.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// FileName derives the download name for a URL's export, e.g.
// crawled_data_example.com_shop.csv for https://example.com/shop.
func FileName(rawURL string) string {
	name := strings.ReplaceAll(rawURL, "https://", "")
	name = strings.ReplaceAll(name, "/", "_")
	return "crawled_data_" + name + ".csv"
}
