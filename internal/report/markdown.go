package report

import (
	"io"
	"net/url"
	"sort"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/JakeFAU/siteprobe/internal/analysis"
)

const maxHistogramHosts = 10

// WriteMarkdown renders the crawlability, content, and access sections of a
// record followed by the derived recommendations.
func WriteMarkdown(w io.Writer, rec analysis.Record) error {
	md := markdown.NewMarkdown(w)

	md.H1("Crawlability Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"URL", "`" + rec.URL + "`"},
			{"Analyzed", rec.Timestamp.Format("2006-01-02 15:04:05 MST")},
			{"Record", strconv.FormatInt(rec.ID, 10)},
		},
	})
	md.PlainText("")

	writePolicy(md, rec.Policy)
	writeContent(md, rec.Content)
	writeAccess(md, rec.Access)

	md.H2("Recommendations")
	md.PlainText("")
	md.BulletList(analysis.Recommend(rec.Outcome)...)
	md.PlainText("")

	return md.Build()
}

func writePolicy(md *markdown.Markdown, p analysis.PolicyReport) {
	md.H2("Crawlability")
	md.PlainText("")
	if p.Failed() {
		md.Warningf("Policy check failed: %s", p.Error)
		md.PlainText("")
		return
	}
	md.Table(markdown.TableSet{
		Header: []string{"Check", "Result"},
		Rows: [][]string{
			{"Can Crawl", yesNo(p.Allowed)},
			{"Crawl Delay", p.CrawlDelay},
			{"Disallow All", yesNo(p.DisallowAll)},
		},
	})
	md.PlainText("")
	md.PlainText("**Sitemaps**")
	md.PlainText("")
	md.BulletList(p.SitemapURLs...)
	md.PlainText("")
}

func writeContent(md *markdown.Markdown, c analysis.ContentReport) {
	md.H2("Content")
	md.PlainText("")
	if c.Failed() {
		md.Warningf("Content extraction failed: %s", c.Error)
		md.PlainText("")
		return
	}

	md.PlainText("**Titles**")
	md.PlainText("")
	writeListOrNone(md, c.Titles, "No headings found.")

	md.PlainText("**Descriptions**")
	md.PlainText("")
	writeListOrNone(md, c.Descriptions, "No description meta tags found.")

	if c.NextPage != "" {
		md.PlainTextf("Next page hint: %s", c.NextPage)
		md.PlainText("")
	}

	md.PlainText("**Links by host**")
	md.PlainText("")
	hist := linkHistogram(c.Links)
	if len(hist) == 0 {
		md.PlainText("No links extracted.")
		md.PlainText("")
		return
	}
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Links per host"),
		piechart.WithShowData(true),
	)
	rows := make([][]string, 0, len(hist))
	for _, bucket := range hist {
		chart.LabelAndIntValue(bucket.Host, uint64(bucket.Count))
		rows = append(rows, []string{bucket.Host, strconv.Itoa(bucket.Count)})
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Host", "Links"},
		Rows:   rows,
	})
	md.PlainText("")
}

func writeAccess(md *markdown.Markdown, a analysis.AccessReport) {
	md.H2("JS & API Analysis")
	md.PlainText("")
	if a.Error != "" {
		md.Warningf("Access probe failed: %s", a.Error)
		md.PlainText("")
	}
	api := yesNo(a.APIDetected)
	if a.APIEndpoint != "" {
		api += " (`" + a.APIEndpoint + "`)"
	}
	md.Table(markdown.TableSet{
		Header: []string{"Check", "Result"},
		Rows: [][]string{
			{"JavaScript Heavy", yesNo(a.IsRenderDependent)},
			{"API Detected", api},
		},
	})
	md.PlainText("")
	md.PlainText("**RSS Feeds**")
	md.PlainText("")
	writeListOrNone(md, a.FeedURLs, "None")
}

func writeListOrNone(md *markdown.Markdown, items []string, none string) {
	if len(items) == 0 {
		md.PlainText(none)
	} else {
		md.BulletList(items...)
	}
	md.PlainText("")
}

// HostCount is one bar of the link histogram.
type HostCount struct {
	Host  string
	Count int
}

// linkHistogram counts links per host, largest first, folding everything past
// the top hosts into "other".
func linkHistogram(links []string) []HostCount {
	counts := map[string]int{}
	for _, link := range links {
		host := "unknown"
		if u, err := url.Parse(link); err == nil && u.Host != "" {
			host = u.Host
		}
		counts[host]++
	}
	out := make([]HostCount, 0, len(counts))
	for host, n := range counts {
		out = append(out, HostCount{Host: host, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Host < out[j].Host
	})
	if len(out) > maxHistogramHosts {
		other := HostCount{Host: "other"}
		for _, hc := range out[maxHistogramHosts-1:] {
			other.Count += hc.Count
		}
		out = append(out[:maxHistogramHosts-1], other)
	}
	return out
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
