package probe

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/siteprobe/internal/analysis"
	"github.com/JakeFAU/siteprobe/internal/logging"
	"github.com/JakeFAU/siteprobe/internal/metrics"
)

const (
	maxTitles = 10
	maxLinks  = 50
	nextText  = "Next"
)

// ContentExtractor fetches a page and pulls headings, descriptions, links and
// a pagination hint out of it, retrying failed fetches with backoff.
type ContentExtractor struct {
	fetcher analysis.Fetcher
	retry   RetryPolicy
	sleeper Sleeper
	logger  *zap.Logger
}

// ContentOption customizes a ContentExtractor.
type ContentOption func(*ContentExtractor)

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(policy RetryPolicy) ContentOption {
	return func(c *ContentExtractor) {
		c.retry = policy
	}
}

// WithSleeper overrides how the extractor waits between attempts.
func WithSleeper(s Sleeper) ContentOption {
	return func(c *ContentExtractor) {
		if s != nil {
			c.sleeper = s
		}
	}
}

// NewContentExtractor builds a ContentExtractor.
func NewContentExtractor(fetcher analysis.Fetcher, logger *zap.Logger, opts ...ContentOption) *ContentExtractor {
	c := &ContentExtractor{
		fetcher: fetcher,
		retry:   DefaultRetryPolicy(),
		sleeper: TimerSleeper{},
		logger:  logging.Named(logger, "content"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Extract runs the fetch loop and parses the first successful response.
func (c *ContentExtractor) Extract(ctx context.Context, req analysis.Request) analysis.Result[analysis.ContentReport] {
	var lastErr error
	for attempt := 0; ; attempt++ {
		report, err := c.attempt(ctx, req.URL)
		if err == nil {
			metrics.ObserveContentAttempt(metrics.OutcomeOK)
			return analysis.Ok(report)
		}
		metrics.ObserveContentAttempt(metrics.OutcomeError)
		lastErr = err
		c.logger.Warn("content fetch attempt failed",
			zap.String("url", req.URL),
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		if !c.retry.ShouldRetry(err, attempt) {
			break
		}
		if err := c.sleeper.Sleep(ctx, c.retry.Backoff(attempt)); err != nil {
			lastErr = err
			break
		}
	}

	c.logger.Error("content extraction failed", zap.String("url", req.URL), zap.Error(lastErr))
	return analysis.Err[analysis.ContentReport](fmt.Sprintf("Extraction failed: %v", lastErr))
}

func (c *ContentExtractor) attempt(ctx context.Context, rawURL string) (analysis.ContentReport, error) {
	resp, err := c.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return analysis.ContentReport{}, err
	}
	base := rawURL
	if resp.URL != "" {
		base = resp.URL
	}
	return parseContent(base, resp.Body)
}

func parseContent(pageURL string, body []byte) (analysis.ContentReport, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return analysis.ContentReport{}, fmt.Errorf("parse page url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return analysis.ContentReport{}, fmt.Errorf("parse html: %w", err)
	}

	report := analysis.ContentReport{
		Titles:       []string{},
		Descriptions: []string{},
		Links:        []string{},
	}

	doc.Find("h1, h2, h3").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		report.Titles = append(report.Titles, strings.TrimSpace(s.Text()))
		return len(report.Titles) < maxTitles
	})

	doc.Find(`meta[name="description"]`).Each(func(_ int, s *goquery.Selection) {
		content, _ := s.Attr("content")
		report.Descriptions = append(report.Descriptions, content)
	})

	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if abs, ok := resolve(base, href); ok {
			report.Links = append(report.Links, abs)
		}
		return len(report.Links) < maxLinks
	})

	if href := nextHint(doc); href != "" {
		if abs, ok := resolve(base, href); ok {
			report.NextPage = abs
		}
	}

	return report, nil
}

// nextHint returns the href of the first anchor labelled "Next", falling back
// to the first anchor with rel="next".
func nextHint(doc *goquery.Document) string {
	candidate := doc.Find("a").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.TrimSpace(s.Text()) == nextText
	}).First()
	if candidate.Length() == 0 {
		candidate = doc.Find(`a[rel~="next"]`).First()
	}
	if candidate.Length() == 0 {
		return ""
	}
	href, _ := candidate.Attr("href")
	return strings.TrimSpace(href)
}

func resolve(base *url.URL, href string) (string, bool) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(ref)
	if !abs.IsAbs() {
		return "", false
	}
	return abs.String(), true
}
