package probe

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"

	"github.com/JakeFAU/siteprobe/internal/analysis"
	"github.com/JakeFAU/siteprobe/internal/logging"
)

const (
	robotsPath    = "/robots.txt"
	wildcardAgent = "*"

	reasonNoRobots = "No robots.txt found"
)

// PolicyAnalyzer fetches and interprets the site's robots.txt.
type PolicyAnalyzer struct {
	fetcher analysis.Fetcher
	logger  *zap.Logger
}

// NewPolicyAnalyzer builds a PolicyAnalyzer. The fetcher's own timeout bounds
// the single robots.txt read.
func NewPolicyAnalyzer(fetcher analysis.Fetcher, logger *zap.Logger) *PolicyAnalyzer {
	return &PolicyAnalyzer{
		fetcher: fetcher,
		logger:  logging.Named(logger, "policy"),
	}
}

// Analyze reads robots.txt once and evaluates it for the wildcard agent.
func (p *PolicyAnalyzer) Analyze(ctx context.Context, req analysis.Request) analysis.Result[analysis.PolicyReport] {
	robotsURL := req.Origin() + robotsPath
	resp, err := p.fetcher.Fetch(ctx, robotsURL)
	if resp.StatusCode != 0 && resp.StatusCode != http.StatusOK {
		p.logger.Info("robots.txt unavailable",
			zap.String("url", robotsURL),
			zap.Int("status", resp.StatusCode))
		return analysis.Err[analysis.PolicyReport](reasonNoRobots)
	}
	if err != nil {
		p.logger.Error("Failed to parse robots.txt", zap.String("url", robotsURL), zap.Error(err))
		return analysis.Err[analysis.PolicyReport](fmt.Sprintf("Failed to parse robots.txt: %v", err))
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, resp.Body)
	if err != nil {
		p.logger.Error("Failed to parse robots.txt", zap.String("url", robotsURL), zap.Error(err))
		return analysis.Err[analysis.PolicyReport](fmt.Sprintf("Failed to parse robots.txt: %v", err))
	}

	return analysis.Ok(evaluateRobots(data, req.URL))
}

func evaluateRobots(data *robotstxt.RobotsData, rawURL string) analysis.PolicyReport {
	report := analysis.PolicyReport{
		CrawlDelay:  analysis.CrawlDelayNotSpecified,
		SitemapURLs: []string{analysis.SitemapNoneFound},
	}
	group := data.FindGroup(wildcardAgent)
	if group == nil {
		report.Allowed = true
	} else {
		report.Allowed = group.Test(requestPath(rawURL))
		report.DisallowAll = !group.Test("/")
		if group.CrawlDelay > 0 {
			report.CrawlDelay = strconv.FormatFloat(group.CrawlDelay.Seconds(), 'f', -1, 64)
		}
	}
	if len(data.Sitemaps) > 0 {
		report.SitemapURLs = append([]string(nil), data.Sitemaps...)
	}
	return report
}

func requestPath(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "/"
	}
	return parsed.RequestURI()
}
