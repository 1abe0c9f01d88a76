package probe

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/JakeFAU/siteprobe/internal/analysis"
	"github.com/JakeFAU/siteprobe/internal/logging"
)

const jsonContentType = "application/json"

// AccessConfig tunes the rendering and access-point checks.
type AccessConfig struct {
	// RenderRatio is the rendered/plain length ratio above which a page is
	// considered render-dependent.
	RenderRatio float64
	FeedPath    string
	APIPaths    []string
}

// DefaultAccessConfig mirrors the conventional feed and API locations.
func DefaultAccessConfig() AccessConfig {
	return AccessConfig{
		RenderRatio: 1.5,
		FeedPath:    "/rss",
		APIPaths:    []string{"/api", "/v1/api", "/json"},
	}
}

// AccessFetchers holds one fetcher per sub-check so that each carries its own
// timeout and connection pool.
type AccessFetchers struct {
	Page analysis.Fetcher
	Feed analysis.Fetcher
	API  analysis.Fetcher
}

// AccessProbe detects render dependence and probes for feeds and API paths.
type AccessProbe struct {
	cfg      AccessConfig
	renderer analysis.Renderer
	fetchers AccessFetchers
	logger   *zap.Logger
}

// NewAccessProbe builds an AccessProbe.
func NewAccessProbe(
	cfg AccessConfig,
	renderer analysis.Renderer,
	fetchers AccessFetchers,
	logger *zap.Logger,
) *AccessProbe {
	defaults := DefaultAccessConfig()
	if cfg.RenderRatio <= 0 {
		cfg.RenderRatio = defaults.RenderRatio
	}
	if cfg.FeedPath == "" {
		cfg.FeedPath = defaults.FeedPath
	}
	if cfg.APIPaths == nil {
		cfg.APIPaths = defaults.APIPaths
	}
	return &AccessProbe{
		cfg:      cfg,
		renderer: renderer,
		fetchers: fetchers,
		logger:   logging.Named(logger, "access"),
	}
}

// Probe runs the three sub-checks in turn. A failing sub-check leaves its
// field at the safe default and never stops the others.
func (a *AccessProbe) Probe(ctx context.Context, req analysis.Request) analysis.Result[analysis.AccessReport] {
	report := analysis.AccessReport{FeedURLs: []string{}}

	report.IsRenderDependent = a.checkRendering(ctx, req.URL)
	if feedURL, ok := a.checkFeed(ctx, req.Origin()); ok {
		report.FeedURLs = append(report.FeedURLs, feedURL)
	}
	report.APIEndpoint, report.APIDetected = a.checkAPI(ctx, req.Origin())

	return analysis.Ok(report)
}

func (a *AccessProbe) checkRendering(ctx context.Context, rawURL string) bool {
	if a.renderer == nil {
		return false
	}
	rendered, err := a.renderer.Render(ctx, rawURL)
	if errors.Is(err, analysis.ErrRenderingDisabled) {
		a.logger.Info("render check skipped", zap.String("url", rawURL))
		return false
	}
	if err != nil {
		a.logger.Warn("render check failed", zap.String("url", rawURL), zap.Error(err))
		return false
	}

	resp, err := a.fetchers.Page.Fetch(ctx, rawURL)
	if err != nil && resp.StatusCode == 0 {
		a.logger.Warn("plain fetch for render comparison failed", zap.String("url", rawURL), zap.Error(err))
		return false
	}

	dependent := float64(len(rendered)) > a.cfg.RenderRatio*float64(len(resp.Body))
	a.logger.Debug("render comparison",
		zap.String("url", rawURL),
		zap.Int("rendered_bytes", len(rendered)),
		zap.Int("plain_bytes", len(resp.Body)),
		zap.Bool("render_dependent", dependent))
	return dependent
}

func (a *AccessProbe) checkFeed(ctx context.Context, origin string) (string, bool) {
	feedURL := origin + a.cfg.FeedPath
	resp, err := a.fetchers.Feed.Fetch(ctx, feedURL)
	if err != nil {
		a.logger.Debug("feed fetch failed", zap.String("url", feedURL), zap.Error(err))
		return "", false
	}
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(resp.Body))
	if err != nil {
		a.logger.Debug("feed parse failed", zap.String("url", feedURL), zap.Error(err))
		return "", false
	}
	if len(feed.Items) == 0 {
		return "", false
	}
	return feedURL, true
}

// checkAPI probes the configured paths in order and stops at the first one
// answering 200 with a JSON content type.
func (a *AccessProbe) checkAPI(ctx context.Context, origin string) (string, bool) {
	for _, path := range a.cfg.APIPaths {
		if ctx.Err() != nil {
			return "", false
		}
		endpoint := origin + path
		resp, err := a.fetchers.API.Fetch(ctx, endpoint)
		if err != nil {
			a.logger.Debug("api probe failed", zap.String("url", endpoint), zap.Error(err))
			continue
		}
		if resp.StatusCode == http.StatusOK && strings.Contains(resp.ContentType(), jsonContentType) {
			a.logger.Info("api endpoint detected", zap.String("url", endpoint))
			return endpoint, true
		}
	}
	return "", false
}
