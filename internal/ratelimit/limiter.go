// Package ratelimit implements per-host token buckets and a Fetcher wrapper
// that waits on them before every request.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/siteprobe/internal/analysis"
	"github.com/JakeFAU/siteprobe/internal/metrics"
)

// Limiter manages per-host rate limits.
type Limiter struct {
	mu           sync.Mutex
	limiters     map[string]*rate.Limiter
	defaultRate  rate.Limit
	defaultBurst int
}

// Config holds rate limiter configuration. A non-positive RPS disables limiting.
type Config struct {
	RPS   float64
	Burst int
}

// New creates a new Limiter.
func New(cfg Config) *Limiter {
	r := rate.Limit(cfg.RPS)
	if cfg.RPS <= 0 {
		r = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  r,
		defaultBurst: burst,
	}
}

// Wait blocks until a token is available for the URL's host, respecting the context.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host := metrics.SanitizeSite(rawURL)
	l.mu.Lock()
	limiter, exists := l.limiters[host]
	if !exists {
		limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
		l.limiters[host] = limiter
	}
	l.mu.Unlock()

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if d := time.Since(start); d > time.Millisecond {
		metrics.ObserveRateLimitDelay(d)
	}
	return nil
}

// Fetcher waits on a Limiter before delegating to the wrapped fetcher. The
// wait and the fetch share one deadline of timeout.
type Fetcher struct {
	next    analysis.Fetcher
	limiter *Limiter
	timeout time.Duration
}

// Wrap returns next unchanged when limiter is nil. A non-positive timeout
// leaves the deadline to ctx and the wrapped fetcher.
func Wrap(next analysis.Fetcher, limiter *Limiter, timeout time.Duration) analysis.Fetcher {
	if limiter == nil {
		return next
	}
	return &Fetcher{next: next, limiter: limiter, timeout: timeout}
}

// Fetch implements analysis.Fetcher.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (analysis.FetchResponse, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	if err := f.limiter.Wait(ctx, rawURL); err != nil {
		return analysis.FetchResponse{}, err
	}
	return f.next.Fetch(ctx, rawURL)
}
