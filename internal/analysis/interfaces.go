package analysis

import (
	"context"
	"net/http"
	"time"
)

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// ContentType returns the response Content-Type header.
func (r FetchResponse) ContentType() string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers.Get("Content-Type")
}

// Fetcher retrieves a URL over plain HTTP without executing scripts.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (FetchResponse, error)
}

// Renderer loads a URL in a full browser and returns the rendered document.
type Renderer interface {
	Render(ctx context.Context, rawURL string) (string, error)
}

// ResultStore is the append-only sink for analysis records.
type ResultStore interface {
	Init(ctx context.Context) error
	Append(ctx context.Context, record Record) (int64, error)
	ListByURL(ctx context.Context, rawURL string) ([]Record, error)
	Close() error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
