package probe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/siteprobe/internal/analysis"
	collyfetcher "github.com/JakeFAU/siteprobe/internal/fetcher/colly"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>Updates</title><link>https://example.com/</link><description>d</description>
<item><title>First</title><link>https://example.com/1</link></item>
</channel></rss>`

const emptyFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Updates</title></channel></rss>`

type siteStub struct {
	mu   sync.Mutex
	hits map[string]int
	mux  *http.ServeMux
}

func newSiteStub() *siteStub {
	return &siteStub{hits: map[string]int{}, mux: http.NewServeMux()}
}

func (s *siteStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	s.mu.Unlock()
	s.mux.ServeHTTP(w, r)
}

func (s *siteStub) count(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func newTestAccessProbe(renderer analysis.Renderer) *AccessProbe {
	page := collyfetcher.New(collyfetcher.Config{Timeout: 2 * time.Second})
	feed := collyfetcher.New(collyfetcher.Config{Timeout: 2 * time.Second})
	api := collyfetcher.New(collyfetcher.Config{Timeout: time.Second})
	return NewAccessProbe(DefaultAccessConfig(), renderer, AccessFetchers{Page: page, Feed: feed, API: api}, nil)
}

func TestAccessProbeRenderDependent(t *testing.T) {
	t.Parallel()

	site := newSiteStub()
	site.mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", 1000)))
	})
	srv := httptest.NewServer(site)
	defer srv.Close()

	probe := newTestAccessProbe(stubRenderer{html: strings.Repeat("b", 2000)})
	res := probe.Probe(context.Background(), mustRequest(srv.URL))
	require.False(t, res.IsErr())
	assert.True(t, res.Value().IsRenderDependent)
}

func TestAccessProbeRenderRatioBoundary(t *testing.T) {
	t.Parallel()

	site := newSiteStub()
	site.mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", 1000)))
	})
	srv := httptest.NewServer(site)
	defer srv.Close()

	probe := newTestAccessProbe(stubRenderer{html: strings.Repeat("b", 1500)})
	res := probe.Probe(context.Background(), mustRequest(srv.URL))
	assert.False(t, res.Value().IsRenderDependent)
}

func TestAccessProbeRenderFailuresDefaultToFalse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(newSiteStub())
	defer srv.Close()

	for name, renderer := range map[string]analysis.Renderer{
		"launch failure": stubRenderer{err: errors.New("chrome not found")},
		"disabled":       stubRenderer{err: analysis.ErrRenderingDisabled},
		"nil renderer":   nil,
	} {
		t.Run(name, func(t *testing.T) {
			res := newTestAccessProbe(renderer).Probe(context.Background(), mustRequest(srv.URL))
			require.False(t, res.IsErr())
			assert.False(t, res.Value().IsRenderDependent)
			assert.Equal(t, []string{}, res.Value().FeedURLs)
		})
	}
}

func TestAccessProbeComparisonFetchFailure(t *testing.T) {
	t.Parallel()

	page := &stubFetcher{responses: []stubResponse{{err: errors.New("dial tcp: i/o timeout")}}}
	other := &stubFetcher{responses: []stubResponse{{err: errors.New("unreachable")}}}
	probe := NewAccessProbe(DefaultAccessConfig(), stubRenderer{html: strings.Repeat("x", 5000)},
		AccessFetchers{Page: page, Feed: other, API: other}, nil)

	res := probe.Probe(context.Background(), mustRequest("https://example.com"))
	require.False(t, res.IsErr())
	report := res.Value()
	assert.False(t, report.IsRenderDependent)
	assert.False(t, report.APIDetected)
	assert.Empty(t, report.FeedURLs)
	assert.Equal(t, 1, page.callCount())
	assert.Equal(t, 4, other.callCount())
}

func TestAccessProbeFeedDetection(t *testing.T) {
	t.Parallel()

	site := newSiteStub()
	site.mux.HandleFunc("/rss", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleFeed))
	})
	srv := httptest.NewServer(site)
	defer srv.Close()

	res := newTestAccessProbe(nil).Probe(context.Background(), mustRequest(srv.URL+"/some/page"))
	require.False(t, res.IsErr())
	assert.Equal(t, []string{srv.URL + "/rss"}, res.Value().FeedURLs)
}

func TestAccessProbeFeedWithoutItemsOrUnparseable(t *testing.T) {
	t.Parallel()

	for name, body := range map[string]string{
		"no items":   emptyFeed,
		"not a feed": "<html><body>hello</body></html>",
		"empty body": "",
	} {
		t.Run(name, func(t *testing.T) {
			site := newSiteStub()
			site.mux.HandleFunc("/rss", func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			})
			srv := httptest.NewServer(site)
			defer srv.Close()

			res := newTestAccessProbe(nil).Probe(context.Background(), mustRequest(srv.URL))
			require.False(t, res.IsErr())
			assert.Empty(t, res.Value().FeedURLs)
		})
	}
}

func TestAccessProbeAPIShortCircuits(t *testing.T) {
	t.Parallel()

	site := newSiteStub()
	site.mux.HandleFunc("/api", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	site.mux.HandleFunc("/v1/api", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	site.mux.HandleFunc("/json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	})
	srv := httptest.NewServer(site)
	defer srv.Close()

	res := newTestAccessProbe(nil).Probe(context.Background(), mustRequest(srv.URL))
	require.False(t, res.IsErr())
	report := res.Value()
	assert.True(t, report.APIDetected)
	assert.Equal(t, srv.URL+"/v1/api", report.APIEndpoint)
	assert.Equal(t, 1, site.count("/api"))
	assert.Equal(t, 1, site.count("/v1/api"))
	assert.Equal(t, 0, site.count("/json"))
}

func TestAccessProbeAPIRequiresJSON(t *testing.T) {
	t.Parallel()

	site := newSiteStub()
	site.mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html></html>"))
	})
	srv := httptest.NewServer(site)
	defer srv.Close()

	res := newTestAccessProbe(nil).Probe(context.Background(), mustRequest(srv.URL))
	require.False(t, res.IsErr())
	assert.False(t, res.Value().APIDetected)
	assert.Equal(t, 1, site.count("/json"))
}

func TestAccessProbeAPITimeoutContinues(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	site := newSiteStub()
	site.mux.HandleFunc("/api", func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	site.mux.HandleFunc("/json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	})
	srv := httptest.NewServer(site)
	defer srv.Close()
	defer close(release)

	api := collyfetcher.New(collyfetcher.Config{Timeout: 100 * time.Millisecond})
	other := collyfetcher.New(collyfetcher.Config{Timeout: time.Second})
	probe := NewAccessProbe(DefaultAccessConfig(), nil, AccessFetchers{Page: other, Feed: other, API: api}, nil)

	res := probe.Probe(context.Background(), mustRequest(srv.URL))
	require.False(t, res.IsErr())
	assert.True(t, res.Value().APIDetected)
	assert.Equal(t, srv.URL+"/json", res.Value().APIEndpoint)
}
