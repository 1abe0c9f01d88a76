package probe

import (
	"context"
	"sync"
	"time"

	"github.com/JakeFAU/siteprobe/internal/analysis"
)

type stubFetcher struct {
	mu        sync.Mutex
	calls     []string
	responses []stubResponse
}

type stubResponse struct {
	resp analysis.FetchResponse
	err  error
}

func (s *stubFetcher) Fetch(_ context.Context, rawURL string) (analysis.FetchResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := len(s.calls)
	s.calls = append(s.calls, rawURL)
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	r := s.responses[idx]
	return r.resp, r.err
}

func (s *stubFetcher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type recordingSleeper struct {
	waits []time.Duration
	err   error
}

func (r *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return r.err
}

type stubRenderer struct {
	html string
	err  error
}

func (s stubRenderer) Render(context.Context, string) (string, error) {
	return s.html, s.err
}

func mustRequest(raw string) analysis.Request {
	req, err := analysis.NewRequest(raw)
	if err != nil {
		panic(err)
	}
	return req
}
