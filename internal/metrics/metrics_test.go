package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://Example.com/path", "example.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, SanitizeSite(tc.input))
		})
	}
}

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	require.NotNil(t, probeOutcomesTotal)
	require.NotNil(t, probeDurationSeconds)
	require.NotNil(t, contentAttemptsTotal)
	require.NotNil(t, analysesTotal)
	require.NotNil(t, httpRequestsTotal)
	require.NotNil(t, httpRequestDurationSeconds)
}

func TestObserveProbe(t *testing.T) {
	Init()
	before := testutil.ToFloat64(probeOutcomesTotal.WithLabelValues("policy-test", OutcomeError))

	ObserveProbe("policy-test", OutcomeError, 150*time.Millisecond)

	after := testutil.ToFloat64(probeOutcomesTotal.WithLabelValues("policy-test", OutcomeError))
	assert.Equal(t, before+1, after)
	assert.Positive(t, testutil.CollectAndCount(probeDurationSeconds))
}

func TestObserveCounters(t *testing.T) {
	Init()
	attempts := testutil.ToFloat64(contentAttemptsTotal.WithLabelValues("counter-test"))
	analyses := testutil.ToFloat64(analysesTotal.WithLabelValues("counter-test"))

	ObserveContentAttempt("counter-test")
	ObserveAnalysis("counter-test")

	assert.Equal(t, attempts+1, testutil.ToFloat64(contentAttemptsTotal.WithLabelValues("counter-test")))
	assert.Equal(t, analyses+1, testutil.ToFloat64(analysesTotal.WithLabelValues("counter-test")))
}

func TestObserveRateLimitDelay(t *testing.T) {
	Init()
	ObserveRateLimitDelay(150 * time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(rateLimitDelaySeconds, "siteprobe_rate_limit_delay_seconds"))
}

func TestMiddleware(t *testing.T) {
	Init()
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/test", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/teapot", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	okBefore := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "200"))
	teapotBefore := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "418"))

	for _, path := range []string{"/test", "/teapot"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, okBefore+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "200")))
	assert.Equal(t, teapotBefore+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "418")))
	assert.Positive(t, testutil.CollectAndCount(httpRequestDurationSeconds))
}

func FuzzSanitizeSite(f *testing.F) {
	for _, tc := range []string{"http://example.com", "https://google.com", "ftp://example.com"} {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		if SanitizeSite(orig) == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
