package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/JakeFAU/siteprobe/internal/analysis"
	"github.com/JakeFAU/siteprobe/internal/export"
	"github.com/JakeFAU/siteprobe/internal/logging"
	"github.com/JakeFAU/siteprobe/internal/metrics"
	"github.com/JakeFAU/siteprobe/internal/report"
)

const (
	defaultRequestTimeout = 2 * time.Minute
	maxRequestBody        = 1 << 16
)

// Analyzer runs one analysis and returns the stored record.
type Analyzer interface {
	Analyze(ctx context.Context, rawURL string) (analysis.Record, error)
}

// RecordLister returns previously stored records for a URL.
type RecordLister interface {
	ListByURL(ctx context.Context, rawURL string) ([]analysis.Record, error)
}

// Options tune the server.
type Options struct {
	// RequestTimeout bounds each request; analyses run inside it.
	RequestTimeout time.Duration
}

// Server wires HTTP handlers to the coordinator and the result store.
type Server struct {
	handler  http.Handler
	analyzer Analyzer
	records  RecordLister
	logger   *zap.Logger
}

type analyzeRequest struct {
	URL string `json:"url"`
}

// NewServer constructs a Server with middleware and routes.
func NewServer(analyzer Analyzer, records RecordLister, logger *zap.Logger, opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	s := &Server{
		analyzer: analyzer,
		records:  records,
		logger:   logging.Named(logger, "api"),
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1/analyses", func(r chi.Router) {
		r.Use(timeoutMiddleware(opts.RequestTimeout))
		r.Post("/", s.handleAnalyze)
		r.Get("/export", s.handleExport)
		r.Get("/", s.handleList)
	})
	s.handler = otelhttp.NewHandler(r, "siteprobe.api")
	return s
}

// Handler exposes the HTTP handler, traced with OpenTelemetry.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "url required")
		return
	}
	rec, err := s.analyzer.Analyze(r.Context(), req.URL)
	if err != nil {
		if errors.Is(err, analysis.ErrInvalidURL) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("analysis failed",
			zap.String("url", req.URL),
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to store analysis")
		return
	}
	writeJSON(w, http.StatusOK, report.NewDocument(rec))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	rawURL, ok := requireURLParam(w, r)
	if !ok {
		return
	}
	records, err := s.records.ListByURL(r.Context(), rawURL)
	if err != nil {
		s.logger.Error("list records failed", zap.String("url", rawURL), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list records")
		return
	}
	docs := make([]report.Document, 0, len(records))
	for _, rec := range records {
		docs = append(docs, report.NewDocument(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": docs})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	rawURL, ok := requireURLParam(w, r)
	if !ok {
		return
	}
	records, err := s.records.ListByURL(r.Context(), rawURL)
	if err != nil {
		s.logger.Error("export records failed", zap.String("url", rawURL), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list records")
		return
	}
	if len(records) == 0 {
		writeError(w, http.StatusNotFound, "no records for url")
		return
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, records); err != nil {
		s.logger.Error("encode csv failed", zap.String("url", rawURL), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to encode csv")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(rawURL)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func requireURLParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	rawURL := strings.TrimSpace(r.URL.Query().Get("url"))
	if rawURL == "" {
		writeError(w, http.StatusBadRequest, "url query parameter required")
		return "", false
	}
	return rawURL, true
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered",
					zap.String("request_id", requestIDFrom(r.Context())),
					zap.Any("panic", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

type requestIDKey struct{}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
