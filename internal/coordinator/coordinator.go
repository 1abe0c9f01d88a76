// Package coordinator runs the three probes against one URL, joins their
// results into a single record, and persists it.
package coordinator

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/siteprobe/internal/analysis"
	"github.com/JakeFAU/siteprobe/internal/logging"
	"github.com/JakeFAU/siteprobe/internal/metrics"
	"github.com/JakeFAU/siteprobe/internal/telemetry"
)

// Probe names used in logs and metrics.
const (
	ProbePolicy  = "policy"
	ProbeContent = "content"
	ProbeAccess  = "access"
)

// Analysis status labels.
const (
	statusOK         = "ok"
	statusInvalidURL = "invalid_url"
	statusStoreError = "store_error"
)

// PolicyProbe evaluates the site's robots.txt.
type PolicyProbe interface {
	Analyze(ctx context.Context, req analysis.Request) analysis.Result[analysis.PolicyReport]
}

// ContentProbe extracts page content.
type ContentProbe interface {
	Extract(ctx context.Context, req analysis.Request) analysis.Result[analysis.ContentReport]
}

// AccessProbe checks render dependence, feeds and API paths.
type AccessProbe interface {
	Probe(ctx context.Context, req analysis.Request) analysis.Result[analysis.AccessReport]
}

// Probes bundles the three analyses.
type Probes struct {
	Policy  PolicyProbe
	Content ContentProbe
	Access  AccessProbe
}

// Coordinator fans a request out to the probes and persists the merged record.
type Coordinator struct {
	probes Probes
	store  analysis.ResultStore
	clock  analysis.Clock
	logger *zap.Logger
	tracer trace.Tracer
}

// New builds a Coordinator.
func New(probes Probes, store analysis.ResultStore, clock analysis.Clock, logger *zap.Logger) (*Coordinator, error) {
	if probes.Policy == nil || probes.Content == nil || probes.Access == nil {
		return nil, fmt.Errorf("all three probes are required")
	}
	if store == nil {
		return nil, fmt.Errorf("result store is required")
	}
	if clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	return &Coordinator{
		probes: probes,
		store:  store,
		clock:  clock,
		logger: logging.Named(logger, "coordinator"),
		tracer: telemetry.Tracer(),
	}, nil
}

// Analyze validates rawURL, runs all probes concurrently and appends exactly
// one record. Probe failures are folded into the record; only an invalid URL
// or a store failure produce an error.
func (c *Coordinator) Analyze(ctx context.Context, rawURL string) (analysis.Record, error) {
	req, err := analysis.NewRequest(rawURL)
	if err != nil {
		metrics.ObserveAnalysis(statusInvalidURL)
		return analysis.Record{}, err
	}
	logger := c.logger.With(zap.String("url", req.URL))

	ctx, span := c.tracer.Start(ctx, "analysis", trace.WithAttributes(attribute.String("url.full", req.URL)))
	defer span.End()

	if err := c.store.Init(ctx); err != nil {
		metrics.ObserveAnalysis(statusStoreError)
		span.RecordError(err)
		span.SetStatus(codes.Error, "init result store")
		return analysis.Record{}, fmt.Errorf("init result store: %w", err)
	}

	logger.Info("analysis started")
	start := time.Now()
	outcome := c.runProbes(ctx, req, logger)

	record := analysis.Record{
		URL:       req.URL,
		Timestamp: c.clock.Now(),
		Outcome:   outcome,
	}
	id, err := c.store.Append(ctx, record)
	if err != nil {
		metrics.ObserveAnalysis(statusStoreError)
		span.RecordError(err)
		span.SetStatus(codes.Error, "append record")
		return analysis.Record{}, fmt.Errorf("append record: %w", err)
	}
	record.ID = id
	span.SetAttributes(attribute.Int64("record.id", id))

	metrics.ObserveAnalysis(statusOK)
	logger.Info("analysis stored",
		zap.Int64("id", id),
		zap.Bool("policy_failed", outcome.Policy.Failed()),
		zap.Bool("content_failed", outcome.Content.Failed()),
		zap.Duration("elapsed", time.Since(start)))
	return record, nil
}

func (c *Coordinator) runProbes(ctx context.Context, req analysis.Request, logger *zap.Logger) analysis.Outcome {
	var (
		g       errgroup.Group
		policy  analysis.Result[analysis.PolicyReport]
		content analysis.Result[analysis.ContentReport]
		access  analysis.Result[analysis.AccessReport]
	)

	g.Go(func() error {
		policy = guard(ctx, c.tracer, ProbePolicy, logger, func(ctx context.Context) analysis.Result[analysis.PolicyReport] {
			return c.probes.Policy.Analyze(ctx, req)
		})
		return nil
	})
	g.Go(func() error {
		content = guard(ctx, c.tracer, ProbeContent, logger, func(ctx context.Context) analysis.Result[analysis.ContentReport] {
			return c.probes.Content.Extract(ctx, req)
		})
		return nil
	})
	g.Go(func() error {
		access = guard(ctx, c.tracer, ProbeAccess, logger, func(ctx context.Context) analysis.Result[analysis.AccessReport] {
			return c.probes.Access.Probe(ctx, req)
		})
		return nil
	})
	_ = g.Wait()

	return join(policy, content, access)
}

// guard runs one probe in its own span, turning a panic into an Err result
// and recording metrics for the run.
func guard[T any](
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	logger *zap.Logger,
	run func(context.Context) analysis.Result[T],
) (res analysis.Result[T]) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "probe."+name)
	defer span.End()
	defer func() {
		outcome := metrics.OutcomeOK
		if rec := recover(); rec != nil {
			logger.Error("probe panicked", zap.String("probe", name), zap.Any("panic", rec), zap.Stack("stack"))
			res = analysis.Err[T](fmt.Sprintf("%s probe panicked: %v", name, rec))
			outcome = metrics.OutcomePanic
		} else if res.IsErr() {
			outcome = metrics.OutcomeError
		}
		if outcome != metrics.OutcomeOK {
			span.SetStatus(codes.Error, res.Reason())
		}
		metrics.ObserveProbe(name, outcome, time.Since(start))
	}()
	return run(ctx)
}

// join folds three results into an Outcome; every report is always present.
func join(
	policy analysis.Result[analysis.PolicyReport],
	content analysis.Result[analysis.ContentReport],
	access analysis.Result[analysis.AccessReport],
) analysis.Outcome {
	var out analysis.Outcome

	if policy.IsErr() {
		out.Policy = analysis.PolicyReport{Error: policy.Reason()}
	} else {
		out.Policy = policy.Value()
	}

	if content.IsErr() {
		out.Content = analysis.ContentReport{Error: content.Reason()}
	} else {
		out.Content = content.Value()
	}

	if access.IsErr() {
		out.Access = analysis.AccessReport{FeedURLs: []string{}, Error: access.Reason()}
	} else {
		out.Access = access.Value()
		out.Access.FeedURLs = analysis.NonNil(out.Access.FeedURLs)
	}
	return out
}
