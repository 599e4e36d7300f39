package observe

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Decision outcomes recorded on the authentication and authorization counters.
const (
	OutcomeAllowed = "allowed"
	OutcomeDenied  = "denied"
)

// Metrics records authentication, authorization and request metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordAuthentication records one gate decision. reason is a stable
	// failure code and is empty on success.
	RecordAuthentication(ctx context.Context, reason string)

	// RecordAuthorization records one role or ownership decision.
	RecordAuthorization(ctx context.Context, operation, stage string, allowed bool)

	// RecordRequest records a completed HTTP request.
	RecordRequest(ctx context.Context, meta RequestMeta, status int, duration time.Duration)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	authnCount   metric.Int64Counter
	authzCount   metric.Int64Counter
	requestCount metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewMetrics creates a Metrics instance with the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	return newMetrics(meter)
}

func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	authnCount, err := meter.Int64Counter(
		"gridgate.authn.decisions",
		metric.WithDescription("Authentication decisions by outcome and failure reason"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, err
	}

	authzCount, err := meter.Int64Counter(
		"gridgate.authz.decisions",
		metric.WithDescription("Authorization decisions by operation, stage and outcome"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, err
	}

	requestCount, err := meter.Int64Counter(
		"gridgate.http.requests",
		metric.WithDescription("Completed HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"gridgate.http.duration_ms",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		authnCount:   authnCount,
		authzCount:   authzCount,
		requestCount: requestCount,
		durationHist: durationHist,
	}, nil
}

func (m *metricsImpl) RecordAuthentication(ctx context.Context, reason string) {
	outcome := OutcomeAllowed
	if reason != "" {
		outcome = OutcomeDenied
	}
	m.authnCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("reason", reason),
	))
}

func (m *metricsImpl) RecordAuthorization(ctx context.Context, operation, stage string, allowed bool) {
	outcome := OutcomeDenied
	if allowed {
		outcome = OutcomeAllowed
	}
	m.authzCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("stage", stage),
		attribute.String("outcome", outcome),
	))
}

func (m *metricsImpl) RecordRequest(ctx context.Context, meta RequestMeta, status int, duration time.Duration) {
	opt := metric.WithAttributes(
		attribute.String("http.method", meta.Method),
		attribute.String("http.route", meta.Route),
		attribute.String("http.status_code", strconv.Itoa(status)),
	)
	m.requestCount.Add(ctx, 1, opt)
	m.durationHist.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics { return noopMetrics{} }

func (noopMetrics) RecordAuthentication(context.Context, string)                   {}
func (noopMetrics) RecordAuthorization(context.Context, string, string, bool)      {}
func (noopMetrics) RecordRequest(context.Context, RequestMeta, int, time.Duration) {}

var (
	_ Metrics = (*metricsImpl)(nil)
	_ Metrics = noopMetrics{}
)
