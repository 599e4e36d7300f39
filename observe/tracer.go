package observe

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// RequestMeta describes an HTTP request for telemetry purposes.
type RequestMeta struct {
	Method string // HTTP method
	Route  string // Route pattern, e.g. /simulator/household/{id}; never the raw path
}

// SpanName returns the span name for this request: "<METHOD> <route>".
func (m RequestMeta) SpanName() string {
	route := m.Route
	if route == "" {
		route = "unmatched"
	}
	return m.Method + " " + route
}

// Tracer wraps OpenTelemetry tracing with request span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a server span for a request.
	StartSpan(ctx context.Context, meta RequestMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording the final route and status.
	EndSpan(span trace.Span, meta RequestMeta, status int)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer wrapping the given OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	if t == nil {
		t = tracenoop.NewTracerProvider().Tracer("noop")
	}
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, meta RequestMeta) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attribute.String("http.method", meta.Method)),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// EndSpan marks 5xx responses as errors. 401 and 403 are expected outcomes
// and keep an unset status.
func (t *tracerImpl) EndSpan(span trace.Span, meta RequestMeta, status int) {
	span.SetName(meta.SpanName())
	span.SetAttributes(
		attribute.String("http.route", meta.Route),
		attribute.Int("http.status_code", status),
	)
	if status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(status))
	}
	span.End()
}
