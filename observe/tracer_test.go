package observe

import (
	"context"
	"net/http"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newTestTracer() (Tracer, *tracetest.SpanRecorder) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	return NewTracer(tp.Tracer("test")), sr
}

func TestRequestMeta_SpanName(t *testing.T) {
	tests := []struct {
		meta RequestMeta
		want string
	}{
		{RequestMeta{Method: "GET", Route: "/simulator/grid/blackouts"}, "GET /simulator/grid/blackouts"},
		{RequestMeta{Method: "POST"}, "POST unmatched"},
	}
	for _, tt := range tests {
		if got := tt.meta.SpanName(); got != tt.want {
			t.Errorf("SpanName() = %q, want %q", got, tt.want)
		}
	}
}

func TestTracer_Span(t *testing.T) {
	tracer, sr := newTestTracer()

	meta := RequestMeta{Method: "DELETE"}
	_, span := tracer.StartSpan(context.Background(), meta)
	meta.Route = "/simulator/household/{id}"
	tracer.EndSpan(span, meta, http.StatusForbidden)

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	s := spans[0]
	if s.Name() != "DELETE /simulator/household/{id}" {
		t.Errorf("span name = %q", s.Name())
	}
	if s.SpanKind() != trace.SpanKindServer {
		t.Errorf("span kind = %v, want server", s.SpanKind())
	}
	if s.Status().Code == codes.Error {
		t.Error("403 marked as span error")
	}

	var gotStatus int64
	for _, kv := range s.Attributes() {
		if kv.Key == attribute.Key("http.status_code") {
			gotStatus = kv.Value.AsInt64()
		}
	}
	if gotStatus != http.StatusForbidden {
		t.Errorf("http.status_code = %d, want 403", gotStatus)
	}
}

func TestTracer_ServerErrorStatus(t *testing.T) {
	tracer, sr := newTestTracer()

	_, span := tracer.StartSpan(context.Background(), RequestMeta{Method: "GET"})
	tracer.EndSpan(span, RequestMeta{Method: "GET", Route: "/x"}, http.StatusInternalServerError)

	if got := sr.Ended()[0].Status().Code; got != codes.Error {
		t.Errorf("status code = %v, want Error", got)
	}
}

func TestNewTracer_Nil(t *testing.T) {
	tracer := NewTracer(nil)
	_, span := tracer.StartSpan(context.Background(), RequestMeta{Method: "GET"})
	tracer.EndSpan(span, RequestMeta{Method: "GET"}, http.StatusOK)
}
