package observe

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Middleware wraps HTTP handlers with tracing, metrics, and access logging.
//
// Contract:
//   - Concurrency: Handler returns a thread-safe http.Handler.
//   - Context: the request context carries the server span downstream.
//   - Ownership: request and response are passed through without
//     modification; headers are never logged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
	now     func() time.Time
}

// NewMiddleware creates a new Middleware with the given observability components.
// Nil components are replaced with no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NewTracer(nil)
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Metrics returns the metrics recorder shared with the auth hooks.
func (m *Middleware) Metrics() Metrics { return m.metrics }

// Logger returns the logger shared with the auth hooks.
func (m *Middleware) Logger() Logger { return m.logger }

// Handler instruments next. The route label is read from the chi routing
// context after next has run, so it is the pattern and never the raw path.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		meta := RequestMeta{Method: r.Method}
		ctx, span := m.tracer.StartSpan(r.Context(), meta)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := m.now()
		next.ServeHTTP(ww, r.WithContext(ctx))
		duration := m.now().Sub(start)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			meta.Route = rctx.RoutePattern()
		}

		m.tracer.EndSpan(span, meta, status)
		m.metrics.RecordRequest(ctx, meta, status, duration)

		fields := []Field{
			F("method", meta.Method),
			F("route", meta.Route),
			F("status", status),
			F("duration_ms", float64(duration.Microseconds())/1000),
		}
		if status >= http.StatusInternalServerError {
			m.logger.Error(ctx, "request failed", fields...)
			return
		}
		m.logger.Info(ctx, "request completed", fields...)
	})
}
