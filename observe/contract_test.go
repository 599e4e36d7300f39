package observe

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestLoggerContract_Noop(t *testing.T) {
	logger := NopLogger()
	if logger.With(F("k", "v")) == nil {
		t.Fatal("With should return non-nil logger")
	}
	if logger.WithOperation("whoami") == nil {
		t.Fatal("WithOperation should return non-nil logger")
	}
	logger.Info(context.Background(), "discarded")
}

func TestMetricsContract_NoPanic(t *testing.T) {
	m := NopMetrics()
	ctx := context.Background()
	m.RecordAuthentication(ctx, "expired")
	m.RecordAuthorization(ctx, "whoami", "role_checked", true)
	m.RecordRequest(ctx, RequestMeta{Method: "GET"}, http.StatusOK, time.Millisecond)
}
