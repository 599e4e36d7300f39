package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func newHealthRouter(checkers map[string]Checker) http.Handler {
	agg := NewAggregator()
	for name, c := range checkers {
		agg.Register(name, c)
	}
	r := chi.NewRouter()
	Mount(r, agg)
	return r
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestLivenessHandler(t *testing.T) {
	rec := get(newHealthRouter(map[string]Checker{"down": fixed(StatusUnhealthy)}), LivenessPath)
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("liveness = %d %q, want 200 OK", rec.Code, rec.Body.String())
	}
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name     string
		status   Status
		wantCode int
		wantBody string
	}{
		{"healthy", StatusHealthy, http.StatusOK, "OK"},
		{"degraded", StatusDegraded, http.StatusOK, "DEGRADED"},
		{"unhealthy", StatusUnhealthy, http.StatusServiceUnavailable, "UNHEALTHY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(newHealthRouter(map[string]Checker{"c": fixed(tt.status)}), ReadinessPath)
			if rec.Code != tt.wantCode || rec.Body.String() != tt.wantBody {
				t.Errorf("readiness = %d %q, want %d %q", rec.Code, rec.Body.String(), tt.wantCode, tt.wantBody)
			}
		})
	}
}

func TestDetailedHandler(t *testing.T) {
	h := newHealthRouter(map[string]Checker{
		"ok":   fixed(StatusHealthy),
		"down": NewCheckerFunc("down", func(context.Context) Result { return Unhealthy("gone", ErrCheckFailed) }),
	})

	rec := get(h, DetailedPath)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "unhealthy" || len(resp.Checks) != 2 {
		t.Errorf("response = %+v", resp)
	}
	if resp.Checks["down"].Error != ErrCheckFailed.Error() {
		t.Errorf("down.error = %q", resp.Checks["down"].Error)
	}
}

func TestSingleCheckHandler(t *testing.T) {
	h := newHealthRouter(map[string]Checker{"ok": fixed(StatusHealthy)})

	if rec := get(h, DetailedPath+"/ok"); rec.Code != http.StatusOK {
		t.Errorf("GET /health/ok = %d, want 200", rec.Code)
	}
	if rec := get(h, DetailedPath+"/nope"); rec.Code != http.StatusNotFound {
		t.Errorf("GET /health/nope = %d, want 404", rec.Code)
	}
}
