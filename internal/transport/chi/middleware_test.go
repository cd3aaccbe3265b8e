package chi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	logpkg "github.com/kailas-cloud/pieces/internal/logger"
)

func TestRequestLog(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLog(logger))
	r.Get("/pieces/{id}", func(w http.ResponseWriter, r *http.Request) {
		logpkg.FromContext(r.Context(), nil).Info("inside handler")
		if chi.URLParam(r, "id") == "missing" {
			w.WriteHeader(http.StatusNotFound)
		}
	})
	r.Get("/health", func(http.ResponseWriter, *http.Request) {})

	for _, path := range []string{"/pieces/a", "/pieces/missing", "/health"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, http.NoBody))
		if rr.Header().Get(chiMiddleware.RequestIDHeader) == "" {
			t.Errorf("%s: no request id header", path)
		}
	}
	inside := logs.FilterMessage("inside handler").AllUntimed()
	if len(inside) != 2 {
		t.Fatalf("handler logged %d times, want 2", len(inside))
	}
	if id, _ := inside[0].ContextMap()["request_id"].(string); id == "" {
		t.Error("handler logger is not tagged with the request id")
	}

	entries := logs.FilterMessage("http_request").AllUntimed()
	if len(entries) != 3 {
		t.Fatalf("logged %d request lines, want 3", len(entries))
	}
	wantLevels := []zapcore.Level{zapcore.InfoLevel, zapcore.WarnLevel, zapcore.DebugLevel}
	for i, e := range entries {
		if e.Level != wantLevels[i] {
			t.Errorf("entry %d level = %s, want %s", i, e.Level, wantLevels[i])
		}
		if id, _ := e.ContextMap()["request_id"].(string); id == "" {
			t.Errorf("entry %d has no request_id", i)
		}
	}
	if route := entries[0].ContextMap()["route"]; route != "/pieces/{id}" {
		t.Errorf("route = %v", route)
	}
}

func TestRequestLevel(t *testing.T) {
	tests := []struct {
		path   string
		status int
		want   zapcore.Level
	}{
		{"/pieces", 201, zapcore.InfoLevel},
		{"/metrics", 200, zapcore.DebugLevel},
		{"/pieces/x", 404, zapcore.WarnLevel},
		{"/health", 503, zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		if got := requestLevel(tt.path, tt.status); got != tt.want {
			t.Errorf("requestLevel(%s, %d) = %s, want %s", tt.path, tt.status, got, tt.want)
		}
	}
}
