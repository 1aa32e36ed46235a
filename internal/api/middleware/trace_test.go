package middleware_test

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/lumolearn/lumo-core/internal/api/middleware"
	"github.com/lumolearn/lumo-core/internal/api/shared"
	"github.com/lumolearn/lumo-core/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// generatedTraceID matches the IDs the service mints itself.
var generatedTraceID = regexp.MustCompile(`^[0-9a-f]{32}$`)

// probe wraps the middleware around a handler that records the trace ID it
// observed in its request context.
func probe(seen *string) http.Handler {
	return middleware.Trace(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen = shared.GetTraceID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
}

func TestTraceGeneratesID(t *testing.T) {
	var seen string
	rec := httptest.NewRecorder()

	probe(&seen).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/learners/1/plan", nil))

	require.NotEmpty(t, seen)
	assert.Regexp(t, generatedTraceID, seen)
	assert.Equal(t, seen, rec.Header().Get(middleware.TraceHeader))
}

func TestTraceAdoptsUpstreamID(t *testing.T) {
	var seen string
	req := httptest.NewRequest(http.MethodGet, "/api/units", nil)
	req.Header.Set(middleware.TraceHeader, "edge-7f3a9b2c51d04e88")
	rec := httptest.NewRecorder()

	probe(&seen).ServeHTTP(rec, req)

	assert.Equal(t, "edge-7f3a9b2c51d04e88", seen)
	assert.Equal(t, "edge-7f3a9b2c51d04e88", rec.Header().Get(middleware.TraceHeader))
}

func TestTraceReplacesMalformedID(t *testing.T) {
	tests := []struct {
		name    string
		inbound string
	}{
		{name: "contains spaces", inbound: "bad trace id"},
		{name: "too short", inbound: "abc"},
		{name: "too long", inbound: strings.Repeat("a", 65)},
		{name: "unexpected characters", inbound: "{\"id\":42}"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var seen string
			req := httptest.NewRequest(http.MethodGet, "/api/units", nil)
			req.Header.Set(middleware.TraceHeader, tc.inbound)
			rec := httptest.NewRecorder()

			probe(&seen).ServeHTTP(rec, req)

			assert.NotEqual(t, tc.inbound, seen)
			assert.Regexp(t, generatedTraceID, seen)
			assert.Equal(t, seen, rec.Header().Get(middleware.TraceHeader))
		})
	}
}

func TestTraceInstallsRequestLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	var buf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	h := middleware.Trace(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Info("handling request")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	out := buf.String()
	traceID := rec.Header().Get(middleware.TraceHeader)
	require.NotEmpty(t, traceID)
	assert.Contains(t, out, "request started")
	assert.Contains(t, out, "handling request")
	assert.Equal(t, 2, strings.Count(out, "trace_id="+traceID),
		"both the middleware line and the handler line should carry the trace ID")
}
