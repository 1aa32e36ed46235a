package middleware

import (
	"log/slog"
	"net/http"
	"regexp"

	"github.com/lumolearn/lumo-core/internal/api/shared"
	"github.com/lumolearn/lumo-core/internal/platform/logger"
)

// TraceHeader carries the trace ID on requests and responses. A front-end
// proxy that already assigned a correlation ID can send it here and the
// service adopts it instead of minting its own.
const TraceHeader = "X-Trace-ID"

// inboundTraceID bounds what is accepted from callers. IDs outside this shape
// are discarded and replaced, keeping header-injected junk out of log fields.
var inboundTraceID = regexp.MustCompile(`^[A-Za-z0-9-]{8,64}$`)

// Trace assigns each request a trace ID, echoes it in the response headers,
// and installs a request-scoped logger carrying the ID. Handlers retrieve
// that logger via logger.FromContextOrDefault, so every log line and error
// response for one request shares the same trace_id field.
//
// Applied early in the middleware chain so everything downstream sees the ID.
func Trace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if id := r.Header.Get(TraceHeader); inboundTraceID.MatchString(id) {
			ctx = shared.WithTraceID(ctx, id)
		} else {
			ctx = shared.SetTraceID(ctx)
		}
		traceID := shared.GetTraceID(ctx)

		// Echoed before the handler runs so even error responses carry it.
		w.Header().Set(TraceHeader, traceID)

		log := slog.With(slog.String("trace_id", traceID))
		ctx = logger.WithLogger(ctx, log)

		log.Debug("request started",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote_addr", r.RemoteAddr))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
