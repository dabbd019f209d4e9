package middleware

import (
	"log/slog"
	"net/http"

	"github.com/parlohq/parlo-api/internal/api/shared"
	"github.com/parlohq/parlo-api/internal/platform/logger"
)

// TraceMiddleware assigns each request a trace ID and injects a
// trace-scoped logger into the context, so every log line below this point
// carries the correlation ID. Apply it before anything that logs.
func TraceMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.SetTraceID(r.Context())
			traceID := shared.GetTraceID(ctx)

			log := base.With(slog.String("trace_id", traceID))
			ctx = logger.WithLogger(ctx, log)

			log.Debug("request started",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
