package middleware

import (
	"log/slog"
	"net/http"

	"github.com/S1riyS/ghost-vfs/pkg/logging"
)

const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware tags the request context with an id, taken from the
// X-Request-ID header or generated, and echoes it in the response.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		requestID := logging.GetRequestIDFromCtx(ctx)
		if requestID == "" {
			requestID = r.Header.Get(RequestIDHeader)
		}
		if requestID == "" {
			requestID = logging.NewRequestID()
		}
		ctx = logging.MakeContextWithRequestID(ctx, requestID)

		w.Header().Set(RequestIDHeader, requestID)
		logging.GetLoggerFromContext(ctx).Debug("Request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote_addr", r.RemoteAddr))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
