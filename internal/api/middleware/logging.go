package middleware

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// responseWriter wraps http.ResponseWriter to capture status code and bytes
// written for logging and metrics.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// logCarrier collects request-log fields that only become known downstream
// of the logging middleware, like the authenticated tenant. Context values
// set by inner middleware never propagate back out, so Logging plants a
// mutable carrier instead.
type logCarrier struct {
	tenantID string
}

const logCarrierKey = contextKey("log_carrier")

// setLogTenant records the authenticated tenant for the request log line.
// No-op when the logging middleware is not installed.
func setLogTenant(ctx context.Context, tenantID string) {
	if c, ok := ctx.Value(logCarrierKey).(*logCarrier); ok {
		c.tenantID = tenantID
	}
}

// Logging returns middleware that writes one structured log line per request.
func Logging(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			carrier := &logCarrier{}
			ctx := context.WithValue(r.Context(), logCarrierKey, carrier)

			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r.WithContext(ctx))

			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("query", r.URL.RawQuery),
				zap.Int("status", rw.statusCode),
				zap.Int64("bytes", rw.written),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", RequestIDFromContext(r.Context())),
				zap.String("tenant_id", carrier.tenantID),
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
			)
		})
	}
}
