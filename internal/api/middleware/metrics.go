package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/axisfin/conductor/internal/metrics"
)

// Metrics returns middleware that records request counts and latencies to
// Prometheus, labeled by the matched chi route pattern so per-tenant path
// segments do not explode the label space.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		// The route pattern is only known after routing has run.
		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}

		metrics.RecordHTTPRequest(r.Method, route, rw.statusCode, time.Since(start))
	})
}
