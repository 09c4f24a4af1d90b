package providers

import (
	"net/http"
	"time"
)

// unmatchedRoute labels requests no registered route pattern matched.
const unmatchedRoute = "unmatched"

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// routeLabel reads the pattern the ServeMux matched. next must be the mux
// itself: it sets Request.Pattern on the request it is handed.
func routeLabel(r *http.Request) string {
	if r.Pattern == "" {
		return unmatchedRoute
	}
	return r.Pattern
}

// MetricsMiddleware records count, status class and latency per route
// pattern of the API mux.
func MetricsMiddleware(metrics MetricsProviderInterface, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		r.Pattern = ""

		next.ServeHTTP(sw, r)

		route := routeLabel(r)
		metrics.IncRequestsTotal(route, sw.status)
		metrics.ObserveRequestDuration(route, time.Since(start))
	})
}
