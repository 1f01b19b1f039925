package middleware

import (
	"context"
	"net/http"
	"time"
)

// RequestRecorder records HTTP request count and duration.
type RequestRecorder interface {
	RecordRequest(ctx context.Context, method, route, statusClass string, duration time.Duration)
}

// knownRoutes bounds the route label; anything else is reported as "other".
var knownRoutes = map[string]bool{
	"/health":    true,
	"/v1/query":  true,
	"/v1/status": true,
	"/metrics":   true,
}

// Metrics returns middleware that records request count and duration. When recorder is nil,
// recording is skipped. Put Metrics outermost so duration is full request time.
func Metrics(recorder RequestRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if recorder == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			recorder.RecordRequest(r.Context(), r.Method, normalizeRoute(r.URL.Path),
				statusToClass(rw.statusCode), time.Since(start))
		})
	}
}

func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}

	return "other"
}

// statusToClass maps HTTP status code to 1xx, 2xx, 3xx, 4xx, 5xx.
func statusToClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	case status >= 100:
		return "1xx"
	default:
		return "unknown"
	}
}
