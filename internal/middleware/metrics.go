// Package middleware provides HTTP middleware for metrics collection.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/EastAgile/airbyte/internal/metrics"
)

// Indirection for tests.
var recordHTTPRequest = metrics.RecordHTTPRequest

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		endpoint := normalizeEndpoint(r.URL.Path)
		status := strconv.Itoa(wrapped.statusCode)

		recordHTTPRequest(r.Method, endpoint, status, duration)
	})
}

func normalizeEndpoint(path string) string {
	if !strings.HasPrefix(path, "/api/attempts/") {
		return path
	}

	rest := strings.TrimPrefix(path, "/api/attempts/")
	parts := strings.Split(rest, "/")
	switch {
	case len(parts) == 1:
		return "/api/attempts/:id"
	case len(parts) == 2 && parts[1] == "progress":
		return "/api/attempts/:id/progress"
	case len(parts) == 2 && parts[1] == "stats":
		return "/api/attempts/:id/stats"
	default:
		return path
	}
}
