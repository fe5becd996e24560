package middleware

import (
	"net/http"
	"strconv"
	"time"

	"ffmpeg-microservice/internal/metrics"
)

// MetricsConfig holds configuration for the metrics middleware
type MetricsConfig struct {
	// Routes are recorded under their own path label; everything else is
	// recorded as "/other" to bound label cardinality.
	Routes []string
	// SkipPaths are paths that should not be recorded
	SkipPaths []string
}

// DefaultMetricsConfig returns the default metrics configuration
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Routes: []string{
			"/video/info",
			"/video/convert",
			"/video/convert-from-url",
			"/video/thumbnail",
			"/audio/convert",
			"/version",
		},
		SkipPaths: []string{"/metrics", "/health", "/healthz", "/livez", "/readyz"},
	}
}

// Metrics returns a middleware that records Prometheus metrics
func Metrics(config MetricsConfig) func(http.Handler) http.Handler {
	known := make(map[string]bool, len(config.Routes))
	for _, route := range config.Routes {
		known[route] = true
	}
	skip := make(map[string]bool, len(config.SkipPaths))
	for _, path := range config.SkipPaths {
		skip[path] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			metrics.HTTPRequestsInFlight.Inc()
			defer metrics.HTTPRequestsInFlight.Dec()

			rec := newStatusRecorder(w)
			start := time.Now()

			next.ServeHTTP(rec, r)

			path := "/other"
			if known[r.URL.Path] {
				path = r.URL.Path
			}
			status := strconv.Itoa(rec.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}
