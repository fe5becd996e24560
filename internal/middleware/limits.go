package middleware

import (
	"mime"
	"net/http"

	"ffmpeg-microservice/internal/metrics"

	"golang.org/x/time/rate"
)

// multipartOverhead is allowed on top of the file limit for boundaries,
// part headers and text fields.
const multipartOverhead int64 = 10 << 20

// BodyLimitConfig caps request bodies by content type.
type BodyLimitConfig struct {
	// MaxJSONBytes applies to JSON and url-encoded bodies.
	MaxJSONBytes int64
	// MaxUploadBytes is the per-file upload limit; multipart bodies may
	// exceed it by multipartOverhead.
	MaxUploadBytes int64
}

// BodyLimit wraps request bodies in http.MaxBytesReader. Handlers see an
// *http.MaxBytesError when a body is too large.
func BodyLimit(config BodyLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}

			limit := config.MaxJSONBytes
			mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if mediaType == "multipart/form-data" {
				limit = config.MaxUploadBytes + multipartOverhead
			}

			if limit > 0 {
				if r.ContentLength > limit {
					writeJSONError(w, "Payload too large", http.StatusRequestEntityTooLarge)
					return
				}
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit applies a global token-bucket limiter. Requests over the limit
// receive 429. Health checks are never limited. rps <= 0 disables limiting.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isHealthCheck(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			if !limiter.Allow() {
				metrics.HTTPRequestsRateLimited.Inc()
				w.Header().Set("Retry-After", "1")
				writeJSONError(w, "Too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
