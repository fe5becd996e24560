// Package middleware provides the HTTP middleware chain of the ffmpeg
// microservice.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics
//   - OpenTelemetry request tracing
//   - CORS headers and preflight handling
//   - Request body size limits and an optional global rate limit
//   - Response compression (gzip) for JSON bodies
//   - Panic recovery
//
// Every middleware has the signature func(http.Handler) http.Handler and can be
// composed with [Chain].
package middleware
