// Command ffmpeg-microservice runs an HTTP service that probes, transcodes
// and thumbnails media files with ffmpeg and ffprobe.
//
// Usage:
//
//	ffmpeg-microservice [serve] [--config path]
//	ffmpeg-microservice probe <file>
//	ffmpeg-microservice version [--json]
//
// With no subcommand the service is started. The application server
// listens on PORT and Prometheus metrics are served on METRICS_PORT.
// SIGINT or SIGTERM drains in-flight requests for SHUTDOWN_TIMEOUT before
// any remaining ffmpeg processes are killed.
//
// See package startup for the configuration keys.
package main
