// Package startup handles configuration loading and startup/shutdown logging.
//
// # Configuration
//
// [LoadConfig] layers three sources, later ones winning: built-in defaults,
// an optional TOML file (--config or CONFIG_FILE) and environment variables.
// File keys are the lowercase environment names:
//
//	port = 3001
//	work_dir = "/var/lib/ffmpeg-microservice"
//	max_upload_size = "100MB"
//	tool_timeout = "10m"
//
// Supported keys:
//
//   - PORT: HTTP server port (default: 3001)
//   - METRICS_PORT / METRICS_ENABLED: Prometheus server (default: 9090, true)
//   - WORK_DIR: scratch directory for uploads and outputs (default: ./uploads)
//   - FFMPEG_PATH / FFPROBE_PATH: tool binaries (default: from PATH)
//   - MAX_CONCURRENT_TOOLS: process cap, "auto" for one per CPU; runs over
//     the cap fail at once (default: unlimited)
//   - TOOL_TIMEOUT: per-invocation limit (default: 10m)
//   - DOWNLOAD_TIMEOUT: remote fetch limit (default: 5m)
//   - MAX_UPLOAD_SIZE / MAX_JSON_SIZE / MAX_DOWNLOAD_SIZE: body and file caps
//     (default: 100MB, 50MB, 1GB)
//   - STALE_FILE_AGE / SWEEP_INTERVAL: work directory janitor (default: 1h, 10m);
//     STALE_FILE_AGE is raised to at least TOOL_TIMEOUT + DOWNLOAD_TIMEOUT
//   - RATE_LIMIT_RPS / RATE_LIMIT_BURST: per-process limiter, 0 disables (default: 0, 20)
//   - LOG_LEVEL, LOG_HEALTH_CHECKS, SHUTDOWN_TIMEOUT
//   - OTEL_EXPORTER_OTLP_ENDPOINT / OTEL_TRACE_SAMPLE_RATE: trace export
//
// Sizes accept plain byte counts or human-readable values. Invalid values
// are logged and replaced by their defaults.
//
// # Lifecycle logging
//
// The Log* functions print the sectioned startup report (system, memory,
// work directory, transcoder, routes) and the shutdown steps.
package startup
