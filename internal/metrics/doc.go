// Package metrics provides Prometheus instrumentation for the ffmpeg microservice.
//
// All metrics are prefixed with "ffmpeg_service_" and registered on the
// default registry via promauto. Expose them by mounting promhttp.Handler()
// on the metrics server.
//
// # Metric Categories
//
// HTTP:
//   - HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight
//   - HTTPRequestsRateLimited
//
// Jobs (one per request that processes media):
//   - JobsTotal by operation and status
//   - JobDuration, JobsInProgress, JobOutputBytes by operation
//
// External tool:
//   - ToolInvocationsTotal by tool (ffmpeg/ffprobe) and status
//   - ToolDuration by tool
//   - ToolProcessesRunning
//
// Ingestion:
//   - UploadBytesTotal
//   - DownloadsTotal by status, DownloadBytesTotal, DownloadDuration
//
// Work directory:
//   - TempFilesRemovedTotal, CleanupErrorsTotal
//   - StaleFilesSweptTotal, WorkDirFiles
//
// Call [InitializeMetrics] once at startup so every label combination is
// present from the first scrape.
package metrics
