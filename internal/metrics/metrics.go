package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ffmpeg_service_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ffmpeg_service_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ffmpeg_service_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	HTTPRequestsRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ffmpeg_service_http_requests_rate_limited_total",
			Help: "Total number of HTTP requests rejected by the rate limiter",
		},
	)
)

// Job metrics
var (
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ffmpeg_service_jobs_total",
			Help: "Total number of media jobs by operation and outcome",
		},
		[]string{"operation", "status"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ffmpeg_service_job_duration_seconds",
			Help:    "Media job duration in seconds, ingestion through response shaping",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"operation"},
	)

	JobsInProgress = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ffmpeg_service_jobs_in_progress",
			Help: "Number of media jobs currently in progress",
		},
		[]string{"operation"},
	)

	JobOutputBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ffmpeg_service_job_output_bytes",
			Help:    "Size of produced output files in bytes before base64 encoding",
			Buckets: prometheus.ExponentialBuckets(16*1024, 4, 10),
		},
		[]string{"operation"},
	)
)

// Tool metrics
var (
	ToolInvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ffmpeg_service_tool_invocations_total",
			Help: "Total number of ffmpeg/ffprobe invocations by outcome",
		},
		[]string{"tool", "status"},
	)

	ToolDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ffmpeg_service_tool_duration_seconds",
			Help:    "Duration of ffmpeg/ffprobe invocations in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"tool"},
	)

	ToolProcessesRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ffmpeg_service_tool_processes_running",
			Help: "Number of ffmpeg/ffprobe processes currently running",
		},
	)
)

// Ingestion metrics
var (
	UploadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ffmpeg_service_upload_bytes_total",
			Help: "Total bytes received through multipart uploads",
		},
	)

	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ffmpeg_service_downloads_total",
			Help: "Total number of URL downloads by outcome",
		},
		[]string{"status"},
	)

	DownloadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ffmpeg_service_download_bytes_total",
			Help: "Total bytes fetched from remote URLs",
		},
	)

	DownloadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ffmpeg_service_download_duration_seconds",
			Help:    "URL download duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
	)
)

// Work directory metrics
var (
	TempFilesRemovedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ffmpeg_service_temp_files_removed_total",
			Help: "Total number of temporary files removed by job cleanup",
		},
	)

	CleanupErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ffmpeg_service_cleanup_errors_total",
			Help: "Total number of temporary file removals that failed",
		},
	)

	StaleFilesSweptTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ffmpeg_service_stale_files_swept_total",
			Help: "Total number of abandoned files removed by the work directory sweep",
		},
	)

	WorkDirFiles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ffmpeg_service_workdir_files",
			Help: "Number of files in the work directory at the last sweep",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ffmpeg_service_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
