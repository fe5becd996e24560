package metrics

// Operations are the job operation label values.
var Operations = []string{"probe", "convert_video", "convert_url", "thumbnail", "convert_audio"}

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, op := range Operations {
		for _, status := range []string{"success", "validation_error", "download_error", "tool_error", "error"} {
			JobsTotal.WithLabelValues(op, status)
		}
		JobDuration.WithLabelValues(op)
		JobsInProgress.WithLabelValues(op)
		JobOutputBytes.WithLabelValues(op)
	}

	for _, tool := range []string{"ffmpeg", "ffprobe"} {
		for _, status := range []string{"success", "error", "timeout", "unavailable", "busy"} {
			ToolInvocationsTotal.WithLabelValues(tool, status)
		}
		ToolDuration.WithLabelValues(tool)
	}

	for _, status := range []string{"success", "http_error", "transport_error", "too_large"} {
		DownloadsTotal.WithLabelValues(status)
	}
}
