package handlers

import (
	"context"
	"errors"
	"sync"
	"time"

	"ffmpeg-microservice/internal/ingest"
	"ffmpeg-microservice/internal/metrics"
	"ffmpeg-microservice/internal/transcoder"
	"ffmpeg-microservice/internal/workspace"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "ffmpeg-microservice"

// MediaTool is the subset of *transcoder.Transcoder the handlers depend on.
type MediaTool interface {
	Probe(ctx context.Context, inputPath string) (*transcoder.ProbeResult, error)
	Transcode(ctx context.Context, req transcoder.TranscodeRequest) error
	ExtractThumbnail(ctx context.Context, input, output, timestamp string) error
	Available() error
	Version(ctx context.Context) (string, error)
}

var _ MediaTool = (*transcoder.Transcoder)(nil)

// errJobAborted settles a job whose handler never reached its end call,
// which only happens on panic.
var errJobAborted = errors.New("job aborted")

// Handlers serves the media and service endpoints. One value is shared by
// all requests; per-request state lives in a workspace.Job.
type Handlers struct {
	tool   MediaTool
	ingest *ingest.Resolver
	ws     *workspace.Workspace
}

// New returns Handlers that run tool on files resolved by res inside ws.
func New(tool MediaTool, res *ingest.Resolver, ws *workspace.Workspace) *Handlers {
	return &Handlers{
		tool:   tool,
		ingest: res,
		ws:     ws,
	}
}

// beginJob creates a job and marks it in progress. The returned end function
// settles the job: it records the outcome, decrements the in-progress gauge
// and removes the job's files. Only the first call has any effect. Handlers
// call it once the result is known, before writing the response, and defer
// end(errJobAborted) so that a panic still settles the job.
func (h *Handlers) beginJob(op workspace.Operation) (*workspace.Job, func(error)) {
	label := string(op)
	metrics.JobsInProgress.WithLabelValues(label).Inc()
	job := h.ws.NewJob(op)

	var once sync.Once
	end := func(err error) {
		once.Do(func() {
			metrics.JobsInProgress.WithLabelValues(label).Dec()
			metrics.JobsTotal.WithLabelValues(label, jobStatus(err)).Inc()
			metrics.JobDuration.WithLabelValues(label).Observe(time.Since(job.Started).Seconds())
			job.Cleanup()
		})
	}
	return job, end
}
