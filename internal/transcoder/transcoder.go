package transcoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"ffmpeg-microservice/internal/logging"
	"ffmpeg-microservice/internal/metrics"

	"golang.org/x/sync/semaphore"
)

const (
	// DefaultTimeout bounds a single tool invocation when the caller's
	// context carries no deadline.
	DefaultTimeout = 10 * time.Minute

	stderrLimit = 64 * 1024
)

// Options configures a Transcoder.
type Options struct {
	FFmpegPath  string
	FFprobePath string
	Timeout     time.Duration
	// MaxConcurrent caps simultaneous tool processes. Runs over the cap fail
	// immediately with ErrToolUnavailable. 0 means unlimited.
	MaxConcurrent int
}

// Transcoder runs ffmpeg and ffprobe on local files.
type Transcoder struct {
	ffmpeg  string
	ffprobe string
	timeout time.Duration
	slots   *semaphore.Weighted
	limit   int

	processes map[int]*exec.Cmd
	nextID    int
	processMu sync.Mutex
}

// New creates a new Transcoder instance.
func New(opts Options) *Transcoder {
	ffmpeg := strings.TrimSpace(opts.FFmpegPath)
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	ffprobe := strings.TrimSpace(opts.FFprobePath)
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	t := &Transcoder{
		ffmpeg:    ffmpeg,
		ffprobe:   ffprobe,
		timeout:   timeout,
		processes: make(map[int]*exec.Cmd),
	}
	if opts.MaxConcurrent > 0 {
		t.limit = opts.MaxConcurrent
		t.slots = semaphore.NewWeighted(int64(opts.MaxConcurrent))
	}
	return t
}

// MaxConcurrent returns the process cap, 0 when unlimited.
func (t *Transcoder) MaxConcurrent() int {
	return t.limit
}

// Timeout returns the per-invocation timeout.
func (t *Transcoder) Timeout() time.Duration {
	return t.timeout
}

// Available reports an error naming any tool binary that cannot be found.
func (t *Transcoder) Available() error {
	var missing []string
	for _, bin := range []string{t.ffmpeg, t.ffprobe} {
		if _, err := exec.LookPath(bin); err != nil {
			missing = append(missing, bin)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s not found", ErrToolUnavailable, strings.Join(missing, ", "))
	}
	return nil
}

// Version returns the first line of `ffmpeg -version`.
func (t *Transcoder) Version(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, t.ffmpeg, "-version").Output()
	if err != nil {
		return "", fmt.Errorf("failed to get ffmpeg version: %w", err)
	}
	line, _, _ := strings.Cut(string(output), "\n")
	return strings.TrimSpace(line), nil
}

// run executes one tool invocation and converts its outcome into an error.
// stdout may be nil.
func (t *Transcoder) run(ctx context.Context, tool, op string, args []string, stdout io.Writer) error {
	binary := t.ffmpeg
	if tool == "ffprobe" {
		binary = t.ffprobe
	}

	timeout := t.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline).Round(time.Second)
	} else {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	if t.slots != nil {
		if !t.slots.TryAcquire(1) {
			metrics.ToolInvocationsTotal.WithLabelValues(tool, "busy").Inc()
			return fmt.Errorf("%w: %d tool processes already running", ErrToolUnavailable, t.limit)
		}
		defer t.slots.Release(1)
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	stderr := &tailBuffer{limit: stderrLimit}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	logging.Debug("Running %s %s", tool, strings.Join(args, " "))

	start := time.Now()
	if err := cmd.Start(); err != nil {
		metrics.ToolInvocationsTotal.WithLabelValues(tool, "unavailable").Inc()
		return fmt.Errorf("%w: failed to start %s: %v", ErrToolUnavailable, tool, err)
	}

	id := t.track(cmd)
	defer t.untrack(id)

	err := cmd.Wait()
	metrics.ToolDuration.WithLabelValues(tool).Observe(time.Since(start).Seconds())

	if err == nil {
		metrics.ToolInvocationsTotal.WithLabelValues(tool, "success").Inc()
		return nil
	}

	toolErr := &ToolError{
		Tool:    tool,
		Op:      op,
		Stderr:  stderr.String(),
		Err:     err,
		Timeout: timeout,
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		toolErr.ExitCode = exitErr.ExitCode()
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		toolErr.TimedOut = true
		toolErr.Err = ctx.Err()
		metrics.ToolInvocationsTotal.WithLabelValues(tool, "timeout").Inc()
	case ctx.Err() != nil:
		toolErr.ExitCode = 0
		toolErr.Err = fmt.Errorf("interrupted: %w", ctx.Err())
		metrics.ToolInvocationsTotal.WithLabelValues(tool, "error").Inc()
	default:
		metrics.ToolInvocationsTotal.WithLabelValues(tool, "error").Inc()
	}

	logging.Debug("%s stderr: %s", tool, toolErr.Stderr)
	return toolErr
}

// output runs a tool and returns its stdout.
func (t *Transcoder) output(ctx context.Context, tool, op string, args []string) ([]byte, error) {
	var stdout bytes.Buffer
	if err := t.run(ctx, tool, op, args, &stdout); err != nil {
		return nil, err
	}
	return stdout.Bytes(), nil
}

func (t *Transcoder) track(cmd *exec.Cmd) int {
	t.processMu.Lock()
	defer t.processMu.Unlock()
	t.nextID++
	t.processes[t.nextID] = cmd
	metrics.ToolProcessesRunning.Inc()
	return t.nextID
}

func (t *Transcoder) untrack(id int) {
	t.processMu.Lock()
	defer t.processMu.Unlock()
	delete(t.processes, id)
	metrics.ToolProcessesRunning.Dec()
}

// Running returns the number of tool processes currently running.
func (t *Transcoder) Running() int {
	t.processMu.Lock()
	defer t.processMu.Unlock()
	return len(t.processes)
}

// Cleanup stops all running tool processes.
func (t *Transcoder) Cleanup() {
	t.processMu.Lock()
	defer t.processMu.Unlock()

	for _, cmd := range t.processes {
		if cmd.Process != nil {
			logging.Info("Killing %s process (pid %d)", cmd.Path, cmd.Process.Pid)
			if err := cmd.Process.Kill(); err != nil {
				logging.Warn("failed to kill process %d: %v", cmd.Process.Pid, err)
			}
		}
	}
}
