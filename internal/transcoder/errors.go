package transcoder

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrToolUnavailable indicates the tool binary could not be started at all,
// as opposed to the tool running and reporting a failure.
var ErrToolUnavailable = errors.New("media tool unavailable")

// errNoFrame is wrapped when ffmpeg exits cleanly but captures nothing,
// which happens when the timestamp lies past the end of the input.
var errNoFrame = errors.New("no frame captured")

// ToolError describes a failed ffmpeg or ffprobe run.
type ToolError struct {
	Tool     string
	Op       string
	ExitCode int
	Stderr   string
	Err      error
	TimedOut bool
	Timeout  time.Duration
}

func (e *ToolError) Error() string {
	switch {
	case e.TimedOut:
		return fmt.Sprintf("%s timed out after %v", e.Tool, e.Timeout)
	case e.ExitCode > 0:
		msg := fmt.Sprintf("%s exited with code %d", e.Tool, e.ExitCode)
		if tail := stderrTail(e.Stderr, 3); tail != "" {
			msg += ": " + tail
		}
		return msg
	case e.Err != nil:
		return fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
	default:
		return e.Tool + " failed"
	}
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// stderrTail returns the last n non-empty lines of s joined by "; ".
func stderrTail(s string, n int) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r", "\n"), "\n")
	tail := make([]string, 0, n)
	for i := len(lines) - 1; i >= 0 && len(tail) < n; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			tail = append(tail, line)
		}
	}
	for i, j := 0, len(tail)-1; i < j; i, j = i+1, j-1 {
		tail[i], tail[j] = tail[j], tail[i]
	}
	return strings.Join(tail, "; ")
}

// tailBuffer keeps only the last limit bytes written to it.
type tailBuffer struct {
	buf   []byte
	limit int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	if len(b.buf) > b.limit {
		b.buf = append(b.buf[:0:0], b.buf[len(b.buf)-b.limit:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	return string(b.buf)
}
