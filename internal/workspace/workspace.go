package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"ffmpeg-microservice/internal/logging"
	"ffmpeg-microservice/internal/metrics"

	"github.com/google/uuid"
)

// Operation identifies what a job does. The values double as metric labels.
type Operation string

const (
	OpProbe        Operation = "probe"
	OpConvertVideo Operation = "convert_video"
	OpConvertURL   Operation = "convert_url"
	OpThumbnail    Operation = "thumbnail"
	OpConvertAudio Operation = "convert_audio"
)

const maxNameLength = 100

// Workspace is the directory shared by all jobs.
type Workspace struct {
	dir string
}

// New returns a Workspace rooted at dir. The directory is not created until
// EnsureDir is called.
func New(dir string) (*Workspace, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("work directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve work directory path: %w", err)
	}
	return &Workspace{dir: abs}, nil
}

// Dir returns the absolute path of the work directory.
func (w *Workspace) Dir() string {
	return w.dir
}

// EnsureDir creates the work directory if it is absent. Safe to call
// concurrently and repeatedly.
func (w *Workspace) EnsureDir() error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create work directory: %w", err)
	}
	return nil
}

// Writable checks that a file can be created in the work directory.
func (w *Workspace) Writable() error {
	if err := w.EnsureDir(); err != nil {
		return err
	}
	f, err := os.CreateTemp(w.dir, ".write-test-*")
	if err != nil {
		return fmt.Errorf("work directory is not writable: %w", err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		logging.Warn("failed to close write test file %s: %v", name, err)
	}
	if err := os.Remove(name); err != nil {
		logging.Warn("failed to remove write test file %s: %v", name, err)
	}
	return nil
}

// NewJob starts a job for the given operation.
func (w *Workspace) NewJob(op Operation) *Job {
	return &Job{
		ID:        uuid.NewString(),
		Operation: op,
		Started:   time.Now(),
		ws:        w,
	}
}

// Sweep removes entries in the work directory whose modification time is
// older than maxAge and returns how many were removed. Job directories are
// removed with everything in them.
func (w *Workspace) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read work directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	remaining := 0

	for _, entry := range entries {
		path := filepath.Join(w.dir, entry.Name())

		info, err := entry.Info()
		if err != nil {
			// Raced with a job cleanup
			continue
		}

		if info.ModTime().After(cutoff) {
			remaining++
			continue
		}

		remove := os.Remove
		if entry.IsDir() {
			remove = os.RemoveAll
		}
		if err := remove(path); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				logging.Warn("failed to remove stale file %s: %v", path, err)
				remaining++
			}
			continue
		}
		removed++
	}

	metrics.StaleFilesSweptTotal.Add(float64(removed))
	metrics.WorkDirFiles.Set(float64(remaining))

	if removed > 0 {
		logging.Info("Work directory sweep removed %d stale file(s) older than %v", removed, maxAge)
	}
	return removed, nil
}

// StartJanitor runs Sweep every interval until ctx is done.
func (w *Workspace) StartJanitor(ctx context.Context, interval, maxAge time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Sweep(maxAge); err != nil {
				logging.Warn("Work directory sweep failed: %v", err)
			}
		}
	}
}

// Job is the unit of work for one request. Every path it hands out lives in
// its own directory, <workdir>/<jobID>, which Cleanup removes as a whole so
// that files a tool writes beside its output go with it.
type Job struct {
	ID        string
	Operation Operation
	Started   time.Time

	ws      *Workspace
	mu      sync.Mutex
	paths   []string
	once    sync.Once
	dirOnce sync.Once
}

// ShortID returns the first eight characters of the job ID.
func (j *Job) ShortID() string {
	if len(j.ID) < 8 {
		return j.ID
	}
	return j.ID[:8]
}

// Dir returns the job directory. It is created on first use of a path
// method.
func (j *Job) Dir() string {
	return filepath.Join(j.ws.dir, j.ID)
}

func (j *Job) ensureDir() {
	j.dirOnce.Do(func() {
		if err := os.MkdirAll(j.Dir(), 0o755); err != nil {
			// The tool or the upload copy reports the failure when it
			// tries to create its file.
			logging.Warn("[job %s] failed to create job directory: %v", j.ShortID(), err)
		}
	})
}

// InputPath returns a unique path for an uploaded file named originalName
// (<millis>-<id>-<name>) and tracks it.
func (j *Job) InputPath(originalName string) string {
	name := fmt.Sprintf("%d-%s-%s", time.Now().UnixMilli(), j.ShortID(), SanitizeName(originalName))
	return j.Track(filepath.Join(j.Dir(), name))
}

// DownloadPath returns a unique path for a file fetched from a URL and tracks it.
func (j *Job) DownloadPath() string {
	name := fmt.Sprintf("input-%d-%s.mp4", time.Now().UnixMilli(), j.ShortID())
	return j.Track(filepath.Join(j.Dir(), name))
}

// OutputPath returns a unique path for a tool output and tracks it. ext is
// only used when it is a short alphanumeric token.
func (j *Job) OutputPath(prefix, ext string) string {
	name := fmt.Sprintf("%s-%d-%s.%s", prefix, time.Now().UnixMilli(), j.ShortID(), sanitizeExt(ext))
	return j.Track(filepath.Join(j.Dir(), name))
}

// Track records path as belonging to the job and returns it. The job
// directory is created if needed.
func (j *Job) Track(path string) string {
	j.ensureDir()
	j.mu.Lock()
	j.paths = append(j.paths, path)
	j.mu.Unlock()
	return path
}

// Paths returns a copy of the tracked paths.
func (j *Job) Paths() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, len(j.paths))
	copy(out, j.paths)
	return out
}

// Cleanup removes the job directory and everything in it. Only the first
// call has any effect.
func (j *Job) Cleanup() {
	j.once.Do(func() {
		removeJobDir(j.ShortID(), j.Dir())
	})
}

func removeJobDir(jobID, dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// No path was ever handed out
			return
		}
		logging.Warn("[job %s] failed to list job directory: %v", jobID, err)
	}

	if err := os.RemoveAll(dir); err != nil {
		metrics.CleanupErrorsTotal.Inc()
		logging.Warn("[job %s] failed to remove %s: %v", jobID, dir, err)
		return
	}

	metrics.TempFilesRemovedTotal.Add(float64(len(entries)))
	for _, e := range entries {
		logging.Debug("[job %s] removed %s", jobID, e.Name())
	}
}

// SanitizeName reduces an uploaded file name to a safe base name.
func SanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	out := strings.TrimLeft(b.String(), ".")
	if len(out) > maxNameLength {
		out = out[len(out)-maxNameLength:]
	}
	if out == "" {
		return "upload"
	}
	return out
}

func sanitizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "" || len(ext) > 10 {
		return "out"
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return "out"
		}
	}
	return ext
}
