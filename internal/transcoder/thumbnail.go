package transcoder

import (
	"context"
	"fmt"
	"os"
	"strings"

	"ffmpeg-microservice/internal/logging"

	"github.com/disintegration/imaging"
)

const (
	// DefaultThumbnailTimestamp is used when no timestamp is requested.
	DefaultThumbnailTimestamp = "00:00:01"

	// ThumbnailWidth is the width of every extracted frame; height keeps the
	// source aspect ratio.
	ThumbnailWidth = 640

	thumbnailJPEGQuality = 85
)

// ThumbnailArgs builds the ffmpeg argument list for a single-frame capture.
func ThumbnailArgs(input, output, timestamp string) []string {
	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-ss", timestamp,
		"-i", input,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale=%d:-2", ThumbnailWidth),
		"-q:v", "2",
		output,
	}
}

// ExtractThumbnail writes a JPEG of the frame at timestamp to output.
func (t *Transcoder) ExtractThumbnail(ctx context.Context, input, output, timestamp string) error {
	if strings.TrimSpace(timestamp) == "" {
		timestamp = DefaultThumbnailTimestamp
	}

	if err := t.run(ctx, "ffmpeg", "thumbnail", ThumbnailArgs(input, output, timestamp), nil); err != nil {
		return err
	}

	return normalizeThumbnail(output, timestamp)
}

// normalizeThumbnail checks that ffmpeg actually produced a decodable frame
// and forces the width to ThumbnailWidth.
func normalizeThumbnail(path, timestamp string) error {
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return &ToolError{Tool: "ffmpeg", Op: "thumbnail", Err: fmt.Errorf("%w at %s", errNoFrame, timestamp)}
	}

	img, err := imaging.Open(path)
	if err != nil {
		return &ToolError{Tool: "ffmpeg", Op: "thumbnail", Err: fmt.Errorf("unreadable frame: %w", err)}
	}

	if img.Bounds().Dx() == ThumbnailWidth {
		return nil
	}

	logging.Debug("Resizing thumbnail from %dx%d to width %d", img.Bounds().Dx(), img.Bounds().Dy(), ThumbnailWidth)
	resized := imaging.Resize(img, ThumbnailWidth, 0, imaging.Lanczos)
	if err := imaging.Save(resized, path, imaging.JPEGQuality(thumbnailJPEGQuality)); err != nil {
		return fmt.Errorf("failed to write thumbnail: %w", err)
	}
	return nil
}
