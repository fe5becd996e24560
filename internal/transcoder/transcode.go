package transcoder

import (
	"context"
	"errors"
	"strings"
)

// TranscodeRequest describes one conversion. Empty optional fields are left
// out of the argument list entirely.
type TranscodeRequest struct {
	Input        string
	Output       string
	Format       string
	VideoBitrate string
	AudioBitrate string
	StartTime    string
	Duration     string
}

// Args builds the ffmpeg argument list for the request.
func (r TranscodeRequest) Args() []string {
	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-i", r.Input,
		"-f", r.Format,
	}

	if v := strings.TrimSpace(r.AudioBitrate); v != "" {
		args = append(args, "-b:a", v)
	}
	if v := strings.TrimSpace(r.VideoBitrate); v != "" {
		args = append(args, "-b:v", v)
	}
	if v := strings.TrimSpace(r.StartTime); v != "" {
		args = append(args, "-ss", v)
	}
	if v := strings.TrimSpace(r.Duration); v != "" {
		args = append(args, "-t", v)
	}

	return append(args, r.Output)
}

// Transcode converts r.Input into r.Output. An unknown format is passed to
// ffmpeg unchanged and ffmpeg's rejection is returned as a *ToolError.
func (t *Transcoder) Transcode(ctx context.Context, r TranscodeRequest) error {
	if r.Input == "" || r.Output == "" {
		return errors.New("input and output paths are required")
	}
	if strings.TrimSpace(r.Format) == "" {
		return errors.New("target format is required")
	}
	return t.run(ctx, "ffmpeg", "transcode", r.Args(), nil)
}
