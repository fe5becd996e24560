package transcoder

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ProbeResult is the subset of ffprobe metadata returned to clients.
type ProbeResult struct {
	Duration float64      `json:"duration"`
	Size     int64        `json:"size"`
	Format   string       `json:"format"`
	Streams  []StreamInfo `json:"streams"`
}

// StreamInfo describes one stream. FPS is ffprobe's r_frame_rate as-is,
// e.g. "30000/1001".
type StreamInfo struct {
	Type   string `json:"type"`
	Codec  string `json:"codec"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	FPS    string `json:"fps"`
}

type probePayload struct {
	Format  probeFormat   `json:"format"`
	Streams []probeStream `json:"streams"`
}

type probeFormat struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
}

type probeStream struct {
	CodecType  string `json:"codec_type"`
	CodecName  string `json:"codec_name"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
}

// ProbeArgs returns the ffprobe arguments used to inspect inputPath.
func ProbeArgs(inputPath string) []string {
	return []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		inputPath,
	}
}

// Probe inspects inputPath with ffprobe.
func (t *Transcoder) Probe(ctx context.Context, inputPath string) (*ProbeResult, error) {
	out, err := t.output(ctx, "ffprobe", "probe", ProbeArgs(inputPath))
	if err != nil {
		return nil, err
	}

	result, err := parseProbeOutput(out)
	if err != nil {
		return nil, &ToolError{Tool: "ffprobe", Op: "probe", Err: fmt.Errorf("unreadable output: %w", err)}
	}
	return result, nil
}

// parseProbeOutput converts raw ffprobe JSON into a ProbeResult.
func parseProbeOutput(data []byte) (*ProbeResult, error) {
	var payload probePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}

	result := &ProbeResult{
		Format:  payload.Format.FormatName,
		Streams: make([]StreamInfo, 0, len(payload.Streams)),
	}

	// Both fields are absent for some inputs (e.g. raw streams)
	if d := strings.TrimSpace(payload.Format.Duration); d != "" && d != "N/A" {
		result.Duration, _ = strconv.ParseFloat(d, 64)
	}
	if s := strings.TrimSpace(payload.Format.Size); s != "" && s != "N/A" {
		result.Size, _ = strconv.ParseInt(s, 10, 64)
	}

	for _, s := range payload.Streams {
		result.Streams = append(result.Streams, StreamInfo{
			Type:   s.CodecType,
			Codec:  s.CodecName,
			Width:  s.Width,
			Height: s.Height,
			FPS:    s.RFrameRate,
		})
	}

	return result, nil
}
