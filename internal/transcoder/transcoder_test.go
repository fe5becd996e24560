package transcoder

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
)

func TestNew(t *testing.T) {
	trans := New(Options{})

	if trans.ffmpeg != "ffmpeg" {
		t.Errorf("Expected ffmpeg binary default, got %s", trans.ffmpeg)
	}
	if trans.ffprobe != "ffprobe" {
		t.Errorf("Expected ffprobe binary default, got %s", trans.ffprobe)
	}
	if trans.Timeout() != DefaultTimeout {
		t.Errorf("Expected timeout %v, got %v", DefaultTimeout, trans.Timeout())
	}
	if trans.processes == nil {
		t.Error("Expected processes map to be initialized")
	}

	custom := New(Options{FFmpegPath: " /opt/ffmpeg ", FFprobePath: "/opt/ffprobe", Timeout: time.Minute})
	if custom.ffmpeg != "/opt/ffmpeg" || custom.ffprobe != "/opt/ffprobe" {
		t.Errorf("Expected configured binaries, got %s and %s", custom.ffmpeg, custom.ffprobe)
	}
	if custom.Timeout() != time.Minute {
		t.Errorf("Expected timeout 1m, got %v", custom.Timeout())
	}
}

func TestLookupPreset(t *testing.T) {
	tests := []struct {
		name  string
		video string
		audio string
	}{
		{"low", "500k", "64k"},
		{"medium", "1000k", "128k"},
		{"high", "2500k", "192k"},
		{"", "1000k", "128k"},
		{"ultra", "1000k", "128k"},
		{"HIGH", "1000k", "128k"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := LookupPreset(tt.name)
			if p.VideoBitrate != tt.video || p.AudioBitrate != tt.audio {
				t.Errorf("LookupPreset(%q) = %s/%s, want %s/%s", tt.name, p.VideoBitrate, p.AudioBitrate, tt.video, tt.audio)
			}
		})
	}
}

func TestPresetNames(t *testing.T) {
	want := []string{"high", "low", "medium"}
	if got := PresetNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("PresetNames() = %v, want %v", got, want)
	}
}

func TestTranscodeRequestArgs(t *testing.T) {
	tests := []struct {
		name string
		req  TranscodeRequest
		want []string
	}{
		{
			name: "format only",
			req:  TranscodeRequest{Input: "in.mov", Output: "out.mp4", Format: "mp4"},
			want: []string{"-nostdin", "-hide_banner", "-loglevel", "error", "-y", "-i", "in.mov", "-f", "mp4", "out.mp4"},
		},
		{
			name: "all options",
			req: TranscodeRequest{
				Input: "in.mov", Output: "out.webm", Format: "webm",
				VideoBitrate: "1000k", AudioBitrate: "128k", StartTime: "5", Duration: "10",
			},
			want: []string{
				"-nostdin", "-hide_banner", "-loglevel", "error", "-y", "-i", "in.mov", "-f", "webm",
				"-b:a", "128k", "-b:v", "1000k", "-ss", "5", "-t", "10", "out.webm",
			},
		},
		{
			name: "audio only",
			req:  TranscodeRequest{Input: "in.wav", Output: "out.mp3", Format: "mp3", AudioBitrate: "192k"},
			want: []string{"-nostdin", "-hide_banner", "-loglevel", "error", "-y", "-i", "in.wav", "-f", "mp3", "-b:a", "192k", "out.mp3"},
		},
		{
			name: "blank optional values omitted",
			req:  TranscodeRequest{Input: "a", Output: "b", Format: "mp4", StartTime: " ", Duration: ""},
			want: []string{"-nostdin", "-hide_banner", "-loglevel", "error", "-y", "-i", "a", "-f", "mp4", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.req.Args(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Args() =\n%v\nwant\n%v", got, tt.want)
			}
		})
	}
}

func TestThumbnailArgs(t *testing.T) {
	got := ThumbnailArgs("in.mp4", "thumb.jpg", "00:00:05")
	want := []string{
		"-nostdin", "-hide_banner", "-loglevel", "error", "-y",
		"-ss", "00:00:05", "-i", "in.mp4", "-frames:v", "1", "-vf", "scale=640:-2", "-q:v", "2", "thumb.jpg",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ThumbnailArgs() =\n%v\nwant\n%v", got, want)
	}
}

func TestProbeArgs(t *testing.T) {
	got := ProbeArgs("movie.mkv")
	if got[len(got)-1] != "movie.mkv" {
		t.Errorf("Expected input path last, got %v", got)
	}
	joined := strings.Join(got, " ")
	for _, want := range []string{"-print_format json", "-show_format", "-show_streams"} {
		if !strings.Contains(joined, want) {
			t.Errorf("Expected %q in %s", want, joined)
		}
	}
}

func TestParseProbeOutput(t *testing.T) {
	data := []byte(`{
		"streams": [
			{"codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080, "r_frame_rate": "30000/1001"},
			{"codec_type": "audio", "codec_name": "aac", "r_frame_rate": "0/0"}
		],
		"format": {"format_name": "mov,mp4,m4a,3gp,3g2,mj2", "duration": "12.345000", "size": "1048576"}
	}`)

	result, err := parseProbeOutput(data)
	if err != nil {
		t.Fatalf("parseProbeOutput() error = %v", err)
	}

	if result.Duration != 12.345 {
		t.Errorf("Expected duration 12.345, got %v", result.Duration)
	}
	if result.Size != 1048576 {
		t.Errorf("Expected size 1048576, got %d", result.Size)
	}
	if result.Format != "mov,mp4,m4a,3gp,3g2,mj2" {
		t.Errorf("Unexpected format %q", result.Format)
	}
	if len(result.Streams) != 2 {
		t.Fatalf("Expected 2 streams, got %d", len(result.Streams))
	}

	video := result.Streams[0]
	if video.Type != "video" || video.Codec != "h264" || video.Width != 1920 || video.Height != 1080 || video.FPS != "30000/1001" {
		t.Errorf("Unexpected video stream %+v", video)
	}
	audio := result.Streams[1]
	if audio.Type != "audio" || audio.Width != 0 || audio.Height != 0 {
		t.Errorf("Unexpected audio stream %+v", audio)
	}
}

func TestParseProbeOutputMissingFields(t *testing.T) {
	result, err := parseProbeOutput([]byte(`{"format": {"format_name": "h264", "duration": "N/A"}}`))
	if err != nil {
		t.Fatalf("parseProbeOutput() error = %v", err)
	}
	if result.Duration != 0 || result.Size != 0 {
		t.Errorf("Expected zero duration and size, got %v and %d", result.Duration, result.Size)
	}
	if result.Streams == nil {
		t.Error("Expected non-nil streams slice")
	}
}

func TestParseProbeOutputInvalid(t *testing.T) {
	if _, err := parseProbeOutput([]byte("not json")); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

func TestToolErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *ToolError
		want string
	}{
		{
			name: "timeout",
			err:  &ToolError{Tool: "ffmpeg", TimedOut: true, Timeout: 10 * time.Minute},
			want: "ffmpeg timed out after 10m0s",
		},
		{
			name: "exit code with stderr",
			err:  &ToolError{Tool: "ffmpeg", ExitCode: 1, Stderr: "line one\nline two\n\nline three\nUnknown encoder\n"},
			want: "ffmpeg exited with code 1: line two; line three; Unknown encoder",
		},
		{
			name: "exit code without stderr",
			err:  &ToolError{Tool: "ffprobe", ExitCode: 2},
			want: "ffprobe exited with code 2",
		},
		{
			name: "wrapped error",
			err:  &ToolError{Tool: "ffmpeg", Err: errNoFrame},
			want: "ffmpeg failed: no frame captured",
		},
		{
			name: "bare",
			err:  &ToolError{Tool: "ffmpeg"},
			want: "ffmpeg failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTailBuffer(t *testing.T) {
	b := &tailBuffer{limit: 8}
	n, err := b.Write([]byte("0123456789"))
	if err != nil || n != 10 {
		t.Fatalf("Write() = %d, %v", n, err)
	}
	if _, err := b.Write([]byte("ab")); err != nil {
		t.Fatal(err)
	}
	if got := b.String(); got != "456789ab" {
		t.Errorf("String() = %q, want %q", got, "456789ab")
	}
}

func TestRunToolUnavailable(t *testing.T) {
	trans := New(Options{FFmpegPath: "/nonexistent/ffmpeg-binary", FFprobePath: "/nonexistent/ffprobe-binary"})

	err := trans.Transcode(context.Background(), TranscodeRequest{Input: "a", Output: "b", Format: "mp4"})
	if !errors.Is(err, ErrToolUnavailable) {
		t.Errorf("Expected ErrToolUnavailable, got %v", err)
	}

	if _, err := trans.Probe(context.Background(), "a"); !errors.Is(err, ErrToolUnavailable) {
		t.Errorf("Expected ErrToolUnavailable from Probe, got %v", err)
	}

	if err := trans.Available(); !errors.Is(err, ErrToolUnavailable) {
		t.Errorf("Expected Available() to report missing tools, got %v", err)
	}
}

func TestTranscodeValidation(t *testing.T) {
	trans := New(Options{})
	if err := trans.Transcode(context.Background(), TranscodeRequest{Input: "a", Output: "b"}); err == nil {
		t.Error("Expected error for missing format")
	}
	if err := trans.Transcode(context.Background(), TranscodeRequest{Format: "mp4"}); err == nil {
		t.Error("Expected error for missing paths")
	}
}

func TestRunExitCode(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not found")
	}

	trans := New(Options{FFmpegPath: "sh"})
	err := trans.run(context.Background(), "ffmpeg", "test", []string{"-c", "echo 'Invalid data found' >&2; exit 3"}, nil)

	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("Expected *ToolError, got %T: %v", err, err)
	}
	if toolErr.ExitCode != 3 {
		t.Errorf("Expected exit code 3, got %d", toolErr.ExitCode)
	}
	if got := toolErr.Error(); got != "ffmpeg exited with code 3: Invalid data found" {
		t.Errorf("Unexpected message %q", got)
	}
	if trans.Running() != 0 {
		t.Errorf("Expected no tracked processes, got %d", trans.Running())
	}
}

func TestRunTimeout(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not found")
	}

	trans := New(Options{FFmpegPath: "sleep", Timeout: 100 * time.Millisecond})

	start := time.Now()
	err := trans.run(context.Background(), "ffmpeg", "test", []string{"5"}, nil)
	if time.Since(start) > 3*time.Second {
		t.Errorf("Expected run to be killed near the timeout, took %v", time.Since(start))
	}

	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("Expected *ToolError, got %T: %v", err, err)
	}
	if !toolErr.TimedOut {
		t.Error("Expected TimedOut to be set")
	}
	if !strings.Contains(toolErr.Error(), "timed out") {
		t.Errorf("Unexpected message %q", toolErr.Error())
	}
}

func TestCleanupKillsProcesses(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not found")
	}

	trans := New(Options{FFmpegPath: "sleep"})
	done := make(chan error, 1)
	go func() {
		done <- trans.run(context.Background(), "ffmpeg", "test", []string{"30"}, nil)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for trans.Running() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	trans.Cleanup()

	select {
	case err := <-done:
		if err == nil {
			t.Error("Expected error from killed process")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Cleanup did not stop the running process")
	}
}

func TestMaxConcurrentRejectsExcessRuns(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not found")
	}

	trans := New(Options{FFmpegPath: "sleep", MaxConcurrent: 1})
	defer trans.Cleanup()
	if trans.MaxConcurrent() != 1 {
		t.Fatalf("MaxConcurrent() = %d, want 1", trans.MaxConcurrent())
	}

	done := make(chan error, 1)
	go func() {
		done <- trans.run(context.Background(), "ffmpeg", "test", []string{"30"}, nil)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for trans.Running() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	// The only slot is taken, so this run is rejected without starting.
	err := trans.run(context.Background(), "ffmpeg", "test", []string{"0"}, nil)
	if !errors.Is(err, ErrToolUnavailable) {
		t.Fatalf("Expected ErrToolUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "1 tool processes already running") {
		t.Errorf("Unexpected message %q", err.Error())
	}
	if trans.Running() != 1 {
		t.Errorf("Running() = %d, want 1", trans.Running())
	}

	trans.Cleanup()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Cleanup did not stop the running process")
	}
}

// requireTools skips integration tests when ffmpeg or ffprobe is missing.
func requireTools(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found, skipping integration test")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found, skipping integration test")
	}
}

// makeTestVideo renders a short synthetic clip.
func makeTestVideo(t *testing.T) string {
	t.Helper()
	requireTools(t)

	path := filepath.Join(t.TempDir(), "source.mp4")
	cmd := exec.Command("ffmpeg", "-hide_banner", "-loglevel", "error", "-y",
		"-f", "lavfi", "-i", "testsrc=duration=3:size=320x240:rate=25",
		"-f", "lavfi", "-i", "sine=frequency=440:duration=3",
		"-shortest", "-pix_fmt", "yuv420p", path)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("could not render test video: %v: %s", err, out)
	}
	return path
}

func TestIntegrationProbe(t *testing.T) {
	input := makeTestVideo(t)
	trans := New(Options{})

	result, err := trans.Probe(context.Background(), input)
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if result.Duration < 2.5 || result.Duration > 3.5 {
		t.Errorf("Expected duration near 3s, got %v", result.Duration)
	}
	if result.Size <= 0 {
		t.Errorf("Expected positive size, got %d", result.Size)
	}

	var sawVideo bool
	for _, s := range result.Streams {
		if s.Type == "video" {
			sawVideo = true
			if s.Width != 320 || s.Height != 240 {
				t.Errorf("Expected 320x240, got %dx%d", s.Width, s.Height)
			}
		}
	}
	if !sawVideo {
		t.Error("Expected a video stream")
	}
}

func TestIntegrationProbeInvalidFile(t *testing.T) {
	makeTestVideo(t)
	path := filepath.Join(t.TempDir(), "garbage.mp4")
	if err := os.WriteFile(path, []byte("definitely not a video"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := New(Options{}).Probe(context.Background(), path)
	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("Expected *ToolError, got %v", err)
	}
}

func TestIntegrationTranscode(t *testing.T) {
	input := makeTestVideo(t)
	output := filepath.Join(t.TempDir(), "out.webm")
	trans := New(Options{})

	preset := LookupPreset("low")
	err := trans.Transcode(context.Background(), TranscodeRequest{
		Input: input, Output: output, Format: "webm",
		VideoBitrate: preset.VideoBitrate, AudioBitrate: preset.AudioBitrate,
		StartTime: "0", Duration: "1",
	})
	if err != nil {
		t.Fatalf("Transcode() error = %v", err)
	}

	result, err := trans.Probe(context.Background(), output)
	if err != nil {
		t.Fatalf("Probe() on output error = %v", err)
	}
	if !strings.Contains(result.Format, "webm") && !strings.Contains(result.Format, "matroska") {
		t.Errorf("Expected webm container, got %s", result.Format)
	}
	if result.Duration > 1.5 {
		t.Errorf("Expected trimmed duration, got %v", result.Duration)
	}
}

func makeTestAudio(t *testing.T) string {
	t.Helper()
	requireTools(t)

	path := filepath.Join(t.TempDir(), "source.wav")
	cmd := exec.Command("ffmpeg", "-hide_banner", "-loglevel", "error", "-y",
		"-f", "lavfi", "-i", "sine=frequency=440:duration=3", path)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("could not render test audio: %v: %s", err, out)
	}
	return path
}

// bitsPerSecond parses ffmpeg bitrate strings such as "500k".
func bitsPerSecond(t *testing.T, rate string) float64 {
	t.Helper()
	mult := 1.0
	switch {
	case strings.HasSuffix(rate, "k"):
		mult, rate = 1e3, strings.TrimSuffix(rate, "k")
	case strings.HasSuffix(rate, "M"):
		mult, rate = 1e6, strings.TrimSuffix(rate, "M")
	}
	v, err := strconv.ParseFloat(rate, 64)
	if err != nil {
		t.Fatalf("invalid bitrate %q: %v", rate, err)
	}
	return v * mult
}

func TestIntegrationTranscodeBitrateCeiling(t *testing.T) {
	// Rate control overshoots briefly on a three second clip and the
	// container adds its own bytes.
	const allowance = 1.10

	for _, name := range PresetNames() {
		t.Run(name, func(t *testing.T) {
			input := makeTestVideo(t)
			output := filepath.Join(t.TempDir(), "out.mp4")
			trans := New(Options{})

			preset := LookupPreset(name)
			err := trans.Transcode(context.Background(), TranscodeRequest{
				Input: input, Output: output, Format: "mp4",
				VideoBitrate: preset.VideoBitrate, AudioBitrate: preset.AudioBitrate,
			})
			if err != nil {
				t.Fatalf("Transcode() error = %v", err)
			}

			result, err := trans.Probe(context.Background(), output)
			if err != nil {
				t.Fatalf("Probe() on output error = %v", err)
			}
			if result.Duration <= 0 {
				t.Fatalf("Expected positive duration, got %v", result.Duration)
			}

			got := float64(result.Size*8) / result.Duration
			ceiling := bitsPerSecond(t, preset.VideoBitrate) + bitsPerSecond(t, preset.AudioBitrate)
			if got > ceiling*allowance {
				t.Errorf("%s output averages %.0f bit/s, above the %.0f bit/s ceiling", name, got, ceiling)
			}
		})
	}
}

func TestIntegrationTranscodeContainer(t *testing.T) {
	tests := []struct {
		format    string
		ext       string
		audioOnly bool
		want      string
	}{
		{format: "mp4", ext: "mp4", want: "mp4"},
		{format: "mov", ext: "mov", want: "mov"},
		{format: "webm", ext: "webm", want: "webm"},
		{format: "matroska", ext: "mkv", want: "matroska"},
		{format: "mp3", ext: "mp3", audioOnly: true, want: "mp3"},
		{format: "wav", ext: "wav", audioOnly: true, want: "wav"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var input string
			req := TranscodeRequest{Format: tt.format, Duration: "1"}
			if tt.audioOnly {
				input = makeTestAudio(t)
				req.AudioBitrate = "128k"
			} else {
				input = makeTestVideo(t)
				preset := LookupPreset("low")
				req.VideoBitrate, req.AudioBitrate = preset.VideoBitrate, preset.AudioBitrate
			}
			req.Input = input
			req.Output = filepath.Join(t.TempDir(), "out."+tt.ext)

			trans := New(Options{})
			if err := trans.Transcode(context.Background(), req); err != nil {
				t.Fatalf("Transcode() error = %v", err)
			}

			result, err := trans.Probe(context.Background(), req.Output)
			if err != nil {
				t.Fatalf("Probe() on output error = %v", err)
			}
			if !slices.Contains(strings.Split(result.Format, ","), tt.want) {
				t.Errorf("Expected container %q in %q", tt.want, result.Format)
			}
		})
	}
}

func TestIntegrationTranscodeUnknownFormat(t *testing.T) {
	input := makeTestVideo(t)
	output := filepath.Join(t.TempDir(), "out.bogus")

	err := New(Options{}).Transcode(context.Background(), TranscodeRequest{Input: input, Output: output, Format: "not-a-real-format"})
	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("Expected *ToolError, got %v", err)
	}
}

func TestIntegrationThumbnail(t *testing.T) {
	input := makeTestVideo(t)
	output := filepath.Join(t.TempDir(), "thumb.jpg")

	if err := New(Options{}).ExtractThumbnail(context.Background(), input, output, ""); err != nil {
		t.Fatalf("ExtractThumbnail() error = %v", err)
	}

	img, err := imaging.Open(output)
	if err != nil {
		t.Fatalf("could not decode thumbnail: %v", err)
	}
	if img.Bounds().Dx() != ThumbnailWidth {
		t.Errorf("Expected width %d, got %d", ThumbnailWidth, img.Bounds().Dx())
	}
	if img.Bounds().Dy() != 480 {
		t.Errorf("Expected height 480 for a 4:3 source, got %d", img.Bounds().Dy())
	}
}

func TestIntegrationThumbnailPastEnd(t *testing.T) {
	input := makeTestVideo(t)
	output := filepath.Join(t.TempDir(), "thumb.jpg")

	err := New(Options{}).ExtractThumbnail(context.Background(), input, output, "00:10:00")
	if err == nil {
		t.Fatal("Expected error for timestamp past the end of input")
	}
	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Errorf("Expected *ToolError, got %T", err)
	}
}
