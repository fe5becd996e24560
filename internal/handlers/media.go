package handlers

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"

	"ffmpeg-microservice/internal/logging"
	"ffmpeg-microservice/internal/metrics"
	"ffmpeg-microservice/internal/transcoder"
	"ffmpeg-microservice/internal/workspace"
)

const (
	defaultVideoFormat  = "mp4"
	defaultAudioFormat  = "mp3"
	defaultAudioBitrate = "128k"
)

// ConvertResponse is returned by both video conversion endpoints.
type ConvertResponse struct {
	Success     bool   `json:"success"`
	Format      string `json:"format"`
	Quality     string `json:"quality"`
	Data        string `json:"data"`
	ContentType string `json:"contentType"`
}

// ThumbnailResponse carries a base64 JPEG.
type ThumbnailResponse struct {
	Success     bool   `json:"success"`
	Data        string `json:"data"`
	ContentType string `json:"contentType"`
}

// AudioResponse is returned by the audio conversion endpoint.
type AudioResponse struct {
	Success     bool   `json:"success"`
	Format      string `json:"format"`
	Bitrate     string `json:"bitrate"`
	Data        string `json:"data"`
	ContentType string `json:"contentType"`
}

var (
	probeMessages     = failureMessages{noInput: "No video file provided"}
	convertMessages   = failureMessages{noInput: "No video file provided", failed: "Conversion failed"}
	thumbnailMessages = failureMessages{noInput: "No video file provided", failed: "Thumbnail extraction failed"}
	audioMessages     = failureMessages{noInput: "No audio file provided", failed: "Audio conversion failed"}
)

// ProbeVideo handles POST /video/info.
func (h *Handlers) ProbeVideo(w http.ResponseWriter, r *http.Request) {
	job, end := h.beginJob(workspace.OpProbe)
	defer end(errJobAborted)

	result, err := h.probe(r, job)
	end(err)
	if err != nil {
		writeFailure(w, job, err, probeMessages)
		return
	}

	writeJSONStatusCode(w, http.StatusOK, result)
}

func (h *Handlers) probe(r *http.Request, job *workspace.Job) (*transcoder.ProbeResult, error) {
	upload, err := h.ingest.FromUpload(r, job)
	if err != nil {
		return nil, err
	}
	return h.tool.Probe(r.Context(), upload.Path)
}

// ConvertVideo handles POST /video/convert.
func (h *Handlers) ConvertVideo(w http.ResponseWriter, r *http.Request) {
	job, end := h.beginJob(workspace.OpConvertVideo)
	defer end(errJobAborted)

	resp, err := h.convertVideo(r, job)
	end(err)
	if err != nil {
		writeFailure(w, job, err, convertMessages)
		return
	}

	writeJSONStatusCode(w, http.StatusOK, resp)
}

func (h *Handlers) convertVideo(r *http.Request, job *workspace.Job) (*ConvertResponse, error) {
	upload, err := h.ingest.FromUpload(r, job)
	if err != nil {
		return nil, err
	}

	format := upload.Field("format", defaultVideoFormat)
	quality := upload.Field("quality", transcoder.DefaultPreset)

	return h.transcodeVideo(r, job, upload.Path, format, quality, "", "")
}

// transcodeVideo runs a preset-based conversion of input and encodes the result.
func (h *Handlers) transcodeVideo(r *http.Request, job *workspace.Job, input, format, quality, startTime, duration string) (*ConvertResponse, error) {
	preset := transcoder.LookupPreset(quality)
	output := job.OutputPath("output", format)

	logging.Info("[job %s] converting to %s (%s: video %s, audio %s)",
		job.ShortID(), format, preset.Name, preset.VideoBitrate, preset.AudioBitrate)

	err := h.tool.Transcode(r.Context(), transcoder.TranscodeRequest{
		Input:        input,
		Output:       output,
		Format:       format,
		VideoBitrate: preset.VideoBitrate,
		AudioBitrate: preset.AudioBitrate,
		StartTime:    startTime,
		Duration:     duration,
	})
	if err != nil {
		return nil, err
	}

	data, err := encodeOutput(job, output)
	if err != nil {
		return nil, err
	}

	return &ConvertResponse{
		Success:     true,
		Format:      format,
		Quality:     quality,
		Data:        data,
		ContentType: "video/" + format,
	}, nil
}

// ExtractThumbnail handles POST /video/thumbnail.
func (h *Handlers) ExtractThumbnail(w http.ResponseWriter, r *http.Request) {
	job, end := h.beginJob(workspace.OpThumbnail)
	defer end(errJobAborted)

	resp, err := h.extractThumbnail(r, job)
	end(err)
	if err != nil {
		writeFailure(w, job, err, thumbnailMessages)
		return
	}

	writeJSONStatusCode(w, http.StatusOK, resp)
}

func (h *Handlers) extractThumbnail(r *http.Request, job *workspace.Job) (*ThumbnailResponse, error) {
	upload, err := h.ingest.FromUpload(r, job)
	if err != nil {
		return nil, err
	}

	timestamp := upload.Field("timestamp", transcoder.DefaultThumbnailTimestamp)
	output := job.OutputPath("thumbnail", "jpg")

	if err := h.tool.ExtractThumbnail(r.Context(), upload.Path, output, timestamp); err != nil {
		return nil, err
	}

	data, err := encodeOutput(job, output)
	if err != nil {
		return nil, err
	}

	return &ThumbnailResponse{
		Success:     true,
		Data:        data,
		ContentType: "image/jpeg",
	}, nil
}

// ConvertAudio handles POST /audio/convert.
func (h *Handlers) ConvertAudio(w http.ResponseWriter, r *http.Request) {
	job, end := h.beginJob(workspace.OpConvertAudio)
	defer end(errJobAborted)

	resp, err := h.convertAudio(r, job)
	end(err)
	if err != nil {
		writeFailure(w, job, err, audioMessages)
		return
	}

	writeJSONStatusCode(w, http.StatusOK, resp)
}

func (h *Handlers) convertAudio(r *http.Request, job *workspace.Job) (*AudioResponse, error) {
	upload, err := h.ingest.FromUpload(r, job)
	if err != nil {
		return nil, err
	}

	format := upload.Field("format", defaultAudioFormat)
	bitrate := upload.Field("bitrate", defaultAudioBitrate)
	output := job.OutputPath("audio", format)

	logging.Info("[job %s] converting audio to %s at %s", job.ShortID(), format, bitrate)

	err = h.tool.Transcode(r.Context(), transcoder.TranscodeRequest{
		Input:        upload.Path,
		Output:       output,
		Format:       format,
		AudioBitrate: bitrate,
	})
	if err != nil {
		return nil, err
	}

	data, err := encodeOutput(job, output)
	if err != nil {
		return nil, err
	}

	return &AudioResponse{
		Success:     true,
		Format:      format,
		Bitrate:     bitrate,
		Data:        data,
		ContentType: "audio/" + format,
	}, nil
}

// encodeOutput reads a finished output file and returns it base64-encoded.
func encodeOutput(job *workspace.Job, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read output: %w", err)
	}
	metrics.JobOutputBytes.WithLabelValues(string(job.Operation)).Observe(float64(len(data)))
	return base64.StdEncoding.EncodeToString(data), nil
}
