package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"ffmpeg-microservice/internal/transcoder"
	"ffmpeg-microservice/internal/workspace"
)

var urlMessages = failureMessages{failed: "Download or processing failed"}

// flexString accepts a JSON string or a bare scalar such as a number, so
// {"startTime": 5} and {"startTime": "5"} are equivalent.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*s = ""
	case len(data) > 0 && data[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
	case len(data) > 0 && (data[0] == '{' || data[0] == '['):
		return errors.New("expected a string or number")
	default:
		*s = flexString(data)
	}
	return nil
}

func (s flexString) String() string {
	return strings.TrimSpace(string(s))
}

// ConvertFromURLRequest is the body of POST /video/convert-from-url, sent as
// JSON or as a url-encoded form with the same field names. VideoURL takes
// precedence over URL.
type ConvertFromURLRequest struct {
	VideoURL  flexString `json:"videoUrl"`
	URL       flexString `json:"url"`
	Format    flexString `json:"format"`
	Quality   flexString `json:"quality"`
	StartTime flexString `json:"startTime"`
	Duration  flexString `json:"duration"`
}

func (req *ConvertFromURLRequest) target() string {
	if v := req.VideoURL.String(); v != "" {
		return v
	}
	return req.URL.String()
}

// ConvertFromURL handles POST /video/convert-from-url.
func (h *Handlers) ConvertFromURL(w http.ResponseWriter, r *http.Request) {
	job, end := h.beginJob(workspace.OpConvertURL)
	defer end(errJobAborted)

	resp, err := h.convertFromURL(r, job)
	end(err)
	if err != nil {
		writeFailure(w, job, err, urlMessages)
		return
	}

	writeJSONStatusCode(w, http.StatusOK, resp)
}

func (h *Handlers) convertFromURL(r *http.Request, job *workspace.Job) (*ConvertResponse, error) {
	req, err := decodeConvertFromURL(r)
	if err != nil {
		return nil, err
	}

	target := req.target()
	if target == "" {
		return nil, badRequest("No video URL provided")
	}

	input, err := h.ingest.FromURL(r.Context(), target, job)
	if err != nil {
		return nil, err
	}

	format := req.Format.String()
	if format == "" {
		format = defaultVideoFormat
	}
	quality := req.Quality.String()
	if quality == "" {
		quality = transcoder.DefaultPreset
	}

	return h.transcodeVideo(r, job, input, format, quality, req.StartTime.String(), req.Duration.String())
}

func decodeConvertFromURL(r *http.Request) (*ConvertFromURLRequest, error) {
	var req ConvertFromURLRequest
	if r.Body == nil {
		return &req, nil
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" {
		return decodeConvertForm(r)
	}

	err := json.NewDecoder(r.Body).Decode(&req)
	var maxErr *http.MaxBytesError
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return &req, nil
	case errors.As(err, &maxErr):
		return nil, err
	default:
		return nil, badRequest("Invalid JSON body")
	}
}

func decodeConvertForm(r *http.Request) (*ConvertFromURLRequest, error) {
	if err := r.ParseForm(); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, err
		}
		return nil, badRequest("Invalid form body")
	}

	form := r.PostForm
	return &ConvertFromURLRequest{
		VideoURL:  flexString(form.Get("videoUrl")),
		URL:       flexString(form.Get("url")),
		Format:    flexString(form.Get("format")),
		Quality:   flexString(form.Get("quality")),
		StartTime: flexString(form.Get("startTime")),
		Duration:  flexString(form.Get("duration")),
	}, nil
}
