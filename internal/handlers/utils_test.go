package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ffmpeg-microservice/internal/ingest"
	"ffmpeg-microservice/internal/transcoder"
)

// =============================================================================
// writeJSON Tests
// =============================================================================

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    interface{}
		expected string
	}{
		{name: "Simple map", input: map[string]string{"status": "ok"}, expected: `{"status":"ok"}`},
		{name: "Error without details", input: ErrorResponse{Error: "Not found"}, expected: `{"error":"Not found"}`},
		{name: "Error with details", input: ErrorResponse{Error: "Conversion failed", Details: "x"}, expected: `{"error":"Conversion failed","details":"x"}`},
		{name: "Null", input: nil, expected: `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeJSON(rec, tt.input)
			if got := strings.TrimSpace(rec.Body.String()); got != tt.expected {
				t.Errorf("writeJSON() = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestWriteJSONError(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	writeJSONError(rec, "No video file provided", http.StatusBadRequest)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %s", ct)
	}
	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Error != "No video file provided" {
		t.Errorf("Unexpected error %q", body.Error)
	}
}

func TestNotFound(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	NotFound(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"error":"Not found"}` {
		t.Errorf("Unexpected body %s", got)
	}
}

// =============================================================================
// Error classification
// =============================================================================

func TestJobStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"success", nil, "success"},
		{"no file", ingest.ErrNoFile, "validation_error"},
		{"bad request", badRequest("No video URL provided"), "validation_error"},
		{"too large", fmt.Errorf("wrapped: %w", ingest.ErrFileTooLarge), "validation_error"},
		{"body limit", &http.MaxBytesError{Limit: 10}, "validation_error"},
		{"download", &ingest.DownloadError{URL: "u", StatusCode: 404}, "download_error"},
		{"download too large", &ingest.DownloadError{URL: "u", Err: ingest.ErrFileTooLarge}, "download_error"},
		{"tool", &transcoder.ToolError{Tool: "ffmpeg", ExitCode: 1}, "tool_error"},
		{"tool unavailable", fmt.Errorf("%w: ffmpeg", transcoder.ErrToolUnavailable), "tool_error"},
		{"other", errors.New("disk full"), "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := jobStatus(tt.err); got != tt.want {
				t.Errorf("jobStatus() = %s, want %s", got, tt.want)
			}
		})
	}
}
