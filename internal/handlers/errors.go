package handlers

import (
	"errors"
	"net/http"

	"ffmpeg-microservice/internal/ingest"
	"ffmpeg-microservice/internal/logging"
	"ffmpeg-microservice/internal/transcoder"
	"ffmpeg-microservice/internal/workspace"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// validationError is a client mistake reported verbatim with 400.
type validationError struct {
	msg string
}

func (e *validationError) Error() string {
	return e.msg
}

func badRequest(msg string) error {
	return &validationError{msg: msg}
}

const payloadTooLargeMessage = "Payload too large"

// failureMessages holds the per-endpoint wording of error bodies.
type failureMessages struct {
	// noInput is returned with 400 when no file was uploaded.
	noInput string
	// failed is the error text for download and tool failures. When empty,
	// the error's own message is used and details are omitted.
	failed string
}

// jobStatus maps an error to the job metrics status label.
func jobStatus(err error) string {
	var (
		valErr  *validationError
		dlErr   *ingest.DownloadError
		toolErr *transcoder.ToolError
		maxErr  *http.MaxBytesError
	)
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &dlErr):
		return "download_error"
	case errors.As(err, &valErr), errors.Is(err, ingest.ErrNoFile),
		errors.Is(err, ingest.ErrFileTooLarge), errors.Is(err, ingest.ErrFieldTooLarge),
		errors.As(err, &maxErr):
		return "validation_error"
	case errors.As(err, &toolErr), errors.Is(err, transcoder.ErrToolUnavailable):
		return "tool_error"
	default:
		return "error"
	}
}

// writeFailure classifies err and writes the matching status and body.
func writeFailure(w http.ResponseWriter, job *workspace.Job, err error, msgs failureMessages) {
	var (
		valErr  *validationError
		dlErr   *ingest.DownloadError
		toolErr *transcoder.ToolError
		maxErr  *http.MaxBytesError
	)

	switch {
	case errors.As(err, &valErr):
		writeJSONError(w, valErr.msg, http.StatusBadRequest)

	case errors.Is(err, ingest.ErrNoFile):
		writeJSONError(w, msgs.noInput, http.StatusBadRequest)

	case errors.As(err, &dlErr):
		logging.Warn("[job %s] %s: %v", job.ShortID(), job.Operation, err)
		writeToolFailure(w, err, msgs)

	case errors.Is(err, ingest.ErrFileTooLarge), errors.Is(err, ingest.ErrFieldTooLarge), errors.As(err, &maxErr):
		logging.Warn("[job %s] rejected oversized request: %v", job.ShortID(), err)
		writeJSONError(w, payloadTooLargeMessage, http.StatusRequestEntityTooLarge)

	case errors.As(err, &toolErr), errors.Is(err, transcoder.ErrToolUnavailable):
		logging.Error("[job %s] %s failed: %v", job.ShortID(), job.Operation, err)
		writeToolFailure(w, err, msgs)

	default:
		logging.Error("[job %s] %s failed unexpectedly: %v", job.ShortID(), job.Operation, err)
		msg := msgs.failed
		if msg == "" {
			msg = "Internal server error"
		}
		writeJSONError(w, msg, http.StatusInternalServerError)
	}
}

func writeToolFailure(w http.ResponseWriter, err error, msgs failureMessages) {
	if msgs.failed == "" {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSONStatusCode(w, http.StatusInternalServerError, ErrorResponse{
		Error:   msgs.failed,
		Details: err.Error(),
	})
}
