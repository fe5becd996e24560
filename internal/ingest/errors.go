package ingest

import (
	"errors"
	"fmt"
)

var (
	// ErrNoFile is returned when a request carries no file part.
	ErrNoFile = errors.New("no file provided")

	// ErrFileTooLarge is returned when an upload exceeds the configured limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrFieldTooLarge is returned when a multipart text field exceeds maxFieldBytes.
	ErrFieldTooLarge = errors.New("form field too large")
)

// DownloadError describes a failed remote fetch. StatusCode is set when the
// server answered with a non-2xx status.
type DownloadError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *DownloadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("download of %s failed with status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("download of %s failed: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}
