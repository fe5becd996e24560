package ingest

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"ffmpeg-microservice/internal/logging"
	"ffmpeg-microservice/internal/metrics"
	"ffmpeg-microservice/internal/workspace"

	"github.com/dustin/go-humanize"
)

const maxFieldBytes = 1 << 20

// Upload is the accepted file part of a multipart request along with the
// request's text fields.
type Upload struct {
	Path         string
	OriginalName string
	FieldName    string
	Size         int64
	Fields       map[string]string
}

// Field returns the named text field, or def when it is absent or blank.
func (u *Upload) Field(name, def string) string {
	if v := strings.TrimSpace(u.Fields[name]); v != "" {
		return v
	}
	return def
}

// FromUpload streams the multipart body of r into the job's work directory.
// Parts are read in body order: the first file part is stored, later file
// parts are drained and ignored, and text fields anywhere in the body are
// collected (first value per name wins).
func (res *Resolver) FromUpload(r *http.Request, job *workspace.Job) (*Upload, error) {
	reader, err := r.MultipartReader()
	if err != nil {
		// Not multipart at all, so nothing could have been uploaded
		logging.Debug("[job %s] request is not multipart: %v", job.ShortID(), err)
		return nil, ErrNoFile
	}

	fields := make(map[string]string)
	var upload *Upload

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, classifyBodyError("failed to read multipart body", err)
		}

		if part.FileName() == "" {
			value, err := readField(part)
			_ = part.Close()
			if err != nil {
				return nil, err
			}
			if _, seen := fields[part.FormName()]; !seen {
				fields[part.FormName()] = value
			}
			continue
		}

		if upload != nil {
			logging.Debug("[job %s] ignoring extra file part %q", job.ShortID(), part.FormName())
			_, err := io.Copy(io.Discard, part)
			_ = part.Close()
			if err != nil {
				return nil, classifyBodyError("failed to read multipart body", err)
			}
			continue
		}

		upload, err = res.storePart(part.FileName(), part.FormName(), part, job)
		_ = part.Close()
		if err != nil {
			return nil, err
		}
	}

	if upload == nil {
		return nil, ErrNoFile
	}

	upload.Fields = fields
	metrics.UploadBytesTotal.Add(float64(upload.Size))
	logging.Info("[job %s] received %q (%s) via field %q",
		job.ShortID(), upload.OriginalName, humanize.Bytes(uint64(upload.Size)), upload.FieldName)

	return upload, nil
}

func (res *Resolver) storePart(fileName, fieldName string, src io.Reader, job *workspace.Job) (*Upload, error) {
	path := job.InputPath(fileName)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload file: %w", err)
	}

	n, copyErr := io.Copy(f, io.LimitReader(src, res.opts.MaxUploadBytes+1))
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		removePartial(path)
		return nil, classifyBodyError("failed to store upload", copyErr)
	case n > res.opts.MaxUploadBytes:
		removePartial(path)
		return nil, fmt.Errorf("%w: limit is %s", ErrFileTooLarge, humanize.Bytes(uint64(res.opts.MaxUploadBytes)))
	case closeErr != nil:
		removePartial(path)
		return nil, fmt.Errorf("failed to store upload: %w", closeErr)
	}

	return &Upload{
		Path:         path,
		OriginalName: fileName,
		FieldName:    fieldName,
		Size:         n,
	}, nil
}

func readField(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxFieldBytes+1))
	if err != nil {
		return "", classifyBodyError("failed to read form field", err)
	}
	if len(data) > maxFieldBytes {
		return "", ErrFieldTooLarge
	}
	return string(data), nil
}

// classifyBodyError maps a body read failure caused by http.MaxBytesReader to
// ErrFileTooLarge.
func classifyBodyError(msg string, err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Errorf("%w: request body exceeds %s", ErrFileTooLarge, humanize.Bytes(uint64(maxErr.Limit)))
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func removePartial(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn("failed to remove partial file %s: %v", path, err)
	}
}
