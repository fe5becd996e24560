package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"ffmpeg-microservice/internal/logging"
	"ffmpeg-microservice/internal/metrics"
	"ffmpeg-microservice/internal/workspace"

	"github.com/dustin/go-humanize"
)

// FromURL downloads rawURL into the job's work directory and returns the
// local path. Any failure is a *DownloadError and leaves no partial file.
func (res *Resolver) FromURL(ctx context.Context, rawURL string, job *workspace.Job) (string, error) {
	u, err := parseURL(rawURL)
	if err != nil {
		metrics.DownloadsTotal.WithLabelValues("transport_error").Inc()
		return "", &DownloadError{URL: rawURL, Err: err}
	}
	display := u.Redacted()

	if res.opts.DownloadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, res.opts.DownloadTimeout)
		defer cancel()
	}

	start := time.Now()
	path := job.DownloadPath()

	n, status, err := res.download(ctx, u.String(), path)
	metrics.DownloadDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		removePartial(path)
		metrics.DownloadsTotal.WithLabelValues(status).Inc()
		logging.Warn("[job %s] download of %s failed: %v", job.ShortID(), display, err)

		var dlErr *DownloadError
		if errors.As(err, &dlErr) {
			dlErr.URL = display
			return "", dlErr
		}
		return "", &DownloadError{URL: display, Err: err}
	}

	metrics.DownloadsTotal.WithLabelValues("success").Inc()
	metrics.DownloadBytesTotal.Add(float64(n))
	logging.Info("[job %s] downloaded %s from %s in %v",
		job.ShortID(), humanize.Bytes(uint64(n)), u.Host, time.Since(start).Round(time.Millisecond))

	return path, nil
}

// download performs the GET and writes the body to path. The returned status
// is the metrics label for the outcome.
func (res *Resolver) download(ctx context.Context, target, path string) (int64, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, "transport_error", err
	}

	resp, err := res.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, "transport_error", fmt.Errorf("timed out or cancelled: %w", ctx.Err())
		}
		return 0, "transport_error", err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Debug("failed to close download body: %v", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, "http_error", &DownloadError{StatusCode: resp.StatusCode}
	}

	limit := res.opts.MaxDownloadBytes
	if resp.ContentLength > limit {
		return 0, "too_large", fmt.Errorf("%w: remote file is %s, limit is %s",
			ErrFileTooLarge, humanize.Bytes(uint64(resp.ContentLength)), humanize.Bytes(uint64(limit)))
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, "transport_error", fmt.Errorf("failed to create download file: %w", err)
	}

	n, copyErr := io.Copy(f, io.LimitReader(resp.Body, limit+1))
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		return n, "transport_error", fmt.Errorf("failed to read response body: %w", copyErr)
	case n > limit:
		return n, "too_large", fmt.Errorf("%w: limit is %s", ErrFileTooLarge, humanize.Bytes(uint64(limit)))
	case closeErr != nil:
		return n, "transport_error", fmt.Errorf("failed to write download file: %w", closeErr)
	}

	return n, "success", nil
}

func parseURL(rawURL string) (*url.URL, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, errors.New("empty URL")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("URL has no host")
	}
	return u, nil
}
