package ingest

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultMaxUploadBytes   int64 = 100 << 20
	DefaultMaxDownloadBytes int64 = 1 << 30
	DefaultDownloadTimeout        = 5 * time.Minute
)

// Options configures a Resolver. Zero values select the defaults.
type Options struct {
	MaxUploadBytes   int64
	MaxDownloadBytes int64
	DownloadTimeout  time.Duration

	// HTTPClient is used for downloads. When nil a client with a traced
	// transport is created.
	HTTPClient *http.Client
}

// Resolver resolves uploads and remote URLs to local files.
type Resolver struct {
	opts   Options
	client *http.Client
}

// New creates a Resolver.
func New(opts Options) *Resolver {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.MaxDownloadBytes <= 0 {
		opts.MaxDownloadBytes = DefaultMaxDownloadBytes
	}
	if opts.DownloadTimeout <= 0 {
		opts.DownloadTimeout = DefaultDownloadTimeout
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	return &Resolver{opts: opts, client: client}
}

// MaxUploadBytes returns the effective upload limit.
func (res *Resolver) MaxUploadBytes() int64 {
	return res.opts.MaxUploadBytes
}
