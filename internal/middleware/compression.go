package middleware

import (
	"compress/gzip"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"
)

// CompressionConfig holds configuration for the compression middleware
type CompressionConfig struct {
	// MinSize is the minimum response size in bytes before compression is applied
	MinSize int
	// Level is the gzip compression level
	Level int
	// CompressibleTypes lists the media types eligible for compression
	CompressibleTypes []string
}

// DefaultCompressionConfig favours speed: conversion responses carry large
// base64 payloads.
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize:           1024,
		Level:             gzip.BestSpeed,
		CompressibleTypes: []string{"application/json", "text/plain"},
	}
}

// gzipWriter buffers up to MinSize bytes, then commits to either a gzip or a
// plain response.
type gzipWriter struct {
	http.ResponseWriter
	config     CompressionConfig
	pool       *sync.Pool
	buf        []byte
	statusCode int
	committed  bool
	gz         *gzip.Writer
}

func (g *gzipWriter) WriteHeader(code int) {
	if g.committed || g.statusCode != 0 {
		return
	}
	g.statusCode = code
}

func (g *gzipWriter) Write(p []byte) (int, error) {
	if g.committed {
		if g.gz != nil {
			return g.gz.Write(p)
		}
		return g.ResponseWriter.Write(p)
	}

	g.buf = append(g.buf, p...)
	if len(g.buf) >= g.config.MinSize {
		if err := g.commit(); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

func (g *gzipWriter) compressible() bool {
	if g.Header().Get("Content-Encoding") != "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(g.Header().Get("Content-Type"))
	if err != nil {
		return false
	}
	for _, t := range g.config.CompressibleTypes {
		if strings.EqualFold(mediaType, t) {
			return true
		}
	}
	return false
}

func (g *gzipWriter) commit() error {
	g.committed = true
	status := g.statusCode
	if status == 0 {
		status = http.StatusOK
	}

	if len(g.buf) >= g.config.MinSize && g.compressible() {
		h := g.Header()
		h.Del("Content-Length")
		h.Set("Content-Encoding", "gzip")
		h.Add("Vary", "Accept-Encoding")
		g.gz = g.pool.Get().(*gzip.Writer)
		g.gz.Reset(g.ResponseWriter)
		g.ResponseWriter.WriteHeader(status)
		_, err := g.gz.Write(g.buf)
		g.buf = nil
		return err
	}

	g.ResponseWriter.WriteHeader(status)
	_, err := g.ResponseWriter.Write(g.buf)
	g.buf = nil
	return err
}

func (g *gzipWriter) Flush() {
	if !g.committed {
		_ = g.commit()
	}
	if g.gz != nil {
		_ = g.gz.Flush()
	}
	if f, ok := g.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// close commits any buffered bytes and returns the gzip writer to the pool.
func (g *gzipWriter) close() error {
	if !g.committed {
		if err := g.commit(); err != nil {
			return err
		}
	}
	if g.gz == nil {
		return nil
	}
	err := g.gz.Close()
	g.pool.Put(g.gz)
	g.gz = nil
	return err
}

// Compression returns a middleware that gzips eligible responses for clients
// that accept it.
func Compression(config CompressionConfig) func(http.Handler) http.Handler {
	pool := &sync.Pool{
		New: func() interface{} {
			w, err := gzip.NewWriterLevel(io.Discard, config.Level)
			if err != nil {
				w = gzip.NewWriter(io.Discard)
			}
			return w
		},
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodHead || !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
				next.ServeHTTP(w, r)
				return
			}

			gw := &gzipWriter{ResponseWriter: w, config: config, pool: pool}
			defer func() {
				_ = gw.close()
			}()

			next.ServeHTTP(gw, r)
		})
	}
}
