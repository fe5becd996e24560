package middleware

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

// statusRecorder captures the status code and body size of a response.
type statusRecorder struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

func (rw *statusRecorder) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.statusCode = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

func (rw *statusRecorder) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// LoggingConfig holds configuration for the logging middleware
type LoggingConfig struct {
	// Software is written to the #Software directive.
	Software        string
	SkipPaths       []string
	LogHealthChecks bool
	// Output defaults to os.Stdout.
	Output io.Writer
}

// DefaultLoggingConfig returns the default access log configuration.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Software:        "ffmpeg-microservice",
		SkipPaths:       []string{},
		LogHealthChecks: true,
		Output:          os.Stdout,
	}
}

const w3cFields = "date time c-ip cs-method cs-uri-stem cs-uri-query sc-status cs-bytes sc-bytes time-taken cs(Content-Encoding) cs(User-Agent) cs(Referer)"

// W3CLogger writes access log lines in W3C Extended Log Format. The
// #Version/#Fields directives are emitted before the first entry.
type W3CLogger struct {
	config LoggingConfig
	header sync.Once
	mu     sync.Mutex
}

// NewW3CLogger creates a new W3C format logger
func NewW3CLogger(config LoggingConfig) *W3CLogger {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	return &W3CLogger{config: config}
}

// Logger returns HTTP logging middleware using W3C Extended Log Format
func Logger(config LoggingConfig) func(http.Handler) http.Handler {
	logger := NewW3CLogger(config)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if logger.shouldSkip(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r)

			logger.logRequest(r, rec, time.Since(start))
		})
	}
}

func (l *W3CLogger) writeHeader() {
	l.header.Do(func() {
		fmt.Fprintf(l.config.Output, "#Software: %s\n#Version: 1.0\n#Date: %s\n#Fields: %s\n",
			l.config.Software, time.Now().UTC().Format("2006-01-02 15:04:05"), w3cFields)
	})
}

func (l *W3CLogger) logRequest(r *http.Request, rec *statusRecorder, duration time.Duration) {
	now := time.Now().UTC()

	// Every user-controlled field is sanitized to prevent log line forging
	uriQuery := dashIfEmpty(sanitizeLogField(r.URL.RawQuery))

	requestBytes := "-"
	if r.ContentLength >= 0 {
		requestBytes = fmt.Sprint(r.ContentLength)
	}

	userAgent := sanitizeLogField(r.Header.Get("User-Agent"))
	if userAgent == "" {
		userAgent = "-"
	} else {
		userAgent = escapeW3CField(userAgent)
	}

	line := fmt.Sprintf("%s %s %s %s %s %s %d %s %d %d %s %s %s\n",
		now.Format("2006-01-02"),
		now.Format("15:04:05"),
		sanitizeLogField(getClientIP(r)),
		sanitizeLogField(r.Method),
		sanitizeLogField(r.URL.Path),
		uriQuery,
		rec.statusCode,
		requestBytes,
		rec.bytesWritten,
		duration.Milliseconds(),
		dashIfEmpty(rec.Header().Get("Content-Encoding")),
		userAgent,
		dashIfEmpty(escapeW3CField(sanitizeLogField(r.Header.Get("Referer")))),
	)

	l.writeHeader()
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.config.Output, line)
}

func (l *W3CLogger) shouldSkip(path string) bool {
	for _, skip := range l.config.SkipPaths {
		if strings.HasPrefix(path, skip) {
			return true
		}
	}
	return !l.config.LogHealthChecks && isHealthCheck(path)
}

// sanitizeLogField removes control characters that could be used for log
// injection. Newlines become spaces; tab is kept.
func sanitizeLogField(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r':
			b.WriteRune(' ')
		case r == '\t':
			b.WriteRune(r)
		case r < 0x20 || r == 0x7f:
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func getClientIP(r *http.Request) string {
	if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// escapeW3CField quotes a value containing whitespace or quotes, doubling
// embedded quotes.
func escapeW3CField(s string) string {
	if strings.ContainsAny(s, " \t\"") {
		return "\"" + strings.ReplaceAll(s, "\"", "\"\"") + "\""
	}
	return s
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
