package startup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"ffmpeg-microservice/internal/logging"
	"ffmpeg-microservice/internal/workers"

	"github.com/dustin/go-humanize"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration
type Config struct {
	Port           string
	MetricsPort    string
	MetricsEnabled bool

	WorkDir     string
	FFmpegPath  string
	FFprobePath string
	// MaxConcurrentTools caps simultaneous ffmpeg/ffprobe processes; 0 is unlimited.
	MaxConcurrentTools int

	ToolTimeout     time.Duration
	DownloadTimeout time.Duration
	ShutdownTimeout time.Duration

	MaxUploadSize   int64
	MaxJSONSize     int64
	MaxDownloadSize int64

	StaleFileAge  time.Duration
	SweepInterval time.Duration

	RateLimitRPS   float64
	RateLimitBurst int

	LogLevel        string
	LogHealthChecks bool

	OTLPEndpoint    string
	TraceSampleRate float64

	// ConfigFile is the file the configuration was read from, if any.
	ConfigFile string
}

// source resolves a key from the environment first, then the config file.
type source struct {
	path string
	file map[string]string
}

// LoadConfig builds the configuration from defaults, the optional TOML file at
// path (or $CONFIG_FILE) and environment variables, in increasing precedence.
// Invalid values are logged and replaced by their defaults. A config file
// that is named explicitly but cannot be read or parsed is an error.
func LoadConfig(path string) (*Config, error) {
	src, err := newSource(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:               src.getPort("PORT", "3001"),
		MetricsPort:        src.getPort("METRICS_PORT", "9090"),
		MetricsEnabled:     src.getBool("METRICS_ENABLED", true),
		WorkDir:            src.get("WORK_DIR", "./uploads"),
		FFmpegPath:         src.get("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:        src.get("FFPROBE_PATH", "ffprobe"),
		MaxConcurrentTools: src.getConcurrency("MAX_CONCURRENT_TOOLS"),
		ToolTimeout:        src.getDuration("TOOL_TIMEOUT", 10*time.Minute),
		DownloadTimeout:    src.getDuration("DOWNLOAD_TIMEOUT", 5*time.Minute),
		ShutdownTimeout:    src.getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		MaxUploadSize:      src.getSize("MAX_UPLOAD_SIZE", 100<<20),
		MaxJSONSize:        src.getSize("MAX_JSON_SIZE", 50<<20),
		MaxDownloadSize:    src.getSize("MAX_DOWNLOAD_SIZE", 1<<30),
		StaleFileAge:       src.getDuration("STALE_FILE_AGE", time.Hour),
		SweepInterval:      src.getDuration("SWEEP_INTERVAL", 10*time.Minute),
		RateLimitRPS:       src.getFloat("RATE_LIMIT_RPS", 0),
		RateLimitBurst:     src.getInt("RATE_LIMIT_BURST", 20),
		LogLevel:           src.get("LOG_LEVEL", "info"),
		LogHealthChecks:    src.getBool("LOG_HEALTH_CHECKS", true),
		OTLPEndpoint:       src.get("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		TraceSampleRate:    src.getFloat("OTEL_TRACE_SAMPLE_RATE", 1.0),
		ConfigFile:         src.path,
	}
	cfg.clampStaleFileAge()
	return cfg, nil
}

// clampStaleFileAge keeps the janitor from sweeping the files of a job that
// can still be running: a job lives at most DownloadTimeout plus ToolTimeout.
func (c *Config) clampStaleFileAge() {
	minAge := c.ToolTimeout + c.DownloadTimeout
	if c.StaleFileAge >= minAge {
		return
	}
	logging.Warn("STALE_FILE_AGE %v is shorter than TOOL_TIMEOUT + DOWNLOAD_TIMEOUT; using %v", c.StaleFileAge, minAge)
	c.StaleFileAge = minAge
}

func newSource(path string) (*source, error) {
	explicit := path != ""
	if !explicit {
		path = os.Getenv("CONFIG_FILE")
		explicit = path != ""
	}
	src := &source{file: map[string]string{}}
	if !explicit {
		return src, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file %s does not exist", path)
		}
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	var raw map[string]interface{}
	if err := toml.NewDecoder(f).Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	for key, value := range raw {
		switch v := value.(type) {
		case map[string]interface{}, []interface{}:
			logging.Warn("Ignoring config key %q: tables and arrays are not supported", key)
		case time.Time:
			logging.Warn("Ignoring config key %q: dates are not supported", key)
		default:
			src.file[strings.ToLower(key)] = fmt.Sprint(v)
		}
	}
	src.path = path
	return src, nil
}

// lookup returns the environment value for key, else the file value stored
// under the lowercased key.
func (s *source) lookup(key string) (string, bool) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v, true
	}
	if v, ok := s.file[strings.ToLower(key)]; ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v), true
	}
	return "", false
}

func (s *source) get(key, defaultValue string) string {
	if v, ok := s.lookup(key); ok {
		return v
	}
	return defaultValue
}

func (s *source) getBool(key string, defaultValue bool) bool {
	value, ok := s.lookup(key)
	if !ok {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func (s *source) getDuration(key string, defaultValue time.Duration) time.Duration {
	value, ok := s.lookup(key)
	if !ok {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		logging.Warn("Invalid duration for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

// getSize accepts byte counts and humanized sizes such as "100MB" or "1GiB".
func (s *source) getSize(key string, defaultValue int64) int64 {
	value, ok := s.lookup(key)
	if !ok {
		return defaultValue
	}
	parsed, err := humanize.ParseBytes(value)
	if err != nil || parsed == 0 || parsed > 1<<62 {
		logging.Warn("Invalid size for %s: %q, using default: %s", key, value, humanize.IBytes(uint64(defaultValue)))
		return defaultValue
	}
	return int64(parsed)
}

func (s *source) getFloat(key string, defaultValue float64) float64 {
	value, ok := s.lookup(key)
	if !ok {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed < 0 {
		logging.Warn("Invalid number for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func (s *source) getInt(key string, defaultValue int) int {
	value, ok := s.lookup(key)
	if !ok {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		logging.Warn("Invalid integer for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

// getConcurrency accepts "auto", "0" or a positive integer; invalid values
// mean unlimited.
func (s *source) getConcurrency(key string) int {
	value, ok := s.lookup(key)
	if !ok {
		return 0
	}
	n, err := workers.ParseLimit(value)
	if err != nil {
		logging.Warn("Invalid value for %s: %v, using default: unlimited", key, err)
		return 0
	}
	return n
}

func (s *source) getPort(key, defaultValue string) string {
	value, ok := s.lookup(key)
	if !ok {
		return defaultValue
	}
	port, err := strconv.Atoi(value)
	if err != nil || port < 1 || port > 65535 {
		logging.Warn("Invalid port for %s: %q, using default: %s", key, value, defaultValue)
		return defaultValue
	}
	return value
}

// LogConfig logs the effective configuration.
func LogConfig(config *Config) {
	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	if config.ConfigFile != "" {
		logging.Info("  CONFIG_FILE:         %s", config.ConfigFile)
	}
	logging.Info("  PORT:                %s", config.Port)
	logging.Info("  METRICS_PORT:        %s", config.MetricsPort)
	logging.Info("  METRICS_ENABLED:     %v", config.MetricsEnabled)
	logging.Info("  WORK_DIR:            %s", config.WorkDir)
	logging.Info("  FFMPEG_PATH:         %s", config.FFmpegPath)
	logging.Info("  FFPROBE_PATH:        %s", config.FFprobePath)
	if config.MaxConcurrentTools > 0 {
		logging.Info("  MAX_CONCURRENT_TOOLS: %d", config.MaxConcurrentTools)
	} else {
		logging.Info("  MAX_CONCURRENT_TOOLS: unlimited")
	}
	logging.Info("  TOOL_TIMEOUT:        %v", config.ToolTimeout)
	logging.Info("  DOWNLOAD_TIMEOUT:    %v", config.DownloadTimeout)
	logging.Info("  MAX_UPLOAD_SIZE:     %s", humanize.IBytes(uint64(config.MaxUploadSize)))
	logging.Info("  MAX_JSON_SIZE:       %s", humanize.IBytes(uint64(config.MaxJSONSize)))
	logging.Info("  MAX_DOWNLOAD_SIZE:   %s", humanize.IBytes(uint64(config.MaxDownloadSize)))
	logging.Info("  STALE_FILE_AGE:      %v", config.StaleFileAge)
	logging.Info("  SWEEP_INTERVAL:      %v", config.SweepInterval)
	if config.RateLimitRPS > 0 {
		logging.Info("  RATE_LIMIT:          %.1f req/s (burst %d)", config.RateLimitRPS, config.RateLimitBurst)
	} else {
		logging.Info("  RATE_LIMIT:          off")
	}
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())
	logging.Info("  LOG_HEALTH_CHECKS:   %v", config.LogHealthChecks)
	logging.Info("  SHUTDOWN_TIMEOUT:    %v", config.ShutdownTimeout)
	logging.Info("")
}
