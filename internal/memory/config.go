package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"
	"strings"

	"ffmpeg-microservice/internal/logging"

	"github.com/dustin/go-humanize"
)

// DefaultMemoryRatio is the share of the container limit given to the Go heap.
// The rest is left to ffmpeg child processes.
const DefaultMemoryRatio = 0.75

// ConfigResult holds the result of memory configuration
type ConfigResult struct {
	// Configured indicates whether a Go memory limit is in effect
	Configured bool

	// Source is "GOMEMLIMIT", "MEMORY_LIMIT" or "none"
	Source string

	// ContainerLimit is the container memory limit in bytes (0 if not set)
	ContainerLimit int64

	// GoMemLimit is the Go memory limit in bytes (0 if not set)
	GoMemLimit int64

	// Ratio is the memory ratio used (0 if not applicable)
	Ratio float64
}

// ConfigureFromEnv applies GOMEMLIMIT, MEMORY_LIMIT and MEMORY_RATIO from
// the environment.
func ConfigureFromEnv() ConfigResult {
	return Configure(os.Getenv("GOMEMLIMIT"), os.Getenv("MEMORY_LIMIT"), os.Getenv("MEMORY_RATIO"))
}

// Configure sets the runtime memory limit from the given raw values. An
// explicit goMemLimit means the runtime already applied it and only its
// value is reported.
func Configure(goMemLimit, containerLimit, ratioStr string) ConfigResult {
	if goMemLimit != "" {
		result := ConfigResult{Source: "GOMEMLIMIT"}
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
			result.Configured = true
			result.GoMemLimit = limit
		}
		logging.Info("GOMEMLIMIT set via environment: %s", goMemLimit)
		return result
	}

	if containerLimit == "" {
		logging.Debug("MEMORY_LIMIT not set, GOMEMLIMIT will not be configured automatically")
		return ConfigResult{Source: "none"}
	}

	limit, err := parseLimit(containerLimit)
	if err != nil || limit <= 0 {
		logging.Warn("Failed to parse MEMORY_LIMIT %q, GOMEMLIMIT not configured", containerLimit)
		return ConfigResult{Source: "none"}
	}

	ratio := parseRatio(ratioStr)
	goLimit := int64(float64(limit) * ratio)
	debug.SetMemoryLimit(goLimit)

	logging.Info("Configured GOMEMLIMIT: %s (%.0f%% of %s container limit)",
		humanize.IBytes(uint64(goLimit)), ratio*100, humanize.IBytes(uint64(limit)))

	return ConfigResult{
		Configured:     true,
		Source:         "MEMORY_LIMIT",
		ContainerLimit: limit,
		GoMemLimit:     goLimit,
		Ratio:          ratio,
	}
}

// parseLimit accepts a plain byte count or a humanized size ("512Mi", "2GiB").
func parseLimit(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	// Kubernetes quantities omit the trailing B
	if strings.HasSuffix(s, "i") {
		s += "B"
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt64 {
		return math.MaxInt64, nil
	}
	return int64(n), nil
}

func parseRatio(s string) float64 {
	if s == "" {
		return DefaultMemoryRatio
	}
	ratio, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		logging.Warn("Failed to parse MEMORY_RATIO %q: %v, using default %.2f", s, err, DefaultMemoryRatio)
		return DefaultMemoryRatio
	}
	if ratio <= 0 || ratio > 1 {
		logging.Warn("MEMORY_RATIO %q out of range (0.0-1.0), using default %.2f", s, DefaultMemoryRatio)
		return DefaultMemoryRatio
	}
	return ratio
}
