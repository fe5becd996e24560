package workers

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// Available returns the number of CPUs the scheduler runs on. Inside a
// container this follows the CPU quota rather than the host CPU count.
func Available() int {
	return runtime.GOMAXPROCS(0)
}

// Count scales Available by multiplier. The result is at least 1 and at
// most limit; a limit of 0 means no cap.
func Count(multiplier float64, limit int) int {
	n := int(float64(Available()) * multiplier)
	if n < 1 {
		n = 1
	}
	if limit > 0 && n > limit {
		n = limit
	}
	return n
}

// ForCPU returns one worker per available CPU, capped at limit.
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ParseLimit interprets a concurrency setting. "auto" sizes the limit to
// the available CPUs, an empty string or "0" means unlimited and any other
// value must be a non-negative integer.
func ParseLimit(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "0", "unlimited":
		return 0, nil
	case "auto":
		return ForCPU(0), nil
	}

	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid concurrency limit %q", s)
	}
	return n, nil
}
