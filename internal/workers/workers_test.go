package workers

import (
	"runtime"
	"testing"
)

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func TestCount(t *testing.T) {
	availableCPU := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		minExpect  int
		maxExpect  int
	}{
		{
			name:       "One per CPU",
			multiplier: 1.0,
			limit:      0,
			minExpect:  availableCPU,
			maxExpect:  availableCPU,
		},
		{
			name:       "Double",
			multiplier: 2.0,
			limit:      0,
			minExpect:  availableCPU * 2,
			maxExpect:  availableCPU * 2,
		},
		{
			name:       "With limit lower than calculated",
			multiplier: 2.0,
			limit:      1,
			minExpect:  1,
			maxExpect:  1,
		},
		{
			name:       "Very low multiplier never drops below one",
			multiplier: 0.01,
			limit:      0,
			minExpect:  1,
			maxExpect:  maxInt(1, int(float64(availableCPU)*0.01)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(tt.multiplier, tt.limit)
			if got < tt.minExpect || got > tt.maxExpect {
				t.Errorf("Count(%v, %d) = %d, want in [%d, %d]", tt.multiplier, tt.limit, got, tt.minExpect, tt.maxExpect)
			}
		})
	}
}

func TestForCPURespectsGOMAXPROCS(t *testing.T) {
	prev := runtime.GOMAXPROCS(1)
	defer runtime.GOMAXPROCS(prev)

	if got := ForCPU(0); got != 1 {
		t.Errorf("ForCPU(0) with GOMAXPROCS=1 = %d, want 1", got)
	}
	if got := Available(); got != 1 {
		t.Errorf("Available() with GOMAXPROCS=1 = %d, want 1", got)
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"", 0, false},
		{"0", 0, false},
		{"unlimited", 0, false},
		{"4", 4, false},
		{" 12 ", 12, false},
		{"AUTO", runtime.GOMAXPROCS(0), false},
		{"-1", 0, true},
		{"many", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLimit(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLimit(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLimit(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
