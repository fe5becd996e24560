package logging

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input  string
		want   LogLevel
		wantOK bool
	}{
		{"debug", LevelDebug, true},
		{"info", LevelInfo, true},
		{"warn", LevelWarn, true},
		{"warning", LevelWarn, true},
		{"error", LevelError, true},
		{"DEBUG", LevelDebug, true},
		{"  Error  ", LevelError, true},
		{"", LevelInfo, false},
		{"verbose", LevelInfo, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseLevel(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseLevel(%q) = (%v, %v), want (%v, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestLogLevelConstants(t *testing.T) {
	levels := []LogLevel{LevelDebug, LevelInfo, LevelWarn, LevelError}
	for i := 0; i < len(levels)-1; i++ {
		if levels[i] >= levels[i+1] {
			t.Errorf("Log levels should be in ascending order: %v >= %v", levels[i], levels[i+1])
		}
	}
}

func TestSetLevelFiltersOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	original := GetLevel()
	defer func() {
		SetLevel(original)
		SetOutput(os.Stderr)
	}()

	SetLevel(LevelWarn)
	Debug("debug line")
	Info("info line")
	Warn("warn line %d", 1)
	Error("error line")

	out := buf.String()
	if strings.Contains(out, "debug line") || strings.Contains(out, "info line") {
		t.Errorf("expected debug/info to be filtered, got %q", out)
	}
	if !strings.Contains(out, "[WARN] warn line 1") {
		t.Errorf("expected warn line, got %q", out)
	}
	if !strings.Contains(out, "[ERROR] error line") {
		t.Errorf("expected error line, got %q", out)
	}

	if IsDebugEnabled() {
		t.Error("IsDebugEnabled() = true at warn level")
	}
	SetLevel(LevelDebug)
	if !IsDebugEnabled() {
		t.Error("IsDebugEnabled() = false at debug level")
	}
}

func TestPrintfAlwaysPrints(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	original := GetLevel()
	defer func() {
		SetLevel(original)
		log.SetOutput(os.Stderr)
	}()

	SetLevel(LevelError)
	Printf("banner %s", "line")
	if !strings.Contains(buf.String(), "banner line") {
		t.Errorf("Printf output missing: %q", buf.String())
	}
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{LogLevel(99), "unknown(99)"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.level.String(); got != tt.expected {
				t.Errorf("LogLevel.String() = %q, want %q", got, tt.expected)
			}
		})
	}
}
