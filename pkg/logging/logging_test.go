package logging

import (
	"bytes"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{" warn ", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"info", LevelInfo},
		{"", LevelInfo},
		{"bogus", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LevelWarn)

	logger.Info("should be filtered")
	if buf.Len() != 0 {
		t.Fatalf("expected info record to be dropped, got %q", buf.String())
	}

	logger.Warn("visible")
	if buf.Len() == 0 {
		t.Fatal("expected warn record to be written")
	}
}

func TestNewLoggerNilWriterDefaultsToStderr(t *testing.T) {
	logger := NewLogger(nil, LevelInfo)
	if logger == nil {
		t.Fatal("expected logger")
	}
	if !logger.Enabled(t.Context(), slog.LevelInfo) {
		t.Fatal("expected info level to be enabled")
	}
}
