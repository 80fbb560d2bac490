package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"freightdesk/internal/infra/config"
)

func TestLevelFor(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := levelFor(tc.in); got != tc.want {
			t.Errorf("levelFor(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestOpenSinkStandardTargets(t *testing.T) {
	cases := []struct {
		target string
		want   *os.File
	}{
		{"stdout", os.Stdout},
		{"stderr", os.Stderr},
		{"", os.Stderr},
	}
	for _, tc := range cases {
		w, closeSink, err := openSink(tc.target)
		if err != nil {
			t.Fatalf("openSink(%q): %v", tc.target, err)
		}
		defer closeSink()
		if w != tc.want {
			t.Errorf("openSink(%q) returned wrong writer", tc.target)
		}
	}
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "freightdesk.log")

	log, closeSink, err := New(config.LoggerConfig{Level: "info", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Info("turn complete", "request_id", "req-1")
	if err := closeSink(); err != nil {
		t.Fatalf("close sink: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "turn complete") || !strings.Contains(out, "req-1") {
		t.Errorf("log file missing expected fields: %s", out)
	}
	if !strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Errorf("expected JSON output, got %s", out)
	}
}

func TestNewFiltersBelowConfiguredLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warn.log")

	log, closeSink, err := New(config.LoggerConfig{Level: "warn", Format: "text", Output: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Info("quiet")
	log.Warn("loud")
	if err := closeSink(); err != nil {
		t.Fatalf("close sink: %v", err)
	}

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "quiet") {
		t.Error("info entry should be filtered at warn level")
	}
	if !strings.Contains(string(data), "loud") {
		t.Error("warn entry should be written at warn level")
	}
}

func TestNewRejectsUnwritablePath(t *testing.T) {
	_, _, err := New(config.LoggerConfig{Level: "info", Format: "text", Output: "/nonexistent/dir/app.log"})
	if err == nil {
		t.Fatal("expected error for unwritable output path")
	}
}
