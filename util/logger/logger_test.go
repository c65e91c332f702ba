package logger

import (
	"bytes"
	"log/slog"
	"regexp"
	"strings"
	"testing"
)

func newTestLogger(debug bool) (*slog.Logger, *LogHandler, *bytes.Buffer, *bytes.Buffer) {
	var file, console bytes.Buffer
	h := NewHandler(&file, &slog.HandlerOptions{Level: slog.LevelInfo}, debug)
	h.SetConsole(&console)
	return slog.New(h), h, &file, &console
}

func TestFormat(t *testing.T) {
	log, _, file, _ := newTestLogger(false)
	log.Info("processing", "file", "game.cas", "records", 12)

	line := regexp.MustCompile(`^\d{4}/\d\d/\d\d \d\d:\d\d:\d\d INFO: processing file=game.cas records=12\n$`)
	if !line.MatchString(file.String()) {
		t.Errorf("Unexpected log line %q", file.String())
	}
}

func TestConsoleEcho(t *testing.T) {
	log, h, file, console := newTestLogger(false)

	log.Debug("hidden")
	if file.Len() != 0 || console.Len() != 0 {
		t.Errorf("Debug record written without diagnostics: %q %q", file.String(), console.String())
	}

	log.Warn("shown")
	if !strings.Contains(file.String(), "WARN: shown") {
		t.Errorf("Log file missing warning: %q", file.String())
	}
	if !strings.Contains(console.String(), "WARN: shown") {
		t.Errorf("Console missing warning: %q", console.String())
	}

	h.SetDebug(true)
	log.Debug("record", "number", 1)
	if !strings.Contains(file.String(), "DEBUG: record number=1") {
		t.Errorf("Log file missing debug record: %q", file.String())
	}
	if !strings.Contains(console.String(), "DEBUG: record number=1") {
		t.Errorf("Console missing debug record: %q", console.String())
	}
}

func TestNoFile(t *testing.T) {
	var console bytes.Buffer
	h := NewHandler(nil, nil, false)
	h.SetConsole(&console)
	slog.New(h).Error("failed", "error", "short header")
	if !strings.Contains(console.String(), "ERROR: failed error=short header") {
		t.Errorf("Console got %q", console.String())
	}
}

func TestWithAttrs(t *testing.T) {
	log, _, file, _ := newTestLogger(false)
	log.With("file", "a.cas").Info("done", "bytes", 3)
	if !strings.Contains(file.String(), "INFO: done file=a.cas bytes=3") {
		t.Errorf("Log file got %q", file.String())
	}
}
