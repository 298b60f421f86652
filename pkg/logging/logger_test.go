// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// =============================================================================
// Level Tests
// =============================================================================

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.level.String(); got != tt.want {
				t.Errorf("Level.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{" warning ", LevelWarn, false},
		{"error", LevelError, false},
		{"trace", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFromSlogLevel(t *testing.T) {
	tests := []struct {
		in   slog.Level
		want Level
	}{
		{slog.LevelDebug, LevelDebug},
		{slog.LevelInfo, LevelInfo},
		{slog.LevelWarn, LevelWarn},
		{slog.LevelError, LevelError},
		{slog.LevelError + 4, LevelError},
	}

	for _, tt := range tests {
		if got := fromSlogLevel(tt.in); got != tt.want {
			t.Errorf("fromSlogLevel(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// =============================================================================
// Logger Tests
// =============================================================================

func newLogger(t *testing.T, cfg Config) *Logger {
	t.Helper()
	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = logger.Close() })
	return logger
}

func TestNew_ConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(t, Config{Level: LevelInfo, Service: "labstubs", Output: &buf})

	logger.Slog().Debug("hidden")
	logger.Slog().Info("Processing lab", "lab", "lab_1")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug record passed an info filter: %s", out)
	}
	for _, want := range []string{"Processing lab", "lab=lab_1", "service=labstubs"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}

func TestNew_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(t, Config{JSON: true, Output: &buf})

	logger.Slog().Warn("Stub is not relevant", "file", "lab_1/main.py")
	if !strings.Contains(buf.String(), `"file":"lab_1/main.py"`) {
		t.Errorf("output is not JSON: %s", buf.String())
	}
}

func TestNew_QuietMode(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(t, Config{Quiet: true, Output: &buf})

	logger.Slog().Error("nobody listens")
	if buf.Len() != 0 {
		t.Errorf("quiet logger wrote %q", buf.String())
	}
}

func TestNew_WithLogDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	logger, err := New(Config{Quiet: true, LogDir: dir, Service: "check"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Slog().Info("Stub check finished", "overall_ok", true)
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "check_*.log"))
	if len(matches) != 1 {
		t.Fatalf("log files = %v, want exactly one", matches)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), `"overall_ok":true`) {
		t.Errorf("log file missing record: %s", data)
	}
}

func TestNew_WithLogDir_InvalidPath(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := New(Config{LogDir: filepath.Join(file, "logs")}); err == nil {
		t.Error("New() with a file as log directory should fail")
	}
}

func TestNew_WithExporter(t *testing.T) {
	exporter := NewBufferedExporter()
	logger := newLogger(t, Config{Level: LevelInfo, Quiet: true, Service: "labstubs", Exporter: exporter})

	logger.Slog().Debug("filtered")
	logger.Slog().With("run_id", "r1").WithGroup("pair").Warn("Stub check failed", "file", "lab_1/main.py")

	entries := exporter.Entries()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.Level != LevelWarn || e.Message != "Stub check failed" || e.Service != "labstubs" {
		t.Errorf("unexpected entry: %+v", e)
	}
	if e.Attrs["run_id"] != "r1" || e.Attrs["pair.file"] != "lab_1/main.py" {
		t.Errorf("unexpected attrs: %v", e.Attrs)
	}
	if _, ok := e.Attrs["service"]; ok {
		t.Errorf("service leaked into attrs: %v", e.Attrs)
	}
}

func TestNew_ConsoleAndExporter(t *testing.T) {
	var buf bytes.Buffer
	exporter := NewBufferedExporter()
	logger := newLogger(t, Config{Output: &buf, Exporter: exporter})

	logger.Slog().Info("both", "n", 1)
	if !strings.Contains(buf.String(), "both") {
		t.Errorf("console output missing record: %s", buf.String())
	}
	if len(exporter.Entries()) != 1 {
		t.Errorf("exporter entries = %d, want 1", len(exporter.Entries()))
	}
}

type failingExporter struct{ BufferedExporter }

func (e *failingExporter) Flush(context.Context) error { return errors.New("flush failed") }

func TestLogger_Close(t *testing.T) {
	t.Run("flushes exporter", func(t *testing.T) {
		exporter := NewBufferedExporter()
		logger, err := New(Config{Quiet: true, Exporter: exporter})
		if err != nil {
			t.Fatal(err)
		}
		if err := logger.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		if !exporter.Flushed() {
			t.Error("exporter was not flushed")
		}
		if err := logger.Close(); err != nil {
			t.Errorf("second Close() error = %v", err)
		}
	})

	t.Run("reports exporter error", func(t *testing.T) {
		logger, err := New(Config{Quiet: true, Exporter: &failingExporter{}})
		if err != nil {
			t.Fatal(err)
		}
		if err := logger.Close(); err == nil || !strings.Contains(err.Error(), "flush exporter") {
			t.Errorf("Close() error = %v, want flush error", err)
		}
	})
}

func TestLogger_ConcurrentUse(t *testing.T) {
	exporter := NewBufferedExporter()
	logger := newLogger(t, Config{Quiet: true, Exporter: exporter})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				logger.Slog().Info("tick", "worker", i)
			}
		}(i)
	}
	wg.Wait()

	if got := len(exporter.Entries()); got != 200 {
		t.Errorf("entries = %d, want 200", got)
	}
}

// =============================================================================
// Helper Tests
// =============================================================================

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct {
		in   string
		want string
	}{
		{"~/.labstubs/logs", filepath.Join(home, ".labstubs/logs")},
		{"/var/log", "/var/log"},
		{"relative/path", "relative/path"},
	}
	for _, tt := range tests {
		if got := expandPath(tt.in); got != tt.want {
			t.Errorf("expandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBufferedExporter_EntriesReturnsCopy(t *testing.T) {
	e := NewBufferedExporter()
	_ = e.Export(context.Background(), LogEntry{Message: "original"})

	entries := e.Entries()
	entries[0].Message = "modified"

	if e.Entries()[0].Message != "original" {
		t.Error("Entries() did not return a copy")
	}
}
