package log

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestToFields(t *testing.T) {
	now := time.Now()
	err := errors.New("boom")

	tests := []struct {
		name  string
		input []any
		want  int
	}{
		{"empty input", []any{}, 0},
		{"string-int-bool", []any{"a", "x", "b", 123, "c", true}, 3},
		{"time type", []any{"t", now}, 1},
		{"bytes", []any{"data", []byte("xyz")}, 1},
		{"error only", []any{err}, 1},
		{"mixed field types", []any{"msg", "ok", zap.String("x", "y"), "num", 42}, 3},
		{"odd number of args", []any{"key1", "val1", "key2"}, 2},
		{"non-string key", []any{123, "value"}, 1},
		{"nil values", []any{"a", nil, "b", (*int)(nil)}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := toFields(tt.input...)
			if len(fields) != tt.want {
				t.Fatalf("got %d fields, want %d", len(fields), tt.want)
			}
			for _, f := range fields {
				if f.Key == "" {
					t.Errorf("field has empty key: %+v", f)
				}
			}
		})
	}
}

func TestKVAdapter(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	kv := Adapt(New(zap.New(core)))

	kv.Debug("sync", "attempt", 1)
	kv.Info("connected", "chip", "ESP32")
	kv.Error("erase failed", "error", errors.New("timeout"))

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[2].Level != zapcore.ErrorLevel {
		t.Errorf("level = %v, want error", entries[2].Level)
	}
	if got := entries[1].ContextMap()["chip"]; got != "ESP32" {
		t.Errorf("chip = %v, want ESP32", got)
	}
}

func TestWithValues(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := New(zap.New(core)).WithName("pipeline").WithValues("run", "r-1")

	l.Info("started")
	l.Debug("hidden")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].LoggerName != "pipeline" {
		t.Errorf("logger name = %q", entries[0].LoggerName)
	}
	if got := entries[0].ContextMap()["run"]; got != "r-1" {
		t.Errorf("run = %v", got)
	}
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qtshockd.log")

	opts := NewOptions()
	opts.File = path
	opts.Format = "json"
	l := NewLogger(opts)
	l.Info("flash started", "endpoint", "COM5")
	if err := l.Sync(); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"endpoint":"COM5"`) {
		t.Errorf("log file missing endpoint field: %s", data)
	}
}

func TestOptionsValidate(t *testing.T) {
	if errs := NewOptions().Validate(); len(errs) != 0 {
		t.Fatalf("defaults invalid: %v", errs)
	}

	o := NewOptions()
	o.Level = "loud"
	o.Format = "xml"
	o.File = "x.log"
	o.MaxSizeMB = 0
	if errs := o.Validate(); len(errs) != 3 {
		t.Errorf("got %d errors, want 3: %v", len(errs), errs)
	}
}

func TestWriter(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	w := Writer(New(zap.New(core)))

	n, err := w.Write([]byte("GET /api/endpoints 200\nPOST /api/flash 200\n"))
	if err != nil || n != 43 {
		t.Fatalf("Write() = %d, %v", n, err)
	}

	entries := logs.All()
	if len(entries) != 2 || entries[1].Message != "POST /api/flash 200" {
		t.Errorf("entries = %+v", entries)
	}
}
