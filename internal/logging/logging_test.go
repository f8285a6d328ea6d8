package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_DefaultLevel(t *testing.T) {
	logger := New("", "text")
	if logger == nil {
		t.Fatal("Expected non-nil logger")
	}
}

func TestNew_DebugLevel(t *testing.T) {
	logger := New("debug", "text")
	if logger == nil {
		t.Fatal("Expected non-nil logger")
	}
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Expected debug level to be enabled")
	}
}

func TestNew_ErrorLevel(t *testing.T) {
	logger := New("error", "text")
	if logger == nil {
		t.Fatal("Expected non-nil logger")
	}
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Expected info level to be disabled at error level")
	}
}

func TestNew_JSONFormat(t *testing.T) {
	logger := New("info", "json")
	if logger == nil {
		t.Fatal("Expected non-nil logger for JSON format")
	}
}

func TestWithRequestID_And_RequestID(t *testing.T) {
	ctx := context.Background()

	// No request ID initially
	if id := RequestID(ctx); id != "" {
		t.Errorf("Expected empty request ID, got %q", id)
	}

	// Set request ID
	ctx = WithRequestID(ctx, "req-123")
	if id := RequestID(ctx); id != "req-123" {
		t.Errorf("Expected req-123, got %q", id)
	}
}

func TestWithLogger_And_FromContext(t *testing.T) {
	ctx := context.Background()

	// Default logger when none set
	logger := FromContext(ctx)
	if logger == nil {
		t.Fatal("Expected default logger")
	}

	// Set custom logger
	custom := New("debug", "json")
	ctx = WithLogger(ctx, custom)

	retrieved := FromContext(ctx)
	if retrieved != custom {
		t.Error("Expected custom logger from context")
	}
}

func TestL_WithRequestID(t *testing.T) {
	var buf bytes.Buffer
	ctx := context.Background()
	ctx = WithRequestID(ctx, "req-456")
	ctx = WithLogger(ctx, NewWithWriter(&buf, "info", "json"))

	L(ctx).Info("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("Expected JSON log line, got %q", buf.String())
	}
	if line["request_id"] != "req-456" {
		t.Errorf("Expected request_id attribute, got %v", line["request_id"])
	}
}

func TestL_WithoutRequestID(t *testing.T) {
	ctx := context.Background()
	ctx = WithLogger(ctx, New("info", "text"))

	logger := L(ctx)
	if logger == nil {
		t.Fatal("Expected non-nil logger from L()")
	}
}

func TestRequestID_OverwritesPrevious(t *testing.T) {
	ctx := context.Background()
	ctx = WithRequestID(ctx, "first")
	ctx = WithRequestID(ctx, "second")

	if id := RequestID(ctx); id != "second" {
		t.Errorf("Expected 'second', got %q", id)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" DEBUG ", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLOr_UsesFallbackWithoutContextLogger(t *testing.T) {
	var buf bytes.Buffer
	fallback := NewWithWriter(&buf, "info", "text")

	LOr(WithRequestID(context.Background(), "req-9"), fallback).Info("scan")

	out := buf.String()
	if !strings.Contains(out, "msg=scan") || !strings.Contains(out, "request_id=req-9") {
		t.Errorf("Expected fallback logger output with request id, got %q", out)
	}
}

func TestFromContextOr_NilFallback(t *testing.T) {
	if FromContextOr(context.Background(), nil) != slog.Default() {
		t.Error("Expected slog.Default for nil fallback")
	}
}

func TestWithAnalysis(t *testing.T) {
	var buf bytes.Buffer
	fallback := NewWithWriter(&buf, "info", "json")

	ctx := WithAnalysis(context.Background(), fallback, "wallet", "0xabc")
	L(ctx).Info("scored")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("Expected JSON log line, got %q", buf.String())
	}
	if line["analysis"] != "wallet" || line["subject"] != "0xabc" {
		t.Errorf("Expected analysis attributes, got %v", line)
	}
}

func TestWithAnalysis_PrefersContextLogger(t *testing.T) {
	var ctxBuf, fallbackBuf bytes.Buffer
	ctx := WithLogger(context.Background(), NewWithWriter(&ctxBuf, "info", "text"))

	ctx = WithAnalysis(ctx, NewWithWriter(&fallbackBuf, "info", "text"), "token", "0x2::sui::SUI")
	L(ctx).Info("scored")

	if ctxBuf.Len() == 0 || fallbackBuf.Len() != 0 {
		t.Errorf("Expected output on the request logger only")
	}
}
