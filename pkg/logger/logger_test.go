package logger

import (
	"context"
	"testing"
)

func TestInitLevels(t *testing.T) {
	levels := []string{"debug", "info", "warn", "error", "unknown"}
	for _, level := range levels {
		Init(&Config{Level: level, Format: "text"})
		// Should not panic and should install a default logger
	}
	Init(&Config{Level: "info", Format: "json"})
}

func TestWithContext(t *testing.T) {
	Init(&Config{Level: "info", Format: "text"})

	ctx := context.Background()
	if WithContext(ctx) == nil {
		t.Fatal("Expected a logger for an empty context")
	}

	ctx = context.WithValue(ctx, RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, TenantKey, "tenant-1")
	ctx = context.WithValue(ctx, DocumentIDKey, "doc-1")
	ctx = context.WithValue(ctx, SessionIDKey, "sess-1")

	if WithContext(ctx) == nil {
		t.Fatal("Expected a logger with context values")
	}

	// Logging helpers should not panic
	Info(ctx, "info message", "key", "value")
	Debug(ctx, "debug message")
	Warn(ctx, "warn message")
	Error(ctx, "error message")
}
