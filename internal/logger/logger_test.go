package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/garyellow/geo-linebot-go/internal/ctxutil"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var logEntry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("Failed to parse JSON log %q: %v", buf.String(), err)
	}
	return logEntry
}

func TestNew_Levels(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		level string
		want  slog.Level
	}{
		{"debug", "debug", slog.LevelDebug},
		{"info", "info", slog.LevelInfo},
		{"warn", "warn", slog.LevelWarn},
		{"warning alias", "warning", slog.LevelWarn},
		{"upper case", "ERROR", slog.LevelError},
		{"invalid defaults to info", "invalid", slog.LevelInfo},
		{"empty defaults to info", "", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			log := NewWithWriter(tt.level, &bytes.Buffer{})
			ctx := context.Background()
			if !log.Enabled(ctx, tt.want) {
				t.Errorf("level %q: %v should be enabled", tt.level, tt.want)
			}
			if tt.want > slog.LevelDebug && log.Enabled(ctx, tt.want-4) {
				t.Errorf("level %q: %v should be disabled", tt.level, tt.want-4)
			}
		})
	}
}

func TestLogger_JSONFormat(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.Warn("test message")

	logEntry := decodeLine(t, &buf)
	for _, field := range []string{"timestamp", "level", "message"} {
		if _, ok := logEntry[field]; !ok {
			t.Errorf("JSON log missing required field %q", field)
		}
	}
	if logEntry["message"] != "test message" {
		t.Errorf("message = %v, want %q", logEntry["message"], "test message")
	}
	if logEntry["level"] != "warning" {
		t.Errorf("level = %v, want %q", logEntry["level"], "warning")
	}
}

func TestLogger_WithModule(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.WithModule("geo").Info("test message")

	if module := decodeLine(t, &buf)["module"]; module != "geo" {
		t.Errorf("WithModule() module = %v, want %q", module, "geo")
	}
}

func TestLogger_WithRequestID(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.WithRequestID("req-123").Info("test message")

	if requestID := decodeLine(t, &buf)["request_id"]; requestID != "req-123" {
		t.Errorf("WithRequestID() request_id = %v, want %q", requestID, "req-123")
	}
}

func TestLogger_WithError(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.WithError(&testError{msg: "test error message"}).Error("operation failed")

	if errField := decodeLine(t, &buf)["error"]; errField != "test error message" {
		t.Errorf("WithError() error = %v, want %q", errField, "test error message")
	}
}

func TestLogger_WithFields(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.WithFields(map[string]any{"team": "team1", "regions": 3}).Infof("grouped %d entries", 2)

	logEntry := decodeLine(t, &buf)
	if logEntry["team"] != "team1" {
		t.Errorf("team = %v, want team1", logEntry["team"])
	}
	if logEntry["regions"] != float64(3) {
		t.Errorf("regions = %v, want 3", logEntry["regions"])
	}
	if logEntry["message"] != "grouped 2 entries" {
		t.Errorf("message = %v", logEntry["message"])
	}
}

func TestLogger_ContextEnrichment(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	ctx := ctxutil.WithUserID(context.Background(), "U123")
	ctx = ctxutil.WithRequestID(ctx, "req-456")
	log.InfoContext(ctx, "lookup done")

	logEntry := decodeLine(t, &buf)
	if logEntry["user_id"] != "U123" {
		t.Errorf("user_id = %v, want U123", logEntry["user_id"])
	}
	if logEntry["request_id"] != "req-456" {
		t.Errorf("request_id = %v, want req-456", logEntry["request_id"])
	}
}

func TestLogger_ShutdownWithoutRemoteSink(t *testing.T) {
	t.Parallel()
	log := NewWithWriter("info", &bytes.Buffer{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := log.WithModule("geo").Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestLogger_BetterstackSinkIsAsync(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewWithOptions(Options{
		Level:               "info",
		Writer:              &buf,
		BetterstackToken:    "test-token",
		BetterstackEndpoint: "http://127.0.0.1:1/",
		Async:               AsyncOptions{BufferSize: 4, FlushTimeout: 100 * time.Millisecond},
	})
	if log.remote == nil {
		t.Fatal("expected async remote handler")
	}

	log.Info("shipped")

	if decodeLine(t, &buf)["message"] != "shipped" {
		t.Error("stdout sink should still receive the record")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = log.Shutdown(ctx)
}

// testError is a simple error type for testing
type testError struct {
	msg string
}

func (e *testError) Error() string {
	return e.msg
}
