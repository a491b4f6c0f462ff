package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":      slog.LevelInfo,
		"DEBUG": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"ERROR": slog.LevelError,
		"bogus": slog.LevelInfo,
	}

	for value, expected := range tests {
		t.Setenv("LOG_LEVEL", value)
		if got := LogLevel(); got != expected {
			t.Errorf("LOG_LEVEL=%q: expected %v, got %v", value, expected, got)
		}
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "", slog.LevelInfo)
	WithExecutionID(WithDatasourceID(logger, "ds-1"), "ex-1").Info("action executed")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["datasource_id"] != "ds-1" || entry["execution_id"] != "ex-1" {
		t.Errorf("missing attributes: %v", entry)
	}
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "text", slog.LevelInfo)
	logger.Debug("hidden")
	logger.Info("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug message should be filtered at info level")
	}
	if !strings.Contains(out, "msg=visible") {
		t.Errorf("expected text format, got %q", out)
	}
}

func TestFromContext(t *testing.T) {
	// Без логгера в контексте — глобальный
	if FromContext(context.Background()) != slog.Default() {
		t.Error("expected default logger")
	}

	logger := NewLogger(&bytes.Buffer{}, "", slog.LevelInfo)
	ctx := WithLogger(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Error("expected logger from context")
	}

	fallback := NewLogger(&bytes.Buffer{}, "", slog.LevelInfo)
	if FromContextOr(context.Background(), fallback) != fallback {
		t.Error("expected fallback logger")
	}
	if FromContextOr(ctx, fallback) != logger {
		t.Error("context logger should win over fallback")
	}
}

func TestObserveAction(t *testing.T) {
	// Не должно паниковать при любых комбинациях меток
	ObserveAction("GET", true, "", 0)
	ObserveAction("POST", false, "BACKEND", 0)
	SetPoolClients(3)
	ObserveHTTPRequest("GET", "200")
}
