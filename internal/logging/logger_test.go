package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/tablescout/tablescout/internal/config"
)

func newTestLogger(level, format string) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger := &Logger{
		level:  parseLogLevel(level),
		format: format,
		output: buf,
		fields: make(map[string]interface{}),
	}

	return logger, buf
}

func TestLogger_LevelFiltering(t *testing.T) {
	logger, buf := newTestLogger("warn", "text")

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	output := buf.String()

	if strings.Contains(output, "debug message") || strings.Contains(output, "info message") {
		t.Error("messages below warn level should be filtered")
	}

	if !strings.Contains(output, "warn message") || !strings.Contains(output, "error message") {
		t.Error("warn and error messages should be logged")
	}
}

func TestLogger_JSONFormat(t *testing.T) {
	logger, buf := newTestLogger("info", "json")

	logger.WithField("table", "core__patient").Info("indexed table")

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if entry.Level != "INFO" {
		t.Errorf("expected level INFO, got %s", entry.Level)
	}

	if entry.Fields["table"] != "core__patient" {
		t.Errorf("expected table field, got %v", entry.Fields)
	}
}

func TestLogger_WithFieldsDoesNotMutateParent(t *testing.T) {
	logger, _ := newTestLogger("info", "text")

	child := logger.WithFields(map[string]interface{}{"stage": "retrieve"})
	if len(logger.fields) != 0 {
		t.Error("parent logger fields were mutated")
	}

	if child.fields["stage"] != "retrieve" {
		t.Error("child logger missing added field")
	}
}

func TestLogger_WithError(t *testing.T) {
	logger, buf := newTestLogger("info", "text")

	logger.WithError(errors.New("boom")).Error("stage failed")

	if !strings.Contains(buf.String(), "boom") {
		t.Errorf("expected error in output, got: %s", buf.String())
	}
}

func TestNewLogger_InvalidOutput(t *testing.T) {
	_, err := NewLogger(config.LoggingConfig{Level: "info", Format: "text", Output: "syslog"})
	if err == nil {
		t.Error("expected error for invalid output")
	}
}

func TestGlobalHelpers_UninitializedLogger(t *testing.T) {
	prev := globalLogger
	globalLogger = nil

	defer func() { globalLogger = prev }()

	// Chained calls must be safe before InitializeLogger runs.
	WithFields(map[string]interface{}{"request_id": "abc"}).Info("request handled")
	WithField("stage", "execute").Warn("slow stage")
	WithError(errors.New("boom")).Error("stage failed")
	WithError(nil).Debug("nothing happened")

	if logger := WithFields(nil); logger == nil {
		t.Fatal("WithFields returned nil logger")
	}
}
