package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bigscreen/internal/testutils"
)

type fakeClassifiedError struct {
	message string
	code    string
	context map[string]string
}

func (f *fakeClassifiedError) Error() string                 { return f.message }
func (f *fakeClassifiedError) GetCode() string               { return f.code }
func (f *fakeClassifiedError) IsRetryable() bool             { return false }
func (f *fakeClassifiedError) GetContext() map[string]string { return f.context }
func (f *fakeClassifiedError) GetTimestamp() time.Time       { return time.Time{} }

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("failed to parse log line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestDefaultLogger_LogLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, Options{Name: "bigscreen", Level: LevelDebug})

	tests := []struct {
		name           string
		logFunc        func(string, ...interface{})
		message        string
		fields         []interface{}
		levelToken     string
		expectedFields map[string]interface{}
	}{
		{
			name:           "Debug",
			logFunc:        logger.Debug,
			message:        "console message",
			fields:         []interface{}{"source", "kiosk"},
			levelToken:     "DEBUG",
			expectedFields: map[string]interface{}{"source": "kiosk"},
		},
		{
			name:           "Info",
			logFunc:        logger.Info,
			message:        "reconnected!",
			fields:         []interface{}{"attempt", 3},
			levelToken:     "INFO",
			expectedFields: map[string]interface{}{"attempt": float64(3)},
		},
		{
			name:           "Warn",
			logFunc:        logger.Warn,
			message:        "certificate-error",
			levelToken:     "WARN",
			expectedFields: nil,
		},
		{
			name:           "Error",
			logFunc:        logger.Error,
			message:        "did-fail-load",
			fields:         []interface{}{"error", errors.New("ERR_NAME_NOT_RESOLVED")},
			levelToken:     "ERROR",
			expectedFields: map[string]interface{}{"error": "ERR_NAME_NOT_RESOLVED"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.logFunc(tt.message, tt.fields...)

			entries := decodeLines(t, &buf)
			if len(entries) != 1 {
				t.Fatalf("expected one entry, got %d", len(entries))
			}
			entry := entries[0]

			if entry["timestamp"] == nil {
				t.Error("expected timestamp field")
			}
			if entry["level"] != tt.levelToken {
				t.Errorf("expected level %q, got %v", tt.levelToken, entry["level"])
			}
			if entry["name"] != "bigscreen" {
				t.Errorf("expected name bigscreen, got %v", entry["name"])
			}
			if entry["message"] != tt.message {
				t.Errorf("expected message %q, got %v", tt.message, entry["message"])
			}

			if tt.expectedFields == nil {
				if _, present := entry["fields"]; present {
					t.Errorf("expected no fields, got %v", entry["fields"])
				}
				return
			}
			fields, ok := entry["fields"].(map[string]interface{})
			if !ok {
				t.Fatalf("expected fields map, got %T", entry["fields"])
			}
			for key, want := range tt.expectedFields {
				if fields[key] != want {
					t.Errorf("field %q: expected %v, got %v", key, want, fields[key])
				}
			}
		})
	}
}

func TestDefaultLogger_MinimumLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, Options{Level: LevelWarn})

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")
	logger.Error("shown")

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries at warn and above, got %d", len(entries))
	}

	buf.Reset()
	logger.SetLevel(LevelDebug)
	logger.Debug("now shown")
	if got := len(decodeLines(t, &buf)); got != 1 {
		t.Errorf("expected debug entry after SetLevel, got %d", got)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		" error ": LevelError,
		"":        LevelInfo,
		"verbose": LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFieldsToMap_Malformed(t *testing.T) {
	got := fieldsToMap([]interface{}{42, "value", "dangling"})
	if got["field_0"] != 42 || got["field_0_value"] != "value" {
		t.Errorf("non-string key not preserved: %v", got)
	}
	if got["field_1"] != "dangling" {
		t.Errorf("odd trailing field not preserved: %v", got)
	}
}

func TestDefaultLogger_UnmarshalableFieldFallsBack(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, Options{})

	logger.Info("with channel", "ch", make(chan int))

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	fields := entries[0]["fields"].(map[string]interface{})
	if _, ok := fields["marshal_error"]; !ok {
		t.Errorf("expected marshal_error field, got %v", fields)
	}
}

func TestLogError_WithClassifiedError(t *testing.T) {
	rec := &testutils.RecordingLogger{}
	err := fmt.Errorf("wrapped: %w", &fakeClassifiedError{
		message: "keep-alive plist write failed",
		code:    "PLATFORM",
		context: map[string]string{"service": "keep_alive"},
	})

	LogError(rec, err, "enable_keep_alive", map[string]interface{}{"platform": "darwin"})

	calls := rec.Calls("ERROR")
	if len(calls) != 1 {
		t.Fatalf("expected 1 error call, got %d", len(calls))
	}
	if !strings.Contains(calls[0].Msg, "enable_keep_alive failed") {
		t.Errorf("unexpected message %q", calls[0].Msg)
	}

	fields := calls[0].FieldMap(t)
	expected := map[string]interface{}{
		"operation":  "enable_keep_alive",
		"error_code": "PLATFORM",
		"retryable":  false,
		"service":    "keep_alive",
		"platform":   "darwin",
	}
	for k, want := range expected {
		if fields[k] != want {
			t.Errorf("field %q: expected %v, got %v", k, want, fields[k])
		}
	}
}

func TestLogError_WithPlainError(t *testing.T) {
	rec := &testutils.RecordingLogger{}

	LogError(rec, errors.New("boom"), "open_window", nil)
	LogError(rec, nil, "ignored", nil)

	calls := rec.Calls("ERROR")
	if len(calls) != 1 {
		t.Fatalf("expected 1 error call, got %d", len(calls))
	}
	fields := calls[0].FieldMap(t)
	if fields["error_type"] != "*errors.errorString" {
		t.Errorf("expected error_type field, got %v", fields["error_type"])
	}
}

func TestLogOperation(t *testing.T) {
	rec := &testutils.RecordingLogger{}

	LogOperation(rec, "set_all_settings", 150*time.Millisecond, map[string]interface{}{"keys": 4})

	calls := rec.Calls("DEBUG")
	if len(calls) != 1 {
		t.Fatalf("expected 1 debug call, got %d", len(calls))
	}
	fields := calls[0].FieldMap(t)
	if fields["duration_ms"] != int64(150) || fields["keys"] != 4 {
		t.Errorf("unexpected fields %v", fields)
	}
}

func TestNewFileLogger_AppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "log")

	logger, closer, err := NewFileLogger(path, Options{Name: "bigscreen"})
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	logger.Info("first")
	logger.Info("second")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if got := strings.Count(string(data), "\n"); got != 2 {
		t.Errorf("expected 2 lines in log file, got %d", got)
	}
}

func TestLogSystemDetails(t *testing.T) {
	rec := &testutils.RecordingLogger{}
	LogSystemDetails(rec)

	calls := rec.Calls("DEBUG")
	if len(calls) != 1 {
		t.Fatalf("expected 1 debug call, got %d", len(calls))
	}
	fields := calls[0].FieldMap(t)
	for _, key := range []string{"homedir", "hostname", "arch", "platform", "release", "type", "cpus"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("expected field %q", key)
		}
	}
}

func TestWailsLoggerAdapter_Levels(t *testing.T) {
	rec := &testutils.RecordingLogger{}
	a := NewWailsLoggerAdapter(rec)

	a.Print("p")
	a.Trace("t")
	a.Debug("d")
	a.Info("i")
	a.Warning("w")
	a.Error("e")
	a.Fatal("f")

	if got := len(rec.Calls("DEBUG")); got != 2 {
		t.Errorf("expected 2 debug calls, got %d", got)
	}
	if got := len(rec.Calls("INFO")); got != 2 {
		t.Errorf("expected 2 info calls, got %d", got)
	}
	if got := len(rec.Calls("WARN")); got != 1 {
		t.Errorf("expected 1 warn call, got %d", got)
	}
	if got := len(rec.Calls("ERROR")); got != 2 {
		t.Errorf("expected 2 error calls, got %d", got)
	}
}
