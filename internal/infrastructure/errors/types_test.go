package errors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
)

func TestErrorCode_String(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected string
	}{
		{ErrCodeUnknown, "UNKNOWN"},
		{ErrCodeNotFound, "NOT_FOUND"},
		{ErrCodeBusy, "BUSY"},
		{ErrCodePlatform, "PLATFORM"},
		{ErrCodeUnsupported, "UNSUPPORTED"},
		{ErrCodeConfig, "CONFIG"},
		{ErrorCode(999), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.code.String(); got != tt.expected {
			t.Errorf("ErrorCode(%d).String() = %q, want %q", tt.code, got, tt.expected)
		}
	}
}

func TestOpError_ErrorFormatting(t *testing.T) {
	err := NewWithContext("set_setting", errors.New("database is locked"), ErrCodeBusy, map[string]string{
		"key":   "url",
		"table": "settings",
	})

	msg := err.Error()
	for _, part := range []string{"database is locked", "op=set_setting", "code=BUSY", "retryable=true", "key=url table=settings"} {
		if !strings.Contains(msg, part) {
			t.Errorf("expected %q in %q", part, msg)
		}
	}

	var nilErr *OpError
	if nilErr.Error() != "operation error" {
		t.Errorf("nil receiver should not panic, got %q", nilErr.Error())
	}
	if New("op", nil, ErrCodeUnknown).Error() != "operation error [op=op]" {
		t.Errorf("unexpected message for nil cause: %q", New("op", nil, ErrCodeUnknown).Error())
	}
}

func TestOpError_IsAndUnwrap(t *testing.T) {
	cause := sql.ErrNoRows
	err := fmt.Errorf("outer: %w", New("get_setting", cause, ErrCodeNotFound))

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to reach the wrapped cause")
	}
	if !errors.Is(err, &OpError{Code: ErrCodeNotFound}) {
		t.Error("expected errors.Is to match by code")
	}
	if errors.Is(err, &OpError{Code: ErrCodeBusy}) {
		t.Error("did not expect a match on a different code")
	}
	if !IsNotFound(err) || IsBusy(err) {
		t.Error("predicates disagree with code")
	}
}

func TestNewWithContext_CopiesContext(t *testing.T) {
	ctx := map[string]string{"service": "keep_alive"}
	err := NewWithContext("enable", errors.New("x"), ErrCodePlatform, ctx)
	ctx["service"] = "mutated"

	if err.GetContext()["service"] != "keep_alive" {
		t.Error("context must be copied, not aliased")
	}
}

func TestNewPlatformError(t *testing.T) {
	err := NewPlatformError("enable", "notifications_blocker", "windows", errors.New("access denied"))
	if !IsPlatform(err) || err.IsRetryable() {
		t.Errorf("expected non-retryable platform error, got %v", err)
	}
	if err.GetContext()["platform"] != "windows" || err.GetContext()["service"] != "notifications_blocker" {
		t.Errorf("unexpected context %v", err.GetContext())
	}

	unsupported := NewPlatformError("enable", "keep_alive", "plan9", fmt.Errorf("plist: %w", ErrUnsupported))
	if !IsUnsupported(unsupported) {
		t.Error("expected unsupported classification")
	}
}

func TestRetryableCodes(t *testing.T) {
	retryable := []ErrorCode{ErrCodeConnection, ErrCodeTimeout, ErrCodeBusy}
	for _, code := range retryable {
		if !IsRetryable(New("op", errors.New("x"), code)) {
			t.Errorf("%s should be retryable", code)
		}
	}
	permanent := []ErrorCode{ErrCodeNotFound, ErrCodeValidation, ErrCodeCorruption, ErrCodePlatform, ErrCodeConfig}
	for _, code := range permanent {
		if IsRetryable(New("op", errors.New("x"), code)) {
			t.Errorf("%s should not be retryable", code)
		}
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("plain errors are never retryable")
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorCode
	}{
		{"nil", nil, ErrCodeUnknown},
		{"no rows", sql.ErrNoRows, ErrCodeNotFound},
		{"missing file", fmt.Errorf("stat: %w", fs.ErrNotExist), ErrCodeNotFound},
		{"permission", fs.ErrPermission, ErrCodePermission},
		{"deadline", context.DeadlineExceeded, ErrCodeTimeout},
		{"locked text", errors.New("database is locked"), ErrCodeBusy},
		{"malformed", errors.New("database disk image is malformed"), ErrCodeCorruption},
		{"schema", errors.New("no such table: settings"), ErrCodeSchema},
		{"disk", errors.New("write: no space left on device"), ErrCodeDiskSpace},
		{"unsupported", ErrUnsupported, ErrCodeUnsupported},
		{"other", errors.New("boom"), ErrCodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.expected {
				t.Errorf("ClassifyError(%v) = %s, want %s", tt.err, got, tt.expected)
			}
		})
	}
}

func TestWrapHelpers(t *testing.T) {
	if Wrap("op", nil) != nil || WrapWithContext("op", nil, nil) != nil {
		t.Fatal("wrapping nil must return nil")
	}
	if !IsBusy(Wrap("set", errors.New("database is locked"))) {
		t.Error("Wrap should classify")
	}
	if !IsValidation(ValidationError("set_all", "values", "empty")) {
		t.Error("ValidationError should carry the validation code")
	}
	if !IsNotFound(NotFoundError("get", "setting", "url")) {
		t.Error("NotFoundError should carry the not-found code")
	}
	if !IsConfig(ConfigError("load", "/tmp/config.yaml", errors.New("bad yaml"))) {
		t.Error("ConfigError should carry the config code")
	}
	if !IsRetryable(ConnectionError("get", "database not connected")) {
		t.Error("ConnectionError should be retryable")
	}
}
