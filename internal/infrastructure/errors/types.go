package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrorCode classifies failures from the settings store and platform services
type ErrorCode int

const (
	ErrCodeUnknown ErrorCode = iota
	ErrCodeNotFound
	ErrCodeConnection
	ErrCodeTimeout
	ErrCodeBusy
	ErrCodeValidation
	ErrCodePermission
	ErrCodeDiskSpace
	ErrCodeCorruption
	ErrCodeSchema
	ErrCodeInternal
	ErrCodeUnsupported
	ErrCodePlatform
	ErrCodeConfig
)

var codeNames = map[ErrorCode]string{
	ErrCodeNotFound:    "NOT_FOUND",
	ErrCodeConnection:  "CONNECTION",
	ErrCodeTimeout:     "TIMEOUT",
	ErrCodeBusy:        "BUSY",
	ErrCodeValidation:  "VALIDATION",
	ErrCodePermission:  "PERMISSION",
	ErrCodeDiskSpace:   "DISK_SPACE",
	ErrCodeCorruption:  "CORRUPTION",
	ErrCodeSchema:      "SCHEMA",
	ErrCodeInternal:    "INTERNAL",
	ErrCodeUnsupported: "UNSUPPORTED",
	ErrCodePlatform:    "PLATFORM",
	ErrCodeConfig:      "CONFIG",
}

// String returns a string representation of the error code
func (e ErrorCode) String() string {
	if name, ok := codeNames[e]; ok {
		return name
	}
	return "UNKNOWN"
}

// Sentinel errors shared across packages
var (
	// ErrNoURL is returned when fullscreen is requested without any URL to display
	ErrNoURL = errors.New("no url configured")
	// ErrBrowserNotFound is returned when no kiosk-capable browser is installed
	ErrBrowserNotFound = errors.New("no kiosk browser executable found")
	// ErrUnsupported is returned by platform primitives compiled for the wrong OS
	ErrUnsupported = errors.New("not supported on this platform")
)

// OpError is a classified error carrying the failed operation and context
type OpError struct {
	Op        string            // operation name
	Err       error             // underlying error
	Code      ErrorCode         // classification
	Retryable bool              // whether WithRetry may try again
	Context   map[string]string // additional context
	Timestamp time.Time         // when the error occurred
}

func (e *OpError) Error() string {
	if e == nil {
		return "operation error"
	}

	var parts []string
	if e.Op != "" {
		parts = append(parts, "op="+e.Op)
	}
	if e.Code != ErrCodeUnknown {
		parts = append(parts, "code="+e.Code.String())
	}
	if e.Retryable {
		parts = append(parts, "retryable=true")
	}

	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, e.Context[k]))
	}

	suffix := ""
	if len(parts) > 0 {
		suffix = " [" + strings.Join(parts, " ") + "]"
	}
	if e.Err != nil {
		return e.Err.Error() + suffix
	}
	return "operation error" + suffix
}

func (e *OpError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches another *OpError by code, or the wrapped error
func (e *OpError) Is(target error) bool {
	if e == nil {
		return false
	}
	if t, ok := target.(*OpError); ok {
		return e.Code == t.Code
	}
	return false
}

// IsRetryable reports whether the error may be retried
func (e *OpError) IsRetryable() bool {
	return e != nil && e.Retryable
}

// GetCode returns the code name (logging.ClassifiedError)
func (e *OpError) GetCode() string {
	if e == nil {
		return ErrCodeUnknown.String()
	}
	return e.Code.String()
}

// GetContext returns the error context (logging.ClassifiedError)
func (e *OpError) GetContext() map[string]string {
	if e == nil || e.Context == nil {
		return map[string]string{}
	}
	return e.Context
}

// GetTimestamp returns when the error was created (logging.ClassifiedError)
func (e *OpError) GetTimestamp() time.Time {
	if e == nil {
		return time.Time{}
	}
	return e.Timestamp
}

// New creates a classified error
func New(op string, err error, code ErrorCode) *OpError {
	return &OpError{
		Op:        op,
		Err:       err,
		Code:      code,
		Retryable: isRetryableCode(code),
		Context:   map[string]string{},
		Timestamp: time.Now(),
	}
}

// NewWithContext creates a classified error with a copy of context
func NewWithContext(op string, err error, code ErrorCode, context map[string]string) *OpError {
	e := New(op, err, code)
	for k, v := range context {
		e.Context[k] = v
	}
	return e
}

// NewPlatformError wraps a failure of an OS-level service
func NewPlatformError(op, service, platform string, err error) *OpError {
	code := ErrCodePlatform
	if errors.Is(err, ErrUnsupported) {
		code = ErrCodeUnsupported
	}
	return NewWithContext(op, err, code, map[string]string{
		"service":  service,
		"platform": platform,
	})
}

func isRetryableCode(code ErrorCode) bool {
	switch code {
	case ErrCodeConnection, ErrCodeTimeout, ErrCodeBusy:
		return true
	default:
		return false
	}
}

func hasCode(err error, code ErrorCode) bool {
	var opErr *OpError
	return errors.As(err, &opErr) && opErr.Code == code
}

// IsNotFound checks if the error is a "not found" error
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsBusy checks if the error is a busy/locked error
func IsBusy(err error) bool { return hasCode(err, ErrCodeBusy) }

// IsValidation checks if the error is a validation error
func IsValidation(err error) bool { return hasCode(err, ErrCodeValidation) }

// IsPlatform checks if the error came from an OS-level service
func IsPlatform(err error) bool { return hasCode(err, ErrCodePlatform) }

// IsUnsupported checks if the error is an unsupported-platform error
func IsUnsupported(err error) bool {
	return hasCode(err, ErrCodeUnsupported) || errors.Is(err, ErrUnsupported)
}

// IsConfig checks if the error is a configuration error
func IsConfig(err error) bool { return hasCode(err, ErrCodeConfig) }

// IsRetryable checks if the error is retryable
func IsRetryable(err error) bool {
	var opErr *OpError
	return errors.As(err, &opErr) && opErr.Retryable
}
