package errors

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"strings"
)

// ClassifyError maps store, filesystem and context errors to an ErrorCode
func ClassifyError(err error) ErrorCode {
	if err == nil {
		return ErrCodeUnknown
	}

	if code := classifySQLiteError(err); code != ErrCodeUnknown {
		return code
	}

	switch {
	case errors.Is(err, sql.ErrNoRows), errors.Is(err, fs.ErrNotExist):
		return ErrCodeNotFound
	case errors.Is(err, fs.ErrPermission):
		return ErrCodePermission
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrCodeTimeout
	case errors.Is(err, sql.ErrConnDone):
		return ErrCodeConnection
	case errors.Is(err, ErrUnsupported):
		return ErrCodeUnsupported
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "database is locked"):
		return ErrCodeBusy
	case strings.Contains(errStr, "database disk image is malformed"):
		return ErrCodeCorruption
	case strings.Contains(errStr, "no such table"), strings.Contains(errStr, "no such column"):
		return ErrCodeSchema
	case strings.Contains(errStr, "permission denied"), strings.Contains(errStr, "access is denied"):
		return ErrCodePermission
	case strings.Contains(errStr, "no space left"), strings.Contains(errStr, "disk full"):
		return ErrCodeDiskSpace
	case strings.Contains(errStr, "timeout"):
		return ErrCodeTimeout
	default:
		return ErrCodeUnknown
	}
}

// Wrap classifies err and wraps it; nil stays nil
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return New(op, err, ClassifyError(err))
}

// WrapWithContext classifies err and wraps it with context; nil stays nil
func WrapWithContext(op string, err error, context map[string]string) error {
	if err == nil {
		return nil
	}
	return NewWithContext(op, err, ClassifyError(err), context)
}

// ConnectionError reports a store that is not usable
func ConnectionError(op, details string) error {
	return NewWithContext(op, errors.New("connection error"), ErrCodeConnection, map[string]string{
		"details": details,
	})
}

// ValidationError reports a rejected input value
func ValidationError(op, field, reason string) error {
	return NewWithContext(op, errors.New("validation failed"), ErrCodeValidation, map[string]string{
		"field":  field,
		"reason": reason,
	})
}

// NotFoundError reports a missing key or resource
func NotFoundError(op, resource, identifier string) error {
	return NewWithContext(op, sql.ErrNoRows, ErrCodeNotFound, map[string]string{
		"resource":   resource,
		"identifier": identifier,
	})
}

// ConfigError reports an unreadable or invalid configuration document
func ConfigError(op, path string, err error) error {
	return NewWithContext(op, err, ErrCodeConfig, map[string]string{"path": path})
}
