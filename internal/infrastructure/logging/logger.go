package logging

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Logger interface for kiosk, service and store operations
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// Level orders log severities
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the upper-case level name written to each entry
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a case-insensitive level name to a Level, defaulting to info
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Options configures a DefaultLogger
type Options struct {
	Name  string // application name stamped on every entry
	Level Level  // minimum level written
}

// DefaultLogger writes one JSON object per line to its writer
type DefaultLogger struct {
	mu    sync.Mutex
	out   io.Writer
	name  string
	level Level
}

// NewDefaultLogger creates a logger writing to stderr at debug level
func NewDefaultLogger() Logger {
	return NewLogger(os.Stderr, Options{Name: "bigscreen", Level: LevelDebug})
}

// NewLogger creates a logger writing to w
func NewLogger(w io.Writer, opts Options) *DefaultLogger {
	if w == nil {
		w = os.Stderr
	}
	return &DefaultLogger{
		out:   w,
		name:  opts.Name,
		level: opts.Level,
	}
}

// SetLevel changes the minimum level at runtime
func (l *DefaultLogger) SetLevel(level Level) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

// logEntry represents a structured log entry
type logEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Name      string                 `json:"name,omitempty"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// fieldsToMap converts the variadic fields slice to a map
// Expected format: key1, value1, key2, value2, ...
func fieldsToMap(fields []interface{}) map[string]interface{} {
	result := make(map[string]interface{})

	for i := 0; i < len(fields); i += 2 {
		if i+1 >= len(fields) {
			result[fmt.Sprintf("field_%d", i/2)] = fields[i]
			break
		}
		key, ok := fields[i].(string)
		if !ok {
			result[fmt.Sprintf("field_%d", i/2)] = fields[i]
			result[fmt.Sprintf("field_%d_value", i/2)] = fields[i+1]
			continue
		}
		value := fields[i+1]
		// error values marshal to {} otherwise
		if err, isErr := value.(error); isErr && err != nil {
			value = err.Error()
		}
		result[key] = value
	}

	return result
}

func (l *DefaultLogger) write(level Level, msg string, fields []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	entry := logEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level.String(),
		Name:      l.name,
		Message:   msg,
	}
	if len(fields) > 0 {
		entry.Fields = fieldsToMap(fields)
	}

	line, err := json.Marshal(entry)
	if err != nil {
		entry.Fields = map[string]interface{}{
			"original_fields": fmt.Sprintf("%v", fields),
			"marshal_error":   err.Error(),
		}
		if line, err = json.Marshal(entry); err != nil {
			fmt.Fprintf(l.out, "[%s] %s %v\n", level, msg, fields)
			return
		}
	}

	l.out.Write(append(line, '\n'))
}

func (l *DefaultLogger) Debug(msg string, fields ...interface{}) {
	l.write(LevelDebug, msg, fields)
}

func (l *DefaultLogger) Info(msg string, fields ...interface{}) {
	l.write(LevelInfo, msg, fields)
}

func (l *DefaultLogger) Warn(msg string, fields ...interface{}) {
	l.write(LevelWarn, msg, fields)
}

func (l *DefaultLogger) Error(msg string, fields ...interface{}) {
	l.write(LevelError, msg, fields)
}

// ClassifiedError is implemented by errors that carry a code and context
// (kept as an interface to avoid importing the errors package)
type ClassifiedError interface {
	Error() string
	GetCode() string
	IsRetryable() bool
	GetContext() map[string]string
	GetTimestamp() time.Time
}

// LogError logs err at error level with its classification and the given context
func LogError(logger Logger, err error, operation string, context map[string]interface{}) {
	if err == nil {
		return
	}
	if logger == nil {
		logger = NewDefaultLogger()
	}

	fields := []interface{}{"operation", operation}

	var classified ClassifiedError
	if errors.As(err, &classified) {
		fields = append(fields,
			"error_code", classified.GetCode(),
			"retryable", classified.IsRetryable(),
		)
		for k, v := range classified.GetContext() {
			fields = append(fields, k, v)
		}
	} else {
		fields = append(fields, "error_type", fmt.Sprintf("%T", err))
	}

	for k, v := range context {
		fields = append(fields, k, v)
	}

	logger.Error(fmt.Sprintf("%s failed: %s", operation, err.Error()), fields...)
}

// LogOperation logs a completed operation and its duration at debug level
func LogOperation(logger Logger, operation string, duration time.Duration, context map[string]interface{}) {
	if logger == nil {
		logger = NewDefaultLogger()
	}

	fields := []interface{}{
		"operation", operation,
		"duration_ms", duration.Milliseconds(),
	}
	for k, v := range context {
		fields = append(fields, k, v)
	}

	logger.Debug(fmt.Sprintf("Operation completed: %s", operation), fields...)
}
