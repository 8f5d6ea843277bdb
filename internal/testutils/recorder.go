package testutils

import (
	"strings"
	"sync"
)

// LogCall is one recorded logger invocation
type LogCall struct {
	Level  string
	Msg    string
	Fields []any
}

// RecordingLogger captures every call for later assertions. It satisfies
// logging.Logger and is safe for concurrent use.
type RecordingLogger struct {
	mu    sync.Mutex
	calls []LogCall
}

func (r *RecordingLogger) record(level, msg string, fields []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, LogCall{Level: level, Msg: msg, Fields: fields})
}

func (r *RecordingLogger) Debug(msg string, fields ...any) { r.record("DEBUG", msg, fields) }
func (r *RecordingLogger) Info(msg string, fields ...any)  { r.record("INFO", msg, fields) }
func (r *RecordingLogger) Warn(msg string, fields ...any)  { r.record("WARN", msg, fields) }
func (r *RecordingLogger) Error(msg string, fields ...any) { r.record("ERROR", msg, fields) }

// Calls returns a copy of the recorded calls, optionally filtered by level
func (r *RecordingLogger) Calls(level string) []LogCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []LogCall
	for _, c := range r.calls {
		if level == "" || c.Level == level {
			out = append(out, c)
		}
	}
	return out
}

// Contains reports whether a call at level has a message containing substr
func (r *RecordingLogger) Contains(level, substr string) bool {
	for _, c := range r.Calls(level) {
		if strings.Contains(c.Msg, substr) {
			return true
		}
	}
	return false
}

// TestingT is the subset of testing.T used by the helpers here
type TestingT interface {
	Errorf(format string, args ...any)
}

// FieldsToMap converts alternating key/value pairs to a map, reporting
// malformed entries through t
func FieldsToMap(t TestingT, fields []any) map[string]any {
	out := make(map[string]any, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		if i+1 >= len(fields) {
			t.Errorf("malformed fields: missing value for key at index %d", i)
			continue
		}
		key, ok := fields[i].(string)
		if !ok {
			t.Errorf("malformed fields: key at index %d is %T, not string", i, fields[i])
			continue
		}
		out[key] = fields[i+1]
	}
	return out
}

// FieldMap is FieldsToMap applied to the call's fields
func (c LogCall) FieldMap(t TestingT) map[string]any {
	return FieldsToMap(t, c.Fields)
}
