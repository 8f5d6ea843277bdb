package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// OpenLogFile opens (creating if needed) the append-only log file at path
func OpenLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// NewFileLogger returns a logger that writes to stderr and to the file at path.
// The returned closer releases the file.
func NewFileLogger(path string, opts Options) (*DefaultLogger, io.Closer, error) {
	f, err := OpenLogFile(path)
	if err != nil {
		return nil, nil, err
	}
	return NewLogger(io.MultiWriter(os.Stderr, f), opts), f, nil
}
