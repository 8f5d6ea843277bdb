package database

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// parseBoolEnv reads an environment variable as a boolean.
// The second result reports whether the variable held a recognised value.
func parseBoolEnv(key string) (bool, bool) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return false, false
	}
	if parsed, err := strconv.ParseBool(value); err == nil {
		return parsed, true
	}
	switch strings.ToLower(value) {
	case "yes", "y", "on":
		return true, true
	case "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}

// Config holds the settings database options
type Config struct {
	Path            string        `yaml:"path"`            // database file path or :memory:
	MaxConnections  int           `yaml:"maxConnections"`  // maximum open connections
	MaxIdleConns    int           `yaml:"maxIdleConns"`    // maximum idle connections
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"` // maximum connection lifetime
	JournalMode     string        `yaml:"journalMode"`     // WAL, DELETE, MEMORY...
	SynchronousMode string        `yaml:"synchronousMode"` // OFF, NORMAL, FULL, EXTRA
	BusyTimeout     int           `yaml:"busyTimeout"`     // milliseconds
	ForeignKeys     bool          `yaml:"foreignKeys"`
}

// DefaultConfig returns the configuration used for the on-disk settings store
func DefaultConfig(path string) *Config {
	return &Config{
		Path:            path,
		MaxConnections:  4,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
		JournalMode:     "WAL",
		SynchronousMode: "NORMAL",
		BusyTimeout:     5000,
		ForeignKeys:     true,
	}
}

// TestConfig returns an in-memory configuration
func TestConfig() *Config {
	c := DefaultConfig(":memory:")
	c.JournalMode = "MEMORY"
	c.SynchronousMode = "OFF"
	c.BusyTimeout = 1000
	return c
}

// LoadFromEnvironment applies BIGSCREEN_DB_* overrides
func (c *Config) LoadFromEnvironment() {
	if path := os.Getenv("BIGSCREEN_DB_PATH"); path != "" {
		c.Path = path
	}
	if mode := os.Getenv("BIGSCREEN_DB_JOURNAL_MODE"); mode != "" {
		c.JournalMode = strings.ToUpper(mode)
	}
	if timeout := os.Getenv("BIGSCREEN_DB_BUSY_TIMEOUT"); timeout != "" {
		if v, err := strconv.Atoi(timeout); err == nil && v >= 0 {
			c.BusyTimeout = v
		}
	}
	if fk, ok := parseBoolEnv("BIGSCREEN_DB_FOREIGN_KEYS"); ok {
		c.ForeignKeys = fk
	}
}

var (
	validJournalModes = []string{"DELETE", "TRUNCATE", "PERSIST", "MEMORY", "WAL", "OFF"}
	validSyncModes    = []string{"OFF", "NORMAL", "FULL", "EXTRA"}
)

func oneOf(value string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(value, a) {
			return true
		}
	}
	return false
}

// Validate checks the configuration and creates the database directory
func (c *Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if !c.IsInMemory() {
		if dir := filepath.Dir(c.Path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}
	if c.MaxConnections <= 0 {
		return fmt.Errorf("maxConnections must be positive, got %d", c.MaxConnections)
	}
	if c.MaxIdleConns < 0 || c.MaxIdleConns > c.MaxConnections {
		return fmt.Errorf("maxIdleConns must be between 0 and %d, got %d", c.MaxConnections, c.MaxIdleConns)
	}
	if !oneOf(c.JournalMode, validJournalModes) {
		return fmt.Errorf("invalid journalMode: %s", c.JournalMode)
	}
	if c.IsInMemory() && strings.EqualFold(c.JournalMode, "WAL") {
		return fmt.Errorf("journalMode cannot be WAL when using in-memory database")
	}
	if !oneOf(c.SynchronousMode, validSyncModes) {
		return fmt.Errorf("invalid synchronousMode: %s", c.SynchronousMode)
	}
	if c.BusyTimeout < 0 {
		return fmt.Errorf("busyTimeout cannot be negative, got %d", c.BusyTimeout)
	}
	return nil
}

// GetConnectionString builds the go-sqlite3 DSN with pragmas as query parameters
func (c *Config) GetConnectionString() string {
	values := url.Values{}
	if c.ForeignKeys {
		values.Set("_foreign_keys", "on")
	} else {
		values.Set("_foreign_keys", "off")
	}
	values.Set("_journal_mode", c.JournalMode)
	values.Set("_synchronous", c.SynchronousMode)
	values.Set("_busy_timeout", strconv.Itoa(c.BusyTimeout))

	path := c.Path
	if strings.ContainsAny(path, "?&") {
		path = strings.ReplaceAll(path, "?", "%3F")
		path = strings.ReplaceAll(path, "&", "%26")
	}
	return path + "?" + values.Encode()
}

// IsInMemory reports whether the database lives only in memory
func (c *Config) IsInMemory() bool {
	return c.Path == ":memory:"
}
