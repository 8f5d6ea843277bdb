package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// DefaultName is used when no application name is configured
const DefaultName = "bigscreen"

// Paths are the per-user locations the application writes to
type Paths struct {
	Name string
}

// NewPaths returns paths namespaced by name, falling back to DefaultName
func NewPaths(name string) Paths {
	if name == "" {
		name = DefaultName
	}
	return Paths{Name: name}
}

// PackagedConfig is config.yaml next to the executable
func PackagedConfig() string {
	exe, err := os.Executable()
	if err != nil {
		return "config.yaml"
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), "config.yaml")
}

// Database is the settings database file
func (p Paths) Database() string {
	return filepath.Join(xdg.DataHome, p.Name, "settings.db")
}

// Log is the append-only application log
func (p Paths) Log() string {
	return filepath.Join(xdg.StateHome, p.Name, "log")
}

// BrowserProfiles is the parent directory for throwaway kiosk browser profiles
func (p Paths) BrowserProfiles() string {
	return filepath.Join(xdg.CacheHome, p.Name, "profiles")
}

// Autostart is the XDG autostart directory used on Linux
func Autostart() string {
	return filepath.Join(xdg.ConfigHome, "autostart")
}

// LaunchAgents is the per-user launchd agents directory used on macOS
func LaunchAgents() string {
	return filepath.Join(xdg.Home, "Library", "LaunchAgents")
}
