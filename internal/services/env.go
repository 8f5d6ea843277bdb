// Package services holds the platform-gated toggles that run alongside the
// kiosk window: sleep blocking, keep-alive, auto-launch and notification
// blocking.
package services

import (
	"os"

	"bigscreen/internal/config"
	"bigscreen/internal/infrastructure/logging"
	"bigscreen/internal/platform"
	"bigscreen/internal/settings"
)

// Env carries the host facilities the services are built on. Zero fields
// are filled with the real implementations.
type Env struct {
	Settings *settings.Settings
	Logger   logging.Logger

	OS             func() platform.OS
	Executable     func() (string, error)
	WindowsVersion func() string

	LaunchAgentsDir string
	AutostartDir    string

	Registry platform.Registry
	Runner   platform.Runner
}

func (e Env) withDefaults() Env {
	if e.Logger == nil {
		e.Logger = logging.NewDefaultLogger()
	}
	if e.OS == nil {
		e.OS = platform.Current
	}
	if e.Executable == nil {
		e.Executable = os.Executable
	}
	if e.WindowsVersion == nil {
		e.WindowsVersion = platform.WindowsVersion
	}
	if e.LaunchAgentsDir == "" {
		e.LaunchAgentsDir = config.LaunchAgents()
	}
	if e.AutostartDir == "" {
		e.AutostartDir = config.Autostart()
	}
	if e.Registry == nil {
		e.Registry = platform.NewRegistry()
	}
	if e.Runner == nil {
		e.Runner = platform.ExecRunner{}
	}
	return e
}
