// Package platform resolves per-OS implementations and wraps the OS
// primitives the kiosk services are built on.
package platform

import (
	"context"
	"runtime"
)

// OS identifies an operating system by its GOOS name
type OS string

const (
	Darwin  OS = "darwin"
	Windows OS = "windows"
	Linux   OS = "linux"
)

// currentOS is the single OS query; tests replace it to simulate a platform
var currentOS = func() OS { return OS(runtime.GOOS) }

// Current returns the OS the process is running on
func Current() OS {
	return currentOS()
}

// Resolve returns the implementation for the current OS, or fallback
func Resolve[T any](table map[OS]T, fallback T) T {
	return ResolveFor(Current(), table, fallback)
}

// ResolveFor returns table[os], or fallback when os has no entry
func ResolveFor[T any](os OS, table map[OS]T, fallback T) T {
	if impl, ok := table[os]; ok {
		return impl
	}
	return fallback
}

// Noop is the do-nothing operation used for unsupported platforms
func Noop(context.Context) error {
	return nil
}

// Toggle is an enable/disable pair for one OS-level capability
type Toggle struct {
	Enable  func(ctx context.Context) error
	Disable func(ctx context.Context) error
}

// NoopToggle is the fallback Toggle; both halves succeed without side effects
var NoopToggle = Toggle{Enable: Noop, Disable: Noop}
