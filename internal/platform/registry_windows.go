//go:build windows

package platform

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

type currentUserRegistry struct{}

func (currentUserRegistry) SetString(path, name, value string) error {
	key, _, err := registry.CreateKey(registry.CURRENT_USER, path, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("failed to open registry key %s: %w", path, err)
	}
	defer key.Close()
	return key.SetStringValue(name, value)
}

func (currentUserRegistry) SetDWORD(path, name string, value uint32) error {
	key, _, err := registry.CreateKey(registry.CURRENT_USER, path, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("failed to open registry key %s: %w", path, err)
	}
	defer key.Close()
	return key.SetDWordValue(name, value)
}

func (currentUserRegistry) DeleteValue(path, name string) error {
	key, err := registry.OpenKey(registry.CURRENT_USER, path, registry.SET_VALUE)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to open registry key %s: %w", path, err)
	}
	defer key.Close()
	if err := key.DeleteValue(name); err != nil && !errors.Is(err, registry.ErrNotExist) {
		return err
	}
	return nil
}

// WindowsVersion returns "major.minor" of the running kernel, e.g. "6.1" for Windows 7
func WindowsVersion() string {
	v := windows.RtlGetVersion()
	return fmt.Sprintf("%d.%d", v.MajorVersion, v.MinorVersion)
}
