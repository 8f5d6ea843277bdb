//go:build !windows

package platform

import apperrors "bigscreen/internal/infrastructure/errors"

type currentUserRegistry struct{}

func (currentUserRegistry) SetString(string, string, string) error {
	return apperrors.ErrUnsupported
}

func (currentUserRegistry) SetDWORD(string, string, uint32) error {
	return apperrors.ErrUnsupported
}

func (currentUserRegistry) DeleteValue(string, string) error {
	return apperrors.ErrUnsupported
}

// WindowsVersion is empty off Windows
func WindowsVersion() string {
	return ""
}
