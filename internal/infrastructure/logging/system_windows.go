//go:build windows

package logging

import (
	"fmt"

	"golang.org/x/sys/windows"
)

func kernelInfo() (sysType, release string) {
	v := windows.RtlGetVersion()
	return "Windows_NT", fmt.Sprintf("%d.%d.%d", v.MajorVersion, v.MinorVersion, v.BuildNumber)
}
