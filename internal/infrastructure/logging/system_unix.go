//go:build darwin || linux

package logging

import "golang.org/x/sys/unix"

func kernelInfo() (sysType, release string) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "", ""
	}
	return unix.ByteSliceToString(uts.Sysname[:]), unix.ByteSliceToString(uts.Release[:])
}
