//go:build !darwin && !linux && !windows

package logging

func kernelInfo() (sysType, release string) {
	return "", ""
}
