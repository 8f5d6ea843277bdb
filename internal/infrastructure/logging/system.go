package logging

import (
	"os"
	"runtime"
)

// SystemDetails is the host snapshot written at boot
type SystemDetails struct {
	HomeDir  string
	Hostname string
	Arch     string
	Platform string
	Release  string
	Type     string
	CPUs     int
}

// CollectSystemDetails gathers host information; unavailable values are left empty
func CollectSystemDetails() SystemDetails {
	home, _ := os.UserHomeDir()
	host, _ := os.Hostname()
	sysType, release := kernelInfo()
	return SystemDetails{
		HomeDir:  home,
		Hostname: host,
		Arch:     runtime.GOARCH,
		Platform: runtime.GOOS,
		Release:  release,
		Type:     sysType,
		CPUs:     runtime.NumCPU(),
	}
}

// LogSystemDetails writes the host snapshot at debug level
func LogSystemDetails(logger Logger) {
	d := CollectSystemDetails()
	logger.Debug("System details",
		"homedir", d.HomeDir,
		"hostname", d.Hostname,
		"arch", d.Arch,
		"platform", d.Platform,
		"release", d.Release,
		"type", d.Type,
		"cpus", d.CPUs,
		"go_version", runtime.Version(),
	)
}
