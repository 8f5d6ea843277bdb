//go:build darwin

package platform

import (
	"context"
	"os"
	"strconv"
)

type caffeinateInhibitor struct{}

func newSleepInhibitor() SleepInhibitor { return caffeinateInhibitor{} }

// Inhibit runs caffeinate -d bound to this process so it cannot outlive us
func (caffeinateInhibitor) Inhibit(_ context.Context, _, _ string) (Inhibition, error) {
	return startProcessInhibition("caffeinate", "-d", "-w", strconv.Itoa(os.Getpid()))
}
