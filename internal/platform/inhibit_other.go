//go:build !darwin && !linux && !windows

package platform

import "context"

type noopInhibitor struct{}

func newSleepInhibitor() SleepInhibitor { return noopInhibitor{} }

func (noopInhibitor) Inhibit(context.Context, string, string) (Inhibition, error) {
	return noopInhibition{}, nil
}
