//go:build windows

package platform

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sys/windows"
)

const (
	esSystemRequired  = 0x00000001
	esDisplayRequired = 0x00000002
	esContinuous      = 0x80000000
)

var (
	kernel32                    = windows.NewLazySystemDLL("kernel32.dll")
	procSetThreadExecutionState = kernel32.NewProc("SetThreadExecutionState")
)

// executionStateInhibitor holds SetThreadExecutionState on a dedicated,
// locked OS thread since the state is per thread
type executionStateInhibitor struct{}

func newSleepInhibitor() SleepInhibitor { return executionStateInhibitor{} }

type executionStateInhibition struct {
	once    sync.Once
	release chan struct{}
	done    chan struct{}
}

func (executionStateInhibitor) Inhibit(_ context.Context, _, _ string) (Inhibition, error) {
	inh := &executionStateInhibition{
		release: make(chan struct{}),
		done:    make(chan struct{}),
	}
	started := make(chan error, 1)

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(inh.done)

		r, _, err := procSetThreadExecutionState.Call(uintptr(esContinuous | esDisplayRequired | esSystemRequired))
		if r == 0 {
			started <- err
			return
		}
		started <- nil

		<-inh.release
		procSetThreadExecutionState.Call(uintptr(esContinuous))
	}()

	if err := <-started; err != nil {
		return nil, err
	}
	return inh, nil
}

func (e *executionStateInhibition) Release() error {
	e.once.Do(func() {
		close(e.release)
		<-e.done
	})
	return nil
}
