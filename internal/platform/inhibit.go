package platform

import (
	"context"
	"os/exec"
	"sync"
)

// Inhibition is an engaged display-sleep inhibitor
type Inhibition interface {
	Release() error
}

// SleepInhibitor prevents the display from sleeping while an Inhibition is held
type SleepInhibitor interface {
	Inhibit(ctx context.Context, who, why string) (Inhibition, error)
}

// NewSleepInhibitor returns the inhibitor for the current OS
func NewSleepInhibitor() SleepInhibitor {
	return newSleepInhibitor()
}

// processInhibition holds a helper process whose lifetime is the inhibition
type processInhibition struct {
	once sync.Once
	cmd  *exec.Cmd
	done chan struct{}
	err  error
}

func startProcessInhibition(name string, args ...string) (*processInhibition, error) {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	p := &processInhibition{cmd: cmd, done: make(chan struct{})}
	go func() {
		p.err = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

func (p *processInhibition) Release() error {
	var err error
	p.once.Do(func() {
		select {
		case <-p.done:
			return
		default:
		}
		if killErr := p.cmd.Process.Kill(); killErr != nil {
			err = killErr
			return
		}
		<-p.done
	})
	return err
}

type noopInhibition struct{}

func (noopInhibition) Release() error { return nil }
