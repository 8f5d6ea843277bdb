package platform

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// Runner executes an external command to completion
type Runner interface {
	Run(ctx context.Context, cmd string, args ...string) (stdout, stderr string, err error)
}

// ExecRunner runs commands directly, resolving cmd through PATH
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, cmd string, args ...string) (string, string, error) {
	c := exec.CommandContext(ctx, cmd, args...)
	var outBuf, errBuf bytes.Buffer
	c.Stdout = &outBuf
	c.Stderr = &errBuf
	if err := c.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return outBuf.String(), errBuf.String(), fmt.Errorf("%s exit %d: %w", cmd, exitErr.ExitCode(), err)
		}
		return outBuf.String(), errBuf.String(), err
	}
	return outBuf.String(), errBuf.String(), nil
}

// NoopRunner succeeds without running anything
type NoopRunner struct{}

func (NoopRunner) Run(context.Context, string, ...string) (string, string, error) { return "", "", nil }
