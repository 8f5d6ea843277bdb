package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"bigscreen/internal/platform"
	"bigscreen/internal/repository"
	"bigscreen/internal/settings"
	"bigscreen/internal/testutils"
)

type registryWrite struct {
	Path, Name string
	Value      any
}

type fakeRegistry struct {
	mu      sync.Mutex
	writes  []registryWrite
	deletes []registryWrite
	err     error
}

func (r *fakeRegistry) SetString(path, name, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.writes = append(r.writes, registryWrite{path, name, value})
	return nil
}

func (r *fakeRegistry) SetDWORD(path, name string, value uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.writes = append(r.writes, registryWrite{path, name, value})
	return nil
}

func (r *fakeRegistry) DeleteValue(path, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.deletes = append(r.deletes, registryWrite{Path: path, Name: name})
	return nil
}

type fakeRunner struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (r *fakeRunner) Run(_ context.Context, cmd string, args ...string) (string, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, append([]string{cmd}, args...))
	if r.err != nil {
		return "", "access denied", r.err
	}
	return "", "", nil
}

type fakeInhibition struct {
	released int
	err      error
}

func (f *fakeInhibition) Release() error {
	f.released++
	return f.err
}

type fakeInhibitor struct {
	calls int
	held  *fakeInhibition
	err   error
}

func (f *fakeInhibitor) Inhibit(context.Context, string, string) (platform.Inhibition, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	f.held = &fakeInhibition{}
	return f.held, nil
}

var errDenied = errors.New("access denied")

const testExecutable = "/opt/Big Screen/bigscreen"

func newTestEnv(t *testing.T, goos platform.OS) (Env, *testutils.RecordingLogger) {
	t.Helper()
	rec := &testutils.RecordingLogger{}
	repo := repository.NewMemorySettingsRepository(map[string]any{settings.KeyName: "lobby"})
	return Env{
		Settings:        settings.New(repo, rec),
		Logger:          rec,
		OS:              func() platform.OS { return goos },
		Executable:      func() (string, error) { return testExecutable, nil },
		WindowsVersion:  func() string { return "10.0" },
		LaunchAgentsDir: t.TempDir(),
		AutostartDir:    t.TempDir(),
		Registry:        &fakeRegistry{},
		Runner:          &fakeRunner{},
	}, rec
}
