package services

import (
	"context"
	"path/filepath"

	apperrors "bigscreen/internal/infrastructure/errors"
	"bigscreen/internal/platform"
)

// KeepAlive installs a watchdog that relaunches the app after a crash.
// Only macOS has one (a launchd KeepAlive agent); elsewhere it is a no-op.
type KeepAlive struct {
	env Env
}

// NewKeepAlive creates the keep-alive service
func NewKeepAlive(env Env) *KeepAlive {
	return &KeepAlive{env: env.withDefaults()}
}

func (k *KeepAlive) toggle() platform.Toggle {
	return platform.ResolveFor(k.env.OS(), map[platform.OS]platform.Toggle{
		platform.Darwin: {Enable: k.writeAgent, Disable: k.removeAgent},
	}, platform.NoopToggle)
}

// Enable writes the relaunch descriptor
func (k *KeepAlive) Enable(ctx context.Context) error {
	if err := k.toggle().Enable(ctx); err != nil {
		return apperrors.NewPlatformError("enable_keep_alive", "keep_alive", string(k.env.OS()), err)
	}
	return nil
}

// Disable removes the relaunch descriptor
func (k *KeepAlive) Disable(ctx context.Context) error {
	if err := k.toggle().Disable(ctx); err != nil {
		return apperrors.NewPlatformError("disable_keep_alive", "keep_alive", string(k.env.OS()), err)
	}
	return nil
}

// AgentPath is where the keep-alive launch agent is written
func (k *KeepAlive) AgentPath(ctx context.Context) string {
	return filepath.Join(k.env.LaunchAgentsDir, k.env.Settings.Name(ctx)+".keepalive.plist")
}

func (k *KeepAlive) writeAgent(ctx context.Context) error {
	exe, err := k.env.Executable()
	if err != nil {
		return err
	}
	name := k.env.Settings.Name(ctx)
	path := k.AgentPath(ctx)
	if err := writeTemplate(path, launchAgentTemplate, launchAgent{
		Label:     name + ".keepalive",
		Args:      []string{exe},
		KeepAlive: true,
	}); err != nil {
		return err
	}
	k.env.Logger.Debug("Keep alive enabled", "path", path)
	return nil
}

func (k *KeepAlive) removeAgent(ctx context.Context) error {
	if err := removeIfExists(k.AgentPath(ctx)); err != nil {
		return err
	}
	k.env.Logger.Debug("Keep alive disabled")
	return nil
}
