package services

import (
	"context"
	"fmt"
	"path/filepath"

	apperrors "bigscreen/internal/infrastructure/errors"
	"bigscreen/internal/infrastructure/logging"
	"bigscreen/internal/platform"
	"bigscreen/internal/settings"
)

// AutoLaunch registers the app with the OS login items. Unlike the other
// services its failures are returned to the caller.
type AutoLaunch struct {
	env Env
}

// NewAutoLaunch creates the auto-launch service
func NewAutoLaunch(env Env) *AutoLaunch {
	return &AutoLaunch{env: env.withDefaults()}
}

// IsEnabled reads the persisted flag
func (a *AutoLaunch) IsEnabled(ctx context.Context) bool {
	return a.env.Settings.Bool(ctx, settings.KeyAutoLaunch, false)
}

func (a *AutoLaunch) toggle() platform.Toggle {
	return platform.ResolveFor(a.env.OS(), map[platform.OS]platform.Toggle{
		platform.Darwin:  {Enable: a.writeLaunchAgent, Disable: a.removeLaunchAgent},
		platform.Linux:   {Enable: a.writeDesktopEntry, Disable: a.removeDesktopEntry},
		platform.Windows: {Enable: a.setRunValue, Disable: a.deleteRunValue},
	}, platform.NoopToggle)
}

// Enable registers the login item and persists the flag
func (a *AutoLaunch) Enable(ctx context.Context) error {
	return a.set(ctx, true)
}

// Disable unregisters the login item and persists the flag
func (a *AutoLaunch) Disable(ctx context.Context) error {
	return a.set(ctx, false)
}

func (a *AutoLaunch) set(ctx context.Context, enabled bool) error {
	op, apply := "disable_auto_launch", a.toggle().Disable
	if enabled {
		op, apply = "enable_auto_launch", a.toggle().Enable
	}

	if err := apply(ctx); err != nil {
		perr := apperrors.NewPlatformError(op, "auto_launch", string(a.env.OS()), err)
		logging.LogError(a.env.Logger, perr, op, nil)
		return perr
	}
	if err := a.env.Settings.Set(ctx, settings.KeyAutoLaunch, enabled); err != nil {
		logging.LogError(a.env.Logger, err, op, nil)
		return err
	}

	if enabled {
		a.env.Logger.Info("Auto launch enabled")
	} else {
		a.env.Logger.Info("Auto launch disabled")
	}
	return nil
}

func (a *AutoLaunch) launchAgentPath(ctx context.Context) string {
	return filepath.Join(a.env.LaunchAgentsDir, a.env.Settings.Name(ctx)+".plist")
}

func (a *AutoLaunch) writeLaunchAgent(ctx context.Context) error {
	exe, err := a.env.Executable()
	if err != nil {
		return err
	}
	return writeTemplate(a.launchAgentPath(ctx), launchAgentTemplate, launchAgent{
		Label:     a.env.Settings.Name(ctx),
		Args:      []string{exe},
		RunAtLoad: true,
	})
}

func (a *AutoLaunch) removeLaunchAgent(ctx context.Context) error {
	return removeIfExists(a.launchAgentPath(ctx))
}

func (a *AutoLaunch) desktopEntryPath(ctx context.Context) string {
	return filepath.Join(a.env.AutostartDir, a.env.Settings.Name(ctx)+".desktop")
}

func (a *AutoLaunch) writeDesktopEntry(ctx context.Context) error {
	exe, err := a.env.Executable()
	if err != nil {
		return err
	}
	return writeTemplate(a.desktopEntryPath(ctx), desktopEntryTemplate, desktopEntry{
		Name: a.env.Settings.String(ctx, settings.KeyAppName, a.env.Settings.Name(ctx)),
		Exec: desktopExec(exe),
	})
}

func (a *AutoLaunch) removeDesktopEntry(ctx context.Context) error {
	return removeIfExists(a.desktopEntryPath(ctx))
}

func (a *AutoLaunch) setRunValue(ctx context.Context) error {
	exe, err := a.env.Executable()
	if err != nil {
		return err
	}
	return a.env.Registry.SetString(platform.RunKeyPath, a.env.Settings.Name(ctx), fmt.Sprintf(`"%s"`, exe))
}

func (a *AutoLaunch) deleteRunValue(ctx context.Context) error {
	return a.env.Registry.DeleteValue(platform.RunKeyPath, a.env.Settings.Name(ctx))
}
