package services

import (
	"context"
	"strings"

	apperrors "bigscreen/internal/infrastructure/errors"
	"bigscreen/internal/platform"
)

const (
	balloonTipsKey       = `Software\Microsoft\Windows\CurrentVersion\Explorer\Advanced`
	balloonTipsValue     = "EnableBalloonTips"
	pushNotificationsKey = `Software\Microsoft\Windows\CurrentVersion\PushNotifications`
	toastEnabledValue    = "ToastEnabled"
)

// ShellRestarter restarts the desktop shell so registry changes apply
type ShellRestarter struct {
	env Env
}

// NewShellRestarter creates the shell restarter
func NewShellRestarter(env Env) *ShellRestarter {
	return &ShellRestarter{env: env.withDefaults()}
}

// Restart stops Explorer on Windows, which the session then respawns.
// PowerShell is used since explorer.exe started from cmd does not fully
// restart on Windows 10.
func (s *ShellRestarter) Restart(ctx context.Context) error {
	restart := platform.ResolveFor(s.env.OS(), map[platform.OS]func(context.Context) error{
		platform.Windows: s.stopExplorer,
	}, platform.Noop)
	return restart(ctx)
}

func (s *ShellRestarter) stopExplorer(ctx context.Context) error {
	_, stderr, err := s.env.Runner.Run(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", "Stop-Process -ProcessName Explorer")
	if err != nil {
		return apperrors.NewWithContext("restart_shell", err, apperrors.ErrCodePlatform, map[string]string{
			"stderr": strings.TrimSpace(stderr),
		})
	}
	return nil
}

// NotificationBlocker suppresses system notifications while the kiosk is
// up. Windows 7 uses balloon tips, Windows 8 and later toast notifications.
type NotificationBlocker struct {
	env   Env
	shell *ShellRestarter
}

// NewNotificationBlocker creates the blocker
func NewNotificationBlocker(env Env) *NotificationBlocker {
	env = env.withDefaults()
	return &NotificationBlocker{env: env, shell: NewShellRestarter(env)}
}

func (n *NotificationBlocker) toggle() platform.Toggle {
	return platform.ResolveFor(n.env.OS(), map[platform.OS]platform.Toggle{
		platform.Windows: {
			Enable:  func(ctx context.Context) error { return n.setNotifications(ctx, false) },
			Disable: func(ctx context.Context) error { return n.setNotifications(ctx, true) },
		},
	}, platform.NoopToggle)
}

// Enable turns notifications off
func (n *NotificationBlocker) Enable(ctx context.Context) error {
	if err := n.toggle().Enable(ctx); err != nil {
		return apperrors.NewPlatformError("enable_notification_blocker", "notification_blocker", string(n.env.OS()), err)
	}
	return nil
}

// Disable turns notifications back on
func (n *NotificationBlocker) Disable(ctx context.Context) error {
	if err := n.toggle().Disable(ctx); err != nil {
		return apperrors.NewPlatformError("disable_notification_blocker", "notification_blocker", string(n.env.OS()), err)
	}
	return nil
}

func isWindows7(version string) bool {
	return strings.HasPrefix(version, "6.1")
}

func (n *NotificationBlocker) setNotifications(ctx context.Context, on bool) error {
	var value uint32
	if on {
		value = 1
	}

	key, name := pushNotificationsKey, toastEnabledValue
	if isWindows7(n.env.WindowsVersion()) {
		key, name = balloonTipsKey, balloonTipsValue
	}

	if err := n.env.Registry.SetDWORD(key, name, value); err != nil {
		return err
	}
	n.env.Logger.Debug("Notification registry entry written", "key", key, "value_name", name, "value", value)
	return n.shell.Restart(ctx)
}
