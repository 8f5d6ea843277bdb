// Package controller decides when the kiosk window runs and keeps the
// platform services in step with it.
package controller

import (
	"context"
	"sync"

	apperrors "bigscreen/internal/infrastructure/errors"
	"bigscreen/internal/infrastructure/logging"
	"bigscreen/internal/settings"
)

// Window is the kiosk display the controller drives
type Window interface {
	Open(ctx context.Context, url string) error
	Navigate(ctx context.Context, url string) error
	Close(ctx context.Context) error
	IsOpen() bool
}

// WindowFactory builds a window whose onClosed runs each time it is torn down
type WindowFactory func(ctx context.Context, onClosed func()) Window

// Toggle is a platform service switched with the window
type Toggle interface {
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
}

// AutoLaunchChecker reports whether the app starts at login
type AutoLaunchChecker interface {
	IsEnabled(ctx context.Context) bool
}

// Options wires a FullscreenController
type Options struct {
	Settings  *settings.Settings
	Logger    logging.Logger
	NewWindow WindowFactory

	AutoLaunch          AutoLaunchChecker
	SleepBlocker        Toggle
	KeepAlive           Toggle
	NotificationBlocker Toggle

	// OnStopped runs after fullscreen stops, including when the window
	// closes by itself
	OnStopped func()
}

// FullscreenController owns the single kiosk window. Service failures are
// logged and never abort a transition.
type FullscreenController struct {
	mu   sync.Mutex
	opts Options

	window Window
	gen    uint64
	// notifications were blocked by this run
	blockedNotifications bool
}

// New creates a controller with no window
func New(opts Options) *FullscreenController {
	if opts.Logger == nil {
		opts.Logger = logging.NewDefaultLogger()
	}
	return &FullscreenController{opts: opts}
}

// WasFullscreenRunning reads the flag left by the previous session
func (c *FullscreenController) WasFullscreenRunning(ctx context.Context) bool {
	return c.opts.Settings.Bool(ctx, settings.KeyFullscreenIsRunning, false)
}

// ShouldFullscreenStart reports whether boot goes straight to fullscreen.
// Auto-launch is checked first and short-circuits the persisted flag.
func (c *FullscreenController) ShouldFullscreenStart(ctx context.Context) bool {
	return c.autoLaunchEnabled(ctx) || c.WasFullscreenRunning(ctx)
}

func (c *FullscreenController) autoLaunchEnabled(ctx context.Context) bool {
	if c.opts.AutoLaunch == nil {
		return false
	}
	return c.opts.AutoLaunch.IsEnabled(ctx)
}

// IsRunning reports whether a window is owned
func (c *FullscreenController) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.window != nil
}

// Start opens the kiosk window on the persisted URL and enables the
// services. It is a no-op while a window exists. The window slot is claimed
// before opening, so IsRunning answers without waiting for the browser.
func (c *FullscreenController) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.window != nil {
		c.mu.Unlock()
		return nil
	}

	url := c.opts.Settings.URL(ctx)
	if url == "" {
		c.mu.Unlock()
		return apperrors.ErrNoURL
	}

	c.gen++
	gen := c.gen
	w := c.opts.NewWindow(ctx, func() { go c.windowClosed(gen) })
	c.window = w
	c.mu.Unlock()

	err := w.Open(ctx, url)

	c.mu.Lock()
	claimed := c.gen == gen && c.window == w
	if err != nil || !claimed {
		if claimed {
			c.window = nil
		}
		c.mu.Unlock()
		w.Close(ctx)
		if err != nil {
			logging.LogError(c.opts.Logger, err, "open_fullscreen", map[string]interface{}{"url": url})
			return err
		}
		c.opts.Logger.Info("Fullscreen stopped while opening", "url", url)
		return nil
	}
	defer c.mu.Unlock()

	c.persistRunning(ctx, true)
	c.enable(ctx, "sleep_blocker", c.opts.SleepBlocker)
	c.enable(ctx, "keep_alive", c.opts.KeepAlive)
	if c.opts.Settings.Bool(ctx, settings.KeyNotificationsBlocking, false) {
		c.blockedNotifications = c.enable(ctx, "notification_blocker", c.opts.NotificationBlocker)
	}

	c.opts.Logger.Info("Fullscreen started", "url", url)
	return nil
}

// Navigate points a running window at url; a no-op when stopped
func (c *FullscreenController) Navigate(ctx context.Context, url string) error {
	c.mu.Lock()
	w := c.window
	c.mu.Unlock()
	if w == nil {
		return nil
	}
	return w.Navigate(ctx, url)
}

// Stop closes the window and disables the services. It is a no-op when no
// window exists.
func (c *FullscreenController) Stop(ctx context.Context) error {
	c.mu.Lock()
	stopped := c.stopLocked(ctx)
	c.mu.Unlock()

	if stopped {
		c.notifyStopped()
	}
	return nil
}

// windowClosed stops fullscreen when the window of run gen goes away
func (c *FullscreenController) windowClosed(gen uint64) {
	c.mu.Lock()
	if c.gen != gen || c.window == nil {
		c.mu.Unlock()
		return
	}
	stopped := c.stopLocked(context.Background())
	c.mu.Unlock()

	if stopped {
		c.notifyStopped()
	}
}

func (c *FullscreenController) stopLocked(ctx context.Context) bool {
	w := c.window
	if w == nil {
		return false
	}
	c.window = nil

	if err := w.Close(ctx); err != nil {
		logging.LogError(c.opts.Logger, err, "close_fullscreen", nil)
	}

	c.persistRunning(ctx, false)
	c.disable(ctx, "sleep_blocker", c.opts.SleepBlocker)
	c.disable(ctx, "keep_alive", c.opts.KeepAlive)
	if c.blockedNotifications {
		c.disable(ctx, "notification_blocker", c.opts.NotificationBlocker)
		c.blockedNotifications = false
	}

	c.opts.Logger.Info("Fullscreen stopped")
	return true
}

// Shutdown releases the window and sleep blocking on quit. The running
// flag and keep-alive stay set so a relaunch resumes fullscreen.
func (c *FullscreenController) Shutdown(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.disable(ctx, "sleep_blocker", c.opts.SleepBlocker)

	w := c.window
	if w == nil {
		return
	}
	c.window = nil
	if err := w.Close(ctx); err != nil {
		logging.LogError(c.opts.Logger, err, "close_fullscreen", nil)
	}
}

func (c *FullscreenController) notifyStopped() {
	if c.opts.OnStopped != nil {
		c.opts.OnStopped()
	}
}

func (c *FullscreenController) persistRunning(ctx context.Context, running bool) {
	if err := c.opts.Settings.Set(ctx, settings.KeyFullscreenIsRunning, running); err != nil {
		logging.LogError(c.opts.Logger, err, "persist_fullscreen_is_running", nil)
	}
}

func (c *FullscreenController) enable(ctx context.Context, service string, t Toggle) bool {
	if t == nil {
		return false
	}
	if err := t.Enable(ctx); err != nil {
		logging.LogError(c.opts.Logger, err, "enable_"+service, nil)
		return false
	}
	return true
}

func (c *FullscreenController) disable(ctx context.Context, service string, t Toggle) {
	if t == nil {
		return
	}
	if err := t.Disable(ctx); err != nil {
		logging.LogError(c.opts.Logger, err, "disable_"+service, nil)
	}
}
