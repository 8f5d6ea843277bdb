package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"bigscreen/internal/config"
	"bigscreen/internal/database"
	"bigscreen/internal/infrastructure/errors"
	"bigscreen/internal/infrastructure/logging"
	"bigscreen/internal/settings"
)

const (
	// shutdownTimeout bounds closing the kiosk window and the database on quit
	shutdownTimeout = 30 * time.Second
)

// Fullscreen is the kiosk controller as seen by the App
type Fullscreen interface {
	ShouldFullscreenStart(ctx context.Context) bool
	IsRunning() bool
	Start(ctx context.Context) error
	Navigate(ctx context.Context, url string) error
	Shutdown(ctx context.Context)
}

// AutoLaunch is the user-facing login item toggle
type AutoLaunch interface {
	IsEnabled(ctx context.Context) bool
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
}

// App is the window controller: it picks fullscreen or preferences at
// startup and serves the preferences API bound into the frontend
type App struct {
	mu  sync.Mutex
	ctx context.Context

	cfg        Config
	logger     logging.Logger
	settings   *settings.Settings
	fullscreen Fullscreen
	autoLaunch AutoLaunch
	prefs      Preferences
	dbService  database.Service
	watcher    *config.Watcher

	quitting atomic.Bool
}

// Bootstrap seeds the settings store from the packaged config when it is
// empty or when always-load is set
func (a *App) Bootstrap(ctx context.Context) error {
	_, err := settings.LoadConfigIntoSettings(ctx, a.settings.Repository(), a.cfg.Load, a.cfg.AlwaysLoadConfig, a.logger)
	return err
}

// Startup is called at application startup
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	a.ctx = ctx
	a.mu.Unlock()

	if a.watcher != nil {
		if err := a.watcher.Start(ctx); err != nil {
			logging.LogError(a.logger, err, "watch_config", map[string]interface{}{"path": a.cfg.ConfigPath})
		}
	}

	if a.fullscreen.ShouldFullscreenStart(ctx) {
		a.logger.Info("Resuming fullscreen")
		if err := a.fullscreen.Start(ctx); err != nil {
			logging.LogError(a.logger, err, "start_fullscreen", nil)
			a.prefs.Open(ctx)
		}
		return
	}

	a.logger.Info("Opening preferences")
	a.prefs.Open(ctx)
}

// DomReady is called after front-end resources have been loaded
func (a *App) DomReady(ctx context.Context) {
	a.logger.Debug("Preferences surface ready")
}

// BeforeClose is called when the preferences window is closed. While the
// kiosk runs it only hides, otherwise the app quits.
func (a *App) BeforeClose(ctx context.Context) (prevent bool) {
	if a.quitting.Load() {
		return false
	}
	if a.fullscreen.IsRunning() {
		a.prefs.Close(ctx)
		return true
	}
	return false
}

// Shutdown is called at application termination
func (a *App) Shutdown(ctx context.Context) {
	a.quitting.Store(true)
	a.logger.Info("Starting application shutdown sequence")

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if a.watcher != nil {
		a.watcher.Close()
	}

	a.fullscreen.Shutdown(shutdownCtx)

	if err := a.closeDatabaseConnection(shutdownCtx); err != nil {
		logging.LogError(a.logger, err, "shutdown", nil)
	}

	a.logger.Info("Application shutdown completed")
}

// closeDatabaseConnection closes the settings database, giving up at ctx's deadline
func (a *App) closeDatabaseConnection(ctx context.Context) error {
	if a.dbService == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- a.dbService.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			return errors.NewWithContext("shutdown", err, errors.ClassifyError(err), map[string]string{
				"operation": "close_connection",
			})
		}
		a.logger.Debug("Database connection closed")
		return nil
	case <-ctx.Done():
		return errors.New("shutdown", ctx.Err(), errors.ErrCodeTimeout)
	}
}

// onFullscreenStopped brings the preferences back when the kiosk closes
func (a *App) onFullscreenStopped() {
	if a.quitting.Load() {
		return
	}
	a.prefs.Open(a.context())
}

// reloadConfig re-runs the bootstrap after the packaged config changed and
// points a running kiosk at the resulting URL
func (a *App) reloadConfig() {
	ctx := a.context()
	if _, err := settings.LoadConfigIntoSettings(ctx, a.settings.Repository(), a.cfg.Load, true, a.logger); err != nil {
		logging.LogError(a.logger, err, "reload_config", map[string]interface{}{"path": a.cfg.ConfigPath})
		return
	}
	if !a.fullscreen.IsRunning() {
		return
	}
	// the reload replaced the whole store, including the running flag
	if err := a.settings.Set(ctx, settings.KeyFullscreenIsRunning, true); err != nil {
		logging.LogError(a.logger, err, "persist_fullscreen_is_running", nil)
	}
	if url := a.settings.URL(ctx); url != "" {
		if err := a.fullscreen.Navigate(ctx, url); err != nil {
			logging.LogError(a.logger, err, "navigate", map[string]interface{}{"url": url})
		}
	}
}

func (a *App) context() context.Context {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ctx == nil {
		return context.Background()
	}
	return a.ctx
}

// StartFullscreen stores url, when given, and switches from the preferences
// to the kiosk. A running kiosk navigates instead.
func (a *App) StartFullscreen(url string) error {
	ctx := a.context()

	if url != "" {
		if err := a.settings.Set(ctx, settings.KeyURL, url); err != nil {
			logging.LogError(a.logger, err, "save_url", map[string]interface{}{"url": url})
			return err
		}
	}

	if a.fullscreen.IsRunning() {
		return a.fullscreen.Navigate(ctx, a.settings.URL(ctx))
	}

	a.prefs.Close(ctx)
	if err := a.fullscreen.Start(ctx); err != nil {
		a.prefs.Open(ctx)
		return err
	}
	return nil
}

// EnableAutoLaunch registers the app as a login item
func (a *App) EnableAutoLaunch() error {
	return a.autoLaunch.Enable(a.context())
}

// DisableAutoLaunch removes the login item
func (a *App) DisableAutoLaunch() error {
	return a.autoLaunch.Disable(a.context())
}

// IsAutoLaunchEnabled reports the persisted auto-launch flag
func (a *App) IsAutoLaunchEnabled() bool {
	return a.autoLaunch.IsEnabled(a.context())
}

// SetNotificationsBlocking chooses whether the kiosk silences system
// notifications; it applies from the next fullscreen start
func (a *App) SetNotificationsBlocking(enabled bool) error {
	return a.settings.Set(a.context(), settings.KeyNotificationsBlocking, enabled)
}

// GetSettings returns every persisted setting for the preferences screen
func (a *App) GetSettings() (map[string]any, error) {
	return a.settings.All(a.context())
}

// QuitApp exits the application
func (a *App) QuitApp() {
	a.quitting.Store(true)
	a.prefs.Quit(a.context())
}
