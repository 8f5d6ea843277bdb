// Package app wires the settings store, platform services and kiosk
// controller together and exposes them to the Wails frontend.
package app

import (
	"context"
	"time"

	"bigscreen/internal/browser"
	"bigscreen/internal/config"
	"bigscreen/internal/controller"
	"bigscreen/internal/database"
	"bigscreen/internal/infrastructure/errors"
	"bigscreen/internal/infrastructure/logging"
	"bigscreen/internal/kiosk"
	"bigscreen/internal/poll"
	"bigscreen/internal/repository"
	"bigscreen/internal/services"
	"bigscreen/internal/settings"
)

const connectTimeout = 10 * time.Second

// Config holds what main resolved from flags and the environment
type Config struct {
	Paths config.Paths
	// ConfigPath is the packaged config, watched when AlwaysLoadConfig is set
	ConfigPath       string
	AlwaysLoadConfig bool
	// Load returns the packaged config merged with any user override
	Load func() (config.Document, error)
	// BrowserPath overrides the browser_path setting
	BrowserPath string
	Logger      logging.Logger
}

// NewApp opens the settings store and builds the controller and services.
// If the database cannot be opened the app runs on an in-memory store.
func NewApp(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	cfg.Logger = logger

	dbService, repo := openSettingsStore(cfg.Paths, logger)
	store := settings.New(repo, logger)

	env := services.Env{Settings: store, Logger: logger}
	autoLaunch := services.NewAutoLaunch(env)

	a := &App{
		cfg:        cfg,
		logger:     logger,
		settings:   store,
		autoLaunch: autoLaunch,
		prefs:      wailsPreferences{},
		dbService:  dbService,
	}
	a.fullscreen = controller.New(controller.Options{
		Settings:            store,
		Logger:              logger,
		NewWindow:           a.newWindow,
		AutoLaunch:          autoLaunch,
		SleepBlocker:        services.NewSleepBlocker(env, nil),
		KeepAlive:           services.NewKeepAlive(env),
		NotificationBlocker: services.NewNotificationBlocker(env),
		OnStopped:           a.onFullscreenStopped,
	})

	if cfg.AlwaysLoadConfig && cfg.ConfigPath != "" {
		a.watcher = config.NewWatcher(cfg.ConfigPath, func(config.Document) { a.reloadConfig() }, logger)
	}
	return a, nil
}

// openSettingsStore connects and migrates the SQLite store, falling back to
// memory when that fails
func openSettingsStore(paths config.Paths, logger logging.Logger) (database.Service, repository.SettingsRepository) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	dbService := database.NewSQLiteService(logger)
	dbConfig := database.DefaultConfig(paths.Database())

	err := errors.WithRetryContext(ctx, nil, func() error {
		return dbService.Connect(ctx, dbConfig)
	}, "connect_settings_db")
	var repo *repository.SQLiteSettingsRepository
	if err == nil {
		repo = repository.NewSQLiteSettingsRepository(dbService, logger)
		if err = dbService.Migrate(ctx); err == nil {
			err = repo.HealthCheck(ctx)
		}
		if err != nil {
			dbService.Close()
		}
	}
	if err != nil {
		logging.LogError(logger, err, "open_settings_store", map[string]interface{}{"db_path": dbConfig.Path})
		logger.Warn("Continuing with in-memory settings, changes will not be saved")
		return nil, repository.NewMemorySettingsRepository(nil)
	}

	return dbService, repo
}

// newWindow builds a kiosk window on a fresh browser surface; it is the
// controller's window factory
func (a *App) newWindow(ctx context.Context, onClosed func()) controller.Window {
	fallbackURL, err := kiosk.FallbackURL(kiosk.FallbackData{
		AppName:     a.settings.String(ctx, settings.KeyAppName, a.cfg.Paths.Name),
		AccentColor: a.settings.AccentColor(ctx),
	})
	if err != nil {
		logging.LogError(a.logger, err, "render_fallback", nil)
	}

	browserPath := a.cfg.BrowserPath
	if browserPath == "" {
		browserPath = a.settings.String(ctx, settings.KeyBrowserPath, "")
	}

	return kiosk.NewWindow(kiosk.Options{
		NewSurface: browser.NewSurfaceFactory(browser.Config{
			BrowserPath: browserPath,
			ProfilesDir: a.cfg.Paths.BrowserProfiles(),
			Logger:      a.logger,
		}),
		Reconnector: poll.New(poll.Options{Logger: a.logger}),
		Logger:      a.logger,
		FallbackURL: fallbackURL,
		CSS:         kiosk.InjectedCSS,
		OnClosed:    onClosed,
	})
}
