// Package settings gives typed access to the persisted key/value settings
// and seeds them from the packaged configuration.
package settings

import (
	"context"

	"bigscreen/internal/config"
	apperrors "bigscreen/internal/infrastructure/errors"
	"bigscreen/internal/infrastructure/logging"
	"bigscreen/internal/repository"
)

// Persisted keys
const (
	KeyURL                   = "url"
	KeyDefaultURL            = "default_url"
	KeyAppName               = "app_name"
	KeyName                  = "name"
	KeyAccentColor           = "accent_color"
	KeyAutoLaunch            = "autolaunch"
	KeyFullscreenIsRunning   = "fullscreen_is_running"
	KeySleepBlocking         = "sleep_blocking"
	KeyNotificationsBlocking = "notifications_blocking"
	KeyBrowserPath           = "browser_path"
)

// Settings wraps a SettingsRepository with typed accessors. Read failures
// other than a missing key are logged and the default is returned.
type Settings struct {
	repo   repository.SettingsRepository
	logger logging.Logger
}

// New creates typed accessors over repo
func New(repo repository.SettingsRepository, logger logging.Logger) *Settings {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Settings{repo: repo, logger: logger}
}

// Repository returns the underlying store
func (s *Settings) Repository() repository.SettingsRepository {
	return s.repo
}

func (s *Settings) get(ctx context.Context, key string) (any, bool) {
	value, err := s.repo.Get(ctx, key)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			logging.LogError(s.logger, err, "get_setting", map[string]interface{}{"key": key})
		}
		return nil, false
	}
	return value, true
}

// String returns the string stored under key, or def when absent, null or not a string
func (s *Settings) String(ctx context.Context, key, def string) string {
	value, ok := s.get(ctx, key)
	if !ok {
		return def
	}
	str, ok := value.(string)
	if !ok {
		return def
	}
	return str
}

// Bool returns the boolean stored under key, or def when absent or not a boolean
func (s *Settings) Bool(ctx context.Context, key string, def bool) bool {
	value, ok := s.get(ctx, key)
	if !ok {
		return def
	}
	b, ok := value.(bool)
	if !ok {
		return def
	}
	return b
}

// Set stores value under key
func (s *Settings) Set(ctx context.Context, key string, value any) error {
	return s.repo.Set(ctx, key, value)
}

// All returns every stored pair
func (s *Settings) All(ctx context.Context) (map[string]any, error) {
	return s.repo.GetAll(ctx)
}

// URL is the page the kiosk shows: url, else default_url, else ""
func (s *Settings) URL(ctx context.Context) string {
	if url := s.String(ctx, KeyURL, ""); url != "" {
		return url
	}
	return s.String(ctx, KeyDefaultURL, "")
}

// Name is the identifier used for log, launch agent and autostart names
func (s *Settings) Name(ctx context.Context) string {
	return s.String(ctx, KeyName, config.DefaultName)
}

// AccentColor is the fallback page accent, black by default
func (s *Settings) AccentColor(ctx context.Context) string {
	return s.String(ctx, KeyAccentColor, "#000000")
}
