package settings

import (
	"context"
	"os"
	"strconv"
	"strings"

	"bigscreen/internal/config"
	"bigscreen/internal/infrastructure/logging"
	"bigscreen/internal/repository"
)

// AlwaysLoadConfigEnv forces the packaged config over persisted settings on every boot
const AlwaysLoadConfigEnv = "ALWAYS_LOAD_CONFIG"

// ShouldAlwaysLoadConfig reports whether AlwaysLoadConfigEnv is set to a true value.
// Any non-empty value other than a false boolean counts as true.
func ShouldAlwaysLoadConfig() bool {
	value := strings.TrimSpace(os.Getenv(AlwaysLoadConfigEnv))
	if value == "" {
		return false
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return true
}

// HasSettings reports whether the store holds at least one key
func HasSettings(ctx context.Context, repo repository.SettingsRepository) (bool, error) {
	all, err := repo.GetAll(ctx)
	if err != nil {
		return false, err
	}
	return len(all) > 0, nil
}

// LoadConfigIntoSettings replaces the stored settings with the packaged
// document when the store is empty or alwaysLoad is set. load is only
// called when the document is needed. It reports whether a load happened.
func LoadConfigIntoSettings(
	ctx context.Context,
	repo repository.SettingsRepository,
	load func() (config.Document, error),
	alwaysLoad bool,
	logger logging.Logger,
) (bool, error) {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	has, err := HasSettings(ctx, repo)
	if err != nil {
		return false, err
	}
	if has && !alwaysLoad {
		logger.Debug("Settings already present, skipping packaged config")
		return false, nil
	}

	doc, err := load()
	if err != nil {
		return false, err
	}
	if err := repo.SetAll(ctx, doc); err != nil {
		return false, err
	}

	logger.Info("Loaded packaged config into settings", "keys", len(doc), "always_load", alwaysLoad)
	return true, nil
}
