package repository

import (
	"context"
	"time"

	repoerrors "bigscreen/internal/infrastructure/errors"
	"bigscreen/internal/infrastructure/logging"
)

// SetRetryConfig replaces the retry policy for busy or disconnected writes
func (r *SQLiteSettingsRepository) SetRetryConfig(config *repoerrors.RetryConfig) {
	if config != nil {
		r.retryConfig = config
	}
}

// SetLogger replaces the repository logger
func (r *SQLiteSettingsRepository) SetLogger(logger logging.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// HealthCheck pings the database and reads the settings table
func (r *SQLiteSettingsRepository) HealthCheck(ctx context.Context) error {
	start := time.Now()
	db, err := r.db("HealthCheck")
	if err != nil {
		return err
	}

	err = repoerrors.WithRetry(ctx, r.retryConfig, func() error {
		if err := db.PingContext(ctx); err != nil {
			return repoerrors.Wrap("HealthCheck.Ping", err)
		}
		var count int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM settings").Scan(&count); err != nil {
			return repoerrors.Wrap("HealthCheck.Query", err)
		}
		return nil
	})
	if err != nil {
		logging.LogError(r.logger, err, "HealthCheck", nil)
		return err
	}

	logging.LogOperation(r.logger, "HealthCheck", time.Since(start), nil)
	return nil
}
