package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"bigscreen/internal/database"
	repoerrors "bigscreen/internal/infrastructure/errors"
	"bigscreen/internal/infrastructure/logging"
)

// SQLiteSettingsRepository implements SettingsRepository on the settings table
type SQLiteSettingsRepository struct {
	dbService   database.Service
	retryConfig *repoerrors.RetryConfig
	logger      logging.Logger
}

var _ SettingsRepository = (*SQLiteSettingsRepository)(nil)

// NewSQLiteSettingsRepository creates a settings repository over a connected, migrated service
func NewSQLiteSettingsRepository(dbService database.Service, logger logging.Logger) *SQLiteSettingsRepository {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &SQLiteSettingsRepository{
		dbService:   dbService,
		retryConfig: repoerrors.DefaultRetryConfig(),
		logger:      logger,
	}
}

func (r *SQLiteSettingsRepository) db(op string) (*sql.DB, error) {
	db := r.dbService.DB()
	if db == nil {
		return nil, repoerrors.ConnectionError(op, "database not connected")
	}
	return db, nil
}

// Get returns the decoded value stored under key
func (r *SQLiteSettingsRepository) Get(ctx context.Context, key string) (any, error) {
	db, err := r.db("GetSetting")
	if err != nil {
		return nil, err
	}

	var raw string
	err = db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repoerrors.NotFoundError("GetSetting", "setting", key)
	}
	if err != nil {
		return nil, repoerrors.WrapWithContext("GetSetting", err, map[string]string{"key": key})
	}

	value, err := decodeValue(raw)
	if err != nil {
		return nil, repoerrors.NewWithContext("GetSetting", err, repoerrors.ErrCodeCorruption, map[string]string{"key": key})
	}
	return value, nil
}

// Set upserts key with the JSON encoding of value
func (r *SQLiteSettingsRepository) Set(ctx context.Context, key string, value any) error {
	if key == "" {
		return repoerrors.ValidationError("SetSetting", "key", "empty key")
	}
	raw, err := encodeValue(value)
	if err != nil {
		return repoerrors.ValidationError("SetSetting", key, err.Error())
	}
	db, err := r.db("SetSetting")
	if err != nil {
		return err
	}

	return repoerrors.WithRetryContext(ctx, r.retryConfig, func() error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			key, raw, time.Now().UTC())
		return repoerrors.WrapWithContext("SetSetting", err, map[string]string{"key": key})
	}, "SetSetting")
}

// GetAll returns every stored setting
func (r *SQLiteSettingsRepository) GetAll(ctx context.Context) (map[string]any, error) {
	db, err := r.db("GetAllSettings")
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, repoerrors.Wrap("GetAllSettings", err)
	}
	defer rows.Close()

	out := make(map[string]any)
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, repoerrors.Wrap("GetAllSettings", err)
		}
		value, err := decodeValue(raw)
		if err != nil {
			r.logger.Warn("Skipping undecodable setting", "key", key, "error", err)
			continue
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, repoerrors.Wrap("GetAllSettings", err)
	}
	return out, nil
}

// SetAll replaces every stored setting in one transaction
func (r *SQLiteSettingsRepository) SetAll(ctx context.Context, values map[string]any) error {
	encoded := make(map[string]string, len(values))
	for key, value := range values {
		if key == "" {
			return repoerrors.ValidationError("SetAllSettings", "key", "empty key")
		}
		raw, err := encodeValue(value)
		if err != nil {
			return repoerrors.ValidationError("SetAllSettings", key, err.Error())
		}
		encoded[key] = raw
	}
	db, err := r.db("SetAllSettings")
	if err != nil {
		return err
	}

	start := time.Now()
	err = repoerrors.WithRetryContext(ctx, r.retryConfig, func() error {
		return repoerrors.Wrap("SetAllSettings", r.replaceAll(ctx, db, encoded))
	}, "SetAllSettings")
	if err != nil {
		return err
	}

	logging.LogOperation(r.logger, "SetAllSettings", time.Since(start), map[string]interface{}{"keys": len(encoded)})
	return nil
}

func (r *SQLiteSettingsRepository) replaceAll(ctx context.Context, db *sql.DB, encoded map[string]string) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				r.logger.Error("Failed to roll back settings replacement", "error", rbErr)
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM settings`); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for key, raw := range encoded {
		if _, err = stmt.ExecContext(ctx, key, raw, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}
