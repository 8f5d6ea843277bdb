package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	dberrors "bigscreen/internal/infrastructure/errors"
	"bigscreen/internal/infrastructure/logging"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteService implements Service for the settings database.
//
// Lifecycle: NewSQLiteService, Connect, Migrate, use DB, Close.
type SQLiteService struct {
	mu              sync.RWMutex
	db              *sql.DB
	config          *Config
	migrationRunner MigrationManager
	logger          logging.Logger
}

var _ Service = (*SQLiteService)(nil)

// NewSQLiteService creates a new SQLite database service
func NewSQLiteService(logger logging.Logger) *SQLiteService {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &SQLiteService{logger: logger}
}

// Connect opens and pings the database, replacing any previous connection
func (s *SQLiteService) Connect(ctx context.Context, config *Config) error {
	if config == nil {
		return dberrors.ValidationError("Connect", "config", "nil configuration")
	}
	if err := config.Validate(); err != nil {
		return dberrors.ValidationError("Connect", "config", err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Warn("Failed to close previous database connection", "error", err)
		}
		s.db = nil
		s.migrationRunner = nil
	}

	db, err := sql.Open("sqlite3", config.GetConnectionString())
	if err != nil {
		return dberrors.ConnectionError("Connect", fmt.Sprintf("failed to open database: %v", err))
	}
	configureConnectionPool(db, config)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return dberrors.WrapWithContext("Connect", err, map[string]string{"path": config.Path})
	}

	s.db = db
	s.config = config
	s.migrationRunner = NewMigrationRunner(db, s.logger)

	s.logger.Info("Connected to settings database", "path", config.Path)
	return nil
}

// Close closes the database connection; closing twice is a no-op
func (s *SQLiteService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.migrationRunner = nil
	if err != nil {
		return dberrors.Wrap("Close", err)
	}
	s.logger.Debug("Closed settings database")
	return nil
}

// Migrate validates and applies the embedded migrations
func (s *SQLiteService) Migrate(ctx context.Context) error {
	s.mu.RLock()
	runner := s.migrationRunner
	s.mu.RUnlock()

	if runner == nil {
		return dberrors.ConnectionError("Migrate", "database not connected")
	}
	if err := runner.ValidateMigrations(); err != nil {
		return dberrors.NewWithContext("Migrate", err, dberrors.ErrCodeSchema, map[string]string{"phase": "validation"})
	}
	if err := runner.RunMigrations(ctx); err != nil {
		return dberrors.NewWithContext("Migrate", err, dberrors.ErrCodeSchema, map[string]string{"phase": "execution"})
	}
	return nil
}

// Health pings the database and runs a trivial query
func (s *SQLiteService) Health(ctx context.Context) error {
	db := s.DB()
	if db == nil {
		return dberrors.ConnectionError("Health", "database not connected")
	}
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return dberrors.WrapWithContext("Health", err, map[string]string{"phase": "query"})
	}
	return nil
}

// DB returns the underlying connection pool, or nil when disconnected
func (s *SQLiteService) DB() *sql.DB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db
}

// GetMigrationVersion returns the applied schema version
func (s *SQLiteService) GetMigrationVersion(ctx context.Context) (int64, error) {
	s.mu.RLock()
	runner := s.migrationRunner
	s.mu.RUnlock()

	if runner == nil {
		return 0, dberrors.ConnectionError("GetMigrationVersion", "database not connected")
	}
	version, err := runner.GetCurrentVersion(ctx)
	if err != nil {
		return 0, dberrors.Wrap("GetMigrationVersion", err)
	}
	return version, nil
}

// configureConnectionPool keeps SQLite to one connection unless WAL is on.
// In-memory databases are per-connection and always get exactly one.
func configureConnectionPool(db *sql.DB, config *Config) {
	if config.IsInMemory() || !strings.EqualFold(config.JournalMode, "WAL") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		return
	}

	maxConns := min(max(config.MaxConnections, 1), 4)
	idle := min(max(config.MaxIdleConns, 1), maxConns)
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(idle)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
}
