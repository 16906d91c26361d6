// Package database owns the shared GORM connection used by the auth and task modules.
package database

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// ErrPersistence marks failures of the underlying store.
	ErrPersistence = errors.New("persistence failure")
	// ErrUnsupportedDriver is returned when Config.Driver names an unknown backend.
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds connection settings.
type Config struct {
	Driver string
	DSN    string
	// Debug logs every SQL statement.
	Debug bool
	// MaxOpenConns caps the pool. Zero keeps the driver default.
	MaxOpenConns int
}

// DefaultConfig returns a file-backed SQLite configuration.
func DefaultConfig() Config {
	return Config{
		Driver: DriverSQLite,
		DSN:    "task_api.db",
	}
}

// Open connects to the configured database.
func Open(cfg Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", DriverSQLite:
		dialector = sqlite.Open(cfg.DSN)
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}

	level := logger.Silent
	if cfg.Debug {
		level = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}

	// Every connection to an in-memory SQLite database sees its own empty schema.
	if isInMemory(cfg) {
		sqlDB.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	return db, nil
}

// Close releases the connection pool behind db.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Wrap annotates a store error so callers can match it with errors.Is(err, ErrPersistence).
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

func isInMemory(cfg Config) bool {
	if cfg.Driver != "" && cfg.Driver != DriverSQLite {
		return false
	}
	return cfg.DSN == ":memory:" || strings.Contains(cfg.DSN, "mode=memory")
}
