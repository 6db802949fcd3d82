// Package repository provides data access layer using GORM for database operations.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/aimd54/fanscore/internal/config"
	"github.com/aimd54/fanscore/internal/models"
	"github.com/aimd54/fanscore/pkg/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// DB holds the database connection.
type DB struct {
	*gorm.DB
}

// Open connects to the database selected by cfg.Driver.
func Open(cfg *config.DatabaseConfig, log *logger.Logger) (*DB, error) {
	switch cfg.Driver {
	case config.DatabaseDriverPostgres:
		return NewDB(&cfg.Postgres, log)
	case config.DatabaseDriverSQLite:
		return NewSQLiteDB(cfg.SQLite.Path, log)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// gormConfig routes gorm logs through log. SQL statements are only traced at debug level,
// and missing rows are not errors for this package.
func gormConfig(log *logger.Logger) *gorm.Config {
	level := gormlogger.Warn
	if log.IsDebug() {
		level = gormlogger.Info
	}
	return &gorm.Config{
		Logger: gormlogger.New(log.Component("gorm"), gormlogger.Config{
			SlowThreshold:             slowQueryThreshold,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// NewDB creates a new PostgreSQL connection.
func NewDB(cfg *config.PostgresConfig, log *logger.Logger) (*DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig(log))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Msg("Connected to PostgreSQL")

	return &DB{db}, nil
}

// NewSQLiteDB opens a SQLite database file, or a private in-memory database for ":memory:".
func NewSQLiteDB(path string, log *logger.Logger) (*DB, error) {
	db, err := gorm.Open(sqlite.Open(path), gormConfig(log))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	// sqlite serializes writers, and every :memory: connection is a separate database
	sqlDB.SetMaxOpenConns(1)

	log.Info().Str("path", path).Msg("Opened SQLite database")
	return &DB{db}, nil
}

// Dialect returns the gorm dialect name, "postgres" or "sqlite".
func (db *DB) Dialect() string {
	return db.DB.Dialector.Name()
}

// AllModels lists every persisted model, in dependency order.
func AllModels() []interface{} {
	return []interface{}{
		&models.EngagementEvent{},
		&models.FanScore{},
		&models.FanProfile{},
		&models.Challenge{},
		&models.ChallengeProgress{},
		&models.ChallengeActionLog{},
		&models.EngagementAction{},
		&models.UserWallet{},
		&models.PointTransaction{},
	}
}

// AutoMigrate creates or updates tables from the gorm models.
func (db *DB) AutoMigrate() error {
	if err := db.DB.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("failed to auto-migrate: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health checks if the database is healthy.
func (db *DB) Health(ctx context.Context) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// notFound translates gorm's missing-row error into a nil result.
func notFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
