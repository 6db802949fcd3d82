// Package config handles application configuration loading and validation using Viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Cache backends.
const (
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"

	DatabaseDriverPostgres = "postgres"
	DatabaseDriverSQLite   = "sqlite"
)

// Config represents the application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Mattermost MattermostConfig `mapstructure:"mattermost"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Scoring    ScoringConfig    `mapstructure:"scoring"`
	Identity   IdentityConfig   `mapstructure:"identity"`
	Challenges ChallengesConfig `mapstructure:"challenges"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port        int    `mapstructure:"port"`
	Environment string `mapstructure:"environment"`
}

// MattermostConfig contains Mattermost webhook notification settings.
type MattermostConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
	Enabled    bool   `mapstructure:"enabled"`
}

// DatabaseConfig contains database connection settings for PostgreSQL, SQLite and Redis.
type DatabaseConfig struct {
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// SQLiteConfig contains the single-node SQLite settings. The schema is always auto-migrated.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// PostgresConfig contains PostgreSQL database connection and pool settings.
type PostgresConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Database        string `mapstructure:"database"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool   `mapstructure:"auto_migrate"`
}

// DSN builds the postgres connection string.
func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// URL builds the postgres URL form used by golang-migrate.
func (c *PostgresConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// RedisConfig contains Redis cache connection and pool settings.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// Addr returns host:port.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CacheConfig selects the leaderboard snapshot cache.
type CacheConfig struct {
	Backend               string `mapstructure:"backend"`
	LeaderboardTTLSeconds int    `mapstructure:"leaderboard_ttl_seconds"`
}

// LeaderboardTTL returns the snapshot lifetime.
func (c *CacheConfig) LeaderboardTTL() time.Duration {
	return time.Duration(c.LeaderboardTTLSeconds) * time.Second
}

// ScoringConfig contains scoring engine settings.
type ScoringConfig struct {
	// Timezone bounds calendar days for daily caps and streaks.
	Timezone string `mapstructure:"timezone"`
}

// GetLocation returns the scoring timezone.
func (c *ScoringConfig) GetLocation() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// IdentityConfig names the header carrying the authenticated user id.
type IdentityConfig struct {
	Header string `mapstructure:"header"`
}

// ChallengesConfig contains challenge catalog settings.
type ChallengesConfig struct {
	CatalogPath          string `mapstructure:"catalog_path"`
	SessionMaxAgeSeconds int    `mapstructure:"session_max_age_seconds"`
}

// SessionMaxAge returns how long an unfinished listening session is kept.
func (c *ChallengesConfig) SessionMaxAge() time.Duration {
	return time.Duration(c.SessionMaxAgeSeconds) * time.Second
}

// SchedulerConfig contains background job settings.
type SchedulerConfig struct {
	Enabled                 bool   `mapstructure:"enabled"`
	DigestTime              string `mapstructure:"digest_time"`
	DigestTopN              int    `mapstructure:"digest_top_n"`
	ChallengeExpirySchedule string `mapstructure:"challenge_expiry_schedule"`
	WindowPruneSchedule     string `mapstructure:"window_prune_schedule"`
	ScoreRefreshSchedule    string `mapstructure:"score_refresh_schedule"`
	Timezone                string `mapstructure:"timezone"`
	SkipWeekends            bool   `mapstructure:"skip_weekends"`
}

// GetLocation returns the timezone location.
func (c *SchedulerConfig) GetLocation() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// MetricsConfig contains metrics settings.
type MetricsConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig contains Prometheus metrics exporter settings.
type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig contains application logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.environment", "development")
	v.SetDefault("database.driver", DatabaseDriverPostgres)
	v.SetDefault("database.sqlite.path", "fanscore.db")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.ssl_mode", "disable")
	v.SetDefault("database.postgres.max_open_conns", 25)
	v.SetDefault("database.postgres.max_idle_conns", 5)
	v.SetDefault("database.postgres.conn_max_lifetime", 300)
	v.SetDefault("database.postgres.auto_migrate", true)
	v.SetDefault("database.redis.port", 6379)
	v.SetDefault("database.redis.pool_size", 10)
	v.SetDefault("cache.backend", CacheBackendRedis)
	v.SetDefault("cache.leaderboard_ttl_seconds", 300)
	v.SetDefault("scoring.timezone", "UTC")
	v.SetDefault("identity.header", "X-User-ID")
	v.SetDefault("challenges.session_max_age_seconds", 7200)
	v.SetDefault("scheduler.digest_time", "09:00")
	v.SetDefault("scheduler.digest_top_n", 5)
	v.SetDefault("scheduler.challenge_expiry_schedule", "@every 15m")
	v.SetDefault("scheduler.window_prune_schedule", "@every 10m")
	v.SetDefault("scheduler.score_refresh_schedule", "30 0 * * *")
	v.SetDefault("scheduler.timezone", "UTC")
	v.SetDefault("metrics.prometheus.port", 9090)
	v.SetDefault("metrics.prometheus.path", "/metrics")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// Load reads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/fanscore/")
	}

	// Server configuration
	_ = v.BindEnv("server.port", "SERVER_PORT")
	_ = v.BindEnv("server.environment", "SERVER_ENVIRONMENT")

	// Database configuration
	_ = v.BindEnv("database.driver", "DATABASE_DRIVER")
	_ = v.BindEnv("database.sqlite.path", "SQLITE_PATH")

	// Mattermost configuration
	_ = v.BindEnv("mattermost.webhook_url", "MATTERMOST_WEBHOOK_URL")
	_ = v.BindEnv("mattermost.channel", "MATTERMOST_CHANNEL")
	_ = v.BindEnv("mattermost.enabled", "MATTERMOST_ENABLED")

	// PostgreSQL configuration
	_ = v.BindEnv("database.postgres.host", "POSTGRES_HOST")
	_ = v.BindEnv("database.postgres.port", "POSTGRES_PORT")
	_ = v.BindEnv("database.postgres.database", "POSTGRES_DB")
	_ = v.BindEnv("database.postgres.user", "POSTGRES_USER")
	_ = v.BindEnv("database.postgres.password", "POSTGRES_PASSWORD")
	_ = v.BindEnv("database.postgres.ssl_mode", "POSTGRES_SSL_MODE")
	_ = v.BindEnv("database.postgres.max_open_conns", "POSTGRES_MAX_OPEN_CONNS")
	_ = v.BindEnv("database.postgres.max_idle_conns", "POSTGRES_MAX_IDLE_CONNS")
	_ = v.BindEnv("database.postgres.conn_max_lifetime", "POSTGRES_CONN_MAX_LIFETIME")
	_ = v.BindEnv("database.postgres.auto_migrate", "POSTGRES_AUTO_MIGRATE")

	// Redis configuration
	_ = v.BindEnv("database.redis.host", "REDIS_HOST")
	_ = v.BindEnv("database.redis.port", "REDIS_PORT")
	_ = v.BindEnv("database.redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("database.redis.db", "REDIS_DB")
	_ = v.BindEnv("database.redis.pool_size", "REDIS_POOL_SIZE")

	// Cache, scoring and identity
	_ = v.BindEnv("cache.backend", "CACHE_BACKEND")
	_ = v.BindEnv("cache.leaderboard_ttl_seconds", "CACHE_LEADERBOARD_TTL_SECONDS")
	_ = v.BindEnv("scoring.timezone", "SCORING_TIMEZONE")
	_ = v.BindEnv("identity.header", "IDENTITY_HEADER")
	_ = v.BindEnv("challenges.catalog_path", "CHALLENGES_CATALOG_PATH")
	_ = v.BindEnv("challenges.session_max_age_seconds", "CHALLENGES_SESSION_MAX_AGE_SECONDS")

	// Logging configuration
	_ = v.BindEnv("logging.level", "LOG_LEVEL")
	_ = v.BindEnv("logging.format", "LOG_FORMAT")
	_ = v.BindEnv("logging.output", "LOG_OUTPUT")

	// Scheduler configuration
	_ = v.BindEnv("scheduler.enabled", "SCHEDULER_ENABLED")
	_ = v.BindEnv("scheduler.digest_time", "SCHEDULER_DIGEST_TIME")
	_ = v.BindEnv("scheduler.timezone", "SCHEDULER_TIMEZONE")
	_ = v.BindEnv("scheduler.skip_weekends", "SCHEDULER_SKIP_WEEKENDS")
	_ = v.BindEnv("scheduler.score_refresh_schedule", "SCHEDULER_SCORE_REFRESH_SCHEDULE")

	// Metrics configuration
	_ = v.BindEnv("metrics.prometheus.enabled", "METRICS_ENABLED")
	_ = v.BindEnv("metrics.prometheus.port", "METRICS_PORT")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DatabaseDriverPostgres:
		if c.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}
		if c.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if c.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	case DatabaseDriverSQLite:
		if c.Database.SQLite.Path == "" {
			return fmt.Errorf("database.sqlite.path is required")
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DatabaseDriverPostgres, DatabaseDriverSQLite, c.Database.Driver)
	}

	switch c.Cache.Backend {
	case CacheBackendRedis:
		if c.Database.Redis.Host == "" {
			return fmt.Errorf("database.redis.host is required when cache.backend is redis")
		}
	case CacheBackendMemory:
	default:
		return fmt.Errorf("cache.backend must be %q or %q, got %q", CacheBackendRedis, CacheBackendMemory, c.Cache.Backend)
	}

	if c.Cache.LeaderboardTTLSeconds <= 0 {
		return fmt.Errorf("cache.leaderboard_ttl_seconds must be positive")
	}
	if _, err := c.Scoring.GetLocation(); err != nil {
		return fmt.Errorf("scoring.timezone is invalid: %w", err)
	}
	if c.Identity.Header == "" {
		return fmt.Errorf("identity.header is required")
	}
	if c.Mattermost.Enabled && c.Mattermost.WebhookURL == "" {
		return fmt.Errorf("mattermost.webhook_url is required when mattermost is enabled")
	}

	return nil
}
