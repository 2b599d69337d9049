// Package config loads service settings from defaults, an optional TOML
// file and the environment, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"epw-platform/pkg/database"
)

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Logging   LoggingConfig   `toml:"logging"`
	Ingestion IngestionConfig `toml:"ingestion"`
	Fetcher   FetcherConfig   `toml:"fetcher"`
}

type ServerConfig struct {
	Host         string        `toml:"host"`
	Port         int           `toml:"port"`
	ReadTimeout  time.Duration `toml:"read_timeout"`
	WriteTimeout time.Duration `toml:"write_timeout"`
	IdleTimeout  time.Duration `toml:"idle_timeout"`
}

// DatabaseConfig describes the Postgres connection. With Enabled false the
// server answers from the in-memory catalog only.
type DatabaseConfig struct {
	Enabled         bool          `toml:"enabled"`
	Host            string        `toml:"host"`
	Port            int           `toml:"port"`
	User            string        `toml:"user"`
	Password        string        `toml:"password"`
	Database        string        `toml:"database"`
	SSLMode         string        `toml:"sslmode"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `toml:"conn_max_idle_time"`
}

// Connection converts the settings for database.NewPostgresDB.
func (c DatabaseConfig) Connection() *database.Config {
	return &database.Config{
		Host:            c.Host,
		Port:            c.Port,
		User:            c.User,
		Password:        c.Password,
		Database:        c.Database,
		SSLMode:         c.SSLMode,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		ConnMaxIdleTime: c.ConnMaxIdleTime,
	}
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

type IngestionConfig struct {
	DataDir          string `toml:"data_dir"`
	BatchSize        int    `toml:"batch_size"`
	StoreData        bool   `toml:"store_data"`
	StrictActualYear bool   `toml:"strict_actual_year"`
	RescanSchedule   string `toml:"rescan_schedule"`
}

type FetcherConfig struct {
	URLs           []string      `toml:"urls"`
	Schedule       string        `toml:"schedule"`
	Timeout        time.Duration `toml:"timeout"`
	MaxRetries     int           `toml:"max_retries"`
	RetryDelay     time.Duration `toml:"retry_delay"`
	MaxBytes       int64         `toml:"max_bytes"`
	BreakerTimeout time.Duration `toml:"breaker_timeout"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Enabled:         true,
			Host:            "localhost",
			Port:            5432,
			User:            "epw",
			Database:        "epw_platform",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: time.Minute,
		},
		Logging: LoggingConfig{Level: "info"},
		Ingestion: IngestionConfig{
			DataDir:   "data",
			BatchSize: 1000,
			StoreData: true,
		},
		Fetcher: FetcherConfig{
			Timeout:        30 * time.Second,
			MaxRetries:     3,
			RetryDelay:     time.Second,
			MaxBytes:       64 << 20,
			BreakerTimeout: 30 * time.Second,
		},
	}
}

// LoadConfig reads .env if present, then the TOML file named by
// EPW_CONFIG_FILE, then environment overrides.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		zap.L().Info("No .env file found, using environment variables")
	}

	cfg := Default()
	if path := os.Getenv("EPW_CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Host = getEnv("SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvInt("SERVER_PORT", cfg.Server.Port)
	cfg.Server.ReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.IdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", cfg.Server.IdleTimeout)

	cfg.Database.Enabled = getEnvBool("DB_ENABLED", cfg.Database.Enabled)
	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvInt("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Database = getEnv("DB_NAME", cfg.Database.Database)
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", cfg.Database.SSLMode)
	cfg.Database.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns)
	cfg.Database.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", cfg.Database.MaxIdleConns)
	cfg.Database.ConnMaxLifetime = getEnvDuration("DB_CONN_MAX_LIFETIME", cfg.Database.ConnMaxLifetime)
	cfg.Database.ConnMaxIdleTime = getEnvDuration("DB_CONN_MAX_IDLE_TIME", cfg.Database.ConnMaxIdleTime)

	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)

	cfg.Ingestion.DataDir = getEnv("EPW_DATA_DIR", cfg.Ingestion.DataDir)
	cfg.Ingestion.BatchSize = getEnvInt("EPW_BATCH_SIZE", cfg.Ingestion.BatchSize)
	cfg.Ingestion.StoreData = getEnvBool("EPW_STORE_DATA", cfg.Ingestion.StoreData)
	cfg.Ingestion.StrictActualYear = getEnvBool("EPW_STRICT_ACTUAL_YEAR", cfg.Ingestion.StrictActualYear)
	cfg.Ingestion.RescanSchedule = getEnv("EPW_RESCAN_SCHEDULE", cfg.Ingestion.RescanSchedule)

	if urls := getEnv("FETCH_URLS", ""); urls != "" {
		cfg.Fetcher.URLs = splitList(urls)
	}
	cfg.Fetcher.Schedule = getEnv("FETCH_SCHEDULE", cfg.Fetcher.Schedule)
	cfg.Fetcher.Timeout = getEnvDuration("FETCH_TIMEOUT", cfg.Fetcher.Timeout)
	cfg.Fetcher.MaxRetries = getEnvInt("FETCH_MAX_RETRIES", cfg.Fetcher.MaxRetries)
	cfg.Fetcher.RetryDelay = getEnvDuration("FETCH_RETRY_DELAY", cfg.Fetcher.RetryDelay)
	cfg.Fetcher.MaxBytes = int64(getEnvInt("FETCH_MAX_BYTES", int(cfg.Fetcher.MaxBytes)))
	cfg.Fetcher.BreakerTimeout = getEnvDuration("CIRCUIT_BREAKER_TIMEOUT", cfg.Fetcher.BreakerTimeout)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var err error
	check := func(ok bool, field, message string) {
		if !ok {
			err = multierr.Append(err, &ValidationError{Field: field, Message: message})
		}
	}

	check(c.Server.Port > 0 && c.Server.Port < 65536, "server.port", "must be between 1 and 65535")
	check(c.Server.ReadTimeout >= 0 && c.Server.WriteTimeout >= 0, "server.timeouts", "must not be negative")
	if c.Database.Enabled {
		check(c.Database.Host != "", "database.host", "is required")
		check(c.Database.Database != "", "database.database", "is required")
		check(c.Database.MaxOpenConns >= 0, "database.max_open_conns", "must not be negative")
		check(c.Database.MaxIdleConns <= c.Database.MaxOpenConns || c.Database.MaxOpenConns == 0,
			"database.max_idle_conns", "must not exceed max_open_conns")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error", "fatal":
	default:
		check(false, "logging.level", fmt.Sprintf("unknown level %q", c.Logging.Level))
	}
	check(c.Ingestion.DataDir != "", "ingestion.data_dir", "is required")
	check(c.Ingestion.BatchSize > 0, "ingestion.batch_size", "must be positive")
	check(c.Fetcher.MaxRetries >= 0, "fetcher.max_retries", "must not be negative")
	for _, u := range c.Fetcher.URLs {
		check(strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://"), "fetcher.urls", fmt.Sprintf("%q is not an http(s) URL", u))
	}
	return err
}

// ValidationError is one invalid setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Message)
}

func (e *ValidationError) IsTransient() bool { return false }

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := cast.ToIntE(value)
	if err != nil {
		zap.L().Warn("Failed to parse int", zap.String("key", key), zap.String("value", value), zap.Error(err))
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := cast.ToBoolE(value)
	if err != nil {
		zap.L().Warn("Failed to parse bool", zap.String("key", key), zap.String("value", value), zap.Error(err))
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := cast.ToDurationE(value)
	if err != nil {
		zap.L().Warn("Failed to parse duration", zap.String("key", key), zap.String("value", value), zap.Error(err))
		return defaultValue
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
