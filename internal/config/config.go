package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Common
	Environment string `validate:"required"`
	LogLevel    string `validate:"oneof=debug info warn error"`

	Database   DatabaseConfig
	MarketData MarketDataConfig
	Ingest     IngestConfig
	Scanner    ScannerConfig
	API        APIConfig
	Redis      RedisConfig
}

// DatabaseConfig describes the backing relational store. It is passed
// explicitly to storage.Open; the storage layer never reads the environment.
type DatabaseConfig struct {
	Driver string `validate:"oneof=postgres sqlite"`
	// URL is a full DSN. When set it takes precedence over the discrete fields.
	URL      string
	Host     string
	Port     int `validate:"gte=0,lte=65535"`
	User     string
	Password string
	Database string
	SSLMode  string
	// Path is the database file for the sqlite driver
	Path  string
	Table string `validate:"required"`

	MaxConnections  int `validate:"gte=0"`
	MaxIdleConns    int `validate:"gte=0"`
	ConnMaxLifetime time.Duration

	InsertBatchSize int `validate:"gte=1"`

	Connect RetryConfig
}

// RetryConfig controls how connection acquisition is retried
type RetryConfig struct {
	MaxAttempts int           `validate:"gte=1"`
	Delay       time.Duration `validate:"gte=0"`
	Backoff     string        `validate:"oneof=fixed exponential"`
	MaxDelay    time.Duration `validate:"gte=0"`
}

// MarketDataConfig holds market data provider configuration
type MarketDataConfig struct {
	Provider    string `validate:"oneof=yahoo polygon mock"`
	APIKey      string
	BaseURL     string
	Timeout     time.Duration `validate:"gt=0"`
	Symbols     []string
	SymbolsFile string
}

// IngestConfig holds download/ingest configuration
type IngestConfig struct {
	LookbackDays int `validate:"gte=1"`
	Workers      int `validate:"gte=1"`
}

// ScannerConfig holds crossover scan defaults
type ScannerConfig struct {
	ShortWindow int `validate:"gte=1"`
	LongWindow  int `validate:"gte=1"`
	// PrevComparison is the operator for the second-to-last point: "lte" or "lt"
	PrevComparison string `validate:"oneof=lte lt"`
	Engine         string `validate:"oneof=native techan"`
	Workers        int    `validate:"gte=1"`
}

// APIConfig holds REST API configuration
type APIConfig struct {
	Port int `validate:"gt=0,lte=65535"`
}

// RedisConfig holds Redis configuration. An empty Host disables publishing.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	Stream   string
}

// Enabled reports whether crossover events should be published to Redis
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

// Load loads configuration from environment variables
// It automatically loads .env file if it exists in the current directory
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "postgres"),
			URL:             getEnv("DATABASE_URL", ""),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "golden_cross"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			Path:            getEnv("DB_PATH", "golden_cross.db"),
			Table:           getEnv("DB_TABLE", "stock_prices"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 10),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			InsertBatchSize: getEnvAsInt("DB_INSERT_BATCH_SIZE", 1000),
			Connect: RetryConfig{
				MaxAttempts: getEnvAsInt("DB_CONNECT_MAX_ATTEMPTS", 5),
				Delay:       getEnvAsDuration("DB_CONNECT_RETRY_DELAY", 3*time.Second),
				Backoff:     getEnv("DB_CONNECT_BACKOFF", "fixed"),
				MaxDelay:    getEnvAsDuration("DB_CONNECT_MAX_DELAY", 30*time.Second),
			},
		},
		MarketData: MarketDataConfig{
			Provider:    getEnv("MARKET_DATA_PROVIDER", "yahoo"),
			APIKey:      getEnv("MARKET_DATA_API_KEY", ""),
			BaseURL:     getEnv("MARKET_DATA_BASE_URL", ""),
			Timeout:     getEnvAsDuration("MARKET_DATA_TIMEOUT", 15*time.Second),
			Symbols:     getEnvAsStringSlice("MARKET_DATA_SYMBOLS", []string{}),
			SymbolsFile: getEnv("SYMBOLS_FILE", "symbols.csv"),
		},
		Ingest: IngestConfig{
			LookbackDays: getEnvAsInt("INGEST_LOOKBACK_DAYS", 365),
			Workers:      getEnvAsInt("INGEST_WORKERS", 1),
		},
		Scanner: ScannerConfig{
			ShortWindow:    getEnvAsInt("SCAN_SHORT_WINDOW", 20),
			LongWindow:     getEnvAsInt("SCAN_LONG_WINDOW", 50),
			PrevComparison: getEnv("SCAN_PREV_COMPARISON", "lte"),
			Engine:         getEnv("SCAN_ENGINE", "native"),
			Workers:        getEnvAsInt("SCAN_WORKERS", 1),
		},
		API: APIConfig{
			Port: getEnvAsInt("API_PORT", 8090),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Stream:   getEnv("CROSSOVER_STREAM", "crossovers"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	switch c.Database.Driver {
	case "postgres":
		if c.Database.URL == "" && c.Database.Host == "" {
			return fmt.Errorf("DATABASE_URL or DB_HOST is required for the postgres driver")
		}
	case "sqlite":
		if c.Database.URL == "" && c.Database.Path == "" {
			return fmt.Errorf("DB_PATH is required for the sqlite driver")
		}
	}
	if c.MarketData.Provider == "polygon" && c.MarketData.APIKey == "" {
		return fmt.Errorf("MARKET_DATA_API_KEY is required for the polygon provider")
	}
	if c.Redis.Enabled() && c.Redis.Stream == "" {
		return fmt.Errorf("CROSSOVER_STREAM cannot be empty when REDIS_HOST is set")
	}
	return nil
}

// DSN returns the driver-specific connection string
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	if d.Driver == "sqlite" {
		return d.Path
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Database,
		d.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Split by comma and trim spaces
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
