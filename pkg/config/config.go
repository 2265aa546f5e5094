package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all process configuration. Environment variables are read
// here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External data sources
	Treasury TreasuryConfig
	Futures  FuturesConfig
	CME      CMEConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	URL string

	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration. Redis is optional; when disabled
// the snapshot cache is a no-op and the engine still runs.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// TreasuryConfig holds the bond-data source endpoint. Authentication and
// pagination are the gateway's concern, not the core's.
type TreasuryConfig struct {
	BaseURL    string
	Timeout    time.Duration
	RatePerSec float64 // request budget against the gateway
	RateBurst  int
}

// FuturesConfig holds the futures-data source endpoints.
type FuturesConfig struct {
	BaseURL    string
	StreamURL  string // websocket push endpoint; empty disables streaming
	Timeout    time.Duration
	RatePerSec float64
	RateBurst  int
}

// CMEConfig holds the deliverable-basket publication endpoint.
type CMEConfig struct {
	BaseURL string
	Timeout time.Duration
}

// Load reads configuration from environment variables, trying .env files
// first. Only this function calls os.Getenv.
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8086"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Treasury: TreasuryConfig{
			BaseURL:    getEnv("TREASURY_BASE_URL", "https://localhost:5000"),
			Timeout:    getEnvAsDuration("TREASURY_TIMEOUT", "20s"),
			RatePerSec: getEnvAsFloat("TREASURY_RATE_PER_SEC", 8),
			RateBurst:  getEnvAsInt("TREASURY_RATE_BURST", 4),
		},

		Futures: FuturesConfig{
			BaseURL:    getEnv("FUTURES_BASE_URL", "https://localhost:5000"),
			StreamURL:  getEnv("FUTURES_STREAM_URL", ""),
			Timeout:    getEnvAsDuration("FUTURES_TIMEOUT", "20s"),
			RatePerSec: getEnvAsFloat("FUTURES_RATE_PER_SEC", 8),
			RateBurst:  getEnvAsInt("FUTURES_RATE_BURST", 4),
		},

		CME: CMEConfig{
			BaseURL: getEnv("CME_BASE_URL", "https://www.cmegroup.com"),
			Timeout: getEnvAsDuration("CME_TIMEOUT", "30s"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}
	if c.Treasury.BaseURL == "" {
		return fmt.Errorf("TREASURY_BASE_URL is required")
	}
	if c.Futures.BaseURL == "" {
		return fmt.Errorf("FUTURES_BASE_URL is required")
	}
	return nil
}

// loadEnvFile tries to load .env from a few likely locations.
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}
	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}
