package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	InvoicePolicyAppend       = "append"
	InvoicePolicySkipExisting = "skip-existing"
)

type Config struct {
	DatabaseURL   string
	Port          string
	ChunkSize     int
	MaxRetries    int
	RetryInterval time.Duration
	InvoicePolicy string
	LogLevel      string
	LogFormat     string
	DBLogLevel    string
	DBMaxOpenConn int
}

// LoadEnv reads a .env file when one exists. A missing file is not an error.
func LoadEnv(files ...string) {
	_ = godotenv.Load(files...)
}

// New builds the configuration from the environment.
func New() (*Config, error) {
	cfg := &Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		Port:          getEnv("PORT", "8080"),
		InvoicePolicy: getEnv("INVOICE_POLICY", InvoicePolicyAppend),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),
		DBLogLevel:    getEnv("DB_LOG_LEVEL", "error"),
	}

	var err error
	cfg.ChunkSize, err = getEnvAsInt("INGEST_CHUNK_SIZE", 100)
	if err != nil {
		return nil, err
	}

	cfg.MaxRetries, err = getEnvAsInt("INGEST_MAX_RETRIES", 3)
	if err != nil {
		return nil, err
	}

	retryMs, err := getEnvAsInt("INGEST_RETRY_INTERVAL_MS", 200)
	if err != nil {
		return nil, err
	}
	cfg.RetryInterval = time.Duration(retryMs) * time.Millisecond

	cfg.DBMaxOpenConn, err = getEnvAsInt("DB_MAX_OPEN_CONNS", 10)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that may also have been overridden by flags.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("invalid chunk size %d: must be positive", c.ChunkSize)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("invalid max retries %d: must not be negative", c.MaxRetries)
	}
	switch c.InvoicePolicy {
	case InvoicePolicyAppend, InvoicePolicySkipExisting:
	default:
		return fmt.Errorf("invalid value for INVOICE_POLICY: expected %q or %q, got '%s'",
			InvoicePolicyAppend, InvoicePolicySkipExisting, c.InvoicePolicy)
	}
	return nil
}

// RequireDatabase fails when no database URL is configured.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is not set")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	valueStr := strings.TrimSpace(os.Getenv(key))
	if valueStr == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: expected an integer, got '%s'", key, valueStr)
	}

	return value, nil
}
