package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv   string
	LogLevel string

	// HTTPPort serves the liveness probes (/health, /ready, /status).
	// Empty disables the probe server.
	HTTPPort string

	API struct {
		URL       string
		Key       string
		GroupName string
	}

	DB struct {
		Host     string
		Port     string
		User     string
		Password string
		Database string
		SSLMode  string
	}

	Sync struct {
		Interval          time.Duration
		Timezone          string
		DateFormat        string
		TimestampFallback string
	}

	Kafka struct {
		Brokers string
		Topic   string
	}
}

func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	cfg := &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		HTTPPort: getEnv("HTTP_PORT", "8097"),
	}
	cfg.API.URL = getEnv("API_URL", "")
	cfg.API.Key = getEnv("API_KEY", "")
	cfg.API.GroupName = getEnv("API_GROUP_NAME", "Digitalisering og Data")

	cfg.DB.Host = getEnv("DB_HOST", "localhost")
	cfg.DB.Port = getEnv("DB_PORT", "5432")
	cfg.DB.User = getEnv("DB_USER", "postgres")
	cfg.DB.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.DB.Database = getEnv("DB_DATABASE", "ticket_warehouse")
	cfg.DB.SSLMode = getEnv("DB_SSLMODE", "disable")

	seconds, err := strconv.Atoi(getEnv("SYNC_INTERVAL_SECONDS", "3600"))
	if err != nil {
		return nil, fmt.Errorf("config: SYNC_INTERVAL_SECONDS: %w", err)
	}
	cfg.Sync.Interval = time.Duration(seconds) * time.Second
	cfg.Sync.Timezone = getEnv("TIMEZONE", "Europe/Copenhagen")
	cfg.Sync.DateFormat = getEnv("DATE_FORMAT", "2006-01-02")
	cfg.Sync.TimestampFallback = getEnv("TIMESTAMP_FALLBACK", "2025-09-01T00:00:00Z")

	cfg.Kafka.Brokers = getEnv("KAFKA_BROKERS", "")
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", "")

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.API.URL == "" || c.API.Key == "" {
		return errors.New("config: API_URL and API_KEY are required")
	}
	if c.DB.Host == "" || c.DB.Database == "" {
		return errors.New("config: DB_HOST and DB_DATABASE are required")
	}
	if c.AppEnv == "production" && c.DB.Password == "" {
		return errors.New("config: in production DB_PASSWORD is required")
	}
	if c.Sync.Interval <= 0 {
		return errors.New("config: SYNC_INTERVAL_SECONDS must be positive")
	}
	if _, err := time.LoadLocation(c.Sync.Timezone); err != nil {
		return fmt.Errorf("config: TIMEZONE: %w", err)
	}
	return nil
}

// Location resolves the configured warehouse timezone. Validate must have
// passed for this to be safe; on error the zone falls back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Sync.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Database, c.DB.SSLMode)
}

func (c *Config) DatabaseURL() string {
	pass := url.QueryEscape(c.DB.Password)
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DB.User, pass, c.DB.Host, c.DB.Port, c.DB.Database, c.DB.SSLMode)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
