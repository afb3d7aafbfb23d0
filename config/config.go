// Package config loads service configuration from the environment (and an
// optional .env file), the same way across every environment this service
// runs in.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service configuration values.
type Config struct {
	// Server
	Addr            string
	Env             string
	GracefulTimeout time.Duration

	// Storage
	SQLitePath string
	RedisURL   string

	// Scheduling engine defaults
	SlotIntervalMinutes  int
	MinBufferMinutes     int
	DefaultTravelMinutes int
	MinNoticeHours       int
	MaxAdvanceDays       int
	DefaultPlannerTZ     string

	// Auth
	APIKeyHeader string

	// Rate limiting
	RateLimitEnabled bool
	RateLimitRPM     int
	RateLimitBurst   int

	// Timeouts
	DefaultTimeout time.Duration

	// Body limits
	MaxBodyBytes int64

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables and an optional
// .env file.
func Load() *Config {
	_ = godotenv.Load()

	gracefulSec := getEnvInt("WALKMARKET_GRACEFUL_TIMEOUT_SEC", 15)
	defaultTimeoutSec := getEnvInt("WALKMARKET_DEFAULT_TIMEOUT_SEC", 30)

	return &Config{
		Addr:            getEnv("WALKMARKET_ADDR", ":8080"),
		Env:             getEnv("ENV", "development"),
		GracefulTimeout: time.Duration(gracefulSec) * time.Second,
		SQLitePath:      getEnv("SQLITE_PATH", "walkmarket.db"),
		RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379"),

		SlotIntervalMinutes:  getEnvInt("AVAILABILITY_SLOT_INTERVAL_MINUTES", 30),
		MinBufferMinutes:     getEnvInt("AVAILABILITY_MIN_BUFFER_MINUTES", 15),
		DefaultTravelMinutes: getEnvInt("AVAILABILITY_DEFAULT_TRAVEL_MINUTES", 20),
		MinNoticeHours:       getEnvInt("AVAILABILITY_MIN_NOTICE_HOURS", 2),
		MaxAdvanceDays:       getEnvInt("AVAILABILITY_MAX_ADVANCE_DAYS", 30),
		DefaultPlannerTZ:     getEnv("SERIES_DEFAULT_TIMEZONE", "America/Denver"),

		APIKeyHeader: getEnv("API_KEY_HEADER", "Authorization"),

		RateLimitEnabled: getEnvBool("RATE_LIMIT_ENABLED", true),
		RateLimitRPM:     getEnvInt("RATE_LIMIT_RPM", 120),
		RateLimitBurst:   getEnvInt("RATE_LIMIT_BURST", 20),

		DefaultTimeout: time.Duration(defaultTimeoutSec) * time.Second,
		MaxBodyBytes:   int64(getEnvInt("WALKMARKET_MAX_BODY_BYTES", 1*1024*1024)),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
