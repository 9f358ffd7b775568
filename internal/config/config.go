package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/cesargomez89/karaqueue/internal/constants"
)

// Config holds all application configuration
type Config struct {
	Port            string
	DBPath          string
	LogLevel        string
	LogFormat       string
	RedisAddr       string
	RedisPassword   string
	RedisChannel    string
	CatalogCacheTTL string
}

// Load loads configuration from environment variables with defaults. A .env
// file in the working directory, when present, seeds variables that are not
// already set.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:            getEnv("PORT", constants.DefaultPort),
		DBPath:          getEnv("DB_PATH", constants.DefaultDBPath),
		LogLevel:        getEnv("LOG_LEVEL", constants.DefaultLogLevel),
		LogFormat:       getEnv("LOG_FORMAT", constants.DefaultLogFormat),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisChannel:    getEnv("REDIS_CHANNEL", constants.DefaultRedisChannel),
		CatalogCacheTTL: getEnv("CATALOG_CACHE_TTL", constants.DefaultCacheTTL.String()),
	}
}

// CacheTTL returns the parsed catalog cache TTL. Call Validate first.
func (c *Config) CacheTTL() time.Duration {
	d, err := time.ParseDuration(c.CatalogCacheTTL)
	if err != nil {
		return constants.DefaultCacheTTL
	}
	return d
}

// RedisEnabled reports whether events are published to Redis.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

// Validate validates the configuration and returns detailed errors
func (c *Config) Validate() error {
	var errors []string

	// Validate Port
	if c.Port == "" {
		errors = append(errors, "PORT cannot be empty")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("PORT must be a valid number, got: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("PORT must be between 1 and 65535, got: %d", port))
		}
	}

	// Validate DBPath
	if c.DBPath == "" {
		errors = append(errors, "DB_PATH cannot be empty")
	}

	// Validate LogLevel
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: debug, info, warn, error, got: %s", c.LogLevel))
	}

	// Validate LogFormat
	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.LogFormat] {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: text, json, got: %s", c.LogFormat))
	}

	// Validate Redis
	if c.RedisAddr != "" {
		if !strings.Contains(c.RedisAddr, ":") {
			errors = append(errors, fmt.Sprintf("REDIS_ADDR must be host:port, got: %s", c.RedisAddr))
		}
		if c.RedisChannel == "" {
			errors = append(errors, "REDIS_CHANNEL cannot be empty when REDIS_ADDR is set")
		}
	}

	// Validate CatalogCacheTTL
	if d, err := time.ParseDuration(c.CatalogCacheTTL); err != nil {
		errors = append(errors, fmt.Sprintf("CATALOG_CACHE_TTL must be a duration, got: %s", c.CatalogCacheTTL))
	} else if d < 0 {
		errors = append(errors, fmt.Sprintf("CATALOG_CACHE_TTL cannot be negative, got: %s", c.CatalogCacheTTL))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
