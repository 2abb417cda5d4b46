package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	TokenSecret string // Required: shared HS256 secret for verifying access tokens
	TokenIssuer string // Optional: expected issuer claim (default: bartab-auth)

	DatabaseFile       string        // Optional: path to SQLite database file (default: ./tenancy.db)
	PrefsFile          string        // Optional: path to org-selection cache file (default: in-memory only)
	TrialLength        time.Duration // Optional: trial subscription length (default: 14 days)
	InviteCodeValidity time.Duration // Optional: lifetime of minted invite codes (default: 7 days)

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	return Config{
		TokenSecret: os.Getenv("TENANCY_TOKEN_SECRET"),
		TokenIssuer: getEnvOrDefault("TENANCY_TOKEN_ISSUER", "bartab-auth"),

		DatabaseFile:       getEnvOrDefault("TENANCY_DATABASE_FILE", "tenancy.db"),
		PrefsFile:          os.Getenv("TENANCY_PREFS_FILE"), // Optional
		TrialLength:        getEnvDurationOrDefault("TENANCY_TRIAL_LENGTH", 14*24*time.Hour),
		InviteCodeValidity: getEnvDurationOrDefault("TENANCY_INVITE_CODE_VALIDITY", 7*24*time.Hour),

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer days, which reads better for trial lengths
	if days, err := strconv.Atoi(value); err == nil {
		return time.Duration(days) * 24 * time.Hour
	}

	return defaultValue
}
