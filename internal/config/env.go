package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Server defaults.
const (
	DefaultPort        = 5050
	DefaultDatabaseURL = "jobtracker.db"
)

// Server holds the web server settings read from the environment.
type Server struct {
	Port           int
	DatabaseURL    string
	SeedSampleData bool
}

// FromEnv reads PORT, DATABASE_URL and SEED_SAMPLE_DATA.
func FromEnv() (Server, error) {
	cfg := Server{
		Port:           DefaultPort,
		DatabaseURL:    GetEnvString("DATABASE_URL", DefaultDatabaseURL),
		SeedSampleData: GetEnvBool("SEED_SAMPLE_DATA", true),
	}

	if raw := strings.TrimSpace(os.Getenv("PORT")); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 || port > 65535 {
			return Server{}, fmt.Errorf("config error: PORT must be a TCP port number, got %q", raw)
		}
		cfg.Port = port
	}

	return cfg, nil
}

// Crawl returns the crawl defaults the environment provides: credentials from
// WW_USERNAME and WW_PASSWORD and the store from DATABASE_URL.
func Crawl() Config {
	return Config{
		Username:    os.Getenv("WW_USERNAME"),
		Password:    os.Getenv("WW_PASSWORD"),
		DatabaseURL: GetEnvString("DATABASE_URL", DefaultDatabaseURL),
	}
}

// GetEnvString gets an environment variable as a string with a default value.
func GetEnvString(key string, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt gets an environment variable as an integer with a default value.
func GetEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetEnvBool gets an environment variable as a boolean with a default value.
func GetEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// GetEnvDuration gets an environment variable as a duration with a default value.
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
