// Package config provides application configuration loaded from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	App       AppConfig
	Reconcile ReconcileConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	CORSAllowedOrigins []string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
}

// DatabaseConfig names the database. A postgres:// URL selects PostgreSQL,
// anything else is a SQLite path.
type DatabaseConfig struct {
	URL string
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Env string
}

// Production reports whether internal error detail must be hidden from clients.
func (a AppConfig) Production() bool {
	return strings.EqualFold(a.Env, "production")
}

// ReconcileConfig controls the background consistency check.
type ReconcileConfig struct {
	Enabled  bool
	Interval time.Duration
}

// Load reads an optional .env file (or the given files), then the environment.
// Variables already set in the environment win over the file.
func Load(files ...string) *Config {
	_ = godotenv.Load(files...)
	return FromEnv()
}

// FromEnv reads configuration from environment variables.
// It uses sensible defaults for local development.
func FromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               getEnv("HTTP_PORT", "8080"),
			CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
			ReadTimeout:        getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:       getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:        getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", "./data/cocoa.db"),
		},
		App: AppConfig{
			Env: getEnv("APP_ENV", "development"),
		},
		Reconcile: ReconcileConfig{
			Enabled:  getEnvBool("RECONCILE_ENABLED", true),
			Interval: getEnvDuration("RECONCILE_INTERVAL", time.Hour),
		},
	}
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool accepts "1", "true", "yes" as true; everything else is false.
func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value == "1" || value == "true" || value == "yes"
}

// getEnvDuration accepts Go durations ("90s", "1h") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping empty items.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
