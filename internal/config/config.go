package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port string

	// Database configuration
	DBType            string // mysql, postgres, sqlite, sqlserver, etc.
	DBHost            string
	DBPort            string
	DBDatabase        string
	DBUser            string
	DBPassword        string
	DBConnectionLimit int

	// Authorizer configuration
	AuthzURL      string
	AuthzClientID string

	// Sync feature gate (percentage rollout)
	SyncRolloutPercent   int
	SyncRolloutAllowlist []string
}

// Load loads configuration from the environment, reading an optional .env
// file first.
func Load() (*Config, error) {
	// Missing .env is fine; real environments set variables directly.
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", "3000"),
		DBType:             getEnv("DB_TYPE", "mysql"),
		DBHost:             getEnv("DB_HOST", "localhost"),
		DBPort:             getEnv("DB_PORT", "3306"),
		DBDatabase:         getEnv("DB_DATABASE", ""),
		DBUser:             getEnv("DB_USER", ""),
		DBPassword:         getEnv("DB_PASSWORD", ""),
		DBConnectionLimit:  getEnvAsInt("DB_CONNECTION_LIMIT", 5),
		AuthzURL:           getEnv("AUTHZ_URL", ""),
		AuthzClientID:      getEnv("AUTHZ_CLIENT_ID", ""),
		SyncRolloutPercent: getEnvAsInt("SYNC_ROLLOUT_PERCENT", 100),
	}

	if allow := getEnv("SYNC_ROLLOUT_ALLOWLIST", ""); allow != "" {
		for _, id := range strings.Split(allow, ",") {
			id = strings.TrimSpace(id)
			if id != "" {
				cfg.SyncRolloutAllowlist = append(cfg.SyncRolloutAllowlist, id)
			}
		}
	}

	// Validate required fields
	if cfg.DBDatabase == "" {
		return nil, fmt.Errorf("DB_DATABASE is required")
	}
	if cfg.DBType != "sqlite" && cfg.DBUser == "" {
		return nil, fmt.Errorf("DB_USER is required")
	}
	if cfg.AuthzURL == "" {
		return nil, fmt.Errorf("AUTHZ_URL is required")
	}
	if cfg.AuthzClientID == "" {
		return nil, fmt.Errorf("AUTHZ_CLIENT_ID is required")
	}
	if cfg.SyncRolloutPercent < 0 || cfg.SyncRolloutPercent > 100 {
		return nil, fmt.Errorf("SYNC_ROLLOUT_PERCENT must be between 0 and 100")
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
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
