package main

import (
	"os"
	"strconv"
	"time"

	"csafcms/internal/infrastructure/storage/couchdb"
)

// loadCouchConfig reads COUCHDB_* variables over the client defaults.
func loadCouchConfig() couchdb.Config {
	cfg := couchdb.DefaultConfig()
	cfg.Host = getEnv("COUCHDB_HOST", cfg.Host)
	cfg.Port = getEnvInt("COUCHDB_PORT", cfg.Port)
	cfg.SSL = getEnvBool("COUCHDB_SSL", cfg.SSL)
	cfg.DBName = getEnv("COUCHDB_DBNAME", cfg.DBName)
	cfg.User = getEnv("COUCHDB_USER", cfg.User)
	cfg.Password = getEnv("COUCHDB_PASSWORD", cfg.Password)
	cfg.Timeout = getEnvDuration("COUCHDB_TIMEOUT", cfg.Timeout)
	cfg.FindPageSize = getEnvInt("COUCHDB_FIND_PAGE_SIZE", cfg.FindPageSize)
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.Atoi(value); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
