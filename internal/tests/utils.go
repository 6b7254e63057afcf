package tests

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"

	"github.com/alchemix-finance/alchemist-indexer/internal/config"
)

// GetDbConfigFromEnv builds a database config for tests. Values come from the
// standard ALCHEMIST_DATABASE_* env vars with defaults suitable for a local
// postgres.
func GetDbConfigFromEnv() *config.DatabaseConfig {
	return &config.DatabaseConfig{
		Host:     getEnvOrDefault("ALCHEMIST_DATABASE_HOST", "localhost"),
		Port:     getEnvIntOrDefault("ALCHEMIST_DATABASE_PORT", 5432),
		User:     getEnvOrDefault("ALCHEMIST_DATABASE_USER", "postgres"),
		Password: getEnvOrDefault("ALCHEMIST_DATABASE_PASSWORD", ""),
		DbName:   getEnvOrDefault("ALCHEMIST_DATABASE_DB_NAME", "alchemist_indexer"),
	}
}

// GenerateTestDbName returns a unique throwaway database name so tests can
// run in parallel without stepping on each other.
func GenerateTestDbName() (string, error) {
	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return "", err
	}
	return fmt.Sprintf("test_%s", hex.EncodeToString(suffix)), nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
