package util

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/afriplan/takeoff/pkg/logger"
)

// LoadEnv loads variables from a .env file when one exists. Missing files
// are fine; deployed environments configure through real env vars.
func LoadEnv() {
	if _, err := os.Stat(".env"); err != nil {
		return
	}
	if err := godotenv.Load(); err != nil {
		logger.Warn("Could not load .env file", "err", err)
	}
}

// GetEnv returns the value of the environment variable or an empty string.
func GetEnv(key string) string {
	return os.Getenv(key)
}

// GetEnvString returns the value of the environment variable or the
// fallback when unset.
func GetEnvString(key string, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// GetEnvNumeric returns the integer value of the environment variable or
// the fallback when unset or unparsable.
func GetEnvNumeric(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// GetEnvBool returns the boolean value of the environment variable or the
// fallback when unset or unparsable.
func GetEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
