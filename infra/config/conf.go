// Package config reads the small amount of environment configuration the
// command line tools need.
package config

import (
	"os"
	"strconv"
)

// AppConfig carries the process-wide settings for the mapping tools.
type AppConfig struct {
	DefaultGateway string
	Development    bool
	LoggingLevel   string
}

var appConfigInstance *AppConfig

// GetAppConfig loads the settings from the environment on first use and
// returns the same instance afterwards.
func GetAppConfig() *AppConfig {
	if appConfigInstance == nil {
		appConfigInstance = &AppConfig{
			DefaultGateway: GetEnv("MAPPER_GATEWAY", "payfor"),
			Development:    GetBoolEnv("DEVELOPMENT", false),
			LoggingLevel:   GetEnv("LOGGING_LEVEL", "info"),
		}
	}
	return appConfigInstance
}

// GetEnv reads key from the environment, falling back to defaultValue when
// the variable is unset or empty.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetBoolEnv parses key as a boolean. Unset or unparsable values fall back
// to defaultValue.
func GetBoolEnv(key string, defaultValue bool) bool {
	parsed, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return parsed
}

// GetIntEnv parses key as an integer. Unset or unparsable values fall back
// to defaultValue.
func GetIntEnv(key string, defaultValue int) int {
	parsed, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return parsed
}
