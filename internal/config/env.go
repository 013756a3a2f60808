// Package config reads service settings from the environment and the
// tier rules file.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// GetEnv returns the environment variable or a default
func GetEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt returns the environment variable as int or a default
func GetEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(GetEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

// GetEnvDuration parses values like "30m" or falls back to the default
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(GetEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

// GetEnvList splits a comma separated variable, dropping blanks
func GetEnvList(key string) []string {
	raw := GetEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
