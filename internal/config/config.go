package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Dispatch DispatchConfig
}

type ServerConfig struct {
	Addr  string
	Debug bool
}

type DatabaseConfig struct {
	Path string
}

type AuthConfig struct {
	// Secret signs and verifies bearer tokens (HS256).
	Secret string
	// Audiences is the allow-list of recognized tenants, fixed for the
	// process lifetime.
	Audiences []string
}

type DispatchConfig struct {
	Interval    time.Duration
	Workers     int
	SendTimeout time.Duration
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:  getEnv("ADDR", ":8080"),
			Debug: getEnvAsBool("DEBUG", false),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "pushflow.db"),
		},
		Auth: AuthConfig{
			Secret:    getEnv("AUTH_SECRET", ""),
			Audiences: splitList(getEnv("AUTH_AUDIENCES", "")),
		},
		Dispatch: DispatchConfig{
			Interval:    getEnvAsDuration("DISPATCH_INTERVAL", 15*time.Second),
			Workers:     getEnvAsInt("DISPATCH_WORKERS", 8),
			SendTimeout: getEnvAsDuration("SEND_TIMEOUT", 30*time.Second),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
