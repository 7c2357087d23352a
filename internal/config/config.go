package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// Config is constructed once at process start and injected into each
// component; nothing reads the environment after Load returns.
type Config struct {
	ServerPort         string
	DatabaseURL        string
	RedisURL           string
	ShareBaseURL       string
	ShareTTLDays       int
	DeviceTokenSecret  string
	DeviceTokenExpiry  time.Duration
	RequireDeviceToken bool
	ShutdownTimeout    time.Duration
}

func LoadConfig() (*Config, error) {
	tokenExpiry, err := time.ParseDuration(getEnv("DEVICE_TOKEN_EXPIRY", "8760h"))
	if err != nil {
		return nil, errors.New("invalid DEVICE_TOKEN_EXPIRY format")
	}

	cfg := &Config{
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		ShareBaseURL:       os.Getenv("SHARE_BASE_URL"),
		ShareTTLDays:       getEnvAsInt("SHARE_TTL_DAYS", 30),
		DeviceTokenSecret:  os.Getenv("DEVICE_TOKEN_SECRET"),
		DeviceTokenExpiry:  tokenExpiry,
		RequireDeviceToken: getEnvAsBool("REQUIRE_DEVICE_TOKEN", false),
		ShutdownTimeout:    10 * time.Second,
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.RequireDeviceToken && cfg.DeviceTokenSecret == "" {
		return nil, errors.New("DEVICE_TOKEN_SECRET is required when REQUIRE_DEVICE_TOKEN is set")
	}

	return cfg, nil
}

// Helper: get env with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}
