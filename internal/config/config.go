package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the proxy.
type Config struct {
	// Server
	Port string

	// SiriusXM credentials, resolved through a Secrets provider
	Username string
	Password string

	// Retry budgets. Loaded but not read elsewhere: the sxm package uses its
	// own fixed budgets of 5.
	MaxSessionAttempts int
	MaxSegmentAttempts int

	// Telemetry
	RedisURL string

	// Debug surface
	AdminAPIKey string

	// Loaded but not read elsewhere: sxm.NewClient uses a fixed 15s timeout.
	RequestTimeout time.Duration
}

// Load reads configuration from environment variables and the given
// Secrets provider. Username/Password always come through the provider,
// never from an environment variable read by Load itself, so a TOML secrets
// file or a future vault provider can be swapped in without touching the
// rest of config.
func Load(secrets Secrets) (*Config, error) {
	username, password, err := secrets.Credentials()
	if err != nil {
		return nil, fmt.Errorf("config: failed to load credentials: %w", err)
	}
	if username == "" || password == "" {
		return nil, fmt.Errorf("config: SiriusXM username/password are required")
	}

	cfg := &Config{
		Port:                getEnv("PORT", "9999"),
		Username:            username,
		Password:            password,
		MaxSessionAttempts:  getEnvInt("MAX_SESSION_ATTEMPTS", 5),
		MaxSegmentAttempts:  getEnvInt("MAX_SEGMENT_ATTEMPTS", 5),
		RedisURL:            getEnv("REDIS_URL", ""),
		AdminAPIKey:         getEnv("ADMIN_API_KEY", ""),
	}

	timeout, err := time.ParseDuration(getEnv("REQUEST_TIMEOUT", "15s"))
	if err != nil {
		return nil, fmt.Errorf("config: invalid REQUEST_TIMEOUT: %w", err)
	}
	cfg.RequestTimeout = timeout

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
