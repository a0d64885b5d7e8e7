package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the application
type Config struct {
	Port               string
	AllowedOrigins     []string
	LogLevel           string
	DatabaseURL        string
	DatabaseReadURL    string // Read replica URL for feed and report queries
	RedisURL           string
	JWTSecret          string
	Environment        string
	CrownSweepInterval time.Duration // 0 disables the background crown sweep
	SeasonStart        *time.Time    // Leaderboard only counts captures from this instant
	MetricsEnabled     bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		AllowedOrigins:  parseOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:5174")),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		DatabaseReadURL: getEnv("DATABASE_READ_URL", getEnv("DATABASE_URL", "")), // Falls back to write DB if not set
		RedisURL:        getEnv("REDIS_URL", ""),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		Environment:     getEnv("ENVIRONMENT", "production"),
		MetricsEnabled:  getBoolEnv("METRICS_ENABLED", true),
	}

	interval, err := getDurationEnv("CROWN_SWEEP_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.CrownSweepInterval = interval

	if raw := os.Getenv("SEASON_START"); raw != "" {
		start, err := parseSeasonStart(raw)
		if err != nil {
			return nil, err
		}
		cfg.SeasonStart = &start
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks settings that must hold outside local development
func (c *Config) Validate() error {
	if c.IsDevelopment() {
		return nil
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required in %s", c.Environment)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in %s", c.Environment)
	}
	return nil
}

// IsDevelopment reports whether the service runs locally
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// UseMemoryStore reports whether to run without PostgreSQL
func (c *Config) UseMemoryStore() bool {
	return c.IsDevelopment() && c.DatabaseURL == ""
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// parseOrigins parses comma-separated origins into a slice
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s %q: expected a non-negative duration such as 1m", key, value)
	}
	return d, nil
}

// parseSeasonStart accepts RFC 3339 timestamps or plain dates (UTC midnight)
func parseSeasonStart(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid SEASON_START %q: expected YYYY-MM-DD or RFC 3339", raw)
	}
	return t, nil
}
