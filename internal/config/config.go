package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the application configuration.
type Config struct {
	ServerPort     int
	DatabasePath   string
	AppEnv         string // "development" or "production"
	JWTSecret      string
	AllowedOrigins []string

	// Completion API settings.
	OpenAIAPIKey  string
	OpenAIBaseURL string
	ChatModel     string

	// Background maintenance settings.
	JanitorSchedule string // standard cron expression
	OrphanGraceMins int
}

// Load loads configuration from environment variables or sets defaults.
func Load() (*Config, error) {
	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, err
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}

	graceStr := getEnv("ORPHAN_GRACE_MINUTES", "10")
	grace, err := strconv.Atoi(graceStr)
	if err != nil {
		return nil, err
	}

	return &Config{
		ServerPort:      port,
		DatabasePath:    getEnv("DATABASE_PATH", "./converse.db"),
		AppEnv:          getEnv("APP_ENV", "development"),
		JWTSecret:       secret,
		AllowedOrigins:  strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:3000"), ","),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		ChatModel:       getEnv("CHAT_MODEL", "gpt-3.5-turbo"),
		JanitorSchedule: getEnv("JANITOR_SCHEDULE", "@hourly"),
		OrphanGraceMins: grace,
	}, nil
}

// IsDevelopment reports whether the app runs with verbose client-facing errors.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
