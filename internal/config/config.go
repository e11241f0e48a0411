package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration
type Config struct {
	Port         string
	DatabasePath string // SQLite file; empty disables the structured backend
	DataDir      string // flat key-value store directory (legacy/fallback mode)
	RedisURL     string // optional; enables cross-instance notifications and token window

	// Gemini summary generation
	GeminiAPIKey         string
	TokenThresholdPerMin int
	SummaryOffline       bool // force offline mode (queue every request)

	// Prompt packs
	PromptsPath string // optional on-disk pack watched for changes; embedded pack otherwise

	// Feedback relay
	FeedbackURL string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "3001"),
		DatabasePath: getEnv("NUUKO_DB_PATH", "nuuko.db"),
		DataDir:      getEnv("NUUKO_DATA_DIR", ".nuuko"),
		RedisURL:     getEnv("REDIS_URL", ""),

		GeminiAPIKey:         getEnv("GEMINI_API_KEY", ""),
		TokenThresholdPerMin: getIntEnv("NUUKO_SUMMARY_TOKEN_THRESHOLD", 200000),
		SummaryOffline:       getBoolEnv("NUUKO_SUMMARY_OFFLINE", false),

		PromptsPath: getEnv("NUUKO_PROMPTS_PATH", ""),

		FeedbackURL: getEnv("NUUKO_FEEDBACK_URL", ""),
	}
}

// IsProduction reports whether the server runs with production logging.
func IsProduction() bool {
	return strings.ToLower(os.Getenv("ENVIRONMENT")) == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
