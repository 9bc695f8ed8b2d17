package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Persistence
	DatabasePath string

	// Schedule configuration
	IngestSchedule string // cron expression for periodic ingestion
	TimeZone       string

	// Source adapter credentials
	YouTubeAPIKey        string
	RedditClientID       string
	RedditClientSecret   string
	MicroblogBearerToken string

	// Per-call bounds
	SourceTimeout    time.Duration
	SourceRatePerMin int

	// Sentiment inference backend
	InferenceURL      string
	InferenceToken    string
	InferenceTimeout  time.Duration
	UseWindowExtracts bool // noun+descriptor aspect extraction instead of keyword matching

	// Alerting
	AlertRulesFile     string
	AlertThreshold     float64
	AlertWatchKeywords []string

	// Dashboard aggregation
	DashboardTTL time.Duration
	SampleLimit  int
	AspectTopN   int

	// Raw batch archive (optional)
	ArchiveAccount   string
	ArchiveContainer string

	// Alert delivery (optional)
	WebhookURL        string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:  getEnv("PORT", "8080"),
		Debug: getBoolEnv("DEBUG", false),

		DatabasePath: getEnv("DATABASE_PATH", "data/brandpulse.db"),

		IngestSchedule: getEnv("INGEST_SCHEDULE", "0 0 */6 * * *"),
		TimeZone:       getEnv("TIMEZONE", "UTC"),

		YouTubeAPIKey:        getEnv("YOUTUBE_API_KEY", ""),
		RedditClientID:       getEnv("REDDIT_CLIENT_ID", ""),
		RedditClientSecret:   getEnv("REDDIT_CLIENT_SECRET", ""),
		MicroblogBearerToken: getEnv("MICROBLOG_BEARER_TOKEN", ""),

		SourceTimeout:    getDurationEnv("SOURCE_TIMEOUT", 30*time.Second),
		SourceRatePerMin: getIntEnv("SOURCE_RATE_PER_MIN", 60),

		InferenceURL:      getEnv("INFERENCE_URL", ""),
		InferenceToken:    getEnv("INFERENCE_TOKEN", ""),
		InferenceTimeout:  getDurationEnv("INFERENCE_TIMEOUT", 15*time.Second),
		UseWindowExtracts: getBoolEnv("USE_WINDOW_ASPECT_EXTRACTION", true),

		AlertRulesFile: getEnv("ALERT_RULES_FILE", ""),
		AlertThreshold: getFloatEnv("ALERT_THRESHOLD", 0.3),
		AlertWatchKeywords: getSliceEnv("ALERT_WATCH_KEYWORDS", []string{
			"broken", "refund", "scam", "defective", "fraud", "lawsuit",
		}),

		DashboardTTL: getDurationEnv("DASHBOARD_TTL", 10*time.Second),
		SampleLimit:  getIntEnv("SAMPLE_LIMIT", 200),
		AspectTopN:   getIntEnv("ASPECT_TOP_N", 6),

		ArchiveAccount:   getEnv("ARCHIVE_STORAGE_ACCOUNT", ""),
		ArchiveContainer: getEnv("ARCHIVE_STORAGE_CONTAINER", "raw-mentions"),

		WebhookURL:        getEnv("ALERT_WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH must not be empty")
	}

	if c.AlertThreshold < 0 || c.AlertThreshold > 1 {
		return fmt.Errorf("ALERT_THRESHOLD must be in [0,1], got %f", c.AlertThreshold)
	}

	if c.DashboardTTL <= 0 {
		return fmt.Errorf("DASHBOARD_TTL must be positive")
	}

	if c.SampleLimit <= 0 {
		return fmt.Errorf("SAMPLE_LIMIT must be positive")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
