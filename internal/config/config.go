package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Backend selects which store implementation the bot runs against.
type Backend string

const (
	BackendBigQuery Backend = "bigquery"
	BackendBolt     Backend = "bolt"
)

// Config holds all environment-driven settings for the binaries.
type Config struct {
	// Telegram
	BotToken    string
	APIBaseURL  string
	PollTimeout time.Duration

	// Webhook mode
	WebhookAddr   string
	WebhookSecret string

	// Storage
	Backend   Backend
	ProjectID string
	DatasetID string
	BoltPath  string

	// Optional seed file overriding the built-in default accounts and
	// categories for new profiles.
	DefaultsPath string

	// Export / sync
	GCSBucket        string
	NotionToken      string
	NotionDatabaseID string

	LogLevel string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; a missing file is not an error.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		BotToken:         os.Getenv("TELEGRAM_BOT_TOKEN"),
		APIBaseURL:       getenvDefault("TELEGRAM_API_URL", "https://api.telegram.org"),
		PollTimeout:      getenvSeconds("POLL_TIMEOUT_SECONDS", 30),
		WebhookAddr:      getenvDefault("WEBHOOK_ADDR", ":8080"),
		WebhookSecret:    os.Getenv("WEBHOOK_SECRET"),
		Backend:          Backend(getenvDefault("STORE_BACKEND", string(BackendBigQuery))),
		ProjectID:        os.Getenv("BIGQUERY_PROJECT_ID"),
		DatasetID:        getenvDefault("BIGQUERY_DATASET_ID", "tengebot"),
		BoltPath:         getenvDefault("BOLT_PATH", "tengebot.db"),
		DefaultsPath:     os.Getenv("DEFAULTS_PATH"),
		GCSBucket:        os.Getenv("GCS_BUCKET"),
		NotionToken:      os.Getenv("NOTION_TOKEN"),
		NotionDatabaseID: os.Getenv("NOTION_DATABASE_ID"),
		LogLevel:         getenvDefault("LOG_LEVEL", "info"),
	}
}

// Validate checks the values the bot daemon cannot run without.
func (c Config) Validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("Validate: TELEGRAM_BOT_TOKEN is required")
	}
	switch c.Backend {
	case BackendBigQuery:
		if c.ProjectID == "" {
			return fmt.Errorf("Validate: BIGQUERY_PROJECT_ID is required for the bigquery backend")
		}
	case BackendBolt:
		if c.BoltPath == "" {
			return fmt.Errorf("Validate: BOLT_PATH is required for the bolt backend")
		}
	default:
		return fmt.Errorf("Validate: unknown STORE_BACKEND %q", c.Backend)
	}
	return nil
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvSeconds(key string, fallback int) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return time.Duration(fallback) * time.Second
}
