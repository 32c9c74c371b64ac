package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the configuration for the application.
type Config struct {
	SupabaseURL     string
	SupabaseAnonKey string

	// Management API token, only needed for provisioning commands.
	SupabaseAccessToken string

	// AI providers. At least one key must be set for recipe generation
	// and clipping; both empty disables those features.
	OpenRouterAPIKey string
	GeminiAPIKey     string

	// Identification sent to OpenRouter with every request.
	SiteURL  string
	SiteName string

	// Local database for bot sessions and metrics.
	DatabasePath string

	// Telegram Config (required for the bot binary only)
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
	AdminTelegramID        int64
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	supabaseURL := os.Getenv("SUPABASE_URL")
	if supabaseURL == "" {
		return nil, fmt.Errorf("SUPABASE_URL environment variable not set")
	}

	supabaseAnonKey := os.Getenv("SUPABASE_ANON_KEY")
	if supabaseAnonKey == "" {
		return nil, fmt.Errorf("SUPABASE_ANON_KEY environment variable not set")
	}

	siteName := os.Getenv("SITE_NAME")
	if siteName == "" {
		siteName = "SmartPlanner"
	}

	databasePath := os.Getenv("DATABASE_PATH")
	if databasePath == "" {
		databasePath = "data/smartplanner.db"
	}

	var allowedIDs []int64
	for _, part := range strings.Split(os.Getenv("TELEGRAM_ALLOWED_USER_IDS"), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_ALLOWED_USER_IDS entry %q: %w", part, err)
		}
		allowedIDs = append(allowedIDs, id)
	}

	var adminID int64
	if s := os.Getenv("ADMIN_TELEGRAM_ID"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID %q: %w", s, err)
		}
		adminID = id
	}

	return &Config{
		SupabaseURL:            strings.TrimRight(supabaseURL, "/"),
		SupabaseAnonKey:        supabaseAnonKey,
		SupabaseAccessToken:    os.Getenv("SUPABASE_ACCESS_TOKEN"),
		OpenRouterAPIKey:       os.Getenv("OPENROUTER_API_KEY"),
		GeminiAPIKey:           os.Getenv("GEMINI_API_KEY"),
		SiteURL:                os.Getenv("SITE_URL"),
		SiteName:               siteName,
		DatabasePath:           databasePath,
		TelegramBotToken:       os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL:     os.Getenv("TELEGRAM_WEBHOOK_URL"),
		TelegramAllowedUserIDs: allowedIDs,
		AdminTelegramID:        adminID,
	}, nil
}

// HasAIProvider reports whether any AI generation backend is configured.
func (c *Config) HasAIProvider() bool {
	return c.OpenRouterAPIKey != "" || c.GeminiAPIKey != ""
}
