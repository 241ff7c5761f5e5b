// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string
	ShortenerURL     string
	ShortenerToken   string
	GeminiAPIKey     string
	GeminiModel      string
	DatabasePath     string
	DomainsFile      string
	LogLevel         string
	LogFormat        string
	AllowedChats     []int64

	RateLimitMax     int
	RateLimitWindow  time.Duration
	RateLimitCleanup time.Duration
	ProbeTimeout     time.Duration
	ShortenerTimeout time.Duration
	PollSchedule     string
}

// Load reads configuration from environment variables. Values from a .env
// file in the working directory are used for variables that are not set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		ShortenerURL:     os.Getenv("API_URL"),
		ShortenerToken:   os.Getenv("AUTH_TOKEN"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModel:      envOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
		DatabasePath:     envOrDefault("DATABASE_PATH", "./data/bot.db"),
		DomainsFile:      os.Getenv("DOMAINS_FILE"),
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		LogFormat:        envOrDefault("LOG_FORMAT", "text"),
		PollSchedule:     envOrDefault("POLL_SCHEDULE", "@every 1m"),
	}

	for _, r := range []struct{ key, val string }{
		{"TELEGRAM_BOT_TOKEN", cfg.TelegramBotToken},
		{"API_URL", cfg.ShortenerURL},
		{"AUTH_TOKEN", cfg.ShortenerToken},
	} {
		if r.val == "" {
			return nil, fmt.Errorf("%s is required", r.key)
		}
	}

	var err error
	if cfg.AllowedChats, err = parseIDList("ALLOWED_CHAT_IDS"); err != nil {
		return nil, err
	}
	if cfg.RateLimitMax, err = envInt("RATE_LIMIT_MAX", 5); err != nil {
		return nil, err
	}
	if cfg.RateLimitWindow, err = envDuration("RATE_LIMIT_WINDOW", time.Minute); err != nil {
		return nil, err
	}
	if cfg.RateLimitCleanup, err = envDuration("RATE_LIMIT_CLEANUP", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ProbeTimeout, err = envDuration("PROBE_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.ShortenerTimeout, err = envDuration("SHORTENER_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SummariesEnabled reports whether a summarizer API key is configured.
func (c *Config) SummariesEnabled() bool {
	return c.GeminiAPIKey != ""
}

// IsChatAllowed checks whether a chat ID is in the allow list.
// Returns true if the allow list is empty (all chats permitted).
func (c *Config) IsChatAllowed(chatID int64) bool {
	if len(c.AllowedChats) == 0 {
		return true
	}
	for _, id := range c.AllowedChats {
		if id == chatID {
			return true
		}
	}
	return false
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", key, raw)
	}
	return v, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive duration", key, raw)
	}
	return d, nil
}

func parseIDList(key string) ([]int64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return nil, nil
	}
	var ids []int64
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chat ID %q in %s: %w", s, key, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
