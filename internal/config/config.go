package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ProviderYandex = "yandex"
	ProviderGemini = "gemini"

	TelegramPolling = "polling"
	TelegramWebhook = "webhook"
	TelegramNATS    = "nats"
)

type Config struct {
	Port     int
	LogLevel string

	BotToken              string
	TelegramAPIURL        string
	TelegramMode          string
	TelegramWebhookSecret string

	Provider        string
	YandexAPIKey    string
	FolderID        string
	YandexModel     string
	CompletionMode  string
	Temperature     float64
	MaxTokens       int
	RequestTimeout  time.Duration
	PollInterval    time.Duration
	PollMaxAttempts int
	GeminiAPIKey    string
	GeminiModel     string
	OutputFormat    string

	CategorySelection bool
	CategorySource    string
	CategoryIndexPath string

	SessionTTL       time.Duration
	RedisURL         string
	NatsURL          string
	NatsToken        string
	DatabaseURL      string
	GoogleMapsAPIKey string
	APIToken         string
}

func Load() Config {
	return Config{
		Port:     envInt("WAYFARER_PORT", 8760),
		LogLevel: envStr("LOG_LEVEL", "info"),

		BotToken:              envStr("BOT_TOKEN", ""),
		TelegramAPIURL:        envStr("TELEGRAM_API_URL", "https://api.telegram.org"),
		TelegramMode:          envStr("TELEGRAM_MODE", TelegramPolling),
		TelegramWebhookSecret: envStr("TELEGRAM_WEBHOOK_SECRET", ""),

		Provider:        envStr("COMPLETION_PROVIDER", ProviderYandex),
		YandexAPIKey:    envStr("YANDEX_GPT_API_KEY", ""),
		FolderID:        envStr("FOLDER_ID", ""),
		YandexModel:     envStr("YANDEX_GPT_MODEL", "yandexgpt/latest"),
		CompletionMode:  envStr("COMPLETION_MODE", "sync"),
		Temperature:     envFloat("COMPLETION_TEMPERATURE", 0.1),
		MaxTokens:       envInt("COMPLETION_MAX_TOKENS", 2000),
		RequestTimeout:  envDuration("REQUEST_TIMEOUT", 45*time.Second),
		PollInterval:    envDuration("POLL_INTERVAL", 3*time.Second),
		PollMaxAttempts: envInt("POLL_MAX_ATTEMPTS", 40),
		GeminiAPIKey:    envStr("GEMINI_API_KEY", ""),
		GeminiModel:     envStr("GEMINI_MODEL", "gemini-2.0-flash"),
		OutputFormat:    envStr("OUTPUT_FORMAT", "json"),

		CategorySelection: envBool("CATEGORY_SELECTION", false),
		CategorySource:    envStr("CATEGORY_SOURCE", "file"),
		CategoryIndexPath: envStr("CATEGORY_INDEX_PATH", "places.json"),

		SessionTTL:       envDuration("SESSION_TTL", time.Hour),
		RedisURL:         envStr("REDIS_URL", ""),
		NatsURL:          envStr("NATS_URL", ""),
		NatsToken:        envStr("NATS_TOKEN", ""),
		DatabaseURL:      envStr("DATABASE_URL", ""),
		GoogleMapsAPIKey: envStr("GOOGLE_MAPS_API_KEY", ""),
		APIToken:         envStr("WAYFARER_API_TOKEN", ""),
	}
}

// ConfigError lists every problem found by Validate.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// Validate checks what the serve command needs. requireBot is false for
// commands that never talk to Telegram.
func (c Config) Validate(requireBot bool) error {
	var problems []string
	missing := func(key string) { problems = append(problems, key+" is required") }

	if requireBot && c.BotToken == "" {
		missing("BOT_TOKEN")
	}

	switch c.Provider {
	case ProviderYandex:
		if c.YandexAPIKey == "" {
			missing("YANDEX_GPT_API_KEY")
		}
		if c.FolderID == "" {
			missing("FOLDER_ID")
		}
		if c.CompletionMode != "sync" && c.CompletionMode != "async" {
			problems = append(problems, fmt.Sprintf("COMPLETION_MODE must be sync or async, got %q", c.CompletionMode))
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			missing("GEMINI_API_KEY")
		}
	default:
		problems = append(problems, fmt.Sprintf("COMPLETION_PROVIDER must be yandex or gemini, got %q", c.Provider))
	}

	switch c.TelegramMode {
	case TelegramPolling, TelegramWebhook:
	case TelegramNATS:
		if c.NatsURL == "" {
			missing("NATS_URL (TELEGRAM_MODE=nats)")
		}
	default:
		problems = append(problems, fmt.Sprintf("TELEGRAM_MODE must be polling, webhook or nats, got %q", c.TelegramMode))
	}

	if c.OutputFormat != "json" && c.OutputFormat != "text" {
		problems = append(problems, fmt.Sprintf("OUTPUT_FORMAT must be json or text, got %q", c.OutputFormat))
	}
	if c.CategorySource != "file" && c.CategorySource != "postgres" {
		problems = append(problems, fmt.Sprintf("CATEGORY_SOURCE must be file or postgres, got %q", c.CategorySource))
	}
	if c.PollMaxAttempts <= 0 {
		problems = append(problems, "POLL_MAX_ATTEMPTS must be positive")
	}

	if len(problems) > 0 {
		return &ConfigError{Problems: problems}
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
