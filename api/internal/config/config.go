package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Port     string `validate:"required,numeric"`
	Provider string `validate:"oneof=openrouter gemini"`

	OpenRouterAPIKey string
	OpenRouterModel  string `validate:"required"`
	OpenRouterURL    string `validate:"required,url"`

	GeminiAPIKey string
	GeminiModel  string `validate:"required"`

	// Public base URL of this service (ngrok tunnel in development).
	// Used as the Telegram webhook base and as the OpenRouter HTTP-Referer.
	PublicBaseURL string `validate:"omitempty,url"`

	TelegramBotToken string

	RequestTimeout time.Duration `validate:"gt=0s"`
	MaxUploadBytes int64         `validate:"gt=0"`
	LogLevel       string        `validate:"oneof=debug info warn error"`
}

var validate = validator.New()

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over .env entries.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	timeout, err := time.ParseDuration(getEnv("REQUEST_TIMEOUT", "60s"))
	if err != nil {
		return nil, fmt.Errorf("REQUEST_TIMEOUT: %w", err)
	}
	maxUpload, err := strconv.ParseInt(getEnv("MAX_UPLOAD_BYTES", "10485760"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES: %w", err)
	}

	cfg := &Config{
		Port:     getEnv("PORT", "8000"),
		Provider: strings.ToLower(getEnv("PROVIDER", "openrouter")),

		OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterModel:  getEnv("OPENROUTER_MODEL", "openai/gpt-4o-mini"),
		OpenRouterURL:    getEnv("OPENROUTER_URL", "https://openrouter.ai/api/v1/chat/completions"),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		PublicBaseURL: getEnv("PUBLIC_BASE_URL", getEnv("NGROK_PUBLIC_URL", "")),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),

		RequestTimeout: timeout,
		MaxUploadBytes: maxUpload,
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
