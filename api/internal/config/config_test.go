package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var envKeys = []string{
	"PORT", "PROVIDER", "OPENROUTER_API_KEY", "OPENROUTER_MODEL", "OPENROUTER_URL",
	"GEMINI_API_KEY", "GEMINI_MODEL", "PUBLIC_BASE_URL", "NGROK_PUBLIC_URL",
	"TELEGRAM_BOT_TOKEN", "REQUEST_TIMEOUT", "MAX_UPLOAD_BYTES", "LOG_LEVEL",
}

// clearEnv blanks every variable Load reads; t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(missingEnvFile(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8000" || cfg.Provider != "openrouter" {
		t.Errorf("port=%q provider=%q", cfg.Port, cfg.Provider)
	}
	if cfg.OpenRouterAPIKey != "" {
		t.Errorf("api key should default to empty")
	}
	if cfg.RequestTimeout != 60*time.Second {
		t.Errorf("timeout = %v", cfg.RequestTimeout)
	}
	if cfg.MaxUploadBytes != 10<<20 {
		t.Errorf("max upload = %d", cfg.MaxUploadBytes)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
}

func TestLoadFromEnvFile(t *testing.T) {
	clearEnv(t)
	// godotenv does not override variables that already exist, even when empty
	for _, k := range []string{"OPENROUTER_API_KEY", "NGROK_PUBLIC_URL", "REQUEST_TIMEOUT"} {
		os.Unsetenv(k)
	}
	t.Cleanup(func() {
		for _, k := range []string{"OPENROUTER_API_KEY", "NGROK_PUBLIC_URL", "REQUEST_TIMEOUT"} {
			os.Unsetenv(k)
		}
	})

	path := filepath.Join(t.TempDir(), ".env")
	body := "OPENROUTER_API_KEY=sk-from-file\nNGROK_PUBLIC_URL=https://abc.ngrok.app\nREQUEST_TIMEOUT=45s\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OpenRouterAPIKey != "sk-from-file" {
		t.Errorf("api key = %q", cfg.OpenRouterAPIKey)
	}
	if cfg.PublicBaseURL != "https://abc.ngrok.app" {
		t.Errorf("public url = %q", cfg.PublicBaseURL)
	}
	if cfg.RequestTimeout != 45*time.Second {
		t.Errorf("timeout = %v", cfg.RequestTimeout)
	}
}

func TestLoadPublicBaseURLWinsOverNgrok(t *testing.T) {
	clearEnv(t)
	t.Setenv("PUBLIC_BASE_URL", "https://pylon.example")
	t.Setenv("NGROK_PUBLIC_URL", "https://abc.ngrok.app")
	cfg, err := Load(missingEnvFile(t))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.PublicBaseURL != "https://pylon.example" {
		t.Errorf("public url = %q", cfg.PublicBaseURL)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"PROVIDER":         "yandex",
		"PORT":             "eighty",
		"OPENROUTER_URL":   "not a url",
		"REQUEST_TIMEOUT":  "soon",
		"MAX_UPLOAD_BYTES": "0",
		"LOG_LEVEL":        "loud",
		"PUBLIC_BASE_URL":  "ngrok",
	}
	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(k, v)
			_, err := Load(missingEnvFile(t))
			if err == nil {
				t.Fatalf("%s=%q accepted", k, v)
			}
			if !strings.Contains(err.Error(), k) && !strings.Contains(err.Error(), "invalid config") {
				t.Errorf("error %q does not point at %s", err, k)
			}
		})
	}
}
