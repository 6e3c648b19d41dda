package infra

import (
	"errors"
	"testing"
	"time"
)

func TestLoadConfigRequiresAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "")

	if _, err := LoadConfig(); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("LoadConfig error = %v, want ErrMissingAPIKey", err)
	}
}

func TestLoadConfigFallsBackToAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "fallback-key")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.GeminiAPIKey != "fallback-key" {
		t.Fatalf("GeminiAPIKey = %q", cfg.GeminiAPIKey)
	}
}

func TestLoadConfigPrefersGeminiAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "primary")
	t.Setenv("API_KEY", "fallback-key")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.GeminiAPIKey != "primary" {
		t.Fatalf("GeminiAPIKey = %q", cfg.GeminiAPIKey)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "k")
	t.Setenv("SUGGESTION_DEBOUNCE_MS", "")
	t.Setenv("VIDEO_POLL_INTERVAL_SECONDS", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("PORT", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.SuggestionDebounce != 500*time.Millisecond {
		t.Fatalf("SuggestionDebounce = %v", cfg.SuggestionDebounce)
	}
	if cfg.VideoPollInterval != 10*time.Second {
		t.Fatalf("VideoPollInterval = %v", cfg.VideoPollInterval)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q", cfg.Port)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "http://localhost:5173" {
		t.Fatalf("CORSAllowedOrigins = %#v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadConfigParsesOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "k")
	t.Setenv("SUGGESTION_DEBOUNCE_MS", "250")
	t.Setenv("BACKEND_RATE_PER_SECOND", "4")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example.com ,, https://b.example.com")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "not-a-number")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.SuggestionDebounce != 250*time.Millisecond {
		t.Fatalf("SuggestionDebounce = %v", cfg.SuggestionDebounce)
	}
	if cfg.BackendRatePerSec != 4 {
		t.Fatalf("BackendRatePerSec = %v", cfg.BackendRatePerSec)
	}
	expected := []string{"https://a.example.com", "https://b.example.com"}
	if len(cfg.CORSAllowedOrigins) != len(expected) {
		t.Fatalf("CORSAllowedOrigins = %#v", cfg.CORSAllowedOrigins)
	}
	for i, origin := range expected {
		if cfg.CORSAllowedOrigins[i] != origin {
			t.Fatalf("CORSAllowedOrigins[%d] = %q, want %q", i, cfg.CORSAllowedOrigins[i], origin)
		}
	}
	if cfg.RateLimitPerMin != 120 {
		t.Fatalf("RateLimitPerMin = %d, want default", cfg.RateLimitPerMin)
	}
}
