package infra

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMissingAPIKey is returned when neither GEMINI_API_KEY nor API_KEY is set.
var ErrMissingAPIKey = errors.New("GEMINI_API_KEY (or API_KEY) is required")

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv          string
	Port            string
	GeminiAPIKey    string
	GeminiBaseURL   string
	ImageModel      string
	SuggestionModel string
	VideoModel      string

	SuggestionDebounce time.Duration
	VideoPollInterval  time.Duration
	BackendRatePerSec  int

	StoragePath string
	SessionTTL  time.Duration

	CORSAllowedOrigins []string
	RateLimitPerMin    int
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "8080"),
		GeminiAPIKey:       firstEnv("GEMINI_API_KEY", "API_KEY"),
		GeminiBaseURL:      os.Getenv("GEMINI_BASE_URL"),
		ImageModel:         getEnv("IMAGE_MODEL", "imagen-3.0-generate-002"),
		SuggestionModel:    getEnv("SUGGESTION_MODEL", "gemini-2.5-flash"),
		VideoModel:         getEnv("VIDEO_MODEL", "veo-2.0-generate-001"),
		SuggestionDebounce: time.Millisecond * time.Duration(getEnvInt("SUGGESTION_DEBOUNCE_MS", 500)),
		VideoPollInterval:  time.Second * time.Duration(getEnvInt("VIDEO_POLL_INTERVAL_SECONDS", 10)),
		BackendRatePerSec:  getEnvInt("BACKEND_RATE_PER_SECOND", 2),
		StoragePath:        getEnv("STORAGE_PATH", "./data"),
		SessionTTL:         time.Minute * time.Duration(getEnvInt("SESSION_TTL_MINUTES", 30)),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.GeminiAPIKey == "" {
		return nil, ErrMissingAPIKey
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
