package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	LogFormat          string
	LogLevel           string
	CORSAllowedOrigins []string

	InboxDir          string
	DataDir           string
	PriceListPath     string
	DiscountRulesPath string

	Extractor string

	LLMBaseURL        string
	LLMAPIKey         string
	LLMModel          string
	LLMMaxRetries     int
	LLMRequestTimeout time.Duration
	LLMRateLimit      float64

	LedgerBackend string
	RedisURL      string
	ProcessedTTL  time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		LogFormat:          valueOrDefault(k.String("LOG_FORMAT"), "json"),
		LogLevel:           valueOrDefault(k.String("LOG_LEVEL"), "info"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		InboxDir:           valueOrDefault(k.String("INBOX_DIR"), "samples/inbox"),
		DataDir:            valueOrDefault(k.String("DATA_DIR"), "data"),
		PriceListPath:      valueOrDefault(k.String("PRICE_LIST_PATH"), "config/price_list.json"),
		DiscountRulesPath:  valueOrDefault(k.String("DISCOUNT_RULES_PATH"), "config/discount_rules.json"),
		Extractor:          strings.ToLower(valueOrDefault(k.String("EXTRACTOR"), "fuzzy")),
		LLMBaseURL:         strings.TrimSpace(k.String("LLM_BASE_URL")),
		LLMAPIKey:          strings.TrimSpace(k.String("LLM_API_KEY")),
		LLMModel:           strings.TrimSpace(k.String("LLM_MODEL")),
		LLMMaxRetries:      parseInt(k.String("LLM_MAX_RETRIES"), 3),
		LLMRequestTimeout:  parseDuration(k.String("LLM_REQUEST_TIMEOUT"), "60s"),
		LLMRateLimit:       parseFloat(k.String("LLM_RATE_LIMIT"), 3),
		LedgerBackend:      strings.ToLower(valueOrDefault(k.String("LEDGER_BACKEND"), "file")),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		ProcessedTTL:       parseDuration(k.String("PROCESSED_TTL"), "0s"),
	}

	switch cfg.Extractor {
	case "fuzzy", "llm":
	default:
		return nil, fmt.Errorf("EXTRACTOR must be fuzzy or llm, got %q", cfg.Extractor)
	}
	if cfg.Extractor == "llm" && cfg.LLMAPIKey == "" && cfg.LLMBaseURL == "" {
		return nil, errors.New("LLM_API_KEY is required when EXTRACTOR=llm")
	}

	switch cfg.LedgerBackend {
	case "file":
	case "redis":
		if cfg.RedisURL == "" {
			return nil, errors.New("REDIS_URL is required when LEDGER_BACKEND=redis")
		}
	default:
		return nil, fmt.Errorf("LEDGER_BACKEND must be file or redis, got %q", cfg.LedgerBackend)
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// EventsDir is where parsed inquiry events are persisted.
func (c *Config) EventsDir() string { return c.DataDir + "/events" }

// QuotesDir is where generated quotes are persisted.
func (c *Config) QuotesDir() string { return c.DataDir + "/quotes" }

// OutboxDir is where acknowledgment drafts are persisted.
func (c *Config) OutboxDir() string { return c.DataDir + "/outbox" }

// LedgerDir is where the file ledger keeps the activity trail and processed markers.
func (c *Config) LedgerDir() string { return c.DataDir + "/ledger" }

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return fallback
	}
	return f
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
