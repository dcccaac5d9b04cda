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
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string

	StripeSecretKey      string
	StripePublishableKey string
	// StripeWebhookSecret is optional; when empty, webhook signature
	// verification is skipped and payloads are trusted as-is.
	StripeWebhookSecret string
	BasicPriceID        string
	ProPriceID          string

	Domain    string
	StaticDir string

	StripeTimeout    time.Duration
	WebhookReplayTTL time.Duration
	MaxBodyBytes     int64
	RateLimitMax     int
	RateLimitWindow  time.Duration
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
		Port:               valueOrDefault(k.String("PORT"), "4242"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		StripeSecretKey:      k.String("STRIPE_SECRET_KEY"),
		StripePublishableKey: k.String("STRIPE_PUBLISHABLE_KEY"),
		StripeWebhookSecret:  strings.TrimSpace(k.String("STRIPE_WEBHOOK_SECRET")),
		BasicPriceID:         k.String("BASIC_PRICE_ID"),
		ProPriceID:           k.String("PRO_PRICE_ID"),

		Domain:    strings.TrimRight(strings.TrimSpace(k.String("DOMAIN")), "/"),
		StaticDir: valueOrDefault(k.String("STATIC_DIR"), "public"),

		StripeTimeout:    parseDuration(k.String("STRIPE_TIMEOUT"), "15s"),
		WebhookReplayTTL: parseDuration(k.String("WEBHOOK_REPLAY_TTL"), "0s"),
		MaxBodyBytes:     parseInt64(k.String("MAX_BODY_BYTES"), 1<<20),
		RateLimitMax:     int(parseInt64(k.String("RATE_LIMIT_MAX"), 60)),
		RateLimitWindow:  parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.StripeSecretKey == "" {
		return nil, errors.New("STRIPE_SECRET_KEY is required")
	}
	if cfg.StripePublishableKey == "" {
		return nil, errors.New("STRIPE_PUBLISHABLE_KEY is required")
	}
	if cfg.BasicPriceID == "" || cfg.ProPriceID == "" {
		return nil, errors.New("BASIC_PRICE_ID and PRO_PRICE_ID are required")
	}
	if cfg.Domain == "" {
		return nil, errors.New("DOMAIN is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "4242"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// WebhookVerificationEnabled reports whether inbound notifications are
// authenticated against the signing secret.
func (c *Config) WebhookVerificationEnabled() bool {
	return c.StripeWebhookSecret != ""
}

func splitAndTrim(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func parseDuration(value, fallback string) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
		return d
	}
	d, _ := time.ParseDuration(fallback)
	return d
}

func parseInt64(value string, fallback int64) int64 {
	parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

// MustLoad wraps Load and panics on error. Intended for entrypoints where
// a bad environment should stop the process immediately.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests runs Load with the given variables applied on top of the
// process environment, restoring the originals before returning. An empty
// value unsets the variable for the duration of the call.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key, value := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, value); err != nil {
			return nil, err
		}
	}
	cfg, loadErr := Load()
	var restoreErrs []string
	for key, value := range original {
		if err := setEnvVar(key, value); err != nil {
			restoreErrs = append(restoreErrs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if loadErr != nil {
		return nil, loadErr
	}
	if len(restoreErrs) > 0 {
		return nil, fmt.Errorf("restore env: %s", strings.Join(restoreErrs, "; "))
	}
	return cfg, nil
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}
