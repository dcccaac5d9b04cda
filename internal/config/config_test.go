package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-billing/internal/config"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL":           "postgres://localhost:5432/billing",
		"REDIS_URL":              "redis://localhost:6379/0",
		"STRIPE_SECRET_KEY":      "sk_test_123",
		"STRIPE_PUBLISHABLE_KEY": "pk_test_123",
		"BASIC_PRICE_ID":         "price_basic",
		"PRO_PRICE_ID":           "price_pro",
		"DOMAIN":                 "http://localhost:4242",
		"STRIPE_WEBHOOK_SECRET":  "",
		"WEBHOOK_REPLAY_TTL":     "",
		"PORT":                   "",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadForTests(baseEnv())
	require.NoError(t, err)

	require.Equal(t, ":4242", cfg.HTTPAddr())
	require.Equal(t, "public", cfg.StaticDir)
	require.Equal(t, 15*time.Second, cfg.StripeTimeout)
	require.Zero(t, cfg.WebhookReplayTTL)
	require.False(t, cfg.WebhookVerificationEnabled())
}

func TestLoadRequiresStripeKeys(t *testing.T) {
	env := baseEnv()
	env["STRIPE_SECRET_KEY"] = ""
	_, err := config.LoadForTests(env)
	require.Error(t, err)
	require.Contains(t, err.Error(), "STRIPE_SECRET_KEY")
}

func TestLoadRequiresPriceIDs(t *testing.T) {
	env := baseEnv()
	env["PRO_PRICE_ID"] = ""
	_, err := config.LoadForTests(env)
	require.Error(t, err)
}

func TestWebhookSecretEnablesVerification(t *testing.T) {
	env := baseEnv()
	env["STRIPE_WEBHOOK_SECRET"] = "whsec_test"
	cfg, err := config.LoadForTests(env)
	require.NoError(t, err)
	require.True(t, cfg.WebhookVerificationEnabled())
}

func TestDomainTrailingSlashTrimmed(t *testing.T) {
	env := baseEnv()
	env["DOMAIN"] = "https://shop.example.com/"
	cfg, err := config.LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, "https://shop.example.com", cfg.Domain)
}
