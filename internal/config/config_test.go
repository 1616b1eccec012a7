package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `{}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 24, cfg.Auth.JWTExpiryHours)
	assert.Equal(t, 60, cfg.Upstream.TimeoutSeconds)
	assert.Equal(t, 249, cfg.Pool.RequestCeiling)
	assert.Equal(t, 5, cfg.Quota.FreeTierLimit)
	assert.Equal(t, 30, cfg.Quota.FreeTierWindowDays)
	assert.Equal(t, "fixed_window", cfg.RateLimit.Algorithm)
	assert.Equal(t, 10, cfg.RateLimit.FreeTierPerMinute)
	assert.Equal(t, 1000, cfg.Usage.BufferSize)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `{
		"server": {"port": "9090", "environment": "production"},
		"pool": {"request_ceiling": 100},
		"quota": {"free_tier_limit": 3, "free_tier_window_days": 7}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "production", cfg.Server.Environment)
	assert.Equal(t, 100, cfg.Pool.RequestCeiling)
	assert.Equal(t, 3, cfg.Quota.FreeTierLimit)
	assert.Equal(t, 7, cfg.Quota.FreeTierWindowDays)
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, `{"server": {"port": "9090"}}`)

	t.Setenv("PORT", "7070")
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("DATABASE_DSN", "host=db")
	t.Setenv("BILLING_WEBHOOK_SECRET", "hook-secret")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, "host=db", cfg.Database.DSN)
	assert.Equal(t, "hook-secret", cfg.Billing.WebhookSecret)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
