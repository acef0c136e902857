package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnvVars clears all Fakturly-related environment variables.
func clearEnvVars() {
	envVars := []string{
		"APP_ENV", "LOG_LEVEL", "HTTP_ADDR", "FRONTEND_URL",
		"DATABASE_URL", "REDIS_URL", "RABBITMQ_URL",
		"OUTBOX_POLL_INTERVAL", "OUTBOX_BATCH_SIZE", "OUTBOX_MAX_RETRIES",
		"OUTBOX_RETENTION_DAYS", "OUTBOX_CLEANUP_INTERVAL", "OUTBOX_PROCESSOR_ENABLED",
		"WORKER_HEALTH_ADDR",
		"TOKEN_TTL", "RESET_TOKEN_TTL", "OTP_TTL", "ADMIN_EMAILS", "BOOTSTRAP_SECRET",
		"OAUTH_CLIENT_ID", "OAUTH_CLIENT_SECRET", "OAUTH_REDIRECT_URL",
		"SMTP_ADDR", "SMTP_FROM", "SMTP_USERNAME", "SMTP_PASSWORD",
		"XENDIT_BASE_URL", "XENDIT_SECRET_KEY", "XENDIT_CALLBACK_TOKEN",
		"PREMIUM_PRICE_IDR",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnvVars()
	defer clearEnvVars()

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr)
	assert.Equal(t, "http://localhost:3000", cfg.FrontendURL)

	assert.Equal(t, "", cfg.DatabaseURL)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)

	assert.Equal(t, 5*time.Second, cfg.OutboxPollInterval)
	assert.Equal(t, 100, cfg.OutboxBatchSize)
	assert.Equal(t, 5, cfg.OutboxMaxRetries)
	assert.Equal(t, 14, cfg.OutboxRetentionDays)
	assert.Equal(t, 24*time.Hour, cfg.OutboxCleanupInterval)
	assert.True(t, cfg.OutboxProcessorEnabled)

	assert.Equal(t, 30*24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, time.Hour, cfg.ResetTokenTTL)
	assert.Equal(t, 10*time.Minute, cfg.OTPTTL)

	assert.Equal(t, "https://api.xendit.co", cfg.XenditBaseURL)
	assert.Equal(t, 50000, cfg.PremiumPriceIDR)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearEnvVars()
	defer clearEnvVars()

	os.Setenv("APP_ENV", "production")
	os.Setenv("HTTP_ADDR", "127.0.0.1:9090")
	os.Setenv("DATABASE_URL", "postgres://fakturly:secret@db:5432/fakturly")
	os.Setenv("OUTBOX_BATCH_SIZE", "25")
	os.Setenv("OUTBOX_POLL_INTERVAL", "250ms")
	os.Setenv("OUTBOX_PROCESSOR_ENABLED", "false")
	os.Setenv("OTP_TTL", "5m")
	os.Setenv("PREMIUM_PRICE_IDR", "99000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.AppEnv)
	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, "127.0.0.1:9090", cfg.HTTPAddr)
	assert.Equal(t, "postgres://fakturly:secret@db:5432/fakturly", cfg.DatabaseURL)
	assert.Equal(t, 25, cfg.OutboxBatchSize)
	assert.Equal(t, 250*time.Millisecond, cfg.OutboxPollInterval)
	assert.False(t, cfg.OutboxProcessorEnabled)
	assert.Equal(t, 5*time.Minute, cfg.OTPTTL)
	assert.Equal(t, 99000, cfg.PremiumPriceIDR)
}

func TestLoad_InvalidValuesFallBackToDefaults(t *testing.T) {
	clearEnvVars()
	defer clearEnvVars()

	os.Setenv("OUTBOX_BATCH_SIZE", "not-a-number")
	os.Setenv("OUTBOX_POLL_INTERVAL", "not-a-duration")
	os.Setenv("OUTBOX_PROCESSOR_ENABLED", "not-a-bool")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.OutboxBatchSize)
	assert.Equal(t, 5*time.Second, cfg.OutboxPollInterval)
	assert.True(t, cfg.OutboxProcessorEnabled)
}
