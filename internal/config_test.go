package internal

import (
	"bytes"
	"context"
	"io/fs"
	"testing"
	"time"

	"github.com/dukerupert/mercato/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	t.Setenv("ENV", "dev")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("CATALOG_TX_TIMEOUT", "")
	t.Setenv("NATS_URL", "")
	t.Setenv("CHECKOUT_SWEEP_ENABLED", "")
	t.Setenv("CHECKOUT_SWEEP_INTERVAL", "")
	t.Setenv("CHECKOUT_STALE_AFTER", "")
	t.Setenv("SMTP_HOST", "")
	t.Setenv("SMTP_PORT", "")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.Catalog.TxTimeout)
	assert.Equal(t, "mercato", cfg.Events.SubjectPrefix)
	assert.Empty(t, cfg.Events.NatsURL)
	assert.True(t, cfg.Worker.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Worker.SweepInterval)
	assert.Equal(t, time.Hour, cfg.Worker.StaleAfter)
	assert.Empty(t, cfg.Email.SMTPHost)
	assert.Equal(t, uint16(587), cfg.Email.SMTPPort)
}

func TestNewConfig_Overrides(t *testing.T) {
	t.Setenv("ENV", "dev")
	t.Setenv("PORT", "8080")
	t.Setenv("CATALOG_TX_TIMEOUT", "3s")
	t.Setenv("STRIPE_MAX_RETRIES", "5")
	t.Setenv("NATS_URL", "nats://localhost:4222")
	t.Setenv("CHECKOUT_SWEEP_ENABLED", "false")
	t.Setenv("CHECKOUT_STALE_AFTER", "30m")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, uint16(8080), cfg.Port)
	assert.Equal(t, 3*time.Second, cfg.Catalog.TxTimeout)
	assert.Equal(t, uint16(5), cfg.Stripe.MaxRetries)
	assert.Equal(t, "nats://localhost:4222", cfg.Events.NatsURL)
	assert.False(t, cfg.Worker.Enabled)
	assert.Equal(t, 30*time.Minute, cfg.Worker.StaleAfter)
}

func TestNewConfig_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("ENV", "dev")
	t.Setenv("LOG_LEVEL", "verbose")
	t.Setenv("CATALOG_TX_TIMEOUT", "soon")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.Catalog.TxTimeout)
}

func TestNewConfig_ProductionRequiresStripeSecrets(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("STRIPE_SECRET_KEY", "")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "")

	_, err := NewConfig()
	assert.ErrorContains(t, err, "STRIPE_SECRET_KEY")
}

func TestNewConfig_SentryRequiresDSN(t *testing.T) {
	t.Setenv("ENV", "dev")
	t.Setenv("SENTRY_ENABLED", "true")
	t.Setenv("SENTRY_DSN", "")

	_, err := NewConfig()
	assert.ErrorContains(t, err, "SENTRY_DSN")
}

func TestNewLogger(t *testing.T) {
	t.Run("dev uses text at the configured level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf, "dev", "warn")

		logger.Info("hidden")
		logger.Warn("shown", "key", "value")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "key=value")
	})

	t.Run("prod uses json", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf, "prod", "debug")

		logger.Debug("visible", "key", "value")

		assert.Contains(t, buf.String(), `"key":"value"`)
		assert.Contains(t, buf.String(), `"level":"DEBUG"`)
	})
}

func TestMigrationsEmbedded(t *testing.T) {
	files, err := fs.Glob(migrations.MigrationsFS, "*.sql")
	require.NoError(t, err)
	assert.Contains(t, files, "00001_init.sql")
}

func TestMigrateCommand_RejectsUnknownCommand(t *testing.T) {
	err := MigrateCommand(context.Background(), nil, "drop-everything", NewLogger(&bytes.Buffer{}, "dev", "info"))
	assert.ErrorContains(t, err, "unknown migration command")
}
