package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T, overrides map[string]any) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	for k, val := range overrides {
		v.Set(k, val)
	}
	return v
}

func TestFromViperDefaults(t *testing.T) {
	cfg := FromViper(newViper(t, map[string]any{"jwt_secret": "s3cret"}))

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, BackendPostgres, cfg.DataBackend)
	assert.Equal(t, 168*time.Hour, cfg.TokenTTL)
	assert.Equal(t, time.Hour, cfg.ResetTokenTTL)
	assert.Equal(t, 5*time.Minute, cfg.ProfileCacheTTL)
	assert.Equal(t, "mail_outbox", cfg.AMQPMailQueue)
	assert.Equal(t, "ledger_events", cfg.KafkaTopic)
	assert.Contains(t, cfg.AllowedEmailDomains, "ukr.net")
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestFromViperSplitsLists(t *testing.T) {
	cfg := FromViper(newViper(t, map[string]any{
		"kafka_brokers":         "k1:9092, k2:9092,",
		"allowed_email_domains": "Example.COM",
		"public_base_url":       "https://fin.example.com/",
	}))

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []string{"example.com"}, cfg.AllowedEmailDomains)
	assert.Equal(t, "https://fin.example.com", cfg.PublicBaseURL)
}

func TestValidateAcceptsMemoryBackend(t *testing.T) {
	cfg := FromViper(newViper(t, map[string]any{
		"data_backend": "memory",
		"jwt_secret":   "s3cret",
	}))
	require.NoError(t, cfg.Validate())
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := FromViper(newViper(t, map[string]any{
		"port":         "http",
		"data_backend": "postgres",
		"amqp_url":     "http://rabbit",
	}))

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port 'http'")
	assert.Contains(t, err.Error(), "DATABASE_URL is required")
	assert.Contains(t, err.Error(), "JWT_SECRET is required")
	assert.Contains(t, err.Error(), "invalid AMQP_URL")
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := FromViper(newViper(t, map[string]any{
		"data_backend": "mongo",
		"jwt_secret":   "s3cret",
	}))

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid data backend 'mongo'")
}
