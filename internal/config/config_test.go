package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV_FILE", "does-not-exist.env")
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8787", cfg.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 256, cfg.Realtime.SendBuffer)
	assert.Equal(t, 60, cfg.WriteRateLimit)
	assert.True(t, cfg.IsDevelopment())
	assert.Contains(t, cfg.Database.DSN(), "dbname=chirp")
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("ENV_FILE", "does-not-exist.env")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidateRejectsBlankSecret(t *testing.T) {
	for _, secret := range []string{"", "   "} {
		cfg := &Config{Environment: "development", Auth: AuthConfig{JWTSecret: secret}, Realtime: RealtimeConfig{SendBuffer: 1}}
		assert.Error(t, cfg.Validate(), "secret %q", secret)
	}

	cfg := &Config{Environment: "development", Auth: AuthConfig{JWTSecret: "dev"}, Realtime: RealtimeConfig{SendBuffer: 1}}
	assert.NoError(t, cfg.Validate())
}

func TestDSNPrefersURL(t *testing.T) {
	d := DatabaseConfig{URL: "postgres://u:p@db/chirp", Host: "ignored"}
	assert.Equal(t, "postgres://u:p@db/chirp", d.DSN())
}

func TestValidateProductionSecret(t *testing.T) {
	cfg := &Config{Environment: "production", Auth: AuthConfig{JWTSecret: "short"}, Realtime: RealtimeConfig{SendBuffer: 1}}
	assert.Error(t, cfg.Validate())

	cfg.Auth.JWTSecret = "0123456789abcdef0123456789abcdef"
	assert.NoError(t, cfg.Validate())
}
