package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRequiresPortAndSecret(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.Validate())

	cfg.Port = "8460"
	assert.Error(t, cfg.Validate())

	cfg.JWTSecret = "dev-secret"
	assert.NoError(t, cfg.Validate())
}

func TestValidateProductionRejectsDefaults(t *testing.T) {
	cfg := &Config{
		Port:      "8460",
		JWTSecret: "your-secret-key-change-in-production",
		Env:       "production",
	}
	require.Error(t, cfg.Validate())

	cfg.JWTSecret = "short"
	require.Error(t, cfg.Validate())

	cfg.JWTSecret = "0123456789abcdef0123456789abcdef"
	cfg.DBPassword = "password"
	require.Error(t, cfg.Validate())

	cfg.DBPassword = "actually-strong-password"
	assert.NoError(t, cfg.Validate())
}
