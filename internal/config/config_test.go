package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "migrations", cfg.Database.MigrationsPath)
	assert.Equal(t, "X-API-Key", cfg.Auth.APIKeyHeader)
	assert.Equal(t, "openai", cfg.LLM.DefaultProvider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.DefaultModel)
	assert.Equal(t, 3, cfg.LLM.MaxRetries)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("LLM_TIMEOUT", "15s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.LLM.Timeout)
}

func TestLoadRejectsBadInt(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-port")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "JWT_SECRET")

	cfg.Database.URL = "postgres://localhost/promptdeck"
	cfg.Auth.JWTSecret = "secret"
	assert.NoError(t, cfg.Validate())
}

func TestAddr(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Host: "127.0.0.1", Port: 8080}}
	assert.Equal(t, "127.0.0.1:8080", cfg.Addr())
}
