package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("CLIENT_URL", "http://app.example.com/")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.ServerPort)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "http://app.example.com", cfg.ClientURL, "trailing slash trimmed")
	assert.Equal(t, "@every 10m", cfg.TokenSweepSpec)
	assert.False(t, cfg.AllowNoOrigin)
	assert.False(t, cfg.Production)
}

func TestLoadFlags(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "5000")

	fs := NewFlagSet("test")
	require.NoError(t, fs.Parse([]string{"--api", "--port", "8080"}))

	cfg, err := Load(fs)
	require.NoError(t, err)
	assert.True(t, cfg.AllowNoOrigin)
	assert.Equal(t, 8080, cfg.ServerPort)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load(nil)
	assert.ErrorIs(t, err, ErrMissingJWTSecret)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DATABASE_DRIVER", "Postgres")

	_, err := Load(nil)
	assert.Error(t, err)
}

func TestLoadMongoDriver(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DATABASE_DRIVER", "MONGO")
	t.Setenv("APP_ENV", "production")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "mongo", cfg.DatabaseDriver)
	assert.True(t, cfg.Production)
}
