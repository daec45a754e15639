package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "jwt-secret")
	t.Setenv("TOKEN_SECRET", "token-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "cratedigger", cfg.MongoDatabase)
	assert.Equal(t, 10, cfg.BatchRateLimit)
	assert.Equal(t, time.Minute, cfg.BatchRateWindow)
	assert.Equal(t, "https://api.spotify.com/v1", cfg.SpotifyAPIURL)
	assert.False(t, cfg.IsProduction())
	assert.False(t, cfg.BypassEnabled())
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9090")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("DEV_SPOTIFY_USER_ID", "dev-user")
	t.Setenv("BATCH_RATE_WINDOW", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	assert.Equal(t, 30*time.Second, cfg.BatchRateWindow)
	assert.True(t, cfg.BypassEnabled())
}

func TestLoadRejectsBypassInProduction(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("SPOTIFY_CLIENT_ID", "id")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "secret")
	t.Setenv("DEV_SPOTIFY_USER_ID", "dev-user")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEV_SPOTIFY_USER_ID must not be set in production")
}

func TestValidateRequiresSecrets(t *testing.T) {
	cfg := defaultConfig()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MONGO_URI is required")
	assert.Contains(t, err.Error(), "JWT_SECRET is required")
	assert.Contains(t, err.Error(), "TOKEN_SECRET is required")
}

func TestBypassNeverEnabledInProduction(t *testing.T) {
	cfg := defaultConfig()
	cfg.Env = "Production"
	cfg.DevSpotifyUserID = "dev-user"
	assert.False(t, cfg.BypassEnabled())
}
