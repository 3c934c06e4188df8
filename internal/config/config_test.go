package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "development")
	t.Setenv("OSU_CLIENT_ID", "1234")
	t.Setenv("OSU_CLIENT_SECRET", "osu-secret")
	t.Setenv("JWT_SECRET", strings.Repeat("k", 32))
	for _, key := range []string{
		"BASE_URL", "PORT", "SESSION_TTL", "REFRESH_COOLDOWN", "COOKIE_NAME",
		"REDIS_URL", "CSRF_LEGACY_FIELDS", "DISCORD_CLIENT_ID", "DISCORD_CLIENT_SECRET",
		"OSU_REDIRECT_PATH", "DISCORD_REDIRECT_PATH",
	} {
		unsetEnv(t, key)
	}
}

// unsetEnv removes key for the duration of the test.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestParse_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, 4000, cfg.Port)
	assert.Equal(t, "http://localhost:4000", cfg.BaseURL)
	assert.Equal(t, "session", cfg.CookieName)
	assert.Equal(t, 7*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, time.Hour, cfg.RefreshCooldown)
	assert.Equal(t, "http://localhost:4000/auth/osu/callback", cfg.OsuRedirectURL())
	assert.False(t, cfg.IsProduction())
	assert.False(t, cfg.DiscordEnabled())
	assert.False(t, cfg.CSRFLegacyFields)
	assert.Equal(t, ":4000", cfg.Addr())
}

func TestParse_Overrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("PORT", "8081")
	t.Setenv("BASE_URL", "https://tourney.example.com/")
	t.Setenv("COOKIE_NAME", "tr_session")
	t.Setenv("REFRESH_COOLDOWN", "30m")
	t.Setenv("DISCORD_CLIENT_ID", "d-id")
	t.Setenv("DISCORD_CLIENT_SECRET", "d-secret")
	t.Setenv("CSRF_LEGACY_FIELDS", "true")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Port)
	assert.Equal(t, "https://tourney.example.com", cfg.BaseURL)
	assert.Equal(t, "https://tourney.example.com/auth/discord/callback", cfg.DiscordRedirectURL())
	assert.Equal(t, "tr_session", cfg.CookieName)
	assert.Equal(t, 30*time.Minute, cfg.RefreshCooldown)
	assert.True(t, cfg.DiscordEnabled())
	assert.True(t, cfg.CSRFLegacyFields)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing osu client", map[string]string{"OSU_CLIENT_ID": ""}, "OSU_CLIENT_ID"},
		{"short jwt secret", map[string]string{"JWT_SECRET": "short"}, "JWT_SECRET"},
		{"production without base url", map[string]string{"APP_ENV": "production"}, "BASE_URL"},
		{"unknown app env", map[string]string{"APP_ENV": "staging"}, "APP_ENV"},
		{"bad duration", map[string]string{"SESSION_TTL": "forever"}, "forever"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tt.env {
				if v == "" {
					unsetEnv(t, k)
					continue
				}
				t.Setenv(k, v)
			}

			_, err := Parse()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
