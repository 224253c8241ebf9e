package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-session-auth/internal/config"
)

func TestDefaults(t *testing.T) {
	for _, v := range []string{"PORT", "BASE_URL", "FOLDER", "TENANTS_FILE", "SESSION_MAX_AGE", "DIRECTORY_TIMEOUT",
		"LOGIN_RATE_PER_SECOND", "LOGIN_BURST", "FEDERATED_FLOW_TTL", "FEDERATED_CALLBACK_URL", "ENV", "DATABASE_URL"} {
		t.Setenv(v, "")
	}
	cfg := config.New()

	require.Equal(t, ":8080", cfg.GetPort())
	require.Equal(t, config.DevelopmentEnvVal, cfg.GetEnv())
	require.Equal(t, "./data/tenants.yaml", cfg.GetTenantsFile())
	require.Empty(t, cfg.GetDatabaseURL())
	require.Equal(t, 8*time.Hour, cfg.GetMaxSessionAge())
	require.Equal(t, 10*time.Second, cfg.GetDirectoryTimeout())
	require.Equal(t, float64(1), cfg.GetLoginRatePerSecond())
	require.Equal(t, 5, cfg.GetLoginBurst())
	require.Equal(t, 10*time.Minute, cfg.GetFlowTTL())
	require.Equal(t, "http://localhost:8080/auth/federated/callback", cfg.GetFederatedCallbackURL())
}

func TestOverrides(t *testing.T) {
	t.Setenv("PORT", ":9000")
	t.Setenv("BASE_URL", "https://auth.example.com/")
	t.Setenv("FEDERATED_CALLBACK_URL", "")
	t.Setenv("SESSION_MAX_AGE", "30m")
	t.Setenv("DIRECTORY_TIMEOUT", "not-a-duration")
	t.Setenv("LOGIN_RATE_PER_SECOND", "0.5")
	t.Setenv("LOGIN_BURST", "-3")
	cfg := config.New()

	require.Equal(t, ":9000", cfg.GetPort())
	require.Equal(t, "https://auth.example.com", cfg.GetBaseURL())
	require.Equal(t, "https://auth.example.com/auth/federated/callback", cfg.GetFederatedCallbackURL())
	require.Equal(t, 30*time.Minute, cfg.GetMaxSessionAge())
	require.Equal(t, 10*time.Second, cfg.GetDirectoryTimeout(), "malformed values fall back")
	require.Equal(t, 0.5, cfg.GetLoginRatePerSecond())
	require.Equal(t, 5, cfg.GetLoginBurst())
}

func TestParseAllowedOrigins(t *testing.T) {
	origins := config.ParseAllowedOrigins(" https://b.example.com,https://a.example.com ,, ")
	require.True(t, origins.IsAllowedOrigin("https://a.example.com"))
	require.False(t, origins.IsAllowedOrigin("https://evil.example.com"))
	require.Equal(t, "https://a.example.com, https://b.example.com", origins.String())
	require.Empty(t, config.ParseAllowedOrigins(""))
}

func TestResolveSigningKey(t *testing.T) {
	t.Run("configured", func(t *testing.T) {
		t.Setenv("SESSION_SIGNING_KEY", "0123456789abcdef0123456789abcdef")
		t.Setenv("ENV", "PROD")
		key, ephemeral, err := config.ResolveSigningKey(config.New())
		require.NoError(t, err)
		require.False(t, ephemeral)
		require.Equal(t, []byte("0123456789abcdef0123456789abcdef"), key)
	})

	t.Run("development falls back to a random key", func(t *testing.T) {
		t.Setenv("SESSION_SIGNING_KEY", "")
		t.Setenv("ENV", config.DevelopmentEnvVal)
		first, ephemeral, err := config.ResolveSigningKey(config.New())
		require.NoError(t, err)
		require.True(t, ephemeral)
		require.Len(t, first, 32)

		second, _, err := config.ResolveSigningKey(config.New())
		require.NoError(t, err)
		require.NotEqual(t, first, second)
	})

	t.Run("production requires a key", func(t *testing.T) {
		t.Setenv("SESSION_SIGNING_KEY", "")
		t.Setenv("ENV", "PROD")
		_, _, err := config.ResolveSigningKey(config.New())
		require.ErrorIs(t, err, config.ErrSigningKeyRequired)
	})
}
