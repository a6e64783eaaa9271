package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	assert.Empty(t, cfg.Redis.URL)

	assert.Equal(t, 30*time.Second, cfg.Bridge.HeartbeatInterval)
	assert.Equal(t, 60*time.Second, cfg.Bridge.HeartbeatTimeout)
	assert.Equal(t, []string{"*"}, cfg.Bridge.AllowedOrigins)

	assert.Equal(t, "manual", cfg.Captcha.Provider)
	assert.True(t, cfg.Captcha.FallbackToManual)

	assert.Equal(t, 3*time.Second, cfg.Resilience.FailFastTimeout)
	assert.Equal(t, 2, cfg.Resilience.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.Resilience.RetryBackoff)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)
	assert.True(t, cfg.RateLimit.Enabled)

	require.NoError(t, cfg.Validate())
}

func TestLoadMatchesDefault(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":                    "9000",
		"HOST":                    "127.0.0.1",
		"REDIS_URL":               "redis://localhost:6379/0",
		"HEARTBEAT_INTERVAL":      "10s",
		"HEARTBEAT_TIMEOUT":       "25s",
		"WS_ALLOWED_ORIGINS":      "chrome-extension://abc,https://portal.example",
		"CAPTCHA_PROVIDER":        "2captcha",
		"CAPTCHA_API_KEY":         "secret",
		"CAPTCHA_FALLBACK_MANUAL": "false",
		"MAX_RETRIES":             "4",
		"RETRY_BACKOFF":           "250ms",
		"LOG_LEVEL":               "debug",
		"LOG_DEV":                 "true",
		"RATE_LIMIT_ENABLED":      "false",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, 10*time.Second, cfg.Bridge.HeartbeatInterval)
	assert.Equal(t, 25*time.Second, cfg.Bridge.HeartbeatTimeout)
	assert.Equal(t, []string{"chrome-extension://abc", "https://portal.example"}, cfg.Bridge.AllowedOrigins)
	assert.Equal(t, "2captcha", cfg.Captcha.Provider)
	assert.Equal(t, "secret", cfg.Captcha.APIKey)
	assert.False(t, cfg.Captcha.FallbackToManual)
	assert.Equal(t, 4, cfg.Resilience.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Resilience.RetryBackoff)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "timeout shorter than interval",
			mutate:  func(c *Config) { c.Bridge.HeartbeatTimeout = 10 * time.Second },
			wantErr: "HEARTBEAT_TIMEOUT",
		},
		{
			name:    "zero interval",
			mutate:  func(c *Config) { c.Bridge.HeartbeatInterval = 0 },
			wantErr: "HEARTBEAT_INTERVAL",
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Captcha.Provider = "deathbycaptcha" },
			wantErr: "CAPTCHA_PROVIDER",
		},
		{
			name:    "negative retries",
			mutate:  func(c *Config) { c.Resilience.MaxRetries = -1 },
			wantErr: "MAX_RETRIES",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadOrDefaultFallsBackOnInvalidEnv(t *testing.T) {
	t.Setenv("CAPTCHA_PROVIDER", "nope")

	_, err := Load()
	require.Error(t, err)

	cfg := LoadOrDefault()
	assert.Equal(t, "manual", cfg.Captcha.Provider)
}
