package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ZENTRO_JWT_SECRET", "test-secret")
	t.Setenv("ZENTRO_ADMIN_USER_IDS", "alice,bob")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, 1000, cfg.StartingBalance)
	assert.Equal(t, 15*time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, time.UTC, cfg.Location())
	assert.True(t, cfg.IsAdmin("bob"))
	assert.False(t, cfg.IsAdmin("mallory"))
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			JWTSecret:             "s",
			RateLimitMax:          1,
			RateLimitWindow:       time.Second,
			CompanionRateLimitMax: 1,
			CompanionRateWindow:   time.Second,
			PayoutBatchSize:       1,
			Timezone:              "UTC",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"zero rate limit", func(c *Config) { c.RateLimitMax = 0 }, true},
		{"negative starting balance", func(c *Config) { c.StartingBalance = -1 }, true},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, true},
		{"named timezone", func(c *Config) { c.Timezone = "Europe/Berlin" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
