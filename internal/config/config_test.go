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
	assert.Equal(t, 10*time.Second, cfg.Fetcher.Timeout)
	assert.Equal(t, "product", cfg.Extract.Profile)
	assert.Equal(t, 200, cfg.Extract.MaxTreeRecords)
	assert.Equal(t, 100, cfg.Extract.MaxSelectorElements)
	assert.Equal(t, 100, cfg.Extract.MaxTableRows)
	assert.True(t, cfg.Database.Enabled)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 15*time.Minute, cfg.Redis.CacheTTL)

	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("FETCH_TIMEOUT", "7s")
	t.Setenv("EXTRACT_PROFILE", "article")
	t.Setenv("DB_ENABLED", "false")
	t.Setenv("EXTRACT_MAX_TABLE_ROWS", "25")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 7*time.Second, cfg.Fetcher.Timeout)
	assert.Equal(t, "article", cfg.Extract.Profile)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, 25, cfg.Extract.MaxTableRows)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "timeout below window",
			mutate:  func(c *Config) { c.Fetcher.Timeout = 2 * time.Second },
			wantErr: "FETCH_TIMEOUT",
		},
		{
			name:    "timeout above window",
			mutate:  func(c *Config) { c.Fetcher.Timeout = 30 * time.Second },
			wantErr: "FETCH_TIMEOUT",
		},
		{
			name: "inverted politeness window",
			mutate: func(c *Config) {
				c.Fetcher.PolitenessMin = time.Second
				c.Fetcher.PolitenessMax = 0
			},
			wantErr: "FETCH_POLITENESS_MIN",
		},
		{
			name:    "zero cap",
			mutate:  func(c *Config) { c.Extract.MaxTableRows = 0 },
			wantErr: "caps",
		},
		{
			name:    "unknown profile",
			mutate:  func(c *Config) { c.Extract.Profile = "blog" },
			wantErr: "EXTRACT_PROFILE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
