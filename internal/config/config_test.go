package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("API_KEY", "secret")
	cfg := Load()

	assert.Equal(t, ":8080", cfg.APIAddr)
	assert.Equal(t, 1.0, cfg.CashScale)
	assert.Equal(t, "hustler", cfg.ClickHouseDatabase)
	assert.Equal(t, "sqlite", cfg.HistoryDBDialect)
	assert.Empty(t, cfg.WatchGames)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("API_KEY", "secret")
	t.Setenv("POLL_INTERVAL", "3s")
	t.Setenv("CASH_SCALE", "1e18")
	t.Setenv("WATCH_GAMES", "g1, g2,,")
	t.Setenv("WATCH_LOCATIONS", "queens")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("MAX_RETRIES", "not-a-number")

	cfg := Load()
	assert.Equal(t, 3*time.Second, cfg.PollInterval)
	assert.Equal(t, 1e18, cfg.CashScale)
	assert.Equal(t, []string{"g1", "g2"}, cfg.WatchGames)
	assert.Equal(t, []string{"queens"}, cfg.WatchLocations)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, 5, cfg.MaxRetries)
}

func TestValidate(t *testing.T) {
	t.Setenv("API_KEY", "secret")
	valid := func() *Config { return Load() }

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing indexer", func(c *Config) { c.IndexerURL = "" }},
		{"relative indexer", func(c *Config) { c.IndexerURL = "/graphql" }},
		{"zero poll", func(c *Config) { c.PollInterval = 0 }},
		{"zero scale", func(c *Config) { c.CashScale = 0 }},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }},
		{"zero timeout", func(c *Config) { c.HTTPTimeout = 0 }},
		{"zero ai rate", func(c *Config) { c.AIRateLimit = 0 }},
		{"no api key", func(c *Config) { c.APIKey = "" }},
		{"negative risk limit", func(c *Config) { c.DailyTradeLimit = -1 }},
		{"unknown archive", func(c *Config) { c.HistoryDBDialect = "mysql" }},
		{"postgres without dsn", func(c *Config) { c.HistoryDBDialect = "postgres" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := valid()
	cfg.APIKey = ""
	cfg.DevMode = true
	assert.NoError(t, cfg.Validate())
}
