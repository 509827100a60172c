package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadDefaults verifies every default lands without any env set
func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "BTCUSDT", cfg.Trading.Symbol)
	assert.Equal(t, 20, cfg.Risk.MaxLeverage)
	assert.Equal(t, 0.10, cfg.Risk.MaxPositionSizePct)
	assert.Equal(t, 4*time.Hour, cfg.Selector.Cooldown)
	assert.Equal(t, 0.7, cfg.Selector.ConfidenceThreshold)
	assert.Equal(t, 0.9, cfg.Performance.RecencyDecay)
	assert.Equal(t, 5*time.Second, cfg.Engine.MonitorInterval)
	assert.Equal(t, []string{"BREAKOUT", "TRENDING", "VOLATILE", "CONSOLIDATING", "RANGING"}, cfg.Analyzer.Precedence)
}

// TestEnvOverrides verifies env vars take precedence over defaults
func TestEnvOverrides(t *testing.T) {
	t.Setenv("TRADING_SYMBOL", "ETHUSDT")
	t.Setenv("MAX_LEVERAGE", "10")
	t.Setenv("SWITCH_COOLDOWN", "2h")
	t.Setenv("CONDITION_PRECEDENCE", "TRENDING, BREAKOUT ,VOLATILE")

	cfg := Load()

	assert.Equal(t, "ETHUSDT", cfg.Trading.Symbol)
	assert.Equal(t, 10, cfg.Risk.MaxLeverage)
	assert.Equal(t, 2*time.Hour, cfg.Selector.Cooldown)
	assert.Equal(t, []string{"TRENDING", "BREAKOUT", "VOLATILE"}, cfg.Analyzer.Precedence)
}

// TestValidateDefaults verifies the default config passes validation
func TestValidateDefaults(t *testing.T) {
	cfg := Load()
	require.NoError(t, cfg.Validate())
}

// TestValidateRejectsBadValues verifies each guard fires
func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty symbol", func(c *Config) { c.Trading.Symbol = "" }},
		{"zero balance", func(c *Config) { c.Trading.InitialBalance = 0 }},
		{"zero leverage", func(c *Config) { c.Risk.MaxLeverage = 0 }},
		{"oversized position pct", func(c *Config) { c.Risk.MaxPositionSizePct = 1.5 }},
		{"negative daily loss", func(c *Config) { c.Risk.MaxDailyLossPct = -0.1 }},
		{"decay at one", func(c *Config) { c.Performance.RecencyDecay = 1.0 }},
		{"strategy interval too short", func(c *Config) { c.Engine.StrategyInterval = 10 * time.Second }},
		{"strategy interval too long", func(c *Config) { c.Engine.StrategyInterval = 10 * time.Minute }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

// TestRequireCredentials verifies live trading demands both key and secret
func TestRequireCredentials(t *testing.T) {
	cfg := Load()
	cfg.Exchange.APIKey = ""
	cfg.Exchange.Secret = ""
	assert.Error(t, cfg.RequireCredentials())

	cfg.Exchange.APIKey = "key"
	cfg.Exchange.Secret = "secret"
	assert.NoError(t, cfg.RequireCredentials())
}
