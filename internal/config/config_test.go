package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 60*time.Second, cfg.CheckInterval())
	assert.Equal(t, 1.0, cfg.Trading.MaxPerTrade)
	assert.Equal(t, 5.0, cfg.Reserve())
	assert.Equal(t, 0.1, cfg.Trading.MinDefensiveAmount)
	assert.Equal(t, 0.5, cfg.Trading.TestTradeAmount)
	assert.Equal(t, 0.05, cfg.Trading.Slippage)
	assert.Equal(t, time.Hour, cfg.Trading.TradeWindow)
	assert.Equal(t, "GALA|Unit|none|none", cfg.Trading.TokenIn)
	assert.Equal(t, "GUSDC|Unit|none|none", cfg.Trading.TokenOut)
	assert.Equal(t, ":3001", cfg.Server.APIAddr)
	assert.Equal(t, "/ws", cfg.Server.WSPath)
	assert.False(t, cfg.TelegramEnabled())
	require.NoError(t, cfg.Validate())
}

func TestLoad_YAMLAndEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
wallet:
  address: client|abc
exchange:
  base_url: https://gateway.example
trading:
  check_interval_ms: 30000
  reserve_floor: 6
  trade_window: 90m
  auto_start: true
scoring:
  retrograde:
    - start: "2026-02-26"
      end: "2026-03-20"
telegram:
  bot_token: tok
  chat_id: "42"
`)
	t.Setenv("ASTRO_TRADING_RESERVE_FLOOR", "7.5")
	t.Setenv("ASTRO_EXCHANGE_API_KEY", "secret")
	t.Setenv("ASTRO_SERVER_API_ADDR", ":9000")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "client|abc", cfg.Wallet.Address)
	assert.Equal(t, 30*time.Second, cfg.CheckInterval())
	assert.Equal(t, 7.5, cfg.Reserve())
	assert.Equal(t, 90*time.Minute, cfg.Trading.TradeWindow)
	assert.True(t, cfg.Trading.AutoStart)
	assert.Equal(t, "secret", cfg.Exchange.APIKey)
	assert.Equal(t, ":9000", cfg.Server.APIAddr)
	assert.True(t, cfg.TelegramEnabled())
	require.NoError(t, cfg.Validate())

	eph, err := cfg.Ephemeris()
	require.NoError(t, err)
	retro, known := eph.Retrograde(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	assert.True(t, known)
	assert.True(t, retro)
}

func TestLoad_ZeroReserveFloorKept(t *testing.T) {
	cfg, err := Load(writeConfig(t, "trading:\n  reserve_floor: 0\n"))
	require.NoError(t, err)

	require.NotNil(t, cfg.Trading.ReserveFloor)
	assert.Equal(t, 0.0, cfg.Reserve())
	require.NoError(t, cfg.Validate())
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "trading: [unclosed"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"wallet needed for live gateway", func(c *Config) { c.Exchange.BaseURL = "https://x" }, "wallet.address"},
		{"interval too short", func(c *Config) { c.Trading.CheckIntervalMS = 500 }, "check_interval_ms"},
		{"sub-second interval", func(c *Config) { c.Trading.CheckIntervalMS = 1500 }, "whole number of seconds"},
		{"negative reserve", func(c *Config) { floor := -1.0; c.Trading.ReserveFloor = &floor }, "reserve_floor"},
		{"slippage out of range", func(c *Config) { c.Trading.Slippage = 1 }, "slippage"},
		{"same token", func(c *Config) { c.Trading.TokenOut = c.Trading.TokenIn }, "must differ"},
		{"half telegram", func(c *Config) { c.Telegram.BotToken = "tok" }, "telegram"},
		{"inverted window", func(c *Config) {
			c.Scoring.Retrograde = []RetrogradeWindow{{Start: "2026-03-20", End: "2026-02-26"}}
		}, "scoring.retrograde[0]"},
		{"bad date", func(c *Config) {
			c.Scoring.Retrograde = []RetrogradeWindow{{Start: "26-02-2026", End: "2026-03-20"}}
		}, "scoring.retrograde[0].start"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
			require.NoError(t, err)
			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
