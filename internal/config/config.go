package config

import (
	"fmt"
	"os"
	"time"

	"AstroSwap/internal/strategy"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. ASTRO_TRADING_RESERVE_FLOOR.
const EnvPrefix = "ASTRO"

// RetrogradeWindow is an extra ephemeris entry, dates as YYYY-MM-DD.
type RetrogradeWindow struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// Config holds all application configuration.
type Config struct {
	Wallet struct {
		Address string `yaml:"address" envconfig:"ADDRESS"`
	} `yaml:"wallet" envconfig:"WALLET"`
	Exchange struct {
		BaseURL     string  `yaml:"base_url" envconfig:"BASE_URL"`
		APIKey      string  `yaml:"api_key" envconfig:"API_KEY"`
		MockPrice   float64 `yaml:"mock_price" envconfig:"MOCK_PRICE"`
		MockBalance float64 `yaml:"mock_balance" envconfig:"MOCK_BALANCE"`
	} `yaml:"exchange" envconfig:"EXCHANGE"`
	Trading struct {
		CheckIntervalMS    int           `yaml:"check_interval_ms" envconfig:"CHECK_INTERVAL_MS"`
		MaxPerTrade        float64       `yaml:"max_per_trade" envconfig:"MAX_PER_TRADE"`
		ReserveFloor       *float64      `yaml:"reserve_floor" envconfig:"RESERVE_FLOOR"`
		MinDefensiveAmount float64       `yaml:"min_defensive_amount" envconfig:"MIN_DEFENSIVE_AMOUNT"`
		TestTradeAmount    float64       `yaml:"test_trade_amount" envconfig:"TEST_TRADE_AMOUNT"`
		Slippage           float64       `yaml:"slippage" envconfig:"SLIPPAGE"`
		TradeWindow        time.Duration `yaml:"trade_window" envconfig:"TRADE_WINDOW"`
		TokenIn            string        `yaml:"token_in" envconfig:"TOKEN_IN"`
		TokenOut           string        `yaml:"token_out" envconfig:"TOKEN_OUT"`
		ImmediateTest      bool          `yaml:"immediate_test" envconfig:"IMMEDIATE_TEST"`
		AutoStart          bool          `yaml:"auto_start" envconfig:"AUTO_START"`
	} `yaml:"trading" envconfig:"TRADING"`
	Scoring struct {
		Retrograde []RetrogradeWindow `yaml:"retrograde" ignored:"true"`
	} `yaml:"scoring" ignored:"true"`
	Server struct {
		APIAddr            string `yaml:"api_addr" envconfig:"API_ADDR"`
		WSPath             string `yaml:"ws_path" envconfig:"WS_PATH"`
		RateLimitPerMinute int    `yaml:"rate_limit_per_minute" envconfig:"RATE_LIMIT_PER_MINUTE"`
	} `yaml:"server" envconfig:"SERVER"`
	Telegram struct {
		BotToken string `yaml:"bot_token" envconfig:"BOT_TOKEN"`
		ChatID   string `yaml:"chat_id" envconfig:"CHAT_ID"`
	} `yaml:"telegram" envconfig:"TELEGRAM"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
	} `yaml:"database" envconfig:"DATABASE"`
	Proxy string `yaml:"proxy" envconfig:"PROXY"`
}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides, then fills defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env is optional
	_ = godotenv.Load()
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Exchange.MockPrice == 0 {
		c.Exchange.MockPrice = 0.02
	}
	if c.Exchange.MockBalance == 0 {
		c.Exchange.MockBalance = 10
	}
	if c.Trading.CheckIntervalMS == 0 {
		c.Trading.CheckIntervalMS = 60000
	}
	if c.Trading.MaxPerTrade == 0 {
		c.Trading.MaxPerTrade = 1
	}
	// unset means 5; an explicit 0 disables the reserve
	if c.Trading.ReserveFloor == nil {
		floor := 5.0
		c.Trading.ReserveFloor = &floor
	}
	if c.Trading.MinDefensiveAmount == 0 {
		c.Trading.MinDefensiveAmount = 0.1
	}
	if c.Trading.TestTradeAmount == 0 {
		c.Trading.TestTradeAmount = 0.5
	}
	if c.Trading.Slippage == 0 {
		c.Trading.Slippage = 0.05
	}
	if c.Trading.TradeWindow == 0 {
		c.Trading.TradeWindow = time.Hour
	}
	if c.Trading.TokenIn == "" {
		c.Trading.TokenIn = "GALA|Unit|none|none"
	}
	if c.Trading.TokenOut == "" {
		c.Trading.TokenOut = "GUSDC|Unit|none|none"
	}
	if c.Server.APIAddr == "" {
		c.Server.APIAddr = ":3001"
	}
	if c.Server.WSPath == "" {
		c.Server.WSPath = "/ws"
	}
	if c.Server.RateLimitPerMinute == 0 {
		c.Server.RateLimitPerMinute = 30
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/astroswap.db"
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Exchange.BaseURL != "" && c.Wallet.Address == "" {
		return fmt.Errorf("wallet.address is required with exchange.base_url")
	}
	if c.Trading.CheckIntervalMS < 1000 {
		return fmt.Errorf("trading.check_interval_ms must be at least 1000")
	}
	// the scheduler ticks on whole seconds
	if c.Trading.CheckIntervalMS%1000 != 0 {
		return fmt.Errorf("trading.check_interval_ms must be a whole number of seconds, got %d", c.Trading.CheckIntervalMS)
	}
	if c.Trading.MaxPerTrade <= 0 {
		return fmt.Errorf("trading.max_per_trade must be positive")
	}
	if c.Trading.ReserveFloor != nil && *c.Trading.ReserveFloor < 0 {
		return fmt.Errorf("trading.reserve_floor must not be negative")
	}
	if c.Trading.Slippage < 0 || c.Trading.Slippage >= 1 {
		return fmt.Errorf("trading.slippage must be in [0, 1)")
	}
	if c.Trading.TokenIn == c.Trading.TokenOut {
		return fmt.Errorf("trading.token_in and trading.token_out must differ")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	if _, err := c.Ephemeris(); err != nil {
		return err
	}
	return nil
}

// CheckInterval returns the decision cycle spacing.
func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.Trading.CheckIntervalMS) * time.Millisecond
}

// Ephemeris returns the built-in retrograde table extended with scoring.retrograde.
func (c *Config) Ephemeris() (strategy.Ephemeris, error) {
	eph := strategy.DefaultEphemeris()
	for i, w := range c.Scoring.Retrograde {
		start, err := strategy.ParseDate(w.Start)
		if err != nil {
			return nil, fmt.Errorf("scoring.retrograde[%d].start: %w", i, err)
		}
		end, err := strategy.ParseDate(w.End)
		if err != nil {
			return nil, fmt.Errorf("scoring.retrograde[%d].end: %w", i, err)
		}
		if err := eph.Add(strategy.Window{Start: start, End: end}); err != nil {
			return nil, fmt.Errorf("scoring.retrograde[%d]: %w", i, err)
		}
	}
	return eph, nil
}

// TelegramEnabled reports whether chat notifications are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Reserve returns the configured reserve floor.
func (c *Config) Reserve() float64 {
	if c.Trading.ReserveFloor == nil {
		return 0
	}
	return *c.Trading.ReserveFloor
}
