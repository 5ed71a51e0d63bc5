// Package config loads application configuration from a YAML file with
// environment overrides for secrets and infrastructure endpoints.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"cryptosignals/internal/indicator"
	"cryptosignals/internal/model"
	"cryptosignals/internal/scoring"
	"cryptosignals/internal/strategy"
)

// Config holds everything the scanner, tracker and watcher binaries need.
type Config struct {
	// Symbols are exchange pair symbols to scan, e.g. BTC-USDT.
	Symbols []string `yaml:"symbols" validate:"min=1,dive,required"`
	// Aliases remap delisted or renamed pairs before any API call.
	Aliases map[string]string `yaml:"symbol_aliases"`

	PrimaryTimeframe model.Timeframe `yaml:"primary_timeframe" validate:"oneof=30min 1hour"`
	HigherTimeframe  model.Timeframe `yaml:"higher_timeframe" validate:"oneof=30min 1hour"`

	LookbackCandles         int  `yaml:"lookback_candles" validate:"gte=0"`
	InterSymbolDelaySeconds int  `yaml:"inter_symbol_delay_seconds" validate:"gte=0"`
	ConfirmHigherTimeframe  bool `yaml:"confirm_higher_timeframe"`

	Indicators indicator.Config  `yaml:"indicators"`
	Strategy   strategy.Settings `yaml:"strategy"`
	Weights    scoring.Weights   `yaml:"weights"`

	Store struct {
		Path        string `yaml:"path" validate:"required"`
		ArchivePath string `yaml:"archive_path"`
	} `yaml:"store"`

	Redis struct {
		Addr            string `yaml:"addr"`
		Password        string `yaml:"-"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds" validate:"gte=0"`
	} `yaml:"redis"`

	Telegram struct {
		Enabled  bool   `yaml:"enabled"`
		BotToken string `yaml:"-"`
		ChatID   string `yaml:"-"`
	} `yaml:"telegram"`

	KuCoinBaseURL string `yaml:"kucoin_base_url"`
	MetricsAddr   string `yaml:"metrics_addr"`
	LogLevel      string `yaml:"log_level" validate:"omitempty,oneof=trace debug info warn error"`
}

// Default returns the shipped configuration; Load layers the YAML file and
// environment on top of it.
func Default() Config {
	var cfg Config
	cfg.PrimaryTimeframe = model.TF30Min
	cfg.HigherTimeframe = model.TF1Hour
	cfg.LookbackCandles = 200
	cfg.InterSymbolDelaySeconds = 2
	cfg.Indicators = indicator.DefaultConfig()
	cfg.Strategy = strategy.DefaultSettings()
	cfg.Weights = scoring.DefaultWeights()
	cfg.Store.Path = "data/signals.json"
	cfg.Store.ArchivePath = "data/history.db"
	cfg.Redis.CacheTTLSeconds = 60
	cfg.LogLevel = "info"
	return cfg
}

// Load reads the YAML file at path, applies environment overrides and
// validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv pulls secrets and endpoint overrides from the environment.
// Secrets never live in the YAML file.
func (c *Config) applyEnv() {
	c.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	c.Telegram.ChatID = os.Getenv("TELEGRAM_CHAT_ID")
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("KUCOIN_BASE_URL"); v != "" {
		c.KuCoinBaseURL = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		c.MetricsAddr = v
	}
}

// Validate checks structural constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.Weights.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.HigherTimeframe.Duration() <= c.PrimaryTimeframe.Duration() {
		return fmt.Errorf("config: higher_timeframe %s must be longer than primary_timeframe %s",
			c.HigherTimeframe, c.PrimaryTimeframe)
	}
	if c.Telegram.Enabled && (c.Telegram.BotToken == "" || c.Telegram.ChatID == "") {
		return fmt.Errorf("config: telegram enabled but TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID unset")
	}
	return nil
}

// InterSymbolDelay returns the pacing delay as a duration.
func (c *Config) InterSymbolDelay() time.Duration {
	return time.Duration(c.InterSymbolDelaySeconds) * time.Second
}

// CacheTTL returns the quote cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Redis.CacheTTLSeconds) * time.Second
}
