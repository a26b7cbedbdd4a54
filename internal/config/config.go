// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings.
type App struct {
	Name        string `yaml:"name"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Provider describes the market-data endpoint connectivity parameters.
type Provider struct {
	BaseURL       string `yaml:"base_url"`
	APIKey        string `yaml:"api_key"`
	Interval      string `yaml:"interval"`
	TimeoutSecs   int    `yaml:"timeout_secs"`
	RatePerMinute int    `yaml:"rate_per_minute"`
	StreamURL     string `yaml:"stream_url"`
}

// Telegram holds the messaging credential and destination chat.
type Telegram struct {
	Token  string `yaml:"token"`
	ChatID string `yaml:"chat_id"`
}

// Strategy groups the oscillator knobs. Overbought/oversold are deliberately
// free parameters; the production values sit asymmetric around the midpoint.
type Strategy struct {
	RSIPeriod  int     `yaml:"rsi_period"`
	Overbought float64 `yaml:"overbought"`
	Oversold   float64 `yaml:"oversold"`
	MinMovePct float64 `yaml:"min_move_pct"`
}

// Engine tunes the polling cadence and history depth.
type Engine struct {
	Pairs              []string `yaml:"pairs"`
	UpdateIntervalSecs int      `yaml:"update_interval_secs"`
	CooldownSecs       int      `yaml:"cooldown_secs"`
	HistoryCapacity    int      `yaml:"history_capacity"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App      App      `yaml:"app"`
	Provider Provider `yaml:"provider"`
	Telegram Telegram `yaml:"telegram"`
	Strategy Strategy `yaml:"strategy"`
	Engine   Engine   `yaml:"engine"`
}

// Load reads a YAML file from disk and hydrates a Config struct with
// defaults applied for omitted fields.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	config := defaults()
	if err := yaml.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return config, nil
}

func defaults() *Config {
	return &Config{
		App: App{
			Name:        "fxsignal",
			MetricsAddr: ":9102",
			LogLevel:    "info",
		},
		Provider: Provider{
			Interval:      "1min",
			TimeoutSecs:   5,
			RatePerMinute: 6,
		},
		Strategy: Strategy{
			RSIPeriod:  14,
			Overbought: 50,
			Oversold:   40,
			MinMovePct: 0.5,
		},
		Engine: Engine{
			Pairs:              []string{"EUR/USD", "USD/JPY", "GBP/USD"},
			UpdateIntervalSecs: 60,
			CooldownSecs:       5,
			HistoryCapacity:    100,
		},
	}
}

// ApplyEnv overlays secrets from the environment onto the loaded config.
// Environment values win over YAML so credentials never need to live on disk.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("TWELVE_DATA_API_KEY"); v != "" {
		c.Provider.APIKey = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Provider.APIKey == "" {
		return fmt.Errorf("provider api key is required")
	}
	if len(c.Engine.Pairs) == 0 {
		return fmt.Errorf("at least one pair is required")
	}
	if c.Strategy.RSIPeriod <= 0 {
		return fmt.Errorf("rsi period must be positive, got %d", c.Strategy.RSIPeriod)
	}
	if c.Strategy.Oversold >= c.Strategy.Overbought {
		return fmt.Errorf("oversold %.1f must sit below overbought %.1f", c.Strategy.Oversold, c.Strategy.Overbought)
	}
	if c.Engine.HistoryCapacity <= c.Strategy.RSIPeriod {
		return fmt.Errorf("history capacity %d too small for rsi period %d", c.Engine.HistoryCapacity, c.Strategy.RSIPeriod)
	}
	if c.Provider.RatePerMinute <= 0 {
		return fmt.Errorf("rate per minute must be positive, got %d", c.Provider.RatePerMinute)
	}
	return nil
}
