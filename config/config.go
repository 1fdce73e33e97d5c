package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nebulamarket/autotrader/market"
	"github.com/nebulamarket/autotrader/risk"
	"gopkg.in/yaml.v3"
)

// Config represents the complete simulator configuration
type Config struct {
	Account  AccountConfig            `json:"account" yaml:"account"`
	Bot      BotConfig                `json:"bot" yaml:"bot"`
	Risk     map[string]risk.Settings `json:"risk,omitempty" yaml:"risk,omitempty"`
	Advisor  AdvisorConfig            `json:"advisor" yaml:"advisor"`
	Journal  JournalConfig            `json:"journal" yaml:"journal"`
	Web      WebConfig                `json:"web" yaml:"web"`
	LogLevel string                   `json:"log_level" yaml:"log_level"`
}

// AccountConfig contains account initialization parameters
type AccountConfig struct {
	Currency string  `json:"currency" yaml:"currency"`
	Balance  float64 `json:"balance" yaml:"balance"`
}

// BotConfig contains decision and reconciliation loop parameters
type BotConfig struct {
	// DecisionInterval is the delay between advisor scans, e.g. "1m".
	DecisionInterval string `json:"decision_interval" yaml:"decision_interval"`
	// PriceInterval is the delay between reconciliation cycles, e.g. "3s".
	PriceInterval       string   `json:"price_interval" yaml:"price_interval"`
	ConvictionThreshold float64  `json:"conviction_threshold" yaml:"conviction_threshold"`
	EnabledSymbols      []string `json:"enabled_symbols,omitempty" yaml:"enabled_symbols,omitempty"`
	AutoStart           bool     `json:"auto_start" yaml:"auto_start"`
}

// ParseDecisionInterval converts the decision interval to time.Duration
func (b BotConfig) ParseDecisionInterval() (time.Duration, error) {
	return time.ParseDuration(b.DecisionInterval)
}

// ParsePriceInterval converts the price interval to time.Duration
func (b BotConfig) ParsePriceInterval() (time.Duration, error) {
	return time.ParseDuration(b.PriceInterval)
}

// AdvisorConfig contains market oracle parameters. APIKey falls back to
// the GEMINI_API_KEY environment variable when empty.
type AdvisorConfig struct {
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	APIKey  string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Model   string `json:"model,omitempty" yaml:"model,omitempty"`
}

// ResolveAPIKey returns the configured key or the environment fallback.
func (a AdvisorConfig) ResolveAPIKey() string {
	if a.APIKey != "" {
		return a.APIKey
	}
	return os.Getenv("GEMINI_API_KEY")
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv", "sqlite" or "none"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// WebConfig contains the HTTP API parameters
type WebConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

// LoadFromFile loads configuration from a file (JSON or YAML based on content)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.Currency == "" {
		return fmt.Errorf("account.currency is required")
	}
	if c.Account.Balance <= 0 {
		return fmt.Errorf("account.balance must be positive")
	}
	if _, err := c.Bot.ParseDecisionInterval(); err != nil {
		return fmt.Errorf("bot.decision_interval: %w", err)
	}
	if _, err := c.Bot.ParsePriceInterval(); err != nil {
		return fmt.Errorf("bot.price_interval: %w", err)
	}
	if c.Bot.ConvictionThreshold < 0 || c.Bot.ConvictionThreshold >= 1 {
		return fmt.Errorf("bot.conviction_threshold must be in [0, 1)")
	}
	for _, sym := range c.Bot.EnabledSymbols {
		if _, ok := market.Meta(sym); !ok {
			return fmt.Errorf("unknown enabled symbol: %s", sym)
		}
	}
	for sym, settings := range c.Risk {
		if _, ok := market.Meta(sym); !ok {
			return fmt.Errorf("risk override for unknown symbol: %s", sym)
		}
		if err := settings.Validate(); err != nil {
			return fmt.Errorf("risk override for %s: %w", sym, err)
		}
	}
	switch c.Journal.Type {
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal trades_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "none":
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'none'")
	}
	if c.Web.Addr == "" {
		return fmt.Errorf("web.addr is required")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			Currency: "USD",
			Balance:  10000,
		},
		Bot: BotConfig{
			DecisionInterval:    "1m",
			PriceInterval:       "3s",
			ConvictionThreshold: 0.4,
			EnabledSymbols:      []string{"XAUUSD"},
		},
		Advisor: AdvisorConfig{
			Model: "gemini-2.5-flash",
		},
		Journal: JournalConfig{
			Type:       "csv",
			TradesFile: "./trades.csv",
			EquityFile: "./equity.csv",
		},
		Web: WebConfig{
			Addr: ":8089",
		},
		LogLevel: "info",
	}
}
