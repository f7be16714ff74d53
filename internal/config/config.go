// Package config holds the runtime configuration for a backtest run.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete backtest configuration.
type Config struct {
	Data     DataConfig     `yaml:"data"`
	Account  AccountConfig  `yaml:"account"`
	Strategy StrategyConfig `yaml:"strategy"`
	Output   OutputConfig   `yaml:"output"`
}

// DataConfig selects the data sources for a run.
type DataConfig struct {
	// AkToolsURL is the base URL of the AkTools HTTP API.
	AkToolsURL string `yaml:"aktools_url"`
	// DatabaseURL enables the Postgres bar cache when set.
	DatabaseURL string `yaml:"database_url,omitempty"`
	// CalendarIndex drives the trading calendar, e.g. sh000001.
	CalendarIndex string `yaml:"calendar_index"`
	Start         string `yaml:"start,omitempty"`
	End           string `yaml:"end,omitempty"`
}

// AccountConfig contains account initialization parameters.
type AccountConfig struct {
	InitialCapital float64 `yaml:"initial_capital"`
}

// StrategyConfig contains momentum strategy parameters.
type StrategyConfig struct {
	// UniverseIndex names the index whose constituents form the universe.
	UniverseIndex string `yaml:"universe_index"`
	Lookback      int    `yaml:"lookback"`
	TopN          int    `yaml:"top_n"`
}

// OutputConfig names the run artifacts.
type OutputConfig struct {
	EquityCSV   string `yaml:"equity_csv,omitempty"`
	EquityChart string `yaml:"equity_chart,omitempty"`
}

// LoadFromFile loads a YAML configuration file and validates it.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Data.AkToolsURL == "" {
		return fmt.Errorf("data.aktools_url is required")
	}
	if c.Data.CalendarIndex == "" {
		return fmt.Errorf("data.calendar_index is required")
	}
	if _, err := c.DateRange(); err != nil {
		return err
	}
	if c.Account.InitialCapital <= 0 {
		return fmt.Errorf("account.initial_capital must be positive")
	}
	if c.Strategy.UniverseIndex == "" {
		return fmt.Errorf("strategy.universe_index is required")
	}
	if c.Strategy.Lookback < 1 {
		return fmt.Errorf("strategy.lookback must be at least 1")
	}
	if c.Strategy.TopN < 1 {
		return fmt.Errorf("strategy.top_n must be at least 1")
	}
	return nil
}

// DateRange parses the configured start and end dates. Empty values come
// back as zero times, meaning unbounded.
func (c *Config) DateRange() (DateRange, error) {
	var r DateRange
	var err error
	if c.Data.Start != "" {
		if r.Start, err = time.Parse("2006-01-02", c.Data.Start); err != nil {
			return DateRange{}, fmt.Errorf("data.start: %w", err)
		}
	}
	if c.Data.End != "" {
		if r.End, err = time.Parse("2006-01-02", c.Data.End); err != nil {
			return DateRange{}, fmt.Errorf("data.end: %w", err)
		}
	}
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start) {
		return DateRange{}, fmt.Errorf("data.end is before data.start")
	}
	return r, nil
}

type DateRange struct {
	Start time.Time
	End   time.Time
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			AkToolsURL:    "http://127.0.0.1:8080",
			CalendarIndex: "sh000001",
		},
		Account: AccountConfig{
			InitialCapital: 1000000,
		},
		Strategy: StrategyConfig{
			UniverseIndex: "000300",
			Lookback:      60,
			TopN:          3,
		},
		Output: OutputConfig{
			EquityCSV:   "equity.csv",
			EquityChart: "equity.html",
		},
	}
}
