package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete engine configuration. It is constructed once at
// process start and passed into each component's constructor; nothing reads
// the environment at import time.
type Config struct {
	Engine    EngineConfig    `json:"engine" yaml:"engine"`
	Risk      RiskConfig      `json:"risk" yaml:"risk"`
	Capital   CapitalConfig   `json:"capital" yaml:"capital"`
	Sim       SimConfig       `json:"sim" yaml:"sim"`
	WAL       WALConfig       `json:"wal" yaml:"wal"`
	Forensic  ForensicConfig  `json:"forensic" yaml:"forensic"`
	Integrity IntegrityConfig `json:"integrity" yaml:"integrity"`
}

// EngineConfig controls the cycle orchestrator.
type EngineConfig struct {
	Mode             string   `json:"mode" yaml:"mode"` // DRY_RUN or LIVE
	Symbols          []string `json:"symbols" yaml:"symbols"`
	BaseCurrency     string   `json:"base_currency" yaml:"base_currency"`
	Timeframe        string   `json:"timeframe" yaml:"timeframe"`
	CandleLimit      int      `json:"candle_limit" yaml:"candle_limit"`
	OneTradePerCycle bool     `json:"one_trade_per_cycle" yaml:"one_trade_per_cycle"`
	CronSpec         string   `json:"cron_spec,omitempty" yaml:"cron_spec,omitempty"`
}

// RiskConfig bounds the pre-trade gate.
type RiskConfig struct {
	MaxDrawdownPct float64 `json:"max_drawdown_pct" yaml:"max_drawdown_pct"`
	MaxSpreadPct   float64 `json:"max_spread_pct" yaml:"max_spread_pct"`
	StatePath      string  `json:"state_path" yaml:"state_path"`
}

// CapitalConfig controls capital segregation and the dust gate.
type CapitalConfig struct {
	MinCapitalUSD float64 `json:"min_capital_usd" yaml:"min_capital_usd"`
	StatePath     string  `json:"state_path" yaml:"state_path"`
}

// SimConfig parameterizes the pessimistic fill model.
type SimConfig struct {
	TakerFeeRate float64 `json:"taker_fee_rate" yaml:"taker_fee_rate"`
	SlippageRate float64 `json:"slippage_rate" yaml:"slippage_rate"`
}

// WALConfig bounds the async persistence queue.
type WALConfig struct {
	FlushInterval string `json:"flush_interval" yaml:"flush_interval"`
	QueueSize     int    `json:"queue_size" yaml:"queue_size"`
}

// ParseFlushInterval converts the interval string to a duration.
func (w WALConfig) ParseFlushInterval() (time.Duration, error) {
	if w.FlushInterval == "" {
		return time.Second, nil
	}
	return time.ParseDuration(w.FlushInterval)
}

// ForensicConfig locates the audit trail outputs.
type ForensicConfig struct {
	Dir          string `json:"dir" yaml:"dir"`
	MirrorDBPath string `json:"mirror_db_path,omitempty" yaml:"mirror_db_path,omitempty"`
}

// IntegrityConfig drives the governance lock and preflight checks.
type IntegrityConfig struct {
	Manifest         []string `json:"manifest" yaml:"manifest"`
	EntryFile        string   `json:"entry_file" yaml:"entry_file"`
	RequiredEnv      []string `json:"required_env" yaml:"required_env"`
	CredentialEnv    []string `json:"credential_env" yaml:"credential_env"`
	PinnedDeps       []string `json:"pinned_deps" yaml:"pinned_deps"`
	OptionalInDryRun []string `json:"optional_in_dry_run" yaml:"optional_in_dry_run"`
}

// LoadFromFile loads configuration from a file (YAML first, JSON fallback).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile saves configuration to a file (format chosen by extension).
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

// Validate checks the configuration. Anything that would make a gate
// undefined at runtime is rejected here, before a cycle can start.
func (c *Config) Validate() error {
	if c.Engine.Mode != "DRY_RUN" && c.Engine.Mode != "LIVE" {
		return fmt.Errorf("engine.mode must be DRY_RUN or LIVE")
	}
	if len(c.Engine.Symbols) == 0 {
		return fmt.Errorf("engine.symbols is required")
	}
	if c.Engine.BaseCurrency == "" {
		return fmt.Errorf("engine.base_currency is required")
	}
	if c.Engine.CandleLimit <= 0 {
		return fmt.Errorf("engine.candle_limit must be positive")
	}
	if c.Risk.MaxDrawdownPct <= 0 {
		return fmt.Errorf("risk.max_drawdown_pct must be positive")
	}
	if c.Risk.MaxSpreadPct <= 0 {
		return fmt.Errorf("risk.max_spread_pct must be positive")
	}
	if c.Risk.StatePath == "" {
		return fmt.Errorf("risk.state_path is required")
	}
	if c.Capital.MinCapitalUSD <= 0 {
		return fmt.Errorf("capital.min_capital_usd must be positive")
	}
	if c.Capital.StatePath == "" {
		return fmt.Errorf("capital.state_path is required")
	}
	if c.Sim.TakerFeeRate < 0 || c.Sim.TakerFeeRate >= 1 {
		return fmt.Errorf("sim.taker_fee_rate must be in [0,1)")
	}
	if c.Sim.SlippageRate < 0 || c.Sim.SlippageRate >= 1 {
		return fmt.Errorf("sim.slippage_rate must be in [0,1)")
	}
	if c.WAL.QueueSize <= 0 {
		return fmt.Errorf("wal.queue_size must be positive")
	}
	if _, err := c.WAL.ParseFlushInterval(); err != nil {
		return fmt.Errorf("wal.flush_interval: %w", err)
	}
	if c.Forensic.Dir == "" {
		return fmt.Errorf("forensic.dir is required")
	}
	return nil
}

// Default returns a configuration with fail-safe defaults: dry run, tight
// risk ceilings, bounded WAL.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Mode:             "DRY_RUN",
			Symbols:          []string{"BTC/USDT", "ETH/USDT", "SOL/USDT"},
			BaseCurrency:     "USDT",
			Timeframe:        "15m",
			CandleLimit:      100,
			OneTradePerCycle: true,
		},
		Risk: RiskConfig{
			MaxDrawdownPct: 2.0,
			MaxSpreadPct:   0.5,
			StatePath:      "data/risk_state.json",
		},
		Capital: CapitalConfig{
			MinCapitalUSD: 10.0,
			StatePath:     "data/capital_state.json",
		},
		Sim: SimConfig{
			TakerFeeRate: 0.0026,
			SlippageRate: 0.001,
		},
		WAL: WALConfig{
			FlushInterval: "1s",
			QueueSize:     1000,
		},
		Forensic: ForensicConfig{
			Dir: "data/forensics",
		},
		Integrity: IntegrityConfig{
			Manifest: []string{
				"go.mod",
				"config/config.go",
				"governance/machine.go",
				"integrity/preflight.go",
				"cmd/irongate/main.go",
			},
			EntryFile:     "cmd/irongate/cmd/run.go",
			RequiredEnv:   []string{"IRONGATE_MIRROR_URL", "IRONGATE_MIRROR_KEY"},
			CredentialEnv: []string{"IRONGATE_API_KEY", "IRONGATE_API_SECRET"},
			PinnedDeps: []string{
				"github.com/shopspring/decimal v1.4.0",
				"github.com/mattn/go-sqlite3 v1.14.33",
			},
			OptionalInDryRun: []string{"IRONGATE_MIRROR_URL", "IRONGATE_MIRROR_KEY"},
		},
	}
}
