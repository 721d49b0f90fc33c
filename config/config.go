// Package config loads the YAML configuration consumed by the CLI driver.
// It is purely a convenience layer for cmd/: the library packages (cache,
// planner) take plain Go values and never read a config file themselves.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CacheConfig groups radix cache construction parameters.
type CacheConfig struct {
	TotalKVUnits int `yaml:"total_kv_units"`
}

// PlannerConfig groups prefill planner tunables.
type PlannerConfig struct {
	TableSlots    int `yaml:"table_slots"`
	PrefillBudget int `yaml:"prefill_budget"`
}

// Config is the top-level YAML document shape for the CLI driver.
type Config struct {
	Cache    CacheConfig   `yaml:"cache"`
	Planner  PlannerConfig `yaml:"planner"`
	LogLevel string        `yaml:"log_level"`
}

// Default returns a Config with reasonable defaults for a quick local run.
func Default() *Config {
	return &Config{
		Cache:    CacheConfig{TotalKVUnits: 4096},
		Planner:  PlannerConfig{TableSlots: 64, PrefillBudget: 2048},
		LogLevel: "info",
	}
}

// Load reads and strictly parses a YAML config file: unrecognized keys
// (typos) are rejected rather than silently ignored.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every configured capacity is positive.
func (c *Config) Validate() error {
	if c.Cache.TotalKVUnits <= 0 {
		return fmt.Errorf("cache.total_kv_units must be positive, got %d", c.Cache.TotalKVUnits)
	}
	if c.Planner.TableSlots <= 0 {
		return fmt.Errorf("planner.table_slots must be positive, got %d", c.Planner.TableSlots)
	}
	if c.Planner.PrefillBudget <= 0 {
		return fmt.Errorf("planner.prefill_budget must be positive, got %d", c.Planner.PrefillBudget)
	}
	return nil
}
