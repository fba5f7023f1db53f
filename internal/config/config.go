// Package config defines the engine's tunable surface: fuzzy thresholds,
// field weights, routing floors, and the ordered classification rule table.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed sample_config.yaml
var sampleConfig string

// FieldWeights is the weight vector combined into a fuzzy score. Weights are
// relative; the scorer normalizes by their sum.
type FieldWeights struct {
	Site    float64 `yaml:"site"`
	Date    float64 `yaml:"date"`
	Service float64 `yaml:"service"`
	Amount  float64 `yaml:"amount"`
}

// Sum returns the total weight mass.
func (w FieldWeights) Sum() float64 {
	return w.Site + w.Date + w.Service + w.Amount
}

// Config is the full configuration surface consumed by the engine.
type Config struct {
	// Matching.
	FuzzyFloor           float64      `yaml:"fuzzy_floor"`
	DateWindowDays       int          `yaml:"date_window_days"`
	AmountTolerancePct   float64      `yaml:"amount_tolerance_pct"`
	AmountToleranceCents int64        `yaml:"amount_tolerance_cents"`
	FieldWeights         FieldWeights `yaml:"field_weights"`

	// Classification.
	RuleTable            []string `yaml:"rule_table"`
	TimingSlackDays      int      `yaml:"timing_slack_days"`
	RateChangeBandPct    float64  `yaml:"rate_change_band_pct"`
	QuantityTolerancePct float64  `yaml:"quantity_tolerance_pct"`

	// Routing.
	AutoResolveConfidenceFloor float64 `yaml:"auto_resolve_confidence_floor"`
	AutoResolveImpactCeiling   int64   `yaml:"auto_resolve_impact_ceiling"`

	// Reporting.
	VarianceTolerancePct float64 `yaml:"variance_tolerance_pct"`

	// Execution.
	Workers      int    `yaml:"workers"`
	DatabasePath string `yaml:"database_path"`
	LogLevel     string `yaml:"log_level"`
	LogFormat    string `yaml:"log_format"`
}

// Load reads a YAML config file, layered over defaults, and validates it.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Sample returns the commented sample configuration written by `config init`.
func Sample() string {
	return sampleConfig
}
