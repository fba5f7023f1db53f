package config

import (
	"errors"
	"fmt"

	"revrecon/internal/domain"
)

// ConfigError marks a configuration problem. Validation failures are fatal:
// the run aborts before any record is processed.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return "config: " + e.Msg }

// IsConfigError reports whether err is a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

func configErrorf(format string, args ...any) error {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// Validate ensures every threshold is inside its legal range and the rule
// table references only known tags.
func (c *Config) Validate() error {
	if c.FuzzyFloor < 0 || c.FuzzyFloor > 1 {
		return configErrorf("fuzzy_floor must be in [0,1], got %v", c.FuzzyFloor)
	}
	if c.DateWindowDays < 0 {
		return configErrorf("date_window_days must be non-negative, got %d", c.DateWindowDays)
	}
	if c.AmountTolerancePct < 0 {
		return configErrorf("amount_tolerance_pct must be non-negative, got %v", c.AmountTolerancePct)
	}
	if c.AmountToleranceCents < 0 {
		return configErrorf("amount_tolerance_cents must be non-negative, got %d", c.AmountToleranceCents)
	}
	if err := c.validateWeights(); err != nil {
		return err
	}
	if err := c.validateRuleTable(); err != nil {
		return err
	}
	if c.TimingSlackDays < 0 {
		return configErrorf("timing_slack_days must be non-negative, got %d", c.TimingSlackDays)
	}
	if c.RateChangeBandPct < 0 {
		return configErrorf("rate_change_band_pct must be non-negative, got %v", c.RateChangeBandPct)
	}
	if c.QuantityTolerancePct < 0 {
		return configErrorf("quantity_tolerance_pct must be non-negative, got %v", c.QuantityTolerancePct)
	}
	if c.AutoResolveConfidenceFloor <= 0 || c.AutoResolveConfidenceFloor > 1 {
		return configErrorf("auto_resolve_confidence_floor must be in (0,1], got %v", c.AutoResolveConfidenceFloor)
	}
	if c.AutoResolveImpactCeiling < 0 {
		return configErrorf("auto_resolve_impact_ceiling must be non-negative, got %d", c.AutoResolveImpactCeiling)
	}
	if c.VarianceTolerancePct < 0 {
		return configErrorf("variance_tolerance_pct must be non-negative, got %v", c.VarianceTolerancePct)
	}
	if c.Workers < 1 {
		return configErrorf("workers must be at least 1, got %d", c.Workers)
	}
	return nil
}

func (c *Config) validateWeights() error {
	w := c.FieldWeights
	for name, v := range map[string]float64{
		"site": w.Site, "date": w.Date, "service": w.Service, "amount": w.Amount,
	} {
		if v < 0 {
			return configErrorf("field_weights.%s must be non-negative, got %v", name, v)
		}
	}
	if w.Sum() <= 0 {
		return configErrorf("field_weights must have positive total weight")
	}
	return nil
}

func (c *Config) validateRuleTable() error {
	if len(c.RuleTable) == 0 {
		return configErrorf("rule_table must not be empty")
	}
	known := make(map[string]bool, len(domain.Categories()))
	for _, cat := range domain.Categories() {
		known[string(cat)] = true
	}
	seen := make(map[string]bool, len(c.RuleTable))
	for _, tag := range c.RuleTable {
		if !known[tag] {
			return configErrorf("rule_table references unknown rule %q", tag)
		}
		if seen[tag] {
			return configErrorf("rule_table lists rule %q twice", tag)
		}
		seen[tag] = true
	}
	// The fallback guarantees every exception gets a category.
	if c.RuleTable[len(c.RuleTable)-1] != string(domain.CategoryUnclassified) {
		return configErrorf("rule_table must end with UNCLASSIFIED")
	}
	return nil
}
