package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0.55, cfg.FuzzyFloor)
	assert.Equal(t, 3, cfg.DateWindowDays)
	assert.Equal(t, "UNCLASSIFIED", cfg.RuleTable[len(cfg.RuleTable)-1])
	assert.InDelta(t, 1.0, cfg.FieldWeights.Sum(), 1e-9)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"fuzzy floor above one", func(c *Config) { c.FuzzyFloor = 1.5 }, "fuzzy_floor"},
		{"negative date window", func(c *Config) { c.DateWindowDays = -1 }, "date_window_days"},
		{"negative amount tolerance", func(c *Config) { c.AmountTolerancePct = -5 }, "amount_tolerance_pct"},
		{"negative weight", func(c *Config) { c.FieldWeights.Site = -0.1 }, "field_weights.site"},
		{"zero total weight", func(c *Config) { c.FieldWeights = FieldWeights{} }, "positive total weight"},
		{"empty rule table", func(c *Config) { c.RuleTable = nil }, "rule_table"},
		{"unknown rule tag", func(c *Config) { c.RuleTable = []string{"GREMLINS", "UNCLASSIFIED"} }, "unknown rule"},
		{"duplicate rule tag", func(c *Config) {
			c.RuleTable = []string{"DUPLICATE", "DUPLICATE", "UNCLASSIFIED"}
		}, "twice"},
		{"missing terminator", func(c *Config) {
			c.RuleTable = []string{"UNCLASSIFIED", "DUPLICATE"}
		}, "end with UNCLASSIFIED"},
		{"zero confidence floor", func(c *Config) { c.AutoResolveConfidenceFloor = 0 }, "auto_resolve_confidence_floor"},
		{"negative impact ceiling", func(c *Config) { c.AutoResolveImpactCeiling = -1 }, "auto_resolve_impact_ceiling"},
		{"zero workers", func(c *Config) { c.Workers = 0 }, "workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, IsConfigError(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadLayersOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fuzzy_floor: 0.7\nworkers: 8\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.7, cfg.FuzzyFloor)
	assert.Equal(t, 8, cfg.Workers)
	// Untouched keys keep their defaults.
	assert.Equal(t, 3, cfg.DateWindowDays)
	assert.Equal(t, int64(100), cfg.AutoResolveImpactCeiling)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fuzzy_floor: 2.0\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.False(t, IsConfigError(err))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fuzzy_floor: [not a number\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestSampleParsesToValidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(Sample()), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
}
