package config

// Default returns the engine defaults. Every threshold here is policy, not a
// hard-coded constant in the pipeline.
func Default() *Config {
	return &Config{
		FuzzyFloor:           0.55,
		DateWindowDays:       3,
		AmountTolerancePct:   5.0,
		AmountToleranceCents: 5000,
		FieldWeights: FieldWeights{
			Site:    0.40,
			Date:    0.20,
			Service: 0.20,
			Amount:  0.20,
		},

		RuleTable: []string{
			"DUPLICATE",
			"VOLUME_MISMATCH",
			"RATE_CHANGE",
			"TIMING_DIFFERENCE",
			"MISSING_RECORD",
			"UNCLASSIFIED",
		},
		TimingSlackDays:      7,
		RateChangeBandPct:    25.0,
		QuantityTolerancePct: 1.0,

		AutoResolveConfidenceFloor: 0.80,
		AutoResolveImpactCeiling:   100,

		VarianceTolerancePct: 1.0,

		Workers:      4,
		DatabasePath: "reconciliation.db",
		LogLevel:     "info",
		LogFormat:    "text",
	}
}
