package audit

import "fleet-trip-audit/internal/classify"

// Config is the externally settable surface of the pipeline. Zero thresholds
// are replaced by defaults; a zero tolerance is meaningful (exact equality)
// and kept as-is.
type Config struct {
	// FooterThresholdKM: odometer values above this mark a row as a report
	// total rather than a trip. Footer rows are removed before auditing.
	FooterThresholdKM float64

	// TripCeilingKM: the largest plausible single-trip distance. Derived
	// distances above it quarantine the record as a magnitude outlier.
	TripCeilingKM float64

	// MismatchTolerance: allowed absolute gap between the declared total
	// and the odometer-derived distance before a record counts as a
	// manual-entry mismatch. Default 0 (exact match required).
	MismatchTolerance float64

	// Rules is the ordered plate-pattern classification list.
	Rules []classify.Rule
}

// DefaultConfig returns the thresholds used when nothing is configured:
// 100000 km footer cutoff, 2000 km per-trip ceiling, exact-match tolerance,
// and the stock classification rules.
func DefaultConfig() Config {
	return Config{
		FooterThresholdKM: 100000,
		TripCeilingKM:     2000,
		MismatchTolerance: 0,
		Rules:             classify.DefaultRules(),
	}
}

// withDefaults fills unset thresholds from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.FooterThresholdKM <= 0 {
		c.FooterThresholdKM = def.FooterThresholdKM
	}
	if c.TripCeilingKM <= 0 {
		c.TripCeilingKM = def.TripCeilingKM
	}
	if c.MismatchTolerance < 0 {
		c.MismatchTolerance = 0
	}
	if c.Rules == nil {
		c.Rules = def.Rules
	}
	return c
}
