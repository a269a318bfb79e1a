package matcher

import (
	"fmt"
)

// Config controls candidate admission, scoring thresholds, and assignment
// for one matching run.
type Config struct {
	// MLThreshold is the minimum model probability for a candidate scored
	// by the learned model.
	MLThreshold float64 `json:"ml_threshold" mapstructure:"ml_threshold"`

	// RuleThreshold is the minimum score for a candidate scored by the
	// rule-based fallback. Lower than MLThreshold because rule scores are
	// conservative sums, not calibrated probabilities.
	RuleThreshold float64 `json:"rule_threshold" mapstructure:"rule_threshold"`

	// RequireCurrencyMatch admits cross-currency pairs only when both
	// sides carry the same tag or one side is untagged.
	RequireCurrencyMatch bool `json:"require_currency_match" mapstructure:"require_currency_match"`
}

// DefaultConfig returns the standard matching configuration.
func DefaultConfig() *Config {
	return &Config{
		MLThreshold:          0.40,
		RuleThreshold:        0.35,
		RequireCurrencyMatch: true,
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.MLThreshold < 0 || c.MLThreshold > 1 {
		return fmt.Errorf("ml_threshold must be in [0,1], got %f", c.MLThreshold)
	}
	if c.RuleThreshold < 0 || c.RuleThreshold > 1 {
		return fmt.Errorf("rule_threshold must be in [0,1], got %f", c.RuleThreshold)
	}
	return nil
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
