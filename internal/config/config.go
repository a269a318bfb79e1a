// Package config assembles the engine configuration from defaults, an
// optional config file, and RECONCILER_* environment variables, in
// ascending precedence.
package config

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"invoice-reconciliation-service/internal/cache"
	"invoice-reconciliation-service/internal/currency"
	"invoice-reconciliation-service/internal/dedup"
	"invoice-reconciliation-service/internal/matcher"
	"invoice-reconciliation-service/internal/retrain"
	engineerrors "invoice-reconciliation-service/pkg/errors"
)

// envPrefix is the environment variable prefix, e.g.
// RECONCILER_MATCHING_ML_THRESHOLD.
const envPrefix = "RECONCILER"

// Config is the full engine configuration.
type Config struct {
	LogLevel  string
	LogFormat string

	Matching *matcher.Config
	Dedup    *dedup.Config
	Currency *currency.Config
	Retrain  *retrain.Config

	// CacheTTL bounds how long reconciliation results stay cached.
	CacheTTL time.Duration

	// ModelPath is the scoring model artifact loaded at startup. Empty
	// means rule-based scoring until the first retrain.
	ModelPath string
}

// Default returns the standard configuration.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Matching:  matcher.DefaultConfig(),
		Dedup:     dedup.DefaultConfig(),
		Currency:  currency.DefaultConfig(),
		Retrain:   retrain.DefaultConfig(),
		CacheTTL:  cache.DefaultTTL,
	}
}

// Load reads configuration from the given file (optional; empty path
// skips the file) plus environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, engineerrors.ConfigurationError("config_file", path, err)
		}
	}

	cfg := &Config{
		LogLevel:  v.GetString("log.level"),
		LogFormat: v.GetString("log.format"),
		Matching: &matcher.Config{
			MLThreshold:          v.GetFloat64("matching.ml_threshold"),
			RuleThreshold:        v.GetFloat64("matching.rule_threshold"),
			RequireCurrencyMatch: v.GetBool("matching.require_currency_match"),
		},
		Dedup: &dedup.Config{
			Enabled:                 v.GetBool("dedup.enabled"),
			AmountTolerance:         decimal.NewFromFloat(v.GetFloat64("dedup.amount_tolerance")),
			DescriptionSimilarity:   v.GetFloat64("dedup.description_similarity"),
			DateToleranceDays:       v.GetInt("dedup.date_tolerance_days"),
			VendorSimilarity:        v.GetFloat64("dedup.vendor_similarity"),
			InvoiceNumberSimilarity: v.GetFloat64("dedup.invoice_number_similarity"),
		},
		Currency: currency.DefaultConfig(),
		Retrain: &retrain.Config{
			Enabled:       v.GetBool("retrain.enabled"),
			MinNewMatches: v.GetInt("retrain.min_new_matches"),
			MinInterval:   v.GetDuration("retrain.min_interval"),
			MaxRetained:   v.GetInt("retrain.max_retained"),
			ArtifactPath:  v.GetString("retrain.artifact_path"),
		},
		CacheTTL:  v.GetDuration("cache.ttl"),
		ModelPath: v.GetString("model.path"),
	}
	cfg.Currency.EnableConversion = v.GetBool("currency.enable_conversion")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	defaults := Default()
	v.SetDefault("log.level", defaults.LogLevel)
	v.SetDefault("log.format", defaults.LogFormat)

	v.SetDefault("matching.ml_threshold", defaults.Matching.MLThreshold)
	v.SetDefault("matching.rule_threshold", defaults.Matching.RuleThreshold)
	v.SetDefault("matching.require_currency_match", defaults.Matching.RequireCurrencyMatch)

	v.SetDefault("dedup.enabled", defaults.Dedup.Enabled)
	v.SetDefault("dedup.amount_tolerance", 0.01)
	v.SetDefault("dedup.description_similarity", defaults.Dedup.DescriptionSimilarity)
	v.SetDefault("dedup.date_tolerance_days", defaults.Dedup.DateToleranceDays)
	v.SetDefault("dedup.vendor_similarity", defaults.Dedup.VendorSimilarity)
	v.SetDefault("dedup.invoice_number_similarity", defaults.Dedup.InvoiceNumberSimilarity)

	v.SetDefault("currency.enable_conversion", defaults.Currency.EnableConversion)

	v.SetDefault("retrain.enabled", defaults.Retrain.Enabled)
	v.SetDefault("retrain.min_new_matches", defaults.Retrain.MinNewMatches)
	v.SetDefault("retrain.min_interval", defaults.Retrain.MinInterval)
	v.SetDefault("retrain.max_retained", defaults.Retrain.MaxRetained)
	v.SetDefault("retrain.artifact_path", "")

	v.SetDefault("cache.ttl", defaults.CacheTTL)
	v.SetDefault("model.path", "")
}

// Validate checks every section for invalid values.
func (c *Config) Validate() error {
	if err := c.Matching.Validate(); err != nil {
		return engineerrors.ConfigurationError("matching", "", err)
	}
	if c.Dedup.DescriptionSimilarity < 0 || c.Dedup.DescriptionSimilarity > 1 {
		return engineerrors.ConfigurationError("dedup.description_similarity",
			c.Dedup.DescriptionSimilarity, nil)
	}
	if c.Dedup.DateToleranceDays < 0 {
		return engineerrors.ConfigurationError("dedup.date_tolerance_days",
			c.Dedup.DateToleranceDays, nil)
	}
	if c.Dedup.AmountTolerance.IsNegative() {
		return engineerrors.ConfigurationError("dedup.amount_tolerance",
			c.Dedup.AmountTolerance.String(), nil)
	}
	if c.Retrain.MinNewMatches < 1 {
		return engineerrors.ConfigurationError("retrain.min_new_matches",
			c.Retrain.MinNewMatches, nil)
	}
	if c.Retrain.MinInterval < 0 {
		return engineerrors.ConfigurationError("retrain.min_interval",
			c.Retrain.MinInterval.String(), nil)
	}
	if c.CacheTTL <= 0 {
		return engineerrors.ConfigurationError("cache.ttl", c.CacheTTL.String(), nil)
	}
	return nil
}
