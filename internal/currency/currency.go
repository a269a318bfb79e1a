// Package currency detects the currency mix of a reconciliation run and,
// when conversion is enabled, normalizes amounts to the run's primary
// currency. Most runs are single-currency with spotty tagging, so the
// resolver works from frequencies rather than requiring every row to be
// tagged.
package currency

import (
	"sort"

	"github.com/shopspring/decimal"

	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/pkg/logger"
)

// significanceThreshold is the share of tagged transactions a currency
// needs before it counts toward the mix.
const significanceThreshold = 0.15

// Config controls currency handling.
type Config struct {
	// EnableConversion turns on static-rate conversion to the primary
	// currency. Off by default: cross-currency amounts rarely reconcile
	// cleanly through indicative rates, so mixed runs are flagged instead.
	EnableConversion bool `json:"enable_conversion" mapstructure:"enable_conversion"`

	// Rates maps a currency code to its value in US dollars, used as the
	// pivot for conversion.
	Rates map[string]decimal.Decimal `json:"rates" mapstructure:"rates"`
}

// DefaultConfig returns currency handling defaults: conversion disabled,
// indicative rates for the majors.
func DefaultConfig() *Config {
	return &Config{
		EnableConversion: false,
		Rates: map[string]decimal.Decimal{
			"USD": decimal.NewFromFloat(1.00),
			"EUR": decimal.NewFromFloat(1.08),
			"GBP": decimal.NewFromFloat(1.27),
			"INR": decimal.NewFromFloat(0.012),
			"JPY": decimal.NewFromFloat(0.0067),
			"CAD": decimal.NewFromFloat(0.73),
			"AUD": decimal.NewFromFloat(0.65),
		},
	}
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Rates = make(map[string]decimal.Decimal, len(c.Rates))
	for code, rate := range c.Rates {
		clone.Rates[code] = rate
	}
	return &clone
}

// Resolver inspects and optionally normalizes a run's currencies.
type Resolver struct {
	config *Config
	logger logger.Logger
}

// NewResolver creates a resolver. A nil config uses the defaults.
func NewResolver(config *Config) *Resolver {
	if config == nil {
		config = DefaultConfig()
	}
	return &Resolver{
		config: config.Clone(),
		logger: logger.WithComponent("currency"),
	}
}

// Resolve computes the currency distribution over the combined transaction
// lists. The primary currency is the most frequent tag; ties break toward
// the lexicographically smaller code so repeated runs agree.
func (r *Resolver) Resolve(lists ...[]*models.Transaction) *models.CurrencyStats {
	stats := &models.CurrencyStats{
		Counts: make(map[string]int),
	}
	for _, list := range lists {
		for _, txn := range list {
			if txn.Currency == "" {
				continue
			}
			stats.Counts[txn.Currency]++
			stats.TaggedCount++
		}
	}
	if stats.TaggedCount == 0 {
		return stats
	}

	codes := make([]string, 0, len(stats.Counts))
	for code := range stats.Counts {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool {
		if stats.Counts[codes[i]] != stats.Counts[codes[j]] {
			return stats.Counts[codes[i]] > stats.Counts[codes[j]]
		}
		return codes[i] < codes[j]
	})
	stats.Primary = codes[0]

	for _, code := range codes {
		share := float64(stats.Counts[code]) / float64(stats.TaggedCount)
		if share >= significanceThreshold {
			stats.Significant = append(stats.Significant, code)
		}
	}
	stats.Mixed = len(stats.Significant) > 1

	if stats.Mixed && !r.config.EnableConversion {
		r.logger.WithFields(logger.Fields{
			"currencies": stats.Significant,
			"primary":    stats.Primary,
		}).Warn("multiple significant currencies detected, conversion disabled; cross-currency pairs will not match")
	}
	return stats
}

// Normalize converts every transaction tagged with a non-primary currency
// into the primary currency using the static rate table. It returns a new
// slice with converted copies; inputs are never mutated. When conversion
// is disabled the input slice is returned as-is.
func (r *Resolver) Normalize(stats *models.CurrencyStats, txns []*models.Transaction) []*models.Transaction {
	if !r.config.EnableConversion || stats.Primary == "" {
		return txns
	}
	primaryRate, ok := r.config.Rates[stats.Primary]
	if !ok || primaryRate.IsZero() {
		r.logger.WithField("currency", stats.Primary).Warn("no rate for primary currency, skipping conversion")
		return txns
	}

	out := make([]*models.Transaction, len(txns))
	converted := 0
	for i, txn := range txns {
		if txn.Currency == "" || txn.Currency == stats.Primary || txn.InvalidAmount {
			out[i] = txn
			continue
		}
		rate, ok := r.config.Rates[txn.Currency]
		if !ok {
			r.logger.WithField("currency", txn.Currency).Warn("no conversion rate, leaving amount unconverted")
			out[i] = txn
			continue
		}
		clone := *txn
		clone.Amount = txn.Amount.Mul(rate).Div(primaryRate).Round(2)
		clone.Currency = stats.Primary
		out[i] = &clone
		converted++
	}
	if converted > 0 {
		r.logger.WithFields(logger.Fields{
			"converted": converted,
			"primary":   stats.Primary,
		}).Info("currency conversion applied")
	}
	return out
}
