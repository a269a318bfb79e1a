// Package dedup collapses near-duplicate transactions within one source
// list before matching. OCR extraction pipelines frequently emit the same
// invoice line twice; left in place, duplicates inflate the unmatched
// lists and can steal one-to-one assignments from each other.
package dedup

import (
	"github.com/shopspring/decimal"

	"invoice-reconciliation-service/internal/matcher"
	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/pkg/logger"
)

// Config controls duplicate detection.
type Config struct {
	// Enabled gates the whole pass. Disabled deduplication returns inputs
	// untouched.
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// AmountTolerance is the maximum absolute amount difference between
	// duplicates.
	AmountTolerance decimal.Decimal `json:"amount_tolerance" mapstructure:"amount_tolerance"`

	// DescriptionSimilarity is the minimum description similarity, applied
	// only when both rows carry a description.
	DescriptionSimilarity float64 `json:"description_similarity" mapstructure:"description_similarity"`

	// DateToleranceDays is the maximum date difference in days, applied
	// only when both rows carry a date. Zero means duplicates must fall on
	// the same day.
	DateToleranceDays int `json:"date_tolerance_days" mapstructure:"date_tolerance_days"`

	// VendorSimilarity is the minimum vendor similarity, applied only when
	// both rows carry a vendor name.
	VendorSimilarity float64 `json:"vendor_similarity" mapstructure:"vendor_similarity"`

	// InvoiceNumberSimilarity is the minimum invoice-number agreement,
	// applied only when both rows carry an invoice number.
	InvoiceNumberSimilarity float64 `json:"invoice_number_similarity" mapstructure:"invoice_number_similarity"`
}

// DefaultConfig returns the standard deduplication settings.
func DefaultConfig() *Config {
	return &Config{
		Enabled:                 true,
		AmountTolerance:         decimal.NewFromFloat(0.01),
		DescriptionSimilarity:   0.95,
		DateToleranceDays:       0,
		VendorSimilarity:        0.9,
		InvoiceNumberSimilarity: 0.9,
	}
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// Deduplicator removes near-duplicates from one transaction list.
type Deduplicator struct {
	config *Config
	logger logger.Logger
}

// New creates a deduplicator. A nil config uses the defaults.
func New(config *Config) *Deduplicator {
	if config == nil {
		config = DefaultConfig()
	}
	return &Deduplicator{
		config: config.Clone(),
		logger: logger.WithComponent("dedup"),
	}
}

// Deduplicate returns the list with near-duplicates removed, keeping the
// first occurrence of each duplicate group. Input order is preserved and
// the input slice is never mutated. Running the output through Deduplicate
// again returns it unchanged.
func (d *Deduplicator) Deduplicate(txns []*models.Transaction) ([]*models.Transaction, models.DedupStats) {
	stats := models.DedupStats{
		OriginalCount:     len(txns),
		DeduplicatedCount: len(txns),
	}
	if !d.config.Enabled || len(txns) < 2 {
		out := make([]*models.Transaction, len(txns))
		copy(out, txns)
		return out, stats
	}

	kept := make([]*models.Transaction, 0, len(txns))
	for _, txn := range txns {
		duplicate := false
		for _, survivor := range kept {
			if d.isDuplicate(survivor, txn) {
				duplicate = true
				break
			}
		}
		if duplicate {
			d.logger.WithField("transaction", txn.String()).Debug("duplicate removed")
			continue
		}
		kept = append(kept, txn)
	}

	stats.DeduplicatedCount = len(kept)
	stats.DuplicatesRemoved = stats.OriginalCount - stats.DeduplicatedCount
	if stats.DuplicatesRemoved > 0 {
		d.logger.WithFields(logger.Fields{
			"original": stats.OriginalCount,
			"kept":     stats.DeduplicatedCount,
			"removed":  stats.DuplicatesRemoved,
		}).Info("deduplication complete")
	}
	return kept, stats
}

// isDuplicate applies the duplicate criteria pairwise. Amount always
// applies; date, description, vendor, and invoice number apply only when
// both rows carry the field. A missing field skips its criterion rather
// than failing it, so sparse extractions still merge on what they share.
func (d *Deduplicator) isDuplicate(a, b *models.Transaction) bool {
	if a.InvalidAmount || b.InvalidAmount {
		return false
	}
	if a.AbsAmount().Sub(b.AbsAmount()).Abs().GreaterThan(d.config.AmountTolerance) {
		return false
	}
	if a.Currency != "" && b.Currency != "" && a.Currency != b.Currency {
		return false
	}

	if days, ok := models.DateDiffDays(a, b); ok {
		if days < 0 {
			days = -days
		}
		if days > d.config.DateToleranceDays {
			return false
		}
	}

	if a.Description != "" && b.Description != "" {
		if matcher.DescriptionSimilarity(a.Description, b.Description) < d.config.DescriptionSimilarity {
			return false
		}
	}

	if a.VendorName != "" && b.VendorName != "" {
		if matcher.VendorSimilarity(a.VendorName, b.VendorName) < d.config.VendorSimilarity {
			return false
		}
	}
	if a.InvoiceNumber != "" && b.InvoiceNumber != "" {
		if matcher.InvoiceNumberMatch(a.InvoiceNumber, b.InvoiceNumber) < d.config.InvoiceNumberSimilarity {
			return false
		}
	}
	return true
}
