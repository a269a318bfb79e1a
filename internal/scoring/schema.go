package scoring

import (
	"fmt"

	"invoice-reconciliation-service/internal/models"
)

// Feature schemas evolve with the model. Version 3 is the full nine-signal
// schema; versions 2 and 1 are older artifacts still accepted so a model
// trained before a schema change keeps scoring until the next retrain.
const (
	SchemaVersionLegacy   = 1
	SchemaVersionExtended = 2
	SchemaVersionCurrent  = 3
)

// missingDateSentinel stands in for date_diff_days when either side has
// no date. Trained models see the same sentinel at training time.
const missingDateSentinel = 999

// SchemaFeatureNames returns the ordered feature names for a schema
// version, or an error for an unknown version.
func SchemaFeatureNames(version int) ([]string, error) {
	switch version {
	case SchemaVersionCurrent:
		return []string{
			"amount_diff",
			"description_similarity",
			"date_diff_days",
			"amount_match_exact",
			"amount_match_close",
			"amount_ratio",
			"vendor_similarity",
			"invoice_number_match",
			"reference_id_match",
		}, nil
	case SchemaVersionExtended:
		return []string{
			"amount_diff",
			"description_similarity",
			"date_diff_days",
			"amount_match_exact",
			"amount_match_close",
			"amount_ratio",
			"vendor_similarity",
			"invoice_number_match",
		}, nil
	case SchemaVersionLegacy:
		return []string{
			"amount_diff",
			"description_similarity",
			"date_diff_days",
		}, nil
	default:
		return nil, fmt.Errorf("unknown feature schema version %d", version)
	}
}

// featureValue extracts a single named feature from a vector.
func featureValue(f *models.FeatureVector, name string) (float64, bool) {
	switch name {
	case "amount_diff":
		return f.AmountDiff, true
	case "description_similarity":
		return f.DescriptionSimilarity, true
	case "date_diff_days":
		if days, ok := f.AbsDateDiff(); ok {
			return float64(days), true
		}
		return missingDateSentinel, true
	case "amount_match_exact":
		return f.AmountMatchExact, true
	case "amount_match_close":
		return f.AmountMatchClose, true
	case "amount_ratio":
		return f.AmountRatio, true
	case "vendor_similarity":
		return f.VendorSimilarity, true
	case "invoice_number_match":
		return f.InvoiceNumberMatch, true
	case "reference_id_match":
		return f.ReferenceIDMatch, true
	default:
		return 0, false
	}
}

// VectorFor projects a feature vector onto a model's declared feature
// names, in the model's order. A name the extractor does not produce makes
// the artifact incompatible.
func VectorFor(f *models.FeatureVector, names []string) ([]float64, error) {
	vector := make([]float64, len(names))
	for i, name := range names {
		value, ok := featureValue(f, name)
		if !ok {
			return nil, fmt.Errorf("unknown feature %q", name)
		}
		vector[i] = value
	}
	return vector, nil
}
