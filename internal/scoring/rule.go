package scoring

import (
	"invoice-reconciliation-service/internal/models"
)

// RuleThreshold is the acceptance cutoff for rule-based scores. Rule
// scores are conservative additive sums, so the cutoff sits below the
// learned model's probability threshold.
const RuleThreshold = 0.35

// RuleBasedScorer scores a candidate pair by summing tiered contributions
// from each similarity signal. It is the always-available fallback when no
// trained model is loaded or the loaded model cannot score a pair.
type RuleBasedScorer struct{}

// NewRuleBasedScorer returns the rule-based fallback scorer.
func NewRuleBasedScorer() *RuleBasedScorer {
	return &RuleBasedScorer{}
}

// Score computes the additive rule score, clamped to [0,1], and returns
// it with the rule threshold.
func (s *RuleBasedScorer) Score(f *models.FeatureVector) (float64, float64) {
	score := 0.0

	// Invoice-number agreement is the strongest single signal. When it
	// coincides with an exact amount the pair is near-certain.
	if f.InvoiceNumberMatch >= 0.85 {
		score += 0.30 * f.InvoiceNumberMatch
		if f.AmountMatchExact > 0 {
			score += 0.15
		}
	}

	score += 0.20 * f.VendorSimilarity

	// Amount proximity is a single tier chain capped at 0.25. The ratio
	// thresholds are the low tiers, reached only when no absolute
	// agreement fired, so a large amount still gets partial credit for
	// being proportionally close.
	switch {
	case f.AmountMatchExact > 0:
		score += 0.25
	case f.AmountMatchClose > 0:
		score += 0.20
	case f.AmountDiff < 1.0:
		score += 0.12
	case f.AmountRatio > 0.98:
		score += 0.08
	case f.AmountDiff < 5.0:
		score += 0.06
	case f.AmountRatio > 0.95:
		score += 0.04
	}

	switch {
	case f.DescriptionSimilarity >= 0.8:
		score += 0.15
	case f.DescriptionSimilarity >= 0.6:
		score += 0.11
	case f.DescriptionSimilarity >= 0.4:
		score += 0.07
	case f.DescriptionSimilarity >= 0.2:
		score += 0.03
	}

	if days, ok := f.AbsDateDiff(); ok {
		switch {
		case days == 0:
			score += 0.15
		case days <= 3:
			score += 0.12
		case days <= 7:
			score += 0.09
		case days <= 14:
			score += 0.06
		case days <= 30:
			score += 0.04
		case days <= 60:
			score += 0.02
		}
	} else if f.InvoiceNumberMatch >= 0.9 || f.VendorSimilarity >= 0.85 {
		// Missing dates should not sink an otherwise well-identified pair.
		score += 0.08
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, RuleThreshold
}
