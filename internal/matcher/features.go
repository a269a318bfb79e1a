package matcher

import (
	"github.com/shopspring/decimal"

	"invoice-reconciliation-service/internal/models"
)

// FeatureExtractor computes the per-pair similarity signals consumed by
// the scorers. Extraction is pure: it never mutates the transactions and
// two calls over the same pair yield identical vectors.
type FeatureExtractor struct {
	exactTolerance decimal.Decimal
	closeRatio     decimal.Decimal
}

// NewFeatureExtractor builds an extractor with the given amount
// tolerances. exactTolerance bounds the absolute difference for an exact
// amount match; closeRatio bounds the relative difference for a close one.
func NewFeatureExtractor(exactTolerance, closeRatio decimal.Decimal) *FeatureExtractor {
	return &FeatureExtractor{
		exactTolerance: exactTolerance,
		closeRatio:     closeRatio,
	}
}

// DefaultFeatureExtractor returns an extractor with the standard
// tolerances: exact within one cent, close within 1% of the invoice amount.
func DefaultFeatureExtractor() *FeatureExtractor {
	return NewFeatureExtractor(decimal.NewFromFloat(0.01), decimal.NewFromFloat(0.01))
}

// Extract computes the full feature vector for one (invoice, bank) pair.
func (e *FeatureExtractor) Extract(invoice, bank *models.Transaction) *models.FeatureVector {
	f := &models.FeatureVector{}

	invAmount := invoice.AbsAmount()
	bankAmount := bank.AbsAmount()
	diff := invAmount.Sub(bankAmount).Abs()

	f.AmountDiff, _ = diff.Float64()
	if diff.LessThanOrEqual(e.exactTolerance) {
		f.AmountMatchExact = 1
	}
	closeTolerance := invAmount.Mul(e.closeRatio)
	if closeTolerance.LessThan(e.exactTolerance) {
		closeTolerance = e.exactTolerance
	}
	if diff.LessThanOrEqual(closeTolerance) {
		f.AmountMatchClose = 1
	}
	f.AmountRatio = amountRatio(invAmount, bankAmount)

	if days, ok := models.DateDiffDays(invoice, bank); ok {
		f.DateDiffDays = &days
	}

	f.DescriptionSimilarity = DescriptionSimilarity(invoice.Description, bank.Description)

	// Statement lines rarely carry structured vendor or invoice-number
	// fields. When the bank side lacks one, fall back to comparing against
	// the bank description, where extractors typically leave that text.
	bankVendor := bank.VendorName
	if bankVendor == "" {
		bankVendor = bank.Description
	}
	f.VendorSimilarity = VendorSimilarity(invoice.VendorName, bankVendor)

	bankNumber := bank.InvoiceNumber
	if bankNumber == "" {
		bankNumber = bank.Description
	}
	f.InvoiceNumberMatch = InvoiceNumberMatch(invoice.InvoiceNumber, bankNumber)

	if invoice.ReferenceID != "" && bank.ReferenceID != "" &&
		normalizeText(invoice.ReferenceID) == normalizeText(bank.ReferenceID) {
		f.ReferenceIDMatch = 1
	}

	return f
}

// amountRatio returns min/max of the two magnitudes, defined as 1.0 when
// both are zero.
func amountRatio(a, b decimal.Decimal) float64 {
	if a.IsZero() && b.IsZero() {
		return 1.0
	}
	min, max := a, b
	if min.GreaterThan(max) {
		min, max = max, min
	}
	if max.IsZero() {
		return 0
	}
	ratio, _ := min.Div(max).Float64()
	return ratio
}
