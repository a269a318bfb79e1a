package matcher

import (
	"github.com/shopspring/decimal"

	"invoice-reconciliation-service/internal/models"
)

// CandidateIndex buckets bank transactions by their absolute amount in
// cents, so candidate generation only ever compares pairs whose amounts
// agree to the cent. The index is built once per run and read-only
// afterwards.
type CandidateIndex struct {
	buckets map[int64][]int
	bank    []*models.Transaction
	skipped int
}

// NewCandidateIndex builds the amount index over the bank transactions.
// Rows flagged with an unparsable amount are skipped and can never be
// matched.
func NewCandidateIndex(bank []*models.Transaction) *CandidateIndex {
	idx := &CandidateIndex{
		buckets: make(map[int64][]int),
		bank:    bank,
	}
	for i, txn := range bank {
		if txn.InvalidAmount {
			idx.skipped++
			continue
		}
		key := centsKey(txn.AbsAmount())
		idx.buckets[key] = append(idx.buckets[key], i)
	}
	return idx
}

// Candidates returns the bank indices whose amount matches the invoice
// exactly in cents and whose currency is compatible. The returned slice
// preserves bank input order, which keeps downstream assignment
// deterministic.
func (idx *CandidateIndex) Candidates(invoice *models.Transaction, requireCurrencyMatch bool) []int {
	if invoice.InvalidAmount {
		return nil
	}
	bucket := idx.buckets[centsKey(invoice.AbsAmount())]
	if len(bucket) == 0 {
		return nil
	}
	candidates := make([]int, 0, len(bucket))
	for _, i := range bucket {
		if requireCurrencyMatch && !currencyCompatible(invoice.Currency, idx.bank[i].Currency) {
			continue
		}
		candidates = append(candidates, i)
	}
	return candidates
}

// Skipped reports how many bank rows were excluded for unparsable amounts.
func (idx *CandidateIndex) Skipped() int {
	return idx.skipped
}

// Size returns the number of distinct amount buckets.
func (idx *CandidateIndex) Size() int {
	return len(idx.buckets)
}

// centsKey converts an absolute amount to integer cents, rounding half
// away from zero. 10.005 and 10.01 land in the same bucket.
func centsKey(amount decimal.Decimal) int64 {
	return amount.Round(2).Mul(decimal.NewFromInt(100)).IntPart()
}

// currencyCompatible admits equal tags and pairs where either side is
// untagged. Untagged rows are assumed to share the run's primary currency.
func currencyCompatible(a, b string) bool {
	return a == "" || b == "" || a == b
}
