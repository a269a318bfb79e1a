package matcher

import (
	"sort"

	"invoice-reconciliation-service/internal/models"
)

// Assign commits candidates to one-to-one matches greedily by descending
// score. The sort is stable over the generation order (invoice-major,
// bank order within each invoice), so equal-scored candidates resolve the
// same way on every run with the same inputs.
func Assign(candidates []models.MatchCandidate) []models.MatchCandidate {
	ordered := make([]models.MatchCandidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Score > ordered[j].Score
	})

	matchedInvoices := make(map[int]struct{})
	matchedBank := make(map[int]struct{})
	var assigned []models.MatchCandidate
	for _, c := range ordered {
		if _, taken := matchedInvoices[c.InvoiceIndex]; taken {
			continue
		}
		if _, taken := matchedBank[c.BankIndex]; taken {
			continue
		}
		matchedInvoices[c.InvoiceIndex] = struct{}{}
		matchedBank[c.BankIndex] = struct{}{}
		assigned = append(assigned, c)
	}
	return assigned
}
