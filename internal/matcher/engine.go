package matcher

import (
	"context"

	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/pkg/logger"
)

// Scorer turns a feature vector into a score and the acceptance threshold
// that applies to it. The threshold travels with the score because the
// learned model and the rule fallback are calibrated differently.
type Scorer interface {
	Score(f *models.FeatureVector) (score float64, threshold float64)
}

// Engine runs one matching pass: candidate generation through the amount
// index, feature extraction, scoring, and greedy one-to-one assignment.
// An Engine is safe for concurrent use; each Match call builds its own
// index and candidate list.
type Engine struct {
	config    *Config
	extractor *FeatureExtractor
	scorer    Scorer
	logger    logger.Logger
}

// NewEngine creates a matching engine with the given configuration and
// scorer.
func NewEngine(config *Config, scorer Scorer) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		config:    config.Clone(),
		extractor: DefaultFeatureExtractor(),
		scorer:    scorer,
		logger:    logger.WithComponent("matcher"),
	}, nil
}

// Match partitions the two transaction lists into matched pairs and
// per-side leftovers. Every input transaction appears in exactly one part
// of the result. Inputs are never mutated.
func (e *Engine) Match(ctx context.Context, invoices, bank []*models.Transaction) (*models.MatchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	index := NewCandidateIndex(bank)
	e.logger.WithFields(logger.Fields{
		"invoices":     len(invoices),
		"bank":         len(bank),
		"buckets":      index.Size(),
		"bank_skipped": index.Skipped(),
	}).Debug("candidate index built")

	candidates := e.generateCandidates(invoices, bank, index)
	assigned := Assign(candidates)

	result := e.partition(invoices, bank, assigned)
	result.Summary = models.BuildSummary(result)

	e.logger.WithFields(logger.Fields{
		"candidates":         len(candidates),
		"matched":            result.Summary.MatchedPairs,
		"unmatched_invoices": result.Summary.UnmatchedInvoices,
		"unmatched_bank":     result.Summary.UnmatchedBank,
	}).Info("matching complete")
	return result, nil
}

// generateCandidates scores every amount-compatible pair and keeps those
// at or above the scorer's threshold. Iteration is invoice-major with
// bank order preserved inside each bucket, which fixes the tie-break
// order for assignment.
func (e *Engine) generateCandidates(invoices, bank []*models.Transaction, index *CandidateIndex) []models.MatchCandidate {
	var candidates []models.MatchCandidate
	for invIdx, invoice := range invoices {
		for _, bankIdx := range index.Candidates(invoice, e.config.RequireCurrencyMatch) {
			features := e.extractor.Extract(invoice, bank[bankIdx])
			score, threshold := e.scorer.Score(features)
			if score < threshold {
				continue
			}
			candidates = append(candidates, models.MatchCandidate{
				InvoiceIndex: invIdx,
				BankIndex:    bankIdx,
				Score:        score,
			})
		}
	}
	return candidates
}

func (e *Engine) partition(invoices, bank []*models.Transaction, assigned []models.MatchCandidate) *models.MatchResult {
	result := &models.MatchResult{
		Matches:        make([]models.MatchPair, 0, len(assigned)),
		OnlyInInvoices: []*models.Transaction{},
		OnlyInBank:     []*models.Transaction{},
	}

	matchedInvoices := make(map[int]struct{}, len(assigned))
	matchedBank := make(map[int]struct{}, len(assigned))
	for _, c := range assigned {
		matchedInvoices[c.InvoiceIndex] = struct{}{}
		matchedBank[c.BankIndex] = struct{}{}
		result.Matches = append(result.Matches, models.MatchPair{
			Invoice:    invoices[c.InvoiceIndex],
			Bank:       bank[c.BankIndex],
			Score:      c.Score,
			Confidence: models.ConfidenceForScore(c.Score),
		})
	}

	for i, invoice := range invoices {
		if _, ok := matchedInvoices[i]; !ok {
			result.OnlyInInvoices = append(result.OnlyInInvoices, invoice)
		}
	}
	for i, txn := range bank {
		if _, ok := matchedBank[i]; !ok {
			result.OnlyInBank = append(result.OnlyInBank, txn)
		}
	}
	return result
}
