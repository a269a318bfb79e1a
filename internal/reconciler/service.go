// Package reconciler wires the pipeline stages into one service:
// deduplication, currency resolution, matching, result caching, job
// progress tracking, and the feedback loop into background retraining.
package reconciler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"invoice-reconciliation-service/internal/cache"
	"invoice-reconciliation-service/internal/config"
	"invoice-reconciliation-service/internal/currency"
	"invoice-reconciliation-service/internal/dedup"
	"invoice-reconciliation-service/internal/jobs"
	"invoice-reconciliation-service/internal/matcher"
	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/internal/parsers"
	"invoice-reconciliation-service/internal/retrain"
	"invoice-reconciliation-service/internal/scoring"
	engineerrors "invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"
)

// Service is the reconciliation engine's front door.
type Service struct {
	config    *config.Config
	dedup     *dedup.Deduplicator
	currency  *currency.Resolver
	engine    *matcher.Engine
	scoring   *scoring.Service
	scheduler *retrain.Scheduler
	jobs      *jobs.Store
	results   *cache.Cache
	logger    logger.Logger
}

// New assembles a service from configuration. A missing or invalid model
// artifact downgrades to rule-based scoring instead of failing startup.
func New(cfg *config.Config) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logger.WithComponent("reconciler")

	scoringSvc := scoring.NewService()
	scoringSvc.SetThresholds(cfg.Matching.MLThreshold, cfg.Matching.RuleThreshold)
	if cfg.ModelPath != "" {
		model, err := scoring.LoadArtifact(cfg.ModelPath)
		if err != nil {
			log.WithError(err).WithField("path", cfg.ModelPath).
				Warn("scoring model unavailable, starting rule-based")
		} else {
			scoringSvc.SwapModel(model)
		}
	}

	engine, err := matcher.NewEngine(cfg.Matching, scoringSvc)
	if err != nil {
		return nil, err
	}

	return &Service{
		config:    cfg,
		dedup:     dedup.New(cfg.Dedup),
		currency:  currency.NewResolver(cfg.Currency),
		engine:    engine,
		scoring:   scoringSvc,
		scheduler: retrain.NewScheduler(cfg.Retrain, scoringSvc, nil),
		jobs:      jobs.NewStore(),
		results:   cache.New(cfg.CacheTTL),
		logger:    log,
	}, nil
}

// Scoring exposes the scoring service, mainly for model management.
func (s *Service) Scoring() *scoring.Service {
	return s.scoring
}

// Scheduler exposes the retrain scheduler.
func (s *Service) Scheduler() *retrain.Scheduler {
	return s.scheduler
}

// Jobs exposes the job progress store.
func (s *Service) Jobs() *jobs.Store {
	return s.jobs
}

// Reconcile runs the full pipeline over already-loaded transactions and
// returns the result partition. Identical inputs within the cache TTL
// return the cached result without re-matching.
func (s *Service) Reconcile(ctx context.Context, invoices, bank []*models.Transaction) (*models.MatchResult, error) {
	key, err := resultKey(invoices, bank)
	if err == nil {
		if cached, ok := s.results.Get(key); ok {
			s.logger.Debug("returning cached reconciliation result")
			return cached.(*models.MatchResult), nil
		}
	}

	result, err := s.run(ctx, invoices, bank, "")
	if err != nil {
		return nil, err
	}
	if key != "" {
		s.results.Set(key, result)
	}
	return result, nil
}

// ReconcileAsync starts a background reconciliation job and returns its
// id immediately. Progress and the final result are observable through
// the job store.
func (s *Service) ReconcileAsync(ctx context.Context, invoices, bank []*models.Transaction) string {
	id := s.jobs.Create()
	go func() {
		result, err := s.run(ctx, invoices, bank, id)
		if err != nil {
			s.jobs.Fail(id, err.Error())
			return
		}
		s.jobs.Complete(id, result)
	}()
	return id
}

// ReconcileFiles loads both transaction files and reconciles them. Row
// level load problems are logged and degrade individual rows; only
// file-level failures abort.
func (s *Service) ReconcileFiles(ctx context.Context, invoicePath, bankPath string) (*models.MatchResult, error) {
	invoices, invoiceProblems, err := parsers.LoadTransactions(invoicePath, models.SourceInvoice)
	if err != nil {
		return nil, err
	}
	bank, bankProblems, err := parsers.LoadTransactions(bankPath, models.SourceBank)
	if err != nil {
		return nil, err
	}
	for _, summary := range []*engineerrors.Summary{invoiceProblems, bankProblems} {
		if summary != nil && summary.Total > 0 {
			s.logger.WithField("problems", summary.Total).Warn(summary.Error())
		}
	}
	return s.Reconcile(ctx, invoices, bank)
}

// run executes the pipeline stages. jobID may be empty for synchronous
// callers.
func (s *Service) run(ctx context.Context, invoices, bank []*models.Transaction, jobID string) (*models.MatchResult, error) {
	s.progress(jobID, models.JobProcessing, 0.1, "deduplicating")

	invoices, invoiceStats := s.dedup.Deduplicate(invoices)
	bank, bankStats := s.dedup.Deduplicate(bank)
	s.logger.WithFields(logger.Fields{
		"invoice_duplicates": invoiceStats.DuplicatesRemoved,
		"bank_duplicates":    bankStats.DuplicatesRemoved,
	}).Debug("deduplication done")

	s.progress(jobID, models.JobProcessing, 0.3, "resolving currencies")
	currencyStats := s.currency.Resolve(invoices, bank)
	invoices = s.currency.Normalize(currencyStats, invoices)
	bank = s.currency.Normalize(currencyStats, bank)

	s.progress(jobID, models.JobProcessing, 0.5, "matching")
	result, err := s.engine.Match(ctx, invoices, bank)
	if err != nil {
		return nil, err
	}

	s.progress(jobID, models.JobProcessing, 0.9, "recording feedback")
	s.recordFeedback(result)

	return result, nil
}

func (s *Service) progress(jobID string, status models.JobStatus, progress float64, message string) {
	if jobID == "" {
		return
	}
	s.jobs.Update(jobID, status, progress, message)
}

// recordFeedback feeds scored decisions into the retrain scheduler:
// high-confidence matches as positives, deliberately mismatched pairs as
// negatives so the training set carries both classes.
func (s *Service) recordFeedback(result *models.MatchResult) {
	if len(result.Matches) == 0 {
		return
	}
	extractor := matcher.DefaultFeatureExtractor()
	examples := make([]scoring.TrainingExample, 0, 2*len(result.Matches))

	for _, match := range result.Matches {
		if match.Confidence == models.ConfidenceLow {
			continue
		}
		examples = append(examples, scoring.TrainingExample{
			Features: extractor.Extract(match.Invoice, match.Bank),
			Label:    true,
		})
	}

	// Cross-pair each match's invoice with the next match's bank line.
	for i := 0; i+1 < len(result.Matches); i++ {
		examples = append(examples, scoring.TrainingExample{
			Features: extractor.Extract(result.Matches[i].Invoice, result.Matches[i+1].Bank),
			Label:    false,
		})
	}

	s.scheduler.Record(examples...)
}

// Shutdown waits for any in-flight retrain to finish.
func (s *Service) Shutdown() {
	s.scheduler.Wait()
}

// resultKey derives a cache key from the canonical JSON encoding of both
// input lists.
func resultKey(invoices, bank []*models.Transaction) (string, error) {
	h := sha256.New()
	for _, part := range []struct {
		label string
		list  []*models.Transaction
	}{{"invoices", invoices}, {"bank", bank}} {
		data, err := json.Marshal(part.list)
		if err != nil {
			return "", fmt.Errorf("hashing %s: %w", part.label, err)
		}
		h.Write([]byte(part.label))
		h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
