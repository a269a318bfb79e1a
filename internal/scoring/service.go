package scoring

import (
	"sync/atomic"

	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/pkg/logger"
)

// MLThreshold is the acceptance cutoff for model probabilities.
const MLThreshold = 0.40

// Model is a trained scorer: it declares the feature order it expects and
// maps a projected vector to a probability in [0,1].
type Model interface {
	FeatureNames() []string
	Predict(features []float64) (float64, error)
}

// Service is the engine's scoring front door. It prefers the currently
// loaded model and silently downgrades to the rule-based scorer whenever
// no model is loaded or the model cannot score a pair. The active model is
// swapped atomically, so in-flight runs see either the old model or the
// new one, never a torn state.
type Service struct {
	rule          *RuleBasedScorer
	model         atomic.Pointer[modelSlot]
	mlThreshold   float64
	ruleThreshold float64
	logger        logger.Logger
}

// modelSlot wraps the interface so it fits an atomic.Pointer.
type modelSlot struct {
	model Model
}

// NewService creates a scoring service with no model loaded and the
// standard thresholds.
func NewService() *Service {
	return &Service{
		rule:          NewRuleBasedScorer(),
		mlThreshold:   MLThreshold,
		ruleThreshold: RuleThreshold,
		logger:        logger.WithComponent("scoring"),
	}
}

// SetThresholds overrides the acceptance thresholds. Call before scoring
// starts; thresholds are not synchronized.
func (s *Service) SetThresholds(ml, rule float64) {
	s.mlThreshold = ml
	s.ruleThreshold = rule
}

// Score returns a score for the pair and the threshold it must meet.
// Model failures are logged and downgrade this single call; they never
// propagate.
func (s *Service) Score(f *models.FeatureVector) (float64, float64) {
	if slot := s.model.Load(); slot != nil {
		vector, err := VectorFor(f, slot.model.FeatureNames())
		if err == nil {
			p, predictErr := slot.model.Predict(vector)
			if predictErr == nil && p >= 0 && p <= 1 {
				return p, s.mlThreshold
			}
			err = predictErr
		}
		s.logger.WithError(err).Debug("model scoring failed, using rule fallback")
	}
	score, _ := s.rule.Score(f)
	return score, s.ruleThreshold
}

// SwapModel atomically replaces the active model. A nil model drops back
// to rule-only scoring.
func (s *Service) SwapModel(model Model) {
	if model == nil {
		s.model.Store(nil)
		s.logger.Info("scoring model cleared, rule-based scoring active")
		return
	}
	s.model.Store(&modelSlot{model: model})
	s.logger.WithField("features", len(model.FeatureNames())).Info("scoring model swapped in")
}

// CurrentModel returns the active model, or nil when scoring is
// rule-only.
func (s *Service) CurrentModel() Model {
	if slot := s.model.Load(); slot != nil {
		return slot.model
	}
	return nil
}

// HasModel reports whether a trained model is active.
func (s *Service) HasModel() bool {
	return s.model.Load() != nil
}
