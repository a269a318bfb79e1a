// Package retrain runs background model retraining. Confirmed match
// decisions accumulate in the scheduler; once enough new decisions have
// arrived and the throttle interval has passed, one detached worker
// retrains the model and swaps it into the scoring service. At most one
// retrain runs at a time and foreground reconciliation never waits on it.
package retrain

import (
	"sync"
	"time"

	"invoice-reconciliation-service/internal/scoring"
	engineerrors "invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"
)

// Config controls retrain throttling.
type Config struct {
	// Enabled gates automatic retraining entirely.
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// MinNewMatches is how many new confirmed decisions must accumulate
	// before a retrain is considered.
	MinNewMatches int `json:"min_new_matches" mapstructure:"min_new_matches"`

	// MinInterval is the minimum wall-clock time between retrain attempts.
	MinInterval time.Duration `json:"min_interval" mapstructure:"min_interval"`

	// MaxRetained caps the example window. Once full, the oldest
	// decisions age out, so a long-lived process trains on a sliding
	// window instead of growing without bound. Zero or negative keeps
	// everything.
	MaxRetained int `json:"max_retained" mapstructure:"max_retained"`

	// ArtifactPath, when set, persists each successful retrain's model.
	ArtifactPath string `json:"artifact_path" mapstructure:"artifact_path"`
}

// DefaultConfig returns the standard retrain throttling settings.
func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MinNewMatches: 50,
		MinInterval:   15 * time.Minute,
		MaxRetained:   2000,
	}
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// ModelSink receives a freshly trained model. Implemented by the scoring
// service.
type ModelSink interface {
	SwapModel(model scoring.Model)
}

// TrainFunc fits a model over accumulated examples.
type TrainFunc func(examples []scoring.TrainingExample) (scoring.Model, error)

// Scheduler accumulates training examples and triggers throttled
// background retrains.
type Scheduler struct {
	config *Config
	sink   ModelSink
	train  TrainFunc
	logger logger.Logger

	// slot is a single-permit semaphore: a retrain holds the permit for
	// its whole run, so concurrent triggers fall through.
	slot chan struct{}
	wg   sync.WaitGroup

	mu            sync.Mutex
	examples      []scoring.TrainingExample
	newSinceLast  int
	lastAttempt   time.Time
	lastError     error
	retrainsDone  int
	retrainFailed int
}

// NewScheduler creates a scheduler feeding trained models into sink. A
// nil config uses the defaults; a nil train function uses the standard
// logistic trainer.
func NewScheduler(config *Config, sink ModelSink, train TrainFunc) *Scheduler {
	if config == nil {
		config = DefaultConfig()
	}
	if train == nil {
		trainer := scoring.NewTrainer()
		train = func(examples []scoring.TrainingExample) (scoring.Model, error) {
			return trainer.Train(examples)
		}
	}
	return &Scheduler{
		config: config.Clone(),
		sink:   sink,
		train:  train,
		logger: logger.WithComponent("retrain"),
		slot:   make(chan struct{}, 1),
	}
}

// Record appends confirmed match decisions and triggers a retrain when
// the thresholds are met. It returns immediately; training happens on a
// detached goroutine.
func (s *Scheduler) Record(examples ...scoring.TrainingExample) {
	if len(examples) == 0 {
		return
	}
	s.mu.Lock()
	s.examples = append(s.examples, examples...)
	if limit := s.config.MaxRetained; limit > 0 && len(s.examples) > limit {
		// Copy so the trimmed slice releases the old backing array.
		window := make([]scoring.TrainingExample, limit)
		copy(window, s.examples[len(s.examples)-limit:])
		s.examples = window
	}
	s.newSinceLast += len(examples)
	s.mu.Unlock()

	if s.config.Enabled {
		s.TryRetrain(false)
	}
}

// TryRetrain attempts to start a background retrain. Without force, the
// new-decision count and interval throttles apply. It reports whether a
// retrain was started; false means throttled, already running, or nothing
// to train on.
func (s *Scheduler) TryRetrain(force bool) bool {
	s.mu.Lock()
	if len(s.examples) == 0 {
		s.mu.Unlock()
		return false
	}
	if !force {
		if s.newSinceLast < s.config.MinNewMatches {
			s.mu.Unlock()
			return false
		}
		if !s.lastAttempt.IsZero() && time.Since(s.lastAttempt) < s.config.MinInterval {
			s.mu.Unlock()
			return false
		}
	}

	select {
	case s.slot <- struct{}{}:
	default:
		s.mu.Unlock()
		s.logger.Debug("retrain already in progress, skipping trigger")
		return false
	}

	snapshot := make([]scoring.TrainingExample, len(s.examples))
	copy(snapshot, s.examples)
	s.newSinceLast = 0
	s.lastAttempt = time.Now()
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(snapshot)
	return true
}

func (s *Scheduler) run(examples []scoring.TrainingExample) {
	defer s.wg.Done()
	defer func() { <-s.slot }()

	started := time.Now()
	model, err := s.train(examples)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastError = engineerrors.RetrainError("background retrain", err)
		s.retrainFailed++
		s.logger.WithError(err).WithField("examples", len(examples)).Error("retrain failed")
		return
	}

	s.sink.SwapModel(model)
	s.lastError = nil
	s.retrainsDone++
	s.logger.WithFields(logger.Fields{
		"examples": len(examples),
		"elapsed":  time.Since(started).Round(time.Millisecond).String(),
	}).Info("retrain complete, model swapped")

	if s.config.ArtifactPath != "" {
		if logistic, ok := model.(*scoring.LogisticModel); ok {
			if err := scoring.SaveArtifact(logistic, s.config.ArtifactPath); err != nil {
				s.logger.WithError(err).Warn("failed to persist retrained model")
			}
		}
	}
}

// Wait blocks until any in-flight retrain finishes. Used on shutdown.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// LastError returns the most recent retrain failure, or nil after a
// successful retrain.
func (s *Scheduler) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// Pending returns the number of decisions accumulated since the last
// retrain trigger.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.newSinceLast
}

// Stats reports completed and failed retrain counts.
func (s *Scheduler) Stats() (done, failed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retrainsDone, s.retrainFailed
}
