package scoring

import (
	"fmt"
	"math"
	"time"

	"invoice-reconciliation-service/internal/models"
	engineerrors "invoice-reconciliation-service/pkg/errors"
)

// TrainingExample is one labeled pair: the features extracted for it and
// whether a reviewer confirmed the match.
type TrainingExample struct {
	Features *models.FeatureVector
	Label    bool
}

// Trainer fits a logistic model by batch gradient descent over confirmed
// match decisions. It is deliberately simple: the feature space is nine
// hand-built signals and the training sets are small, so anything fancier
// buys nothing.
type Trainer struct {
	LearningRate  float64
	Epochs        int
	SchemaVersion int
}

// NewTrainer returns a trainer with the standard hyperparameters over the
// current feature schema.
func NewTrainer() *Trainer {
	return &Trainer{
		LearningRate:  0.1,
		Epochs:        500,
		SchemaVersion: SchemaVersionCurrent,
	}
}

// Train fits a model over the examples. It requires at least one positive
// and one negative label; a single-class set cannot produce a usable
// decision boundary.
func (t *Trainer) Train(examples []TrainingExample) (*LogisticModel, error) {
	names, err := SchemaFeatureNames(t.SchemaVersion)
	if err != nil {
		return nil, engineerrors.RetrainError("resolving feature schema", err)
	}
	if len(examples) == 0 {
		return nil, engineerrors.RetrainError("no training examples", nil)
	}

	vectors := make([][]float64, len(examples))
	labels := make([]float64, len(examples))
	positives := 0
	for i, ex := range examples {
		vector, err := VectorFor(ex.Features, names)
		if err != nil {
			return nil, engineerrors.RetrainError(
				fmt.Sprintf("projecting example %d", i), err)
		}
		vectors[i] = vector
		if ex.Label {
			labels[i] = 1
			positives++
		}
	}
	if positives == 0 || positives == len(examples) {
		return nil, engineerrors.RetrainError(
			fmt.Sprintf("training set has %d positives out of %d examples, need both classes",
				positives, len(examples)), nil)
	}

	// Standardize features for descent stability. Raw amount differences
	// and the missing-date sentinel dwarf the similarity signals otherwise.
	// The scaling is folded back into the stored weights so the artifact
	// predicts over raw vectors.
	mean, std := standardize(vectors)

	weights := make([]float64, len(names))
	bias := 0.0
	n := float64(len(examples))

	for epoch := 0; epoch < t.Epochs; epoch++ {
		gradW := make([]float64, len(names))
		gradB := 0.0
		for i, x := range vectors {
			z := bias
			for j, w := range weights {
				z += w * x[j]
			}
			residual := sigmoid(z) - labels[i]
			for j := range gradW {
				gradW[j] += residual * x[j]
			}
			gradB += residual
		}
		for j := range weights {
			weights[j] -= t.LearningRate * gradW[j] / n
		}
		bias -= t.LearningRate * gradB / n
	}

	rawWeights := make([]float64, len(weights))
	rawBias := bias
	for j, w := range weights {
		rawWeights[j] = w / std[j]
		rawBias -= w * mean[j] / std[j]
	}

	return NewLogisticModel(Artifact{
		SchemaVersion: t.SchemaVersion,
		FeatureNames:  names,
		Weights:       rawWeights,
		Bias:          rawBias,
		TrainedAt:     time.Now().UTC(),
		SampleCount:   len(examples),
	})
}

// standardize rescales vectors in place to zero mean and unit variance
// per feature, returning the means and deviations used. Constant features
// keep a deviation of one so they pass through untouched.
func standardize(vectors [][]float64) (mean, std []float64) {
	if len(vectors) == 0 {
		return nil, nil
	}
	dims := len(vectors[0])
	mean = make([]float64, dims)
	std = make([]float64, dims)
	n := float64(len(vectors))

	for _, x := range vectors {
		for j, v := range x {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= n
	}
	for _, x := range vectors {
		for j, v := range x {
			d := v - mean[j]
			std[j] += d * d
		}
	}
	for j := range std {
		std[j] = math.Sqrt(std[j] / n)
		if std[j] == 0 {
			std[j] = 1
		}
	}
	for _, x := range vectors {
		for j := range x {
			x[j] = (x[j] - mean[j]) / std[j]
		}
	}
	return mean, std
}
