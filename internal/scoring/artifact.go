package scoring

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"invoice-reconciliation-service/internal/models"
	engineerrors "invoice-reconciliation-service/pkg/errors"
)

// Artifact is the serialized form of a trained scoring model: a logistic
// model over a declared feature schema. Artifacts are plain JSON so they
// survive schema migrations and can be inspected by hand.
type Artifact struct {
	SchemaVersion int       `json:"schema_version"`
	FeatureNames  []string  `json:"feature_names"`
	Weights       []float64 `json:"weights"`
	Bias          float64   `json:"bias"`
	TrainedAt     time.Time `json:"trained_at,omitempty"`
	SampleCount   int       `json:"sample_count,omitempty"`
}

// Validate checks structural integrity: a known schema, matching weight
// and name counts, and only features the extractor can produce.
func (a *Artifact) Validate() error {
	if _, err := SchemaFeatureNames(a.SchemaVersion); err != nil {
		return err
	}
	if len(a.FeatureNames) == 0 {
		return fmt.Errorf("artifact declares no features")
	}
	if len(a.Weights) != len(a.FeatureNames) {
		return fmt.Errorf("artifact has %d weights for %d features",
			len(a.Weights), len(a.FeatureNames))
	}
	for _, name := range a.FeatureNames {
		if _, ok := featureValue(&emptyVector, name); !ok {
			return fmt.Errorf("artifact declares unknown feature %q", name)
		}
	}
	for _, w := range a.Weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("artifact contains non-finite weight")
		}
	}
	return nil
}

// LogisticModel is a trained linear model with a sigmoid output, the only
// model family the engine trains and loads.
type LogisticModel struct {
	artifact Artifact
}

// NewLogisticModel wraps a validated artifact.
func NewLogisticModel(artifact Artifact) (*LogisticModel, error) {
	if err := artifact.Validate(); err != nil {
		return nil, engineerrors.ModelError(engineerrors.CodeModelInvalidArtifact,
			"artifact validation failed", err)
	}
	return &LogisticModel{artifact: artifact}, nil
}

// FeatureNames returns the feature order the model was trained with.
func (m *LogisticModel) FeatureNames() []string {
	return m.artifact.FeatureNames
}

// SchemaVersion returns the artifact's declared schema version.
func (m *LogisticModel) SchemaVersion() int {
	return m.artifact.SchemaVersion
}

// Predict computes sigmoid(w·x + b) over a vector already projected onto
// the model's feature order.
func (m *LogisticModel) Predict(features []float64) (float64, error) {
	if len(features) != len(m.artifact.Weights) {
		return 0, engineerrors.ModelError(engineerrors.CodeModelIncompatible,
			fmt.Sprintf("got %d features, model expects %d",
				len(features), len(m.artifact.Weights)), nil)
	}
	z := m.artifact.Bias
	for i, w := range m.artifact.Weights {
		z += w * features[i]
	}
	p := sigmoid(z)
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, engineerrors.ModelError(engineerrors.CodeModelUnavailable,
			"model produced a non-finite probability", nil)
	}
	return p, nil
}

// Artifact returns a copy of the underlying artifact for persistence.
func (m *LogisticModel) Artifact() Artifact {
	a := m.artifact
	a.FeatureNames = append([]string(nil), m.artifact.FeatureNames...)
	a.Weights = append([]float64(nil), m.artifact.Weights...)
	return a
}

// LoadArtifact reads and validates a model artifact from disk.
func LoadArtifact(path string) (*LogisticModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, engineerrors.ModelError(engineerrors.CodeModelUnavailable,
			fmt.Sprintf("reading artifact %s", path), err)
	}
	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, engineerrors.ModelError(engineerrors.CodeModelInvalidArtifact,
			fmt.Sprintf("decoding artifact %s", path), err)
	}
	return NewLogisticModel(artifact)
}

// SaveArtifact writes a model artifact to disk, replacing any previous
// file atomically via a rename.
func SaveArtifact(model *LogisticModel, path string) error {
	data, err := json.MarshalIndent(model.Artifact(), "", "  ")
	if err != nil {
		return engineerrors.ModelError(engineerrors.CodeModelInvalidArtifact,
			"encoding artifact", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return engineerrors.ModelError(engineerrors.CodeModelUnavailable,
			fmt.Sprintf("writing artifact %s", path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return engineerrors.ModelError(engineerrors.CodeModelUnavailable,
			fmt.Sprintf("replacing artifact %s", path), err)
	}
	return nil
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

// emptyVector exists only to check feature-name validity in Validate.
var emptyVector models.FeatureVector
