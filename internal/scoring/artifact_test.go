package scoring

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func testArtifact(t *testing.T) Artifact {
	t.Helper()
	names, err := SchemaFeatureNames(SchemaVersionCurrent)
	if err != nil {
		t.Fatalf("SchemaFeatureNames: %v", err)
	}
	weights := make([]float64, len(names))
	for i := range weights {
		weights[i] = 0.1 * float64(i+1)
	}
	return Artifact{
		SchemaVersion: SchemaVersionCurrent,
		FeatureNames:  names,
		Weights:       weights,
		Bias:          -0.5,
	}
}

func TestArtifactValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Artifact)
		wantErr bool
	}{
		{"valid", func(a *Artifact) {}, false},
		{"unknown schema version", func(a *Artifact) { a.SchemaVersion = 99 }, true},
		{"weight count mismatch", func(a *Artifact) { a.Weights = a.Weights[:3] }, true},
		{"unknown feature", func(a *Artifact) { a.FeatureNames[0] = "bogus_feature" }, true},
		{"non-finite weight", func(a *Artifact) { a.Weights[0] = math.NaN() }, true},
		{"no features", func(a *Artifact) { a.FeatureNames = nil; a.Weights = nil }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			artifact := testArtifact(t)
			tt.mutate(&artifact)
			err := artifact.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLogisticModelPredict(t *testing.T) {
	model, err := NewLogisticModel(Artifact{
		SchemaVersion: SchemaVersionLegacy,
		FeatureNames:  []string{"amount_diff", "description_similarity", "date_diff_days"},
		Weights:       []float64{-1.0, 2.0, -0.1},
		Bias:          0.5,
	})
	if err != nil {
		t.Fatalf("NewLogisticModel: %v", err)
	}

	// z = 0.5 - 1*0 + 2*1 - 0.1*0 = 2.5
	p, err := model.Predict([]float64{0, 1, 0})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	want := 1.0 / (1.0 + math.Exp(-2.5))
	if math.Abs(p-want) > 1e-12 {
		t.Errorf("Predict = %f, want %f", p, want)
	}

	if _, err := model.Predict([]float64{0, 1}); err == nil {
		t.Error("Predict with wrong arity returned nil error")
	}
}

func TestArtifactRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")

	model, err := NewLogisticModel(testArtifact(t))
	if err != nil {
		t.Fatalf("NewLogisticModel: %v", err)
	}
	if err := SaveArtifact(model, path); err != nil {
		t.Fatalf("SaveArtifact: %v", err)
	}

	loaded, err := LoadArtifact(path)
	if err != nil {
		t.Fatalf("LoadArtifact: %v", err)
	}
	if loaded.SchemaVersion() != model.SchemaVersion() {
		t.Errorf("schema version = %d, want %d", loaded.SchemaVersion(), model.SchemaVersion())
	}

	input := make([]float64, len(model.FeatureNames()))
	for i := range input {
		input[i] = 0.5
	}
	p1, err1 := model.Predict(input)
	p2, err2 := loaded.Predict(input)
	if err1 != nil || err2 != nil {
		t.Fatalf("Predict: %v / %v", err1, err2)
	}
	if p1 != p2 {
		t.Errorf("loaded model predicts %f, original %f", p2, p1)
	}
}

func TestLoadArtifactErrors(t *testing.T) {
	if _, err := LoadArtifact(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("LoadArtifact on a missing file returned nil error")
	}

	path := filepath.Join(t.TempDir(), "garbage.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadArtifact(path); err == nil {
		t.Error("LoadArtifact on garbage returned nil error")
	}
}
