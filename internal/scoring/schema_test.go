package scoring

import (
	"testing"

	"invoice-reconciliation-service/internal/models"
)

func TestSchemaFeatureNames(t *testing.T) {
	tests := []struct {
		version int
		count   int
	}{
		{SchemaVersionCurrent, 9},
		{SchemaVersionExtended, 8},
		{SchemaVersionLegacy, 3},
	}
	for _, tt := range tests {
		names, err := SchemaFeatureNames(tt.version)
		if err != nil {
			t.Errorf("SchemaFeatureNames(%d): %v", tt.version, err)
			continue
		}
		if len(names) != tt.count {
			t.Errorf("schema %d has %d features, want %d", tt.version, len(names), tt.count)
		}
	}

	if _, err := SchemaFeatureNames(0); err == nil {
		t.Error("SchemaFeatureNames(0) returned nil error")
	}
}

func TestVectorForProjection(t *testing.T) {
	days := 3
	f := &models.FeatureVector{
		AmountDiff:            0.5,
		DescriptionSimilarity: 0.7,
		DateDiffDays:          &days,
		AmountMatchExact:      1,
		AmountMatchClose:      1,
		AmountRatio:           0.99,
		VendorSimilarity:      0.8,
		InvoiceNumberMatch:    0.95,
		ReferenceIDMatch:      1,
	}

	names, err := SchemaFeatureNames(SchemaVersionCurrent)
	if err != nil {
		t.Fatal(err)
	}
	vector, err := VectorFor(f, names)
	if err != nil {
		t.Fatalf("VectorFor: %v", err)
	}
	want := []float64{0.5, 0.7, 3, 1, 1, 0.99, 0.8, 0.95, 1}
	for i := range want {
		if vector[i] != want[i] {
			t.Errorf("vector[%d] (%s) = %f, want %f", i, names[i], vector[i], want[i])
		}
	}
}

func TestVectorForOlderSchemas(t *testing.T) {
	f := &models.FeatureVector{AmountDiff: 1.5, DescriptionSimilarity: 0.4}

	for _, version := range []int{SchemaVersionExtended, SchemaVersionLegacy} {
		names, err := SchemaFeatureNames(version)
		if err != nil {
			t.Fatal(err)
		}
		vector, err := VectorFor(f, names)
		if err != nil {
			t.Errorf("VectorFor schema %d: %v", version, err)
			continue
		}
		if len(vector) != len(names) {
			t.Errorf("schema %d vector has %d values, want %d", version, len(vector), len(names))
		}
	}
}

func TestVectorForMissingDateSentinel(t *testing.T) {
	vector, err := VectorFor(&models.FeatureVector{}, []string{"date_diff_days"})
	if err != nil {
		t.Fatalf("VectorFor: %v", err)
	}
	if vector[0] != missingDateSentinel {
		t.Errorf("missing date projected to %f, want sentinel %d", vector[0], missingDateSentinel)
	}
}

func TestVectorForUnknownFeature(t *testing.T) {
	if _, err := VectorFor(&models.FeatureVector{}, []string{"amount_diff", "mystery"}); err == nil {
		t.Error("VectorFor with an unknown feature returned nil error")
	}
}

func TestVectorForNegativeDateDiff(t *testing.T) {
	days := -4
	vector, err := VectorFor(&models.FeatureVector{DateDiffDays: &days}, []string{"date_diff_days"})
	if err != nil {
		t.Fatal(err)
	}
	if vector[0] != 4 {
		t.Errorf("date_diff_days = %f, want absolute value 4", vector[0])
	}
}
