package matcher

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"invoice-reconciliation-service/internal/models"
)

func testDate(t *testing.T, value string) *time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		t.Fatalf("bad test date %q: %v", value, err)
	}
	return &parsed
}

func testInvoice(t *testing.T, amount, date, description, vendor, number string) *models.Transaction {
	t.Helper()
	txn := &models.Transaction{
		Source:        models.SourceInvoice,
		Description:   description,
		Amount:        decimal.RequireFromString(amount),
		VendorName:    vendor,
		InvoiceNumber: number,
	}
	if date != "" {
		txn.Date = testDate(t, date)
	}
	return txn
}

func testBank(t *testing.T, amount, date, description string) *models.Transaction {
	t.Helper()
	txn := &models.Transaction{
		Source:      models.SourceBank,
		Description: description,
		Amount:      decimal.RequireFromString(amount),
	}
	if date != "" {
		txn.Date = testDate(t, date)
	}
	return txn
}

func TestExtractAmountFeatures(t *testing.T) {
	extractor := DefaultFeatureExtractor()

	tests := []struct {
		name       string
		invoice    string
		bank       string
		wantExact  float64
		wantClose  float64
		ratioAbove float64
	}{
		{"identical", "1250.00", "1250.00", 1, 1, 0.99},
		{"bank debit sign ignored", "1250.00", "-1250.00", 1, 1, 0.99},
		{"one cent off", "100.00", "100.01", 1, 1, 0.99},
		{"within one percent", "1000.00", "1005.00", 0, 1, 0.99},
		{"far apart", "100.00", "250.00", 0, 0, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := extractor.Extract(
				testInvoice(t, tt.invoice, "", "x", "", ""),
				testBank(t, tt.bank, "", "y"),
			)
			if f.AmountMatchExact != tt.wantExact {
				t.Errorf("AmountMatchExact = %f, want %f", f.AmountMatchExact, tt.wantExact)
			}
			if f.AmountMatchClose != tt.wantClose {
				t.Errorf("AmountMatchClose = %f, want %f", f.AmountMatchClose, tt.wantClose)
			}
			if f.AmountRatio < tt.ratioAbove {
				t.Errorf("AmountRatio = %f, want >= %f", f.AmountRatio, tt.ratioAbove)
			}
			if f.AmountRatio < 0 || f.AmountRatio > 1 {
				t.Errorf("AmountRatio = %f, out of [0,1]", f.AmountRatio)
			}
		})
	}
}

func TestExtractDateDiff(t *testing.T) {
	extractor := DefaultFeatureExtractor()

	f := extractor.Extract(
		testInvoice(t, "10.00", "2024-01-15", "a", "", ""),
		testBank(t, "10.00", "2024-01-17", "b"),
	)
	days, ok := f.AbsDateDiff()
	if !ok || days != 2 {
		t.Errorf("AbsDateDiff = (%d, %v), want (2, true)", days, ok)
	}

	f = extractor.Extract(
		testInvoice(t, "10.00", "", "a", "", ""),
		testBank(t, "10.00", "2024-01-17", "b"),
	)
	if _, ok := f.AbsDateDiff(); ok {
		t.Error("AbsDateDiff reported a value with one date missing")
	}
}

func TestExtractFallsBackToBankDescription(t *testing.T) {
	extractor := DefaultFeatureExtractor()

	f := extractor.Extract(
		testInvoice(t, "1250.00", "2024-01-15", "Consulting services INV-123", "Acme Corp", "INV-123"),
		testBank(t, "-1250.00", "2024-01-17", "Payment ACME CORP ref INV123"),
	)

	if f.InvoiceNumberMatch != 0.85 {
		t.Errorf("InvoiceNumberMatch = %f, want 0.85 via description fallback", f.InvoiceNumberMatch)
	}
	if f.VendorSimilarity != 0.9 {
		t.Errorf("VendorSimilarity = %f, want 0.9 via description fallback", f.VendorSimilarity)
	}
}

func TestExtractReferenceID(t *testing.T) {
	extractor := DefaultFeatureExtractor()

	invoice := testInvoice(t, "10.00", "", "a", "", "")
	invoice.ReferenceID = "TXN-889"
	bank := testBank(t, "10.00", "", "b")
	bank.ReferenceID = "txn 889"

	if f := extractor.Extract(invoice, bank); f.ReferenceIDMatch != 1 {
		t.Errorf("ReferenceIDMatch = %f, want 1 for equal normalized references", f.ReferenceIDMatch)
	}

	bank.ReferenceID = "TXN-890"
	if f := extractor.Extract(invoice, bank); f.ReferenceIDMatch != 0 {
		t.Errorf("ReferenceIDMatch = %f, want 0 for different references", f.ReferenceIDMatch)
	}
}

func TestExtractDeterministic(t *testing.T) {
	extractor := DefaultFeatureExtractor()
	invoice := testInvoice(t, "99.95", "2024-03-01", "Subscription renewal INV-77", "SaaS Co", "INV-77")
	bank := testBank(t, "-99.95", "2024-03-02", "SAAS CO INV77 renewal")

	first := extractor.Extract(invoice, bank)
	for i := 0; i < 5; i++ {
		if got := extractor.Extract(invoice, bank); !reflect.DeepEqual(got, first) {
			t.Fatalf("extraction not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestAmountRatioZeroAmounts(t *testing.T) {
	if got := amountRatio(decimal.Zero, decimal.Zero); got != 1.0 {
		t.Errorf("amountRatio(0, 0) = %f, want 1.0", got)
	}
	if got := amountRatio(decimal.Zero, decimal.NewFromInt(5)); got != 0.0 {
		t.Errorf("amountRatio(0, 5) = %f, want 0.0", got)
	}
}
