package reconciler

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"invoice-reconciliation-service/internal/config"
	"invoice-reconciliation-service/internal/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := New(config.Default())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc
}

func invoice(t *testing.T, amount, date, description, vendor, number string) *models.Transaction {
	t.Helper()
	txn := &models.Transaction{
		Source:        models.SourceInvoice,
		Description:   description,
		Amount:        decimal.RequireFromString(amount),
		VendorName:    vendor,
		InvoiceNumber: number,
	}
	if date != "" {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			t.Fatal(err)
		}
		txn.Date = &parsed
	}
	return txn
}

func bankLine(t *testing.T, amount, date, description string) *models.Transaction {
	t.Helper()
	txn := &models.Transaction{
		Source:      models.SourceBank,
		Description: description,
		Amount:      decimal.RequireFromString(amount),
	}
	if date != "" {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			t.Fatal(err)
		}
		txn.Date = &parsed
	}
	return txn
}

func TestReconcilePerfectMatch(t *testing.T) {
	svc := newTestService(t)

	result, err := svc.Reconcile(context.Background(),
		[]*models.Transaction{
			invoice(t, "1250.00", "2024-01-15", "Consulting services INV-123", "Acme Corp", "INV-123"),
		},
		[]*models.Transaction{
			bankLine(t, "-1250.00", "2024-01-17", "Payment ACME CORP ref INV123"),
		},
	)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(result.Matches) != 1 {
		t.Fatalf("matched %d pairs, want 1", len(result.Matches))
	}
	if result.Matches[0].Confidence != models.ConfidenceHigh {
		t.Errorf("confidence = %s, want high", result.Matches[0].Confidence)
	}
}

func TestReconcileAmountMismatch(t *testing.T) {
	svc := newTestService(t)

	result, err := svc.Reconcile(context.Background(),
		[]*models.Transaction{
			invoice(t, "500.00", "2024-02-01", "Hosting invoice INV-500", "HostCo", "INV-500"),
		},
		[]*models.Transaction{
			bankLine(t, "-500.01", "2024-02-01", "Hosting invoice INV-500 HostCo"),
		},
	)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(result.Matches) != 0 {
		t.Fatalf("matched across different amounts")
	}
	if len(result.OnlyInInvoices) != 1 || len(result.OnlyInBank) != 1 {
		t.Errorf("leftovers = %d/%d, want 1/1",
			len(result.OnlyInInvoices), len(result.OnlyInBank))
	}
}

func TestReconcileAmbiguousAmounts(t *testing.T) {
	svc := newTestService(t)

	result, err := svc.Reconcile(context.Background(),
		[]*models.Transaction{
			invoice(t, "300.00", "2024-03-10", "Design work INV-201", "Studio A", "INV-201"),
			invoice(t, "300.00", "2024-03-11", "Copywriting INV-202", "WordShop", "INV-202"),
		},
		[]*models.Transaction{
			bankLine(t, "-300.00", "2024-03-11", "STUDIO A INV-201 design work"),
		},
	)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(result.Matches) != 1 {
		t.Fatalf("matched %d pairs, want 1", len(result.Matches))
	}
	if result.Matches[0].Invoice.InvoiceNumber != "INV-201" {
		t.Errorf("matched %s, want INV-201", result.Matches[0].Invoice.InvoiceNumber)
	}
}

func TestReconcileCollapsesDuplicates(t *testing.T) {
	svc := newTestService(t)

	// The same invoice extracted twice must produce one match and no
	// phantom unmatched row.
	result, err := svc.Reconcile(context.Background(),
		[]*models.Transaction{
			invoice(t, "450.00", "2024-02-01", "Cloud hosting February INV-88", "HostCo", "INV-88"),
			invoice(t, "450.00", "2024-02-01", "Cloud hosting February INV-88", "HostCo", "INV-88"),
		},
		[]*models.Transaction{
			bankLine(t, "-450.00", "2024-02-02", "HOSTCO INV88 hosting"),
		},
	)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(result.Matches) != 1 {
		t.Fatalf("matched %d pairs, want 1", len(result.Matches))
	}
	if len(result.OnlyInInvoices) != 0 {
		t.Errorf("duplicate left a phantom unmatched invoice: %v", result.OnlyInInvoices)
	}
}

func TestReconcileInvalidAmountsLandUnmatched(t *testing.T) {
	svc := newTestService(t)

	broken := &models.Transaction{
		Source:        models.SourceInvoice,
		Description:   "OCR failure row",
		InvalidAmount: true,
	}
	result, err := svc.Reconcile(context.Background(),
		[]*models.Transaction{broken},
		[]*models.Transaction{bankLine(t, "-10.00", "2024-01-01", "something")},
	)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(result.Matches) != 0 || len(result.OnlyInInvoices) != 1 {
		t.Errorf("invalid-amount row mishandled: %+v", result.Summary)
	}
}

func TestReconcileUsesCache(t *testing.T) {
	svc := newTestService(t)

	invoices := []*models.Transaction{
		invoice(t, "100.00", "2024-04-01", "Service A INV-1", "Alpha", "INV-1"),
	}
	bank := []*models.Transaction{
		bankLine(t, "-100.00", "2024-04-01", "ALPHA INV-1 service"),
	}

	first, err := svc.Reconcile(context.Background(), invoices, bank)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	second, err := svc.Reconcile(context.Background(), invoices, bank)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if first != second {
		t.Error("identical inputs did not return the cached result")
	}
}

func TestReconcileAsync(t *testing.T) {
	svc := newTestService(t)

	id := svc.ReconcileAsync(context.Background(),
		[]*models.Transaction{
			invoice(t, "100.00", "2024-04-01", "Service A INV-1", "Alpha", "INV-1"),
		},
		[]*models.Transaction{
			bankLine(t, "-100.00", "2024-04-01", "ALPHA INV-1 service"),
		},
	)
	if id == "" {
		t.Fatal("ReconcileAsync returned an empty job id")
	}

	deadline := time.After(5 * time.Second)
	for {
		job, ok := svc.Jobs().Get(id)
		if !ok {
			t.Fatal("job disappeared from the store")
		}
		if job.Status == models.JobCompleted {
			result, ok := job.Data.(*models.MatchResult)
			if !ok {
				t.Fatalf("job data is %T, want *models.MatchResult", job.Data)
			}
			if len(result.Matches) != 1 {
				t.Errorf("async run matched %d pairs, want 1", len(result.Matches))
			}
			return
		}
		if job.Status == models.JobError {
			t.Fatalf("job failed: %s", job.Message)
		}
		select {
		case <-deadline:
			t.Fatal("job did not complete in time")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestReconcileFeedsRetrainScheduler(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Reconcile(context.Background(),
		[]*models.Transaction{
			invoice(t, "100.00", "2024-04-01", "Service A INV-1", "Alpha", "INV-1"),
			invoice(t, "250.00", "2024-04-02", "Service B INV-2", "Beta", "INV-2"),
		},
		[]*models.Transaction{
			bankLine(t, "-100.00", "2024-04-01", "ALPHA INV-1 service"),
			bankLine(t, "-250.00", "2024-04-02", "BETA INV-2 service"),
		},
	)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if svc.Scheduler().Pending() == 0 {
		t.Error("reconciliation recorded no feedback for retraining")
	}
	svc.Shutdown()
}

func TestReconcileDeterministicAcrossRuns(t *testing.T) {
	invoices := []*models.Transaction{
		invoice(t, "100.00", "2024-04-01", "Service A INV-1", "Alpha", "INV-1"),
		invoice(t, "100.00", "2024-04-02", "Service B INV-2", "Beta", "INV-2"),
	}
	bank := []*models.Transaction{
		bankLine(t, "-100.00", "2024-04-02", "ALPHA INV-1 service"),
		bankLine(t, "-100.00", "2024-04-03", "BETA INV-2 service"),
	}

	// Fresh services so no cache is involved.
	first, err := newTestService(t).Reconcile(context.Background(), invoices, bank)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	for i := 0; i < 5; i++ {
		result, err := newTestService(t).Reconcile(context.Background(), invoices, bank)
		if err != nil {
			t.Fatalf("Reconcile: %v", err)
		}
		if len(result.Matches) != len(first.Matches) {
			t.Fatalf("run %d matched %d, first matched %d", i, len(result.Matches), len(first.Matches))
		}
		for j := range result.Matches {
			if result.Matches[j].Invoice.InvoiceNumber != first.Matches[j].Invoice.InvoiceNumber {
				t.Fatalf("run %d pair %d differs", i, j)
			}
		}
	}
}
