// Package models defines the value objects exchanged between the
// reconciliation pipeline stages: transactions extracted from invoice
// documents and bank statements, per-pair similarity features, match
// candidates, and the final reconciliation result partition.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionSource identifies which side of the reconciliation a
// transaction belongs to.
type TransactionSource string

const (
	// SourceInvoice marks a transaction extracted from an invoice document.
	SourceInvoice TransactionSource = "invoice"
	// SourceBank marks a transaction extracted from a bank statement.
	SourceBank TransactionSource = "bank"
)

// String returns the string representation of TransactionSource.
func (s TransactionSource) String() string {
	return string(s)
}

// IsValid checks if the source is one of the known values.
func (s TransactionSource) IsValid() bool {
	return s == SourceInvoice || s == SourceBank
}

// Direction represents the money flow of a bank statement line.
type Direction string

const (
	// DirectionCredit represents money flowing into the account.
	DirectionCredit Direction = "credit"
	// DirectionDebit represents money flowing out of the account.
	DirectionDebit Direction = "debit"
)

// Transaction is a normalized record describing one invoice line item or
// one bank statement line. It is treated as an immutable value object for
// the duration of a reconciliation run; the engine never mutates caller
// inputs in place.
type Transaction struct {
	Source          TransactionSource `json:"source"`
	Description     string            `json:"description"`
	Amount          decimal.Decimal   `json:"amount"`
	Date            *time.Time        `json:"date,omitempty"`
	VendorName      string            `json:"vendor_name,omitempty"`
	InvoiceNumber   string            `json:"invoice_number,omitempty"`
	Currency        string            `json:"currency,omitempty"`
	ReferenceID     string            `json:"reference_id,omitempty"`
	Direction       Direction         `json:"direction,omitempty"`
	Balance         *decimal.Decimal  `json:"balance,omitempty"`
	DocumentSubtype string            `json:"document_subtype,omitempty"`

	// InvalidAmount is set by loaders when the source document carried an
	// amount that could not be parsed. Such transactions are excluded from
	// candidate indexing and always end up unmatched.
	InvalidAmount bool `json:"-"`
}

// AbsAmount returns the absolute value of the transaction amount.
// Bank debits are commonly negative; matching compares magnitudes.
func (t *Transaction) AbsAmount() decimal.Decimal {
	return t.Amount.Abs()
}

// HasDate reports whether the transaction carries a usable date.
func (t *Transaction) HasDate() bool {
	return t.Date != nil && !t.Date.IsZero()
}

// String returns a compact representation for logs.
func (t *Transaction) String() string {
	date := "-"
	if t.HasDate() {
		date = t.Date.Format("2006-01-02")
	}
	return fmt.Sprintf("Transaction{%s, %s, %s, %q}",
		t.Source, t.Amount.StringFixed(2), date, truncate(t.Description, 40))
}

// MarshalJSON renders the amount as a fixed two-decimal string and the
// date as YYYY-MM-DD, the formats the downstream service layer expects.
func (t *Transaction) MarshalJSON() ([]byte, error) {
	type Alias Transaction
	aux := &struct {
		Amount string `json:"amount"`
		Date   string `json:"date,omitempty"`
		*Alias
	}{
		Amount: t.Amount.StringFixed(2),
		Alias:  (*Alias)(t),
	}
	if t.HasDate() {
		aux.Date = t.Date.Format("2006-01-02")
	}
	return json.Marshal(aux)
}

// UnmarshalJSON accepts amounts as JSON numbers or strings and dates in
// the common statement formats.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	type Alias Transaction
	aux := &struct {
		Amount json.RawMessage `json:"amount"`
		Date   string          `json:"date,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(t),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if len(aux.Amount) > 0 {
		raw := strings.Trim(string(aux.Amount), `"`)
		amount, err := ParseAmount(raw)
		if err != nil {
			// Malformed amounts are not fatal; the transaction is kept
			// but can never be indexed for matching.
			t.InvalidAmount = true
			t.Amount = decimal.Zero
		} else {
			t.Amount = amount
		}
	}

	if aux.Date != "" {
		parsed, err := ParseDate(aux.Date)
		if err != nil {
			return fmt.Errorf("invalid date format %q: %w", aux.Date, err)
		}
		t.Date = &parsed
	}
	return nil
}

// FeatureVector holds the numeric similarity signals computed between one
// invoice transaction and one bank transaction. All similarity fields lie
// in [0,1]. A FeatureVector is ephemeral: created and consumed within one
// scoring call.
type FeatureVector struct {
	AmountDiff            float64 `json:"amount_diff"`
	DescriptionSimilarity float64 `json:"description_similarity"`
	DateDiffDays          *int    `json:"date_diff_days"`
	AmountMatchExact      float64 `json:"amount_match_exact"`
	AmountMatchClose      float64 `json:"amount_match_close"`
	AmountRatio           float64 `json:"amount_ratio"`
	VendorSimilarity      float64 `json:"vendor_similarity"`
	InvoiceNumberMatch    float64 `json:"invoice_number_match"`
	ReferenceIDMatch      float64 `json:"reference_id_match"`
}

// AbsDateDiff returns the absolute date difference in days and whether a
// date difference is known at all.
func (f *FeatureVector) AbsDateDiff() (int, bool) {
	if f.DateDiffDays == nil {
		return 0, false
	}
	d := *f.DateDiffDays
	if d < 0 {
		d = -d
	}
	return d, true
}

// MatchCandidate is a tentative (invoice, bank) pairing admitted for
// scoring. Indices refer to the deduplicated input slices. Candidates are
// discarded after assignment.
type MatchCandidate struct {
	InvoiceIndex int
	BankIndex    int
	Score        float64
}

// ConfidenceLevel buckets a match score for presentation, mirroring the
// levels the back-office tooling expects.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// ConfidenceForScore maps a match score to its confidence band.
func ConfidenceForScore(score float64) ConfidenceLevel {
	switch {
	case score >= 0.8:
		return ConfidenceHigh
	case score >= 0.5:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// MatchPair is one committed invoice/bank match.
type MatchPair struct {
	Invoice    *Transaction    `json:"invoice"`
	Bank       *Transaction    `json:"bank"`
	Score      float64         `json:"score"`
	Confidence ConfidenceLevel `json:"confidence"`
}

// MatchResult is the output partition of a reconciliation run. Every
// transaction from both deduplicated input lists appears in exactly one of
// Matches, OnlyInInvoices, or OnlyInBank.
type MatchResult struct {
	Matches        []MatchPair    `json:"matches"`
	OnlyInInvoices []*Transaction `json:"only_in_invoices"`
	OnlyInBank     []*Transaction `json:"only_in_bank"`
	Summary        ResultSummary  `json:"summary"`
}

// ResultSummary provides aggregate statistics about one run.
type ResultSummary struct {
	TotalInvoices      int             `json:"total_invoices"`
	TotalBank          int             `json:"total_bank"`
	MatchedPairs       int             `json:"matched_pairs"`
	UnmatchedInvoices  int             `json:"unmatched_invoices"`
	UnmatchedBank      int             `json:"unmatched_bank"`
	HighConfidence     int             `json:"high_confidence"`
	MediumConfidence   int             `json:"medium_confidence"`
	LowConfidence      int             `json:"low_confidence"`
	MeanScore          float64         `json:"mean_score"`
	TotalAmountMatched decimal.Decimal `json:"total_amount_matched"`
}

// BuildSummary computes the summary statistics for a result partition.
func BuildSummary(result *MatchResult) ResultSummary {
	summary := ResultSummary{
		TotalInvoices:      len(result.Matches) + len(result.OnlyInInvoices),
		TotalBank:          len(result.Matches) + len(result.OnlyInBank),
		MatchedPairs:       len(result.Matches),
		UnmatchedInvoices:  len(result.OnlyInInvoices),
		UnmatchedBank:      len(result.OnlyInBank),
		TotalAmountMatched: decimal.Zero,
	}

	total := 0.0
	for _, match := range result.Matches {
		total += match.Score
		summary.TotalAmountMatched = summary.TotalAmountMatched.Add(match.Invoice.AbsAmount())
		switch match.Confidence {
		case ConfidenceHigh:
			summary.HighConfidence++
		case ConfidenceMedium:
			summary.MediumConfidence++
		default:
			summary.LowConfidence++
		}
	}
	if len(result.Matches) > 0 {
		summary.MeanScore = total / float64(len(result.Matches))
	}
	return summary
}

// DedupStats reports the outcome of one deduplication pass.
type DedupStats struct {
	OriginalCount     int `json:"original_count"`
	DeduplicatedCount int `json:"deduplicated_count"`
	DuplicatesRemoved int `json:"duplicates_removed"`
}

// CurrencyStats reports the currency distribution detected across one
// run's combined transaction set.
type CurrencyStats struct {
	// Counts maps currency symbol to the number of tagged transactions.
	Counts map[string]int `json:"counts"`
	// TaggedCount is the number of transactions carrying any currency.
	TaggedCount int `json:"tagged_count"`
	// Primary is the most frequent currency, empty when nothing is tagged.
	Primary string `json:"primary"`
	// Significant lists currencies at or above the significance threshold.
	Significant []string `json:"significant"`
	// Mixed is set when more than one currency is significant.
	Mixed bool `json:"mixed"`
}

// JobStatus enumerates the lifecycle states of a background job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobError      JobStatus = "error"
)

// JobProgress is the observable state of one long-running job. It is
// mutated in place under the JobStore lock and has no durability guarantee
// across process restarts.
type JobProgress struct {
	Status    JobStatus   `json:"status"`
	Progress  float64     `json:"progress"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// ParseAmount parses a money amount from a document field. Currency
// symbols and thousands separators are stripped before parsing, matching
// how statement exports present amounts.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	for _, symbol := range []string{"$", "€", "£", "₹", "¥"} {
		s = strings.ReplaceAll(s, symbol, "")
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	// Accounting notation: (123.45) means -123.45.
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + strings.Trim(s, "()")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

// ParseDate attempts to parse a date from the formats commonly seen in
// invoice and statement extractions.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date string cannot be empty")
	}

	formats := []string{
		"2006-01-02",
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"02/01/2006",
		"01/02/2006",
		"02-01-2006",
		"2006/01/02",
		"Jan 2, 2006",
		"2 Jan 2006",
		"January 2, 2006",
	}

	var lastErr error
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date %q: %w", s, lastErr)
}

// DateDiffDays returns the signed whole-day difference between two
// transactions' dates, or (0, false) when either side has no date.
func DateDiffDays(a, b *Transaction) (int, bool) {
	if !a.HasDate() || !b.HasDate() {
		return 0, false
	}
	da := truncateToDay(*a.Date)
	db := truncateToDay(*b.Date)
	return int(da.Sub(db).Hours() / 24), true
}

func truncateToDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
